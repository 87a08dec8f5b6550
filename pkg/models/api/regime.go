package api

import "time"

type RegimeSignal struct {
	Name     string   `json:"name"`
	SeriesID string   `json:"series_id"`
	Value    *float64 `json:"value"`
	Trend    string   `json:"trend"`
	Signal   int      `json:"signal"`
	Weight   float64  `json:"weight"`
}

type RegimeReport struct {
	AsOf       time.Time          `json:"as_of"`
	Regime     string             `json:"regime"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
	Signals    []RegimeSignal     `json:"signals"`
	Longs      []string           `json:"longs"`
	Shorts     []string           `json:"shorts"`
}
