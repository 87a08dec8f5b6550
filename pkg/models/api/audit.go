package api

import "time"

type AuditReport struct {
	Template       string  `json:"template"`
	Sheet          string  `json:"sheet"`
	DateColumn     int     `json:"date_column"`
	DateColumnName string  `json:"date_column_name"`
	Confidence     float64 `json:"confidence"`

	Cadence   string    `json:"cadence"`
	FirstDate time.Time `json:"first_date"`
	LastDate  time.Time `json:"last_date"`
	RowCount  int       `json:"row_count"`

	StalenessDays int     `json:"staleness_days"`
	GapInPeriods  float64 `json:"gap_in_periods"`
	NeedsBackfill bool    `json:"needs_backfill"`
}

type Template struct {
	Name       string   `json:"name"`
	Storage    string   `json:"storage"`
	Sheet      string   `json:"sheet,omitempty"`
	Series     []string `json:"series"`
	MainSeries []string `json:"main_series"`
	MergeMode  string   `json:"merge_mode"`
	Source     string   `json:"source"`
}
