package domain

import "time"

type Regime string

const (
	RegimeExpansion Regime = "expansion"
	RegimeLateCycle Regime = "late_cycle"
	RegimeRecession Regime = "recession"
	RegimeRecovery  Regime = "recovery"
)

// Regimes lists every classifiable regime in scoring order. The order is
// load-bearing: when two regimes score identically the earlier one wins.
func Regimes() []Regime {
	return []Regime{RegimeExpansion, RegimeLateCycle, RegimeRecession, RegimeRecovery}
}

type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// RegimeSignal is one scored macro indicator. Value is nil when the
// indicator could not be read, in which case it contributes nothing to
// any regime score.
type RegimeSignal struct {
	Name     string
	SeriesID string
	Value    *float64
	Trend    Trend
	Signal   int // -2 (strongly contractionary) .. +2 (strongly expansionary)
	Weight   float64
}

// RegimeAssessment is a weighted classification of the macro environment
// built from the freshest available observations. Scores holds the
// normalized fit of every candidate regime in [0, 1]; Confidence is the
// score of the winner.
type RegimeAssessment struct {
	AsOf       time.Time
	Regime     Regime
	Confidence float64
	Scores     map[Regime]float64
	Signals    []RegimeSignal
	Longs      []string // sectors favored under the regime
	Shorts     []string
}
