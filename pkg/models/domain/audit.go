package domain

import "time"

type Cadence string

const (
	CadenceDaily     Cadence = "daily"
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceAnnual    Cadence = "annual"
	CadenceUnknown   Cadence = "unknown"
)

// PeriodDays is the nominal period length used to express staleness in
// periods. Unknown cadence has no period.
func (c Cadence) PeriodDays() float64 {
	switch c {
	case CadenceDaily:
		return 1
	case CadenceMonthly:
		return 30
	case CadenceQuarterly:
		return 90
	case CadenceAnnual:
		return 365
	}
	return 0
}

// Next advances t by one reporting period using calendar arithmetic, so a
// monthly step from Jan 31 lands in early March rather than on a fixed
// 30-day offset. Unknown cadence steps one day.
func (c Cadence) Next(t time.Time) time.Time {
	switch c {
	case CadenceMonthly:
		return t.AddDate(0, 1, 0)
	case CadenceQuarterly:
		return t.AddDate(0, 3, 0)
	case CadenceAnnual:
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 0, 1)
}

// AuditResult describes the audited state of one sheet's time series.
// It is computed fresh on every call and never cached.
type AuditResult struct {
	Sheet          string
	DateColumn     int // 0-based
	DateColumnName string
	Confidence     float64 // parse fraction of the chosen column

	Cadence   Cadence
	FirstDate time.Time
	LastDate  time.Time
	RowCount  int // count of rows with a parseable date

	StalenessDays int
	GapInPeriods  float64
	NeedsBackfill bool
}
