// Package audit infers the shape of a spreadsheet-resident time series:
// which column holds dates, the reporting cadence, and how stale the series
// has become. Detection is a ranked-candidate scorer with an explicit
// confidence, never a first-match guess.
package audit

import (
	"context"
	"time"

	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

// Settings contains the configurable thresholds for sheet audits.
type Settings struct {
	// MinValidDates is the minimum number of parseable dates a column must
	// hold to be audited (default: 5)
	MinValidDates int
	// MinConfidence is the minimum parseable fraction for a candidate date
	// column (default: 0.5)
	MinConfidence float64
	// FreshnessThresholdDays is the staleness above which a template needs
	// a backfill (default: 7)
	FreshnessThresholdDays int
	// MinDate rejects candidate columns whose range starts before it
	// (default: 1900-01-01)
	MinDate time.Time
	// MaxDate rejects candidate columns whose range ends after it
	// (default: 2030-12-31)
	MaxDate time.Time
	// HeaderRow is the 1-based row holding column headers (default: 1)
	HeaderRow int
	// HeaderTokens are the words that mark a header as date-like
	HeaderTokens []string
	// Now overrides the clock; nil means time.Now
	Now func() time.Time
}

// DefaultSettings returns the default audit configuration.
func DefaultSettings() Settings {
	return Settings{
		MinValidDates:          5,
		MinConfidence:          0.5,
		FreshnessThresholdDays: 7,
		MinDate:                time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC),
		MaxDate:                time.Date(2030, time.December, 31, 0, 0, 0, 0, time.UTC),
		HeaderRow:              1,
		HeaderTokens:           []string{"date", "period", "month", "year", "time", "day"},
	}
}

func (s Settings) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// AuditSheet audits one sheet snapshot. It returns ErrDateColumnNotFound when
// no candidate column reaches MinConfidence inside the sane date window, and
// ErrInsufficientValidDates when the winning column holds too few dates.
func AuditSheet(ctx context.Context, snap domain.SheetSnapshot, settings Settings) (domain.AuditResult, error) {
	candidates := rankDateCandidates(snap, settings)

	for _, cand := range candidates {
		if cand.confidence < settings.MinConfidence || len(cand.dates) == 0 {
			continue
		}

		first, last := dateBounds(cand.dates)
		// A column full of parseable but implausible dates is noise, not a
		// date column; fall through to the next candidate.
		if first.Before(settings.MinDate) || last.After(settings.MaxDate) {
			continue
		}

		if len(cand.dates) < settings.MinValidDates {
			return domain.AuditResult{}, &errs.AuditError{
				Sheet:  snap.Sheet,
				Column: cand.name,
				Err:    errs.ErrInsufficientValidDates,
			}
		}

		return buildResult(snap.Sheet, cand, first, last, settings), nil
	}

	return domain.AuditResult{}, &errs.AuditError{Sheet: snap.Sheet, Err: errs.ErrDateColumnNotFound}
}

// AuditWorkbook audits every sheet independently and keeps the result with
// the largest row count, ties broken by the most recent last date. When all
// sheets fail, the first sheet's error is returned.
func AuditWorkbook(ctx context.Context, snaps []domain.SheetSnapshot, settings Settings) (domain.AuditResult, error) {
	var best *domain.AuditResult
	var firstErr error

	for _, snap := range snaps {
		res, err := AuditSheet(ctx, snap, settings)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if best == nil || betterResult(res, *best) {
			r := res
			best = &r
		}
	}

	if best != nil {
		return *best, nil
	}
	if firstErr != nil {
		return domain.AuditResult{}, firstErr
	}
	return domain.AuditResult{}, &errs.AuditError{Err: errs.ErrSheetNotFound}
}

func betterResult(a, b domain.AuditResult) bool {
	if a.RowCount != b.RowCount {
		return a.RowCount > b.RowCount
	}
	return a.LastDate.After(b.LastDate)
}

// buildResult derives cadence, staleness, and gap measures for the chosen
// column.
func buildResult(sheet string, cand dateCandidate, first, last time.Time, settings Settings) domain.AuditResult {
	cadence := classifyCadence(cand.dates)
	staleness := int(settings.now().Sub(last).Hours() / 24)

	gap := 0.0
	if period := cadence.PeriodDays(); period > 0 {
		gap = float64(staleness) / period
	}

	return domain.AuditResult{
		Sheet:          sheet,
		DateColumn:     cand.index,
		DateColumnName: cand.name,
		Confidence:     cand.confidence,
		Cadence:        cadence,
		FirstDate:      first,
		LastDate:       last,
		RowCount:       len(cand.dates),
		StalenessDays:  staleness,
		GapInPeriods:   gap,
		NeedsBackfill:  staleness > settings.FreshnessThresholdDays,
	}
}

// classifyCadence buckets the median of successive ascending date deltas.
// Duplicate-heavy columns collapse the median to zero, which is unknowable.
func classifyCadence(dates []time.Time) domain.Cadence {
	med := medianDelta(dates)
	switch {
	case med <= 0:
		return domain.CadenceUnknown
	case med <= 1.5:
		return domain.CadenceDaily
	case med <= 35:
		return domain.CadenceMonthly
	case med <= 100:
		return domain.CadenceQuarterly
	default:
		return domain.CadenceAnnual
	}
}

func dateBounds(dates []time.Time) (time.Time, time.Time) {
	first, last := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return first, last
}
