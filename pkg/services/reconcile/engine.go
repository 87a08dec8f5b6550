// Package reconcile turns fetched observations into the exact set of cell
// writes that brings a template sheet up to date.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
	"github.com/fin-tools/macro-sync/pkg/services/policy"
)

// Settings configures the reconciliation engine.
type Settings struct {
	// DateFormat renders written dates for templates that do not set their
	// own layout (default: 2006-01-02)
	DateFormat string
}

// DefaultSettings returns the default engine configuration.
func DefaultSettings() Settings {
	return Settings{
		DateFormat: "2006-01-02",
	}
}

// Request carries everything one reconciliation needs. The engine never
// touches storage or observation sources itself; it only computes.
type Request struct {
	Template domain.TemplateDescriptor
	Snapshot domain.SheetSnapshot
	Fetched  map[string][]domain.Observation
}

// Engine computes write sets. It is stateless and safe for concurrent use.
type Engine struct {
	settings Settings
}

// NewEngine creates an engine from settings, filling unset fields with
// defaults.
func NewEngine(settings Settings) *Engine {
	if settings.DateFormat == "" {
		settings.DateFormat = DefaultSettings().DateFormat
	}
	return &Engine{settings: settings}
}

// BuildWriteSet reconciles fetched observations against the current sheet
// content under the template's merge mode.
//
// The eligible dates come from the completeness policy; zero eligible dates
// surface as ErrNoEligibleDates so callers can close the template with zero
// rows written instead of failing it. Overwrites that would shrink the
// existing table without authorization fail with a TruncationError rather
// than silently orphaning rows.
func (e *Engine) BuildWriteSet(ctx context.Context, req Request) (domain.WriteSet, error) {
	tpl := req.Template
	sheet := req.Snapshot.Sheet

	eligible := policy.EligibleDates(req.Fetched, tpl.MainSeries)
	if len(eligible) == 0 {
		return domain.WriteSet{}, errs.ErrNoEligibleDates
	}

	layout := e.dateFormat(tpl)
	plan := buildPlan(req.Fetched, eligible, tpl.Columns)
	table := scanTable(req.Snapshot, tpl, layout)

	var (
		ws  domain.WriteSet
		err error
	)
	switch tpl.Merge {
	case domain.MergeOverwrite, "":
		ws, err = e.buildOverwrite(tpl, sheet, layout, plan, table)
	case domain.MergeInsert:
		ws, err = e.buildInsert(tpl, sheet, layout, plan, table)
	case domain.MergeAppend:
		ws, err = e.buildAppend(tpl, sheet, layout, plan, table)
	default:
		return domain.WriteSet{}, fmt.Errorf("unknown merge mode %q", tpl.Merge)
	}
	if err != nil {
		return domain.WriteSet{}, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("template", tpl.Name).
		Str("sheet", sheet).
		Str("mode", string(ws.Mode)).
		Int("rows", len(ws.Rows)).
		Int("new_rows", ws.NewRows).
		Int("clear_rows", ws.ClearRows).
		Msg("write set built")
	return ws, nil
}

// buildOverwrite rewrites the fixed region starting at the template's start
// row. The write covers exactly the eligible dates; a region that currently
// extends further is refused unless the template authorizes truncation.
func (e *Engine) buildOverwrite(
	tpl domain.TemplateDescriptor,
	sheet, layout string,
	plan domain.ReconciliationPlan,
	table []tableRow,
) (domain.WriteSet, error) {
	existing := len(table)
	writing := len(plan.Dates)
	if existing > writing && !tpl.AllowTruncate {
		return domain.WriteSet{}, &errs.TruncationError{
			Sheet:        sheet,
			ExistingRows: existing,
			WritingRows:  writing,
		}
	}

	ws := domain.WriteSet{
		Sheet:    sheet,
		Mode:     domain.MergeOverwrite,
		StartRow: tpl.DataStartRow(),
		Rows:     renderRows(plan.Dates, plan, tpl, layout),
		NewRows:  countNew(plan.Dates, datedIndex(table)),
	}
	if existing > writing {
		ws.ClearRows = existing - writing
	}
	return ws, nil
}

// buildInsert opens blank rows at the start row and fills them, pushing the
// existing table down. Dates already present in the table are skipped so a
// repeated run cannot duplicate rows. The shift is reported so chart ranges
// referencing the moved rows can be maintained.
func (e *Engine) buildInsert(
	tpl domain.TemplateDescriptor,
	sheet, layout string,
	plan domain.ReconciliationPlan,
	table []tableRow,
) (domain.WriteSet, error) {
	existing := datedIndex(table)
	fresh := make([]time.Time, 0, len(plan.Dates))
	for _, date := range plan.Dates {
		if _, ok := existing[date]; !ok {
			fresh = append(fresh, date)
		}
	}
	if len(fresh) == 0 {
		return domain.WriteSet{}, errs.ErrNoEligibleDates
	}

	return domain.WriteSet{
		Sheet:      sheet,
		Mode:       domain.MergeInsert,
		StartRow:   tpl.DataStartRow(),
		Rows:       renderRows(fresh, plan, tpl, layout),
		InsertRows: len(fresh),
		NewRows:    len(fresh),
		RangeShift: &domain.RangeShift{
			Sheet:    sheet,
			StartRow: tpl.DataStartRow(),
			Offset:   len(fresh),
		},
	}, nil
}

// buildAppend merges fetched rows into the existing table, dedupes by date
// with the fetched row winning, and rewrites the whole region in sorted
// order. Existing rows keep their cell text verbatim; only collided dates
// are replaced.
func (e *Engine) buildAppend(
	tpl domain.TemplateDescriptor,
	sheet, layout string,
	plan domain.ReconciliationPlan,
	table []tableRow,
) (domain.WriteSet, error) {
	index := make(map[time.Time]int)
	merged := make([]domain.RowWrite, 0, len(table)+len(plan.Dates))

	for _, row := range table {
		if !row.dated {
			// rows without a readable date cannot be deduped; the rewrite
			// drops them
			continue
		}
		carried := domain.RowWrite{Date: row.date, Cells: row.cells}
		if i, ok := index[row.date]; ok {
			merged[i] = carried
			continue
		}
		index[row.date] = len(merged)
		merged = append(merged, carried)
	}

	newDates := 0
	for _, date := range plan.Dates {
		cells := map[int]any{tpl.DateColumn: date.Format(layout)}
		for col, v := range plan.Cells[date] {
			cells[col] = v
		}
		fetched := domain.RowWrite{Date: date, Cells: cells}
		if i, ok := index[date]; ok {
			merged[i] = fetched
			continue
		}
		index[date] = len(merged)
		merged = append(merged, fetched)
		newDates++
	}

	sortRows(merged, tpl.RowOrder)

	ws := domain.WriteSet{
		Sheet:    sheet,
		Mode:     domain.MergeAppend,
		StartRow: tpl.DataStartRow(),
		Rows:     merged,
		NewRows:  newDates,
	}
	if len(table) > len(merged) {
		ws.ClearRows = len(table) - len(merged)
	}
	return ws, nil
}

func (e *Engine) dateFormat(tpl domain.TemplateDescriptor) string {
	if tpl.DateFormat != "" {
		return tpl.DateFormat
	}
	return e.settings.DateFormat
}
