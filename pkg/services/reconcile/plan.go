package reconcile

import (
	"sort"
	"time"

	"github.com/fin-tools/macro-sync/pkg/models/domain"
	"github.com/fin-tools/macro-sync/pkg/services/audit"
)

// buildPlan collapses fetched observations onto the eligible dates. When a
// series reports the same date twice the later observation wins.
func buildPlan(
	fetched map[string][]domain.Observation,
	eligible []time.Time,
	columns map[string]int,
) domain.ReconciliationPlan {
	set := make(map[time.Time]struct{}, len(eligible))
	for _, date := range eligible {
		set[date] = struct{}{}
	}

	cells := make(map[time.Time]map[int]float64, len(eligible))
	for seriesID, col := range columns {
		for _, obs := range fetched[seriesID] {
			date := domain.DateOnly(obs.Date)
			if _, ok := set[date]; !ok {
				continue
			}
			if obs.Value == nil {
				continue
			}
			row := cells[date]
			if row == nil {
				row = make(map[int]float64)
				cells[date] = row
			}
			row[col] = *obs.Value
		}
	}
	return domain.ReconciliationPlan{Dates: eligible, Cells: cells}
}

// tableRow is one existing row inside the template's data region.
type tableRow struct {
	date  time.Time
	dated bool
	cells map[int]any
}

// scanTable reads the current data region: every row from the template start
// row through the last row holding any content, interior blanks included.
// Cell text is kept verbatim so append merges can carry it through.
func scanTable(snap domain.SheetSnapshot, tpl domain.TemplateDescriptor, layout string) []tableRow {
	start := tpl.DataStartRow()

	last := -1
	for i := start - 1; i >= 0 && i < len(snap.Rows); i++ {
		for _, cell := range snap.Rows[i] {
			if cell != "" {
				last = i
				break
			}
		}
	}
	if last < 0 {
		return nil
	}

	rows := make([]tableRow, 0, last-start+2)
	for i := start - 1; i <= last; i++ {
		if i < 0 {
			continue
		}
		row := tableRow{cells: make(map[int]any)}
		for col, cell := range snap.Rows[i] {
			if cell != "" {
				row.cells[col] = cell
			}
		}
		if date, ok := parseCellDate(snap.Cell(i, tpl.DateColumn), layout); ok {
			row.date = date
			row.dated = true
		}
		rows = append(rows, row)
	}
	return rows
}

// parseCellDate reads an existing date cell, trying the template layout
// before the general forms the auditor accepts.
func parseCellDate(raw string, layout string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(layout, raw); err == nil {
		return domain.DateOnly(t), true
	}
	return audit.ParseDate(raw)
}

// renderRows materializes plan rows in the template's row order.
func renderRows(
	dates []time.Time,
	plan domain.ReconciliationPlan,
	tpl domain.TemplateDescriptor,
	layout string,
) []domain.RowWrite {
	rows := make([]domain.RowWrite, 0, len(dates))
	for _, date := range dates {
		cells := map[int]any{tpl.DateColumn: date.Format(layout)}
		for col, v := range plan.Cells[date] {
			cells[col] = v
		}
		rows = append(rows, domain.RowWrite{Date: date, Cells: cells})
	}
	sortRows(rows, tpl.RowOrder)
	return rows
}

// sortRows orders rows for writing. Descending is the sheet-native default:
// the newest observation lands in the first data row.
func sortRows(rows []domain.RowWrite, order domain.RowOrder) {
	sort.SliceStable(rows, func(i, j int) bool {
		if order == domain.OrderAscending {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].Date.After(rows[j].Date)
	})
}

// datedIndex returns the set of dates the existing table already covers.
func datedIndex(table []tableRow) map[time.Time]struct{} {
	index := make(map[time.Time]struct{}, len(table))
	for _, row := range table {
		if row.dated {
			index[row.date] = struct{}{}
		}
	}
	return index
}

// countNew counts written dates absent from the existing table.
func countNew(dates []time.Time, existing map[time.Time]struct{}) int {
	count := 0
	for _, date := range dates {
		if _, ok := existing[date]; !ok {
			count++
		}
	}
	return count
}

