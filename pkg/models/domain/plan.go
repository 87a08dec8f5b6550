package domain

import "time"

// ReconciliationPlan maps each eligible date to the cell values destined for
// its row. It exists only for the duration of one reconciliation call.
type ReconciliationPlan struct {
	Dates []time.Time                   // ascending
	Cells map[time.Time]map[int]float64 // date -> column index -> value
}

// RowWrite is one row of a WriteSet. Cells carry float64 for freshly fetched
// values and string for cell text carried over from the existing sheet.
type RowWrite struct {
	Date  time.Time
	Cells map[int]any
}

// RangeShift records that rows at and below StartRow moved down by Offset,
// so chart ranges referencing them need maintenance.
type RangeShift struct {
	Sheet    string
	StartRow int // 1-based first shifted row
	Offset   int // rows inserted
}

// WriteSet is the storage-agnostic output of one reconciliation: the exact
// cell writes to apply, and nothing else. No live workbook handle ever
// crosses a component boundary.
type WriteSet struct {
	Sheet    string
	Mode     MergeMode
	StartRow int // 1-based row the first RowWrite lands on

	Rows []RowWrite

	// InsertRows is the number of blank rows to open at StartRow before
	// writing. Zero for overwrite and append.
	InsertRows int

	// ClearRows is the number of stale rows to blank immediately below the
	// written region.
	ClearRows int

	// NewRows counts written dates that were absent from the existing
	// table; this is what run summaries report as rows written.
	NewRows int

	RangeShift *RangeShift
}
