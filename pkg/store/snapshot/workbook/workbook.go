// Package workbook is the xlsx codec for the reconciliation pipeline. It
// turns workbook blobs into sheet snapshots and applies write sets back.
package workbook

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

// Workbook wraps one open xlsx file held in memory.
type Workbook struct {
	file *excelize.File
}

// Open parses workbook bytes.
func Open(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return &Workbook{file: f}, nil
}

// New creates an empty workbook with a single named sheet.
func New(sheet string) (*Workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet %q: %w", sheet, err)
	}
	return &Workbook{file: f}, nil
}

// Sheets lists sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.file.GetSheetList()
}

// AddSheet appends an empty sheet.
func (w *Workbook) AddSheet(sheet string) error {
	if _, err := w.file.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add sheet %q: %w", sheet, err)
	}
	return nil
}

// Snapshot reads one sheet into a cell grid.
func (w *Workbook) Snapshot(sheet string) (domain.SheetSnapshot, error) {
	if !w.hasSheet(sheet) {
		return domain.SheetSnapshot{}, fmt.Errorf("sheet %q: %w", sheet, errs.ErrSheetNotFound)
	}
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return domain.SheetSnapshot{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return domain.SheetSnapshot{Sheet: sheet, Rows: rows}, nil
}

// Snapshots reads every sheet in the workbook.
func (w *Workbook) Snapshots() ([]domain.SheetSnapshot, error) {
	sheets := w.Sheets()
	snaps := make([]domain.SheetSnapshot, 0, len(sheets))
	for _, sheet := range sheets {
		snap, err := w.Snapshot(sheet)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Apply executes a write set against the workbook in memory.
//
// Overwrite and append rewrite their region, so every cell in it is blanked
// before writing; a row can never inherit text from whatever previously
// occupied its position. Insert opens blank rows instead and leaves the
// shifted table untouched.
func (w *Workbook) Apply(ws domain.WriteSet) error {
	if !w.hasSheet(ws.Sheet) {
		return fmt.Errorf("sheet %q: %w", ws.Sheet, errs.ErrSheetNotFound)
	}

	if ws.Mode == domain.MergeInsert {
		if ws.InsertRows > 0 {
			if err := w.file.InsertRows(ws.Sheet, ws.StartRow, ws.InsertRows); err != nil {
				return fmt.Errorf("failed to insert %d rows at %d: %w", ws.InsertRows, ws.StartRow, err)
			}
		}
	} else if err := w.clearRegion(ws.Sheet, ws.StartRow, len(ws.Rows)+ws.ClearRows); err != nil {
		return err
	}

	for i, row := range ws.Rows {
		target := ws.StartRow + i
		for col, value := range row.Cells {
			if err := w.SetCell(ws.Sheet, target, col, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetCell writes one cell. Rows are 1-based and columns 0-based, matching
// write set coordinates.
func (w *Workbook) SetCell(sheet string, row, col int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return fmt.Errorf("failed to address cell (%d, %d): %w", row, col, err)
	}
	if err := w.file.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to write cell %s: %w", cell, err)
	}
	return nil
}

// Bytes serializes the workbook.
func (w *Workbook) Bytes() ([]byte, error) {
	buf, err := w.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases the underlying file resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}

func (w *Workbook) hasSheet(sheet string) bool {
	idx, err := w.file.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

// clearRegion blanks count rows starting at startRow (1-based), bounded by
// the sheet's current content.
func (w *Workbook) clearRegion(sheet string, startRow, count int) error {
	if count <= 0 {
		return nil
	}
	grid, err := w.file.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	for row := startRow; row < startRow+count; row++ {
		if row < 1 || row-1 >= len(grid) {
			continue
		}
		for col := range grid[row-1] {
			if err := w.SetCell(sheet, row, col, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
