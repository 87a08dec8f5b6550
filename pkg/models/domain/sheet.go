package domain

// SheetSnapshot is the raw cell grid of one sheet as read from storage.
// Rows hold cell text row-major; short rows mean trailing empty cells.
// Dates may be duplicated or out of order until reconciled.
type SheetSnapshot struct {
	Sheet string
	Rows  [][]string
}

// Cell returns the text at (row, col), both 0-based, or "" when the
// coordinate falls outside the sparse grid.
func (s SheetSnapshot) Cell(row, col int) string {
	if row < 0 || row >= len(s.Rows) {
		return ""
	}
	r := s.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// DataRowCount counts rows at or below startRow (1-based) holding at least
// one non-empty cell.
func (s SheetSnapshot) DataRowCount(startRow int) int {
	count := 0
	for i := startRow - 1; i < len(s.Rows); i++ {
		if i < 0 {
			continue
		}
		for _, cell := range s.Rows[i] {
			if cell != "" {
				count++
				break
			}
		}
	}
	return count
}
