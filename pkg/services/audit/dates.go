package audit

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

// dateLayouts are the formats observed in template sheets, tried in order.
// The US slash form wins over the EU one because every upstream source here
// publishes US-ordered dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2006",
	"January 2006",
	"2006-01",
}

// excelEpoch is day zero of the 1900 date system as spreadsheets store it.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const (
	// Serial numbers are only accepted in this window so a bare 4-digit
	// year ("2016") is always read as a year, never as serial 2016.
	minSerial = 10000
	maxSerial = 80000
)

// ParseDate attempts to read one cell as a calendar date. The result is
// truncated to midnight UTC.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.DateOnly(t), true
		}
	}

	// Bare 4-digit years appear in annually reported templates.
	if len(s) == 4 && isDigits(s) {
		if year, err := strconv.Atoi(s); err == nil {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
		}
	}

	// Spreadsheet serial dates survive as numbers when a sheet loses its
	// date formatting.
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial >= minSerial && serial <= maxSerial {
			return excelEpoch.AddDate(0, 0, int(serial)), true
		}
	}

	return time.Time{}, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// headerMatchesToken reports whether any word of the header equals one of the
// tokens. Matching is on whole words so "Today" never matches "day".
func headerMatchesToken(header string, tokens []string) bool {
	words := strings.FieldsFunc(strings.ToLower(header), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		for _, tok := range tokens {
			if w == tok {
				return true
			}
		}
	}
	return false
}

// dateCandidate is one scored date-column candidate.
type dateCandidate struct {
	index      int
	name       string
	confidence float64     // parseable fraction of the column's non-empty cells
	dates      []time.Time // parsed dates in row order
}

// rankDateCandidates scores candidate columns and orders them by confidence,
// ties broken left to right. Header-matching columns are the candidate set
// when any exist; otherwise the first three columns are scored.
func rankDateCandidates(snap domain.SheetSnapshot, settings Settings) []dateCandidate {
	width := gridWidth(snap)
	if width == 0 {
		return nil
	}

	header := headerRow(snap, settings)
	var indices []int
	for i := 0; i < width; i++ {
		if i < len(header) && headerMatchesToken(header[i], settings.HeaderTokens) {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		for i := 0; i < width && i < 3; i++ {
			indices = append(indices, i)
		}
	}

	candidates := make([]dateCandidate, 0, len(indices))
	for _, idx := range indices {
		candidates = append(candidates, scoreColumn(snap, idx, header, settings))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].confidence > candidates[j].confidence
	})
	return candidates
}

// scoreColumn parses every data cell of one column. Unparseable cells lower
// the confidence but are never mutated.
func scoreColumn(snap domain.SheetSnapshot, idx int, header []string, settings Settings) dateCandidate {
	cand := dateCandidate{index: idx, name: columnName(header, idx)}

	nonEmpty := 0
	for row := settings.HeaderRow; row < len(snap.Rows); row++ {
		cell := snap.Cell(row, idx)
		if strings.TrimSpace(cell) == "" {
			continue
		}
		nonEmpty++
		if d, ok := ParseDate(cell); ok {
			cand.dates = append(cand.dates, d)
		}
	}
	if nonEmpty > 0 {
		cand.confidence = float64(len(cand.dates)) / float64(nonEmpty)
	}
	return cand
}

func columnName(header []string, idx int) string {
	if idx < len(header) && strings.TrimSpace(header[idx]) != "" {
		return strings.TrimSpace(header[idx])
	}
	return "column " + strconv.Itoa(idx+1)
}

func headerRow(snap domain.SheetSnapshot, settings Settings) []string {
	row := settings.HeaderRow - 1
	if row < 0 || row >= len(snap.Rows) {
		return nil
	}
	return snap.Rows[row]
}

func gridWidth(snap domain.SheetSnapshot) int {
	width := 0
	for _, row := range snap.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// medianDelta returns the median gap in days between successive dates after
// ascending sort.
func medianDelta(dates []time.Time) float64 {
	if len(dates) < 2 {
		return 0
	}
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	deltas := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		deltas = append(deltas, sorted[i].Sub(sorted[i-1]).Hours()/24)
	}
	sort.Float64s(deltas)

	mid := len(deltas) / 2
	if len(deltas)%2 == 1 {
		return deltas[mid]
	}
	return (deltas[mid-1] + deltas[mid]) / 2
}
