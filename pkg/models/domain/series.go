package domain

import "time"

type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// Observation is one published value of a series. A nil Value models a
// placeholder the source emitted for a date with no data.
type Observation struct {
	SeriesID string
	Date     time.Time
	Value    *float64
}

// DateRange is an inclusive observation window.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// DateOnly truncates t to midnight UTC so dates compare as calendar days
// regardless of the wall clock or zone they were parsed with.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
