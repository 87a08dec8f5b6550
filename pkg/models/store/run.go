package store

import "time"

type Run struct {
	ID               string
	Mode             string
	StartedAt        time.Time
	FinishedAt       *time.Time
	Total            int
	Succeeded        int
	Failed           int
	RowsWrittenTotal int
}

type TemplateRun struct {
	RunID       string
	Template    string
	Status      string
	Stage       string
	RowsWritten int
	RangeStart  *time.Time
	RangeEnd    *time.Time
	Error       *string
}
