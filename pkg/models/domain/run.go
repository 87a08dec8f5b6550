package domain

import "time"

// TemplateStatus is the per-template state machine. A template moves
// pending -> auditing -> fetching -> reconciling -> writing -> done, or to
// failed from any state.
type TemplateStatus string

const (
	StatusPending     TemplateStatus = "pending"
	StatusAuditing    TemplateStatus = "auditing"
	StatusFetching    TemplateStatus = "fetching"
	StatusReconciling TemplateStatus = "reconciling"
	StatusWriting     TemplateStatus = "writing"
	StatusDone        TemplateStatus = "done"
	StatusFailed      TemplateStatus = "failed"
)

// TemplateResult is the per-template line of a RunSummary.
type TemplateResult struct {
	Template    string
	Status      TemplateStatus // done or failed
	Stage       TemplateStatus // last stage entered
	RowsWritten int
	DateRange   *DateRange // fetch window, nil when fetching never started
	Error       *string
}

// RunSummary aggregates one orchestrator run. It is always best-effort:
// per-template failures land in Details and never abort the run.
type RunSummary struct {
	ID         string
	Mode       RunMode
	StartedAt  time.Time
	FinishedAt time.Time

	Total            int
	Succeeded        int
	Failed           int
	RowsWrittenTotal int

	Details []TemplateResult
}
