package api

import "time"

type TimePeriod struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Duration int       `json:"duration_days"`
}

type TemplateResult struct {
	Template    string      `json:"template"`
	Status      string      `json:"status"`
	Stage       string      `json:"stage"`
	RowsWritten int         `json:"rows_written"`
	DateRange   *TimePeriod `json:"date_range,omitempty"`
	Error       string      `json:"error,omitempty"`
}

type RunSummary struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Total            int `json:"total"`
	Succeeded        int `json:"succeeded"`
	Failed           int `json:"failed"`
	RowsWrittenTotal int `json:"rows_written_total"`

	Details []TemplateResult `json:"details"`
}

type StartRunRequest struct {
	Mode      string   `json:"mode"`
	Templates []string `json:"templates,omitempty"`
}

type StartRunResponse struct {
	RunID string `json:"run_id"`
}

type ActiveRuns struct {
	Runs []string `json:"runs"`
}
