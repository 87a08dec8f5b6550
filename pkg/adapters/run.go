package adapters

import (
	"github.com/fin-tools/macro-sync/pkg/models/api"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
	"github.com/fin-tools/macro-sync/pkg/models/store"
)

func MapTemplateResultDomainToApi(r domain.TemplateResult) api.TemplateResult {
	res := api.TemplateResult{
		Template:    r.Template,
		Status:      string(r.Status),
		Stage:       string(r.Stage),
		RowsWritten: r.RowsWritten,
	}
	if r.DateRange != nil {
		res.DateRange = &api.TimePeriod{
			Start:    r.DateRange.Start,
			End:      r.DateRange.End,
			Duration: int(r.DateRange.End.Sub(r.DateRange.Start).Hours() / 24),
		}
	}
	if r.Error != nil {
		res.Error = *r.Error
	}
	return res
}

func MapRunSummaryDomainToApi(s domain.RunSummary) api.RunSummary {
	res := api.RunSummary{
		ID:               s.ID,
		Mode:             string(s.Mode),
		StartedAt:        s.StartedAt,
		FinishedAt:       s.FinishedAt,
		Total:            s.Total,
		Succeeded:        s.Succeeded,
		Failed:           s.Failed,
		RowsWrittenTotal: s.RowsWrittenTotal,
		Details:          make([]api.TemplateResult, 0, len(s.Details)),
	}
	for _, d := range s.Details {
		res.Details = append(res.Details, MapTemplateResultDomainToApi(d))
	}
	return res
}

func MapRunSummaryDomainToStore(s domain.RunSummary) store.Run {
	finished := s.FinishedAt
	return store.Run{
		ID:               s.ID,
		Mode:             string(s.Mode),
		StartedAt:        s.StartedAt,
		FinishedAt:       &finished,
		Total:            s.Total,
		Succeeded:        s.Succeeded,
		Failed:           s.Failed,
		RowsWrittenTotal: s.RowsWrittenTotal,
	}
}

func MapTemplateResultDomainToStore(runID string, r domain.TemplateResult) store.TemplateRun {
	res := store.TemplateRun{
		RunID:       runID,
		Template:    r.Template,
		Status:      string(r.Status),
		Stage:       string(r.Stage),
		RowsWritten: r.RowsWritten,
		Error:       r.Error,
	}
	if r.DateRange != nil {
		start, end := r.DateRange.Start, r.DateRange.End
		res.RangeStart = &start
		res.RangeEnd = &end
	}
	return res
}

func MapStoreRunToDomainSummary(r store.Run, details []store.TemplateRun) domain.RunSummary {
	s := domain.RunSummary{
		ID:               r.ID,
		Mode:             domain.RunMode(r.Mode),
		StartedAt:        r.StartedAt,
		Total:            r.Total,
		Succeeded:        r.Succeeded,
		Failed:           r.Failed,
		RowsWrittenTotal: r.RowsWrittenTotal,
		Details:          make([]domain.TemplateResult, 0, len(details)),
	}
	if r.FinishedAt != nil {
		s.FinishedAt = *r.FinishedAt
	}
	for _, d := range details {
		dr := domain.TemplateResult{
			Template:    d.Template,
			Status:      domain.TemplateStatus(d.Status),
			Stage:       domain.TemplateStatus(d.Stage),
			RowsWritten: d.RowsWritten,
			Error:       d.Error,
		}
		if d.RangeStart != nil && d.RangeEnd != nil {
			dr.DateRange = &domain.DateRange{Start: *d.RangeStart, End: *d.RangeEnd}
		}
		s.Details = append(s.Details, dr)
	}
	return s
}
