package history

import (
	"context"

	"github.com/fin-tools/macro-sync/pkg/adapters"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
	"github.com/fin-tools/macro-sync/pkg/models/store"
)

// Recorder is the domain-facing face of the history store. It satisfies the
// orchestrator's History dependency and serves run lookups for the API.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) SaveRun(ctx context.Context, summary domain.RunSummary) error {
	run := adapters.MapRunSummaryDomainToStore(summary)
	details := make([]store.TemplateRun, 0, len(summary.Details))
	for _, d := range summary.Details {
		details = append(details, adapters.MapTemplateResultDomainToStore(summary.ID, d))
	}
	return r.store.SaveRun(ctx, run, details)
}

func (r *Recorder) GetRun(ctx context.Context, id string) (domain.RunSummary, error) {
	run, details, err := r.store.GetRun(ctx, id)
	if err != nil {
		return domain.RunSummary{}, err
	}
	return adapters.MapStoreRunToDomainSummary(*run, details), nil
}

// ListRuns returns recent run summaries without their per-template details.
func (r *Recorder) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	runs, err := r.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, adapters.MapStoreRunToDomainSummary(run, nil))
	}
	return summaries, nil
}
