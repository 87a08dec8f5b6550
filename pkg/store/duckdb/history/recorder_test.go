package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fin-tools/macro-sync/pkg/models/domain"
	"github.com/fin-tools/macro-sync/pkg/store/duckdb"
)

func TestRecorder_RoundTrip(t *testing.T) {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st, err := NewStore(db)
	require.NoError(t, err)
	recorder := NewRecorder(st)
	ctx := context.Background()

	fetchErr := "main series UNRATE: source unavailable"
	summary := domain.RunSummary{
		ID:               "run-42",
		Mode:             domain.RunBackfill,
		StartedAt:        time.Date(2026, 2, 10, 6, 0, 0, 0, time.UTC),
		FinishedAt:       time.Date(2026, 2, 10, 6, 3, 0, 0, time.UTC),
		Total:            2,
		Succeeded:        1,
		Failed:           1,
		RowsWrittenTotal: 1310,
		Details: []domain.TemplateResult{
			{
				Template:    "Treasury_Yields",
				Status:      domain.StatusDone,
				Stage:       domain.StatusDone,
				RowsWritten: 1310,
				DateRange: &domain.DateRange{
					Start: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
					End:   time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
				},
			},
			{
				Template: "Unemployment",
				Status:   domain.StatusFailed,
				Stage:    domain.StatusFetching,
				Error:    &fetchErr,
			},
		},
	}

	require.NoError(t, recorder.SaveRun(ctx, summary))

	got, err := recorder.GetRun(ctx, "run-42")
	require.NoError(t, err)
	assert.Equal(t, domain.RunBackfill, got.Mode)
	assert.Equal(t, 1310, got.RowsWrittenTotal)
	require.Len(t, got.Details, 2)

	yields := got.Details[0]
	assert.Equal(t, "Treasury_Yields", yields.Template)
	assert.Equal(t, domain.StatusDone, yields.Status)
	require.NotNil(t, yields.DateRange)
	assert.True(t, yields.DateRange.Start.Equal(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))

	failed := got.Details[1]
	assert.Equal(t, domain.StatusFailed, failed.Status)
	assert.Equal(t, domain.StatusFetching, failed.Stage)
	require.NotNil(t, failed.Error)
	assert.Nil(t, failed.DateRange)

	runs, err := recorder.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-42", runs[0].ID)
	assert.Empty(t, runs[0].Details)
}
