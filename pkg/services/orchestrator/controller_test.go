package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

// blockingSource parks every fetch until its context is cancelled, keeping a
// run in flight for as long as the test needs.
type blockingSource struct {
	once    sync.Once
	started chan struct{}
}

func newBlockingSource() *blockingSource {
	return &blockingSource{started: make(chan struct{})}
}

func (s *blockingSource) FetchSeries(
	ctx context.Context,
	_ string,
	_ domain.DateRange,
	_ domain.SortOrder,
) ([]domain.Observation, error) {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

type spyHistory struct {
	mu    sync.Mutex
	saved []domain.RunSummary
}

func (h *spyHistory) SaveRun(_ context.Context, summary domain.RunSummary) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saved = append(h.saved, summary)
	return nil
}

func (h *spyHistory) summaries() []domain.RunSummary {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.RunSummary(nil), h.saved...)
}

func TestController_StartAndCancel(t *testing.T) {
	now := time.Date(2021, 1, 20, 0, 0, 0, 0, time.UTC)
	store := newMemStore()
	store.objects["us_macro.xlsx"] = seedWorkbook(t)

	src := newBlockingSource()
	runner, _ := newTestRunner(now, src, store)
	history := &spyHistory{}
	ctrl := NewController(runner, history)

	id, err := ctrl.StartRun(context.Background(), domain.RunIncremental,
		[]domain.TemplateDescriptor{insertTemplate()})
	require.NoError(t, err)
	assert.Contains(t, ctrl.ActiveRuns(context.Background()), id)

	<-src.started
	require.NoError(t, ctrl.CancelRun(context.Background(), id))
	assert.Empty(t, ctrl.ActiveRuns(context.Background()))

	summaries := history.summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, id, summaries[0].ID)
	assert.Equal(t, 1, summaries[0].Failed, "the cancelled fetch fails its template")

	assert.Error(t, ctrl.CancelRun(context.Background(), id), "a finished run is no longer cancellable")
}

func TestController_StartRunRequiresTemplates(t *testing.T) {
	runner, _ := newTestRunner(time.Now(), newBlockingSource(), newMemStore())
	ctrl := NewController(runner, nil)

	_, err := ctrl.StartRun(context.Background(), domain.RunIncremental, nil)
	require.Error(t, err)
}

func TestController_RunsDetachFromCallerContext(t *testing.T) {
	now := time.Date(2021, 1, 8, 0, 0, 0, 0, time.UTC) // template already current
	store := newMemStore()
	store.objects["us_macro.xlsx"] = seedWorkbook(t)

	runner, _ := newTestRunner(now, newBlockingSource(), store)
	history := &spyHistory{}
	ctrl := NewController(runner, history)

	// the request context dies immediately after starting the run
	reqCtx, cancel := context.WithCancel(context.Background())
	id, err := ctrl.StartRun(reqCtx, domain.RunIncremental,
		[]domain.TemplateDescriptor{insertTemplate()})
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool {
		return len(history.summaries()) == 1
	}, time.Second, 10*time.Millisecond, "the run must finish despite the dead request context")

	summary := history.summaries()[0]
	assert.Equal(t, id, summary.ID)
	assert.Equal(t, 1, summary.Succeeded, "a current template completes with zero rows")
}
