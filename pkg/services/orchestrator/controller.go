package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"

	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

// History persists finished run summaries.
type History interface {
	SaveRun(ctx context.Context, summary domain.RunSummary) error
}

// NoopHistory discards run summaries.
type NoopHistory struct{}

func (NoopHistory) SaveRun(context.Context, domain.RunSummary) error {
	return nil
}

// Controller manages run lifecycles: starting them in the background,
// cancelling them, and persisting their summaries.
type Controller interface {
	StartRun(ctx context.Context, mode domain.RunMode, templates []domain.TemplateDescriptor) (string, error)
	CancelRun(ctx context.Context, id string) error
	ActiveRuns(ctx context.Context) []string
}

type runDescriptor struct {
	cancelFunc context.CancelFunc
	done       chan struct{}
}

type DefaultController struct {
	runner  *Runner
	history History

	mu   sync.Mutex
	runs map[string]runDescriptor
}

// NewController creates a controller around a runner. A nil history keeps
// summaries in logs only.
func NewController(runner *Runner, history History) *DefaultController {
	if history == nil {
		history = NoopHistory{}
	}
	return &DefaultController{
		runner:  runner,
		history: history,
		runs:    make(map[string]runDescriptor),
	}
}

// StartRun launches a run in the background and returns its id. The run
// outlives the caller's context; CancelRun is the way to stop it.
func (ctrl *DefaultController) StartRun(
	ctx context.Context,
	mode domain.RunMode,
	templates []domain.TemplateDescriptor,
) (string, error) {
	if len(templates) == 0 {
		return "", fmt.Errorf("no templates to run")
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	id := NewRunID()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	desc := runDescriptor{cancelFunc: cancel, done: make(chan struct{})}
	ctrl.runs[id] = desc

	go func() {
		defer close(desc.done)
		defer func() {
			ctrl.mu.Lock()
			delete(ctrl.runs, id)
			ctrl.mu.Unlock()
			cancel()
		}()

		summary := ctrl.runner.Run(runCtx, id, mode, templates)
		if err := ctrl.history.SaveRun(runCtx, summary); err != nil {
			zerolog.Ctx(runCtx).Error().Err(err).Str("run_id", id).Msg("failed to persist run summary")
		}
	}()

	return id, nil
}

// CancelRun stops an active run and waits for it to wind down.
func (ctrl *DefaultController) CancelRun(_ context.Context, id string) error {
	ctrl.mu.Lock()
	desc, ok := ctrl.runs[id]
	ctrl.mu.Unlock()
	if !ok {
		return fmt.Errorf("run %s is not active: %w", id, errs.ErrRunNotFound)
	}

	desc.cancelFunc()
	<-desc.done
	return nil
}

// ActiveRuns lists the ids of runs currently in flight.
func (ctrl *DefaultController) ActiveRuns(_ context.Context) []string {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	ids := maps.Keys(ctrl.runs)
	sort.Strings(ids)
	return ids
}
