// Package orchestrator drives template updates end to end: audit the sheet,
// fetch observations, reconcile, write back, summarize.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"

	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
	"github.com/fin-tools/macro-sync/pkg/services/audit"
	"github.com/fin-tools/macro-sync/pkg/services/notify"
	"github.com/fin-tools/macro-sync/pkg/services/reconcile"
	"github.com/fin-tools/macro-sync/pkg/services/source"
	"github.com/fin-tools/macro-sync/pkg/store/snapshot"
	"github.com/fin-tools/macro-sync/pkg/store/snapshot/workbook"
)

// Settings configures the orchestrator.
type Settings struct {
	// BackfillFloor is the fetch start for backfills of templates whose
	// sheet holds no usable history (default: 2021-01-01)
	BackfillFloor time.Time
	// Audit configures the sheet audits run before fetching
	Audit audit.Settings
	// Now overrides the clock; nil means time.Now
	Now func() time.Time
}

// DefaultSettings returns the default orchestrator configuration.
func DefaultSettings() Settings {
	return Settings{
		BackfillFloor: time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC),
		Audit:         audit.DefaultSettings(),
	}
}

func (s Settings) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// NewRunID mints a run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Runner executes one run over a set of templates.
type Runner struct {
	settings Settings
	sources  source.Registry
	stores   snapshot.Registry
	engine   *reconcile.Engine
	notifier notify.Notifier
}

// NewRunner wires a runner from its collaborators.
func NewRunner(
	settings Settings,
	sources source.Registry,
	stores snapshot.Registry,
	engine *reconcile.Engine,
	notifier notify.Notifier,
) *Runner {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Runner{
		settings: settings,
		sources:  sources,
		stores:   stores,
		engine:   engine,
		notifier: notifier,
	}
}

// Run updates every template in order and returns the run summary. One
// template's failure never stops the others. Cancellation is honored between
// templates: the one in flight finishes normally and the rest are marked
// failed with the cancellation error.
func (r *Runner) Run(
	ctx context.Context,
	id string,
	mode domain.RunMode,
	templates []domain.TemplateDescriptor,
) domain.RunSummary {
	logger := zerolog.Ctx(ctx).With().Str("run_id", id).Str("mode", string(mode)).Logger()
	ctx = logger.WithContext(ctx)

	summary := domain.RunSummary{
		ID:        id,
		Mode:      mode,
		StartedAt: r.settings.now(),
		Total:     len(templates),
	}
	logger.Info().Int("templates", len(templates)).Msg("run started")

	for i, tpl := range templates {
		if err := ctx.Err(); err != nil {
			for _, rest := range templates[i:] {
				message := err.Error()
				summary.Details = append(summary.Details, domain.TemplateResult{
					Template: rest.Name,
					Status:   domain.StatusFailed,
					Stage:    domain.StatusPending,
					Error:    &message,
				})
				summary.Failed++
			}
			logger.Warn().Int("skipped", len(templates)-i).Msg("run cancelled")
			break
		}

		result := r.runTemplate(ctx, mode, tpl)
		summary.Details = append(summary.Details, result)
		if result.Status == domain.StatusDone {
			summary.Succeeded++
			summary.RowsWrittenTotal += result.RowsWritten
		} else {
			summary.Failed++
		}
	}

	summary.FinishedAt = r.settings.now()
	logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("rows_written", summary.RowsWrittenTotal).
		Msg("run finished")

	if err := r.notifier.Notify(ctx, summaryMessage(summary)); err != nil {
		logger.Warn().Err(err).Msg("run summary notification failed")
	}
	return summary
}

// runTemplate walks one template through the stage machine. Every exit path
// leaves Status at done or failed and Stage at the last stage entered.
func (r *Runner) runTemplate(
	ctx context.Context,
	mode domain.RunMode,
	tpl domain.TemplateDescriptor,
) domain.TemplateResult {
	logger := zerolog.Ctx(ctx).With().Str("template", tpl.Name).Logger()
	ctx = logger.WithContext(ctx)

	result := domain.TemplateResult{
		Template: tpl.Name,
		Status:   domain.StatusPending,
		Stage:    domain.StatusPending,
	}
	fail := func(err error) domain.TemplateResult {
		logger.Error().Err(err).Str("stage", string(result.Stage)).Msg("template update failed")
		message := err.Error()
		result.Status = domain.StatusFailed
		result.Error = &message
		return result
	}
	done := func() domain.TemplateResult {
		result.Status = domain.StatusDone
		result.Stage = domain.StatusDone
		logger.Info().Int("rows_written", result.RowsWritten).Msg("template updated")
		return result
	}

	// AUDITING
	result.Stage = domain.StatusAuditing
	store, err := r.stores.Resolve(tpl.Storage.Provider)
	if err != nil {
		return fail(err)
	}
	data, err := store.Fetch(ctx, tpl.Storage)
	if err != nil {
		return fail(err)
	}
	wb, err := workbook.Open(data)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = wb.Close() }()

	snap, auditRes, err := r.auditTemplate(ctx, wb, tpl)
	if err != nil {
		// A backfill tolerates a failed audit only while the data region is
		// still empty; then fetching starts at the floor. A populated sheet
		// that fails audit is a data error.
		if mode == domain.RunBackfill && tpl.Sheet != "" && emptyHistory(err) &&
			snap.DataRowCount(tpl.DataStartRow()) == 0 {
			logger.Warn().Err(err).Msg("no history to audit; backfilling from the floor")
			auditRes = nil
		} else {
			return fail(err)
		}
	}

	// fetch window
	now := domain.DateOnly(r.settings.now())
	start := r.settings.BackfillFloor
	if auditRes != nil {
		switch mode {
		case domain.RunIncremental:
			if !auditRes.NeedsBackfill {
				logger.Info().
					Int("staleness_days", auditRes.StalenessDays).
					Msg("template is fresh; nothing to fetch")
				return done()
			}
			start = auditRes.LastDate.AddDate(0, 0, 1)
		default:
			start = auditRes.Cadence.Next(auditRes.LastDate)
		}
	}
	if start.After(now) {
		logger.Info().Time("next_start", start).Msg("template already current")
		return done()
	}
	window := domain.DateRange{Start: domain.DateOnly(start), End: now}

	// FETCHING
	result.Stage = domain.StatusFetching
	result.DateRange = &window
	src, err := r.sources.Resolve(tpl.Source)
	if err != nil {
		return fail(err)
	}

	fetched := make(map[string][]domain.Observation, len(tpl.Columns))
	for _, seriesID := range sortedSeries(tpl.Columns) {
		observations, err := src.FetchSeries(ctx, seriesID, window, domain.SortAscending)
		if err != nil {
			// a main series failure makes completeness undecidable
			if tpl.IsMain(seriesID) {
				return fail(fmt.Errorf("main series %s: %w", seriesID, err))
			}
			logger.Warn().Err(err).Str("series", seriesID).Msg("supplementary series skipped")
			continue
		}
		fetched[seriesID] = observations
	}

	// RECONCILING
	result.Stage = domain.StatusReconciling
	ws, err := r.engine.BuildWriteSet(ctx, reconcile.Request{
		Template: tpl,
		Snapshot: snap,
		Fetched:  fetched,
	})
	if err != nil {
		if errs.IsNoEligibleDates(err) {
			logger.Info().Msg("no eligible dates; nothing to write")
			return done()
		}
		return fail(err)
	}

	// WRITING
	result.Stage = domain.StatusWriting
	if err := wb.Apply(ws); err != nil {
		return fail(err)
	}
	out, err := wb.Bytes()
	if err != nil {
		return fail(err)
	}
	if err := store.Save(ctx, tpl.Storage, out); err != nil {
		return fail(err)
	}
	result.RowsWritten = ws.NewRows

	if ws.RangeShift != nil {
		message := fmt.Sprintf("%s: %d rows inserted at %s!%d; chart ranges referencing shifted rows need maintenance",
			tpl.Name, ws.RangeShift.Offset, ws.RangeShift.Sheet, ws.RangeShift.StartRow)
		if err := r.notifier.Notify(ctx, message); err != nil {
			logger.Warn().Err(err).Msg("range shift notification failed")
		}
	}
	return done()
}

// Audit fetches the template's workbook and audits it without writing
// anything back. It backs the audit API and CLI surfaces.
func (r *Runner) Audit(ctx context.Context, tpl domain.TemplateDescriptor) (domain.AuditResult, error) {
	store, err := r.stores.Resolve(tpl.Storage.Provider)
	if err != nil {
		return domain.AuditResult{}, err
	}
	data, err := store.Fetch(ctx, tpl.Storage)
	if err != nil {
		return domain.AuditResult{}, err
	}
	wb, err := workbook.Open(data)
	if err != nil {
		return domain.AuditResult{}, err
	}
	defer func() { _ = wb.Close() }()

	_, res, err := r.auditTemplate(ctx, wb, tpl)
	if err != nil {
		return domain.AuditResult{}, err
	}
	return *res, nil
}

// auditTemplate audits the configured sheet, or every sheet when the
// template leaves the choice open. The snapshot of the audited sheet is
// returned alongside so reconciliation reads the same grid the audit saw.
func (r *Runner) auditTemplate(
	ctx context.Context,
	wb *workbook.Workbook,
	tpl domain.TemplateDescriptor,
) (domain.SheetSnapshot, *domain.AuditResult, error) {
	settings := r.settings.Audit
	if tpl.HeaderRow > 0 {
		settings.HeaderRow = tpl.HeaderRow
	}
	if settings.Now == nil {
		settings.Now = r.settings.Now
	}

	if tpl.Sheet != "" {
		snap, err := wb.Snapshot(tpl.Sheet)
		if err != nil {
			return domain.SheetSnapshot{}, nil, err
		}
		res, err := audit.AuditSheet(ctx, snap, settings)
		if err != nil {
			return snap, nil, err
		}
		return snap, &res, nil
	}

	snaps, err := wb.Snapshots()
	if err != nil {
		return domain.SheetSnapshot{}, nil, err
	}
	res, err := audit.AuditWorkbook(ctx, snaps, settings)
	if err != nil {
		return domain.SheetSnapshot{}, nil, err
	}
	snap, err := wb.Snapshot(res.Sheet)
	if err != nil {
		return domain.SheetSnapshot{}, nil, err
	}
	return snap, &res, nil
}

// emptyHistory reports whether the audit failed only because the sheet holds
// no readable series yet.
func emptyHistory(err error) bool {
	return errs.IsDateColumnNotFound(err) || errs.IsInsufficientValidDates(err)
}

func sortedSeries(columns map[string]int) []string {
	series := maps.Keys(columns)
	sort.Strings(series)
	return series
}

func summaryMessage(summary domain.RunSummary) string {
	return fmt.Sprintf("%s run %s: %d/%d templates updated, %d rows written, %d failed",
		summary.Mode, summary.ID, summary.Succeeded, summary.Total, summary.RowsWrittenTotal, summary.Failed)
}
