// Package templates exposes the HTTP surface: template inventory, audits,
// run control, run history, and the regime report.
package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fin-tools/macro-sync/pkg/adapters"
	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/api"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
	"github.com/fin-tools/macro-sync/pkg/services/orchestrator"
)

// Auditor runs a read-only audit of one template's workbook.
type Auditor interface {
	Audit(ctx context.Context, tpl domain.TemplateDescriptor) (domain.AuditResult, error)
}

// History reads recorded runs.
type History interface {
	GetRun(ctx context.Context, id string) (domain.RunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

// Assessor classifies the macro regime.
type Assessor interface {
	Assess(ctx context.Context) (domain.RegimeAssessment, error)
}

type Handler struct {
	templates  []domain.TemplateDescriptor
	byName     map[string]domain.TemplateDescriptor
	controller orchestrator.Controller
	auditor    Auditor
	history    History
	assessor   Assessor
}

func NewHandler(
	templates []domain.TemplateDescriptor,
	controller orchestrator.Controller,
	auditor Auditor,
	history History,
	assessor Assessor,
) *Handler {
	byName := make(map[string]domain.TemplateDescriptor, len(templates))
	for _, tpl := range templates {
		byName[tpl.Name] = tpl
	}
	return &Handler{
		templates:  templates,
		byName:     byName,
		controller: controller,
		auditor:    auditor,
		history:    history,
		assessor:   assessor,
	}
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	response := make([]api.Template, 0, len(h.templates))
	for _, tpl := range h.templates {
		response = append(response, adapters.MapTemplateDomainToApi(tpl))
	}
	writeJSON(w, r, http.StatusOK, response)
}

func (h *Handler) AuditTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "template")

	tpl, ok := h.byName[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %s not found", name), http.StatusNotFound)
		return
	}

	result, err := h.auditor.Audit(ctx, tpl)
	if err != nil {
		if errs.IsSheetNotFound(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapAuditResultDomainToApi(name, result))
}

func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body. Expected JSON", http.StatusBadRequest)
		return
	}

	mode := domain.RunIncremental
	if req.Mode != "" {
		var err error
		mode, err = domain.ParseRunMode(req.Mode)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	selected := h.templates
	if len(req.Templates) > 0 {
		selected = make([]domain.TemplateDescriptor, 0, len(req.Templates))
		for _, name := range req.Templates {
			tpl, ok := h.byName[name]
			if !ok {
				http.Error(w, fmt.Sprintf("template %s not found", name), http.StatusBadRequest)
				return
			}
			selected = append(selected, tpl)
		}
	}

	id, err := h.controller.StartRun(ctx, mode, selected)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusAccepted, api.StartRunResponse{RunID: id})
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		var err error
		limit, err = strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid 'limit' value. Expected an integer", http.StatusBadRequest)
			return
		}
	}

	runs, err := h.history.ListRuns(ctx, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	response := make([]api.RunSummary, 0, len(runs))
	for _, run := range runs {
		response = append(response, adapters.MapRunSummaryDomainToApi(run))
	}
	writeJSON(w, r, http.StatusOK, response)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "run")

	run, err := h.history.GetRun(ctx, id)
	if err != nil {
		if errs.IsRunNotFound(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapRunSummaryDomainToApi(run))
}

func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "run")

	if err := h.controller.CancelRun(ctx, id); err != nil {
		if errs.IsRunNotFound(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ActiveRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, api.ActiveRuns{Runs: h.controller.ActiveRuns(r.Context())})
}

func (h *Handler) GetRegime(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	assessment, err := h.assessor.Assess(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapRegimeAssessmentDomainToApi(assessment))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}
