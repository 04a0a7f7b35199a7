package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/scheduler"
)

type conflictService interface {
	Conflicts(ctx context.Context) (application.ConflictTable, error)
	Scan(ctx context.Context) (application.ScanResult, error)
	Resolve(ctx context.Context) (application.ResolveReport, error)
	ApplySnapshot(ctx context.Context) error
	ResetSnapshot(ctx context.Context) error
	Save(ctx context.Context) error
}

// ConflictHandler serves the conflict table, the scan and resolve actions,
// and the snapshot lifecycle.
type ConflictHandler struct {
	service   conflictService
	responder responder
	logger    *slog.Logger
}

func NewConflictHandler(service conflictService, logger *slog.Logger) *ConflictHandler {
	base := defaultLogger(logger)
	return &ConflictHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ConflictHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ConflictHandler", operation, attrs...)
}

func (h *ConflictHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	table, err := h.service.Conflicts(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "conflict listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictTableResponse{
		State:     string(table.State),
		Conflicts: toConflictDTOs(table.Rows),
	})
}

func (h *ConflictHandler) Scan(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	result, err := h.service.Scan(r.Context())
	if err != nil {
		h.log(r.Context(), "Scan").ErrorContext(r.Context(), "scan failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scanResponse{State: string(result.State), Conflicts: result.Conflicts})
}

func (h *ConflictHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	report, err := h.service.Resolve(r.Context())
	if err != nil {
		h.log(r.Context(), "Resolve").ErrorContext(r.Context(), "resolution pass failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toResolveResponse(report))
}

func (h *ConflictHandler) ApplySnapshot(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, "ApplySnapshot", conflictService.ApplySnapshot)
}

func (h *ConflictHandler) ResetSnapshot(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, "ResetSnapshot", conflictService.ResetSnapshot)
}

func (h *ConflictHandler) Save(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, "Save", conflictService.Save)
}

func (h *ConflictHandler) runAction(w http.ResponseWriter, r *http.Request, operation string, action func(conflictService, context.Context) error) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), operation)
	if err := action(h.service, r.Context()); err != nil {
		logger.ErrorContext(r.Context(), "action failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "action completed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type conflictDTO struct {
	EntryID  string    `json:"entry_id"`
	Calendar string    `json:"calendar"`
	Entry    string    `json:"entry"`
	Rule     string    `json:"rule"`
	RuleID   string    `json:"rule_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type conflictTableResponse struct {
	State     string        `json:"state"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type scanResponse struct {
	State     string `json:"state"`
	Conflicts int    `json:"conflicts"`
}

type resolutionDTO struct {
	EntryID  string `json:"entry_id"`
	RuleID   string `json:"rule_id"`
	Rule     string `json:"rule"`
	Strategy string `json:"strategy"`
	Adjusted bool   `json:"adjusted"`
	Resolved bool   `json:"resolved"`
}

type resolveResponse struct {
	State     string          `json:"state"`
	Adjusted  int             `json:"adjusted"`
	Resolved  int             `json:"resolved"`
	Remaining int             `json:"remaining"`
	Results   []resolutionDTO `json:"results"`
}

func toConflictDTOs(rows []application.ConflictRow) []conflictDTO {
	out := make([]conflictDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, conflictDTO{
			EntryID:  row.EntryID,
			Calendar: row.Calendar,
			Entry:    row.Entry,
			Rule:     row.Rule,
			RuleID:   row.RuleID,
			Start:    row.Start,
			End:      row.End,
		})
	}
	return out
}

func toResolveResponse(report application.ResolveReport) resolveResponse {
	resp := resolveResponse{
		State:     string(report.State),
		Adjusted:  report.Adjusted,
		Resolved:  report.Resolved,
		Remaining: report.Remaining,
		Results:   make([]resolutionDTO, 0, len(report.Results)),
	}
	for _, result := range report.Results {
		resp.Results = append(resp.Results, toResolutionDTO(result))
	}
	return resp
}

func toResolutionDTO(result scheduler.Resolution) resolutionDTO {
	return resolutionDTO{
		EntryID:  result.EntryID,
		RuleID:   result.Rule.ID,
		Rule:     result.Rule.Description(),
		Strategy: result.Strategy.String(),
		Adjusted: result.Adjusted,
		Resolved: result.Resolved,
	}
}
