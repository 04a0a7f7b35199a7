package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/scheduler"
)

type ruleService interface {
	ListRules(ctx context.Context) ([]scheduler.Rule, error)
	DefineRule(ctx context.Context, input application.RuleInput) (scheduler.Rule, error)
	UpdateRule(ctx context.Context, id string, input application.RuleInput) (scheduler.Rule, error)
	DeleteRule(ctx context.Context, id string) error
	DuplicateRule(ctx context.Context, id string) (scheduler.Rule, error)
	ToggleRule(ctx context.Context, id string) (scheduler.Rule, error)
}

type RuleHandler struct {
	service   ruleService
	responder responder
	logger    *slog.Logger
}

func NewRuleHandler(service ruleService, logger *slog.Logger) *RuleHandler {
	base := defaultLogger(logger)
	return &RuleHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RuleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RuleHandler", operation, attrs...)
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rules, err := h.service.ListRules(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "rule listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRulesResponse{Rules: toRuleDTOs(rules)})
}

func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode rule request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	rule, err := h.service.DefineRule(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "rule creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("rule_id", rule.ID).InfoContext(r.Context(), "rule created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, ruleResponse{Rule: toRuleDTO(rule)})
}

func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ruleID, ok := h.ruleID(w, r, "Update")
	if !ok {
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "rule_id", ruleID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode rule update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "rule_id", ruleID)

	rule, err := h.service.UpdateRule(r.Context(), ruleID, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "rule update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "rule updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, ruleResponse{Rule: toRuleDTO(rule)})
}

func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ruleID, ok := h.ruleID(w, r, "Delete")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Delete", "rule_id", ruleID)
	if err := h.service.DeleteRule(r.Context(), ruleID); err != nil {
		logger.ErrorContext(r.Context(), "rule delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "rule deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *RuleHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ruleID, ok := h.ruleID(w, r, "Duplicate")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Duplicate", "rule_id", ruleID)
	rule, err := h.service.DuplicateRule(r.Context(), ruleID)
	if err != nil {
		logger.ErrorContext(r.Context(), "rule duplicate failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("copy_id", rule.ID).InfoContext(r.Context(), "rule duplicated")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, ruleResponse{Rule: toRuleDTO(rule)})
}

func (h *RuleHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ruleID, ok := h.ruleID(w, r, "Toggle")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Toggle", "rule_id", ruleID)
	rule, err := h.service.ToggleRule(r.Context(), ruleID)
	if err != nil {
		logger.ErrorContext(r.Context(), "rule toggle failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("active", rule.Active).InfoContext(r.Context(), "rule toggled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, ruleResponse{Rule: toRuleDTO(rule)})
}

func (h *RuleHandler) ruleID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	ruleID, ok := RuleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(ruleID) == "" {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing rule id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRuleID)
		return "", false
	}
	return ruleID, true
}

type ruleRequest struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
	Active   *bool  `json:"active,omitempty"`
}

func (r ruleRequest) toInput() application.RuleInput {
	return application.RuleInput{
		Field:    r.Field,
		Operator: r.Operator,
		Value:    r.Value,
		Active:   r.Active,
	}
}

type ruleResponse struct {
	Rule ruleDTO `json:"rule"`
}

type listRulesResponse struct {
	Rules []ruleDTO `json:"rules"`
}

type ruleDTO struct {
	ID          string `json:"id"`
	Field       string `json:"field"`
	Operator    string `json:"operator"`
	Value       string `json:"value"`
	Active      bool   `json:"active"`
	Description string `json:"description"`
	Strategy    string `json:"strategy"`
}

func toRuleDTO(rule scheduler.Rule) ruleDTO {
	return ruleDTO{
		ID:          rule.ID,
		Field:       string(rule.Field),
		Operator:    string(rule.Operator),
		Value:       rule.Value,
		Active:      rule.Active,
		Description: rule.Description(),
		Strategy:    rule.Strategy().String(),
	}
}

func toRuleDTOs(rules []scheduler.Rule) []ruleDTO {
	out := make([]ruleDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleDTO(rule))
	}
	return out
}
