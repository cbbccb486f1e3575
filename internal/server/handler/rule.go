package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// RuleService defines the rule-service methods the rule handler requires.
type RuleService interface {
	CreateRule(ctx context.Context, r domain.AutoPricingRule) (domain.AutoPricingRule, error)
	UpdateRule(ctx context.Context, r domain.AutoPricingRule) (domain.AutoPricingRule, error)
	DeleteRule(ctx context.Context, id string) error
	GetRule(ctx context.Context, id string) (domain.AutoPricingRule, error)
	RulesForProduct(ctx context.Context, productID string) ([]domain.AutoPricingRule, error)
	EvaluateRule(ctx context.Context, ruleID string) (domain.RuleOutcome, error)
	BulkApplyRule(ctx context.Context, ruleID string, productIDs []string) ([]domain.RuleOutcome, error)
}

// RuleHandler serves the auto-pricing rule endpoints.
type RuleHandler struct {
	rules  RuleService
	logger *slog.Logger
}

// NewRuleHandler creates a RuleHandler.
func NewRuleHandler(rules RuleService, logger *slog.Logger) *RuleHandler {
	return &RuleHandler{
		rules:  rules,
		logger: logger,
	}
}

// CreateRule stores a new rule.
// POST /api/rules
func (h *RuleHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.AutoPricingRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	created, err := h.rules.CreateRule(r.Context(), rule)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRule) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create rule failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create rule")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateRule replaces an existing rule.
// PUT /api/rules/{id}
func (h *RuleHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var rule domain.AutoPricingRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rule.ID = id

	updated, err := h.rules.UpdateRule(r.Context(), rule)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRule) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: update rule failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update rule")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteRule removes a rule.
// DELETE /api/rules/{id}
func (h *RuleHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	if err := h.rules.DeleteRule(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: delete rule failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete rule")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// GetRule returns one rule by id.
// GET /api/rules/{id}
func (h *RuleHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	rule, err := h.rules.GetRule(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get rule failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get rule")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// listRulesResponse wraps a product's rule list.
type listRulesResponse struct {
	Rules []domain.AutoPricingRule `json:"rules"`
}

// ProductRules returns the rules attached to one product.
// GET /api/products/{id}/rules
func (h *RuleHandler) ProductRules(w http.ResponseWriter, r *http.Request) {
	productID := pathParam(r, "id")

	rules, err := h.rules.RulesForProduct(r.Context(), productID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list rules failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}

	if rules == nil {
		rules = []domain.AutoPricingRule{}
	}
	writeJSON(w, http.StatusOK, listRulesResponse{Rules: rules})
}

// EvaluateRule runs one rule against its own product.
// POST /api/rules/{id}/evaluate
func (h *RuleHandler) EvaluateRule(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	outcome, err := h.rules.EvaluateRule(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: evaluate rule failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to evaluate rule")
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// bulkApplyRequest is the body for the bulk apply endpoint.
type bulkApplyRequest struct {
	ProductIDs []string `json:"product_ids"`
}

// bulkApplyResponse wraps the per-product outcomes of a bulk apply.
type bulkApplyResponse struct {
	Outcomes []domain.RuleOutcome `json:"outcomes"`
}

// BulkApply evaluates one rule against many products. Per-product failures
// land in the corresponding outcome; the endpoint only errors when the rule
// itself cannot be loaded.
// POST /api/rules/{id}/bulk
func (h *RuleHandler) BulkApply(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req bulkApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.ProductIDs) == 0 {
		writeError(w, http.StatusBadRequest, "product_ids must not be empty")
		return
	}

	outcomes, err := h.rules.BulkApplyRule(r.Context(), id, req.ProductIDs)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: bulk apply failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "bulk apply failed")
		return
	}
	writeJSON(w, http.StatusOK, bulkApplyResponse{Outcomes: outcomes})
}
