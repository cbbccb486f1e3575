package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// RepricingService defines the ledger-facing methods the price-change
// handler requires.
type RepricingService interface {
	ApplyStrategyToProduct(ctx context.Context, productID, strategyID string) (*domain.PriceChange, error)
	ApplyChange(ctx context.Context, changeID string) (domain.PriceChange, error)
	RejectChange(ctx context.Context, changeID string) (domain.PriceChange, error)
	DeleteChange(ctx context.Context, changeID string) bool
	GetChange(changeID string) (domain.PriceChange, bool)
	History(productID string) []domain.PriceChange
	AllChanges() []domain.PriceChange
	ClearAll(ctx context.Context) (int, error)
	RestoreDeleted(ctx context.Context) (int, error)
}

// PriceChangeHandler serves the repricing and ledger endpoints.
type PriceChangeHandler struct {
	repricing RepricingService
	logger    *slog.Logger
}

// NewPriceChangeHandler creates a PriceChangeHandler.
func NewPriceChangeHandler(repricing RepricingService, logger *slog.Logger) *PriceChangeHandler {
	return &PriceChangeHandler{
		repricing: repricing,
		logger:    logger,
	}
}

// repriceRequest is the body for the reprice endpoint.
type repriceRequest struct {
	StrategyID string `json:"strategy_id"`
}

// Reprice runs the decision engine for one product under one strategy and
// commits the proposal, if any, to the ledger. A 204 means the engine had
// nothing to propose.
// POST /api/products/{id}/reprice
func (h *PriceChangeHandler) Reprice(w http.ResponseWriter, r *http.Request) {
	productID := pathParam(r, "id")

	var req repriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.StrategyID == "" {
		writeError(w, http.StatusBadRequest, "strategy_id is required")
		return
	}

	change, err := h.repricing.ApplyStrategyToProduct(r.Context(), productID, req.StrategyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: reprice failed",
			slog.String("product_id", productID),
			slog.String("strategy_id", req.StrategyID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "repricing failed")
		return
	}
	if change == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, change)
}

// listChangesResponse wraps a list of ledger entries.
type listChangesResponse struct {
	Changes []domain.PriceChange `json:"changes"`
}

// ListChanges returns every ledger entry, newest first.
// GET /api/changes
func (h *PriceChangeHandler) ListChanges(w http.ResponseWriter, r *http.Request) {
	changes := h.repricing.AllChanges()
	if changes == nil {
		changes = []domain.PriceChange{}
	}
	writeJSON(w, http.StatusOK, listChangesResponse{Changes: changes})
}

// GetChange returns one ledger entry by id.
// GET /api/changes/{id}
func (h *PriceChangeHandler) GetChange(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	change, ok := h.repricing.GetChange(id)
	if !ok {
		writeError(w, http.StatusNotFound, "price change not found")
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// ProductHistory returns the ledger entries for one product, newest first.
// GET /api/products/{id}/changes
func (h *PriceChangeHandler) ProductHistory(w http.ResponseWriter, r *http.Request) {
	productID := pathParam(r, "id")

	changes := h.repricing.History(productID)
	if changes == nil {
		changes = []domain.PriceChange{}
	}
	writeJSON(w, http.StatusOK, listChangesResponse{Changes: changes})
}

// ApplyChange marks a change as applied and pushes the price to the product.
// POST /api/changes/{id}/apply
func (h *PriceChangeHandler) ApplyChange(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	change, err := h.repricing.ApplyChange(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "price change not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: apply change failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		// The ledger entry is marked failed; return it so the caller sees
		// the state it ended in.
		writeJSON(w, http.StatusBadGateway, change)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// RejectChange marks a change as rejected.
// POST /api/changes/{id}/reject
func (h *PriceChangeHandler) RejectChange(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	change, err := h.repricing.RejectChange(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "price change not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: reject change failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to reject change")
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// DeleteChange removes a change and tombstones its id.
// DELETE /api/changes/{id}
func (h *PriceChangeHandler) DeleteChange(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	// Deleting a missing id is a no-op, not an error, so retries stay
	// idempotent.
	deleted := h.repricing.DeleteChange(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted, "id": id})
}

// ClearAll empties the ledger, tombstoning every entry.
// POST /api/changes/clear
func (h *PriceChangeHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.repricing.ClearAll(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: clear all failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to clear ledger")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

// RestoreDeleted lifts every tombstone.
// POST /api/changes/restore
func (h *PriceChangeHandler) RestoreDeleted(w http.ResponseWriter, r *http.Request) {
	n, err := h.repricing.RestoreDeleted(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: restore deleted failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to restore deleted")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"untombstoned": n})
}
