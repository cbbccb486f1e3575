package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// StrategyCatalog defines the catalog methods the strategy handler requires.
type StrategyCatalog interface {
	Get(ctx context.Context, id string) (domain.PricingStrategy, error)
	List(ctx context.Context) ([]domain.PricingStrategy, error)
	Create(ctx context.Context, s domain.PricingStrategy) (domain.PricingStrategy, error)
	Update(ctx context.Context, s domain.PricingStrategy) (domain.PricingStrategy, error)
	Delete(ctx context.Context, id string) error
}

// StrategyHandler serves the pricing-strategy CRUD endpoints.
type StrategyHandler struct {
	catalog StrategyCatalog
	logger  *slog.Logger
}

// NewStrategyHandler creates a StrategyHandler.
func NewStrategyHandler(catalog StrategyCatalog, logger *slog.Logger) *StrategyHandler {
	return &StrategyHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// listStrategiesResponse wraps the strategy list.
type listStrategiesResponse struct {
	Strategies []domain.PricingStrategy `json:"strategies"`
}

// ListStrategies returns every strategy in the catalog.
// GET /api/strategies
func (h *StrategyHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := h.catalog.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list strategies failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list strategies")
		return
	}

	if strategies == nil {
		strategies = []domain.PricingStrategy{}
	}
	writeJSON(w, http.StatusOK, listStrategiesResponse{Strategies: strategies})
}

// GetStrategy returns one strategy by id.
// GET /api/strategies/{id}
func (h *StrategyHandler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	s, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "strategy not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get strategy failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get strategy")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// CreateStrategy stores a new strategy.
// POST /api/strategies
func (h *StrategyHandler) CreateStrategy(w http.ResponseWriter, r *http.Request) {
	var s domain.PricingStrategy
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	created, err := h.catalog.Create(r.Context(), s)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "strategy already exists")
			return
		}
		if errors.Is(err, domain.ErrUnknownStrategy) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create strategy failed",
			slog.String("name", s.Name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateStrategy replaces an existing strategy.
// PUT /api/strategies/{id}
func (h *StrategyHandler) UpdateStrategy(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var s domain.PricingStrategy
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.ID = id

	updated, err := h.catalog.Update(r.Context(), s)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "strategy not found")
			return
		}
		if errors.Is(err, domain.ErrUnknownStrategy) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: update strategy failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteStrategy removes a strategy. Deleted defaults are not reseeded.
// DELETE /api/strategies/{id}
func (h *StrategyHandler) DeleteStrategy(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "strategy not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: delete strategy failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete strategy")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}
