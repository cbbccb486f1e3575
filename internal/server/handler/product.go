package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// ObservationIngest defines the observation-service methods the product
// handler requires.
type ObservationIngest interface {
	Record(ctx context.Context, productID string, obs domain.CompetitorObservation) error
	LinkedCompetitors(ctx context.Context, productID string) ([]domain.CompetitorObservation, error)
	Unlink(ctx context.Context, productID, competitorID string) error
}

// ProductHandler serves product and competitor-observation endpoints.
type ProductHandler struct {
	products     domain.ProductStore
	observations ObservationIngest
	logger       *slog.Logger
}

// NewProductHandler creates a ProductHandler.
func NewProductHandler(products domain.ProductStore, observations ObservationIngest, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		products:     products,
		observations: observations,
		logger:       logger,
	}
}

// listProductsResponse wraps the product list with its total count.
type listProductsResponse struct {
	Products []domain.Product `json:"products"`
	Total    int64            `json:"total"`
}

// ListProducts returns a page of products.
// GET /api/products?limit=50&offset=0
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	products, err := h.products.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list products failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	total, err := h.products.Count(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count products failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count products")
		return
	}

	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, listProductsResponse{Products: products, Total: total})
}

// GetProduct returns one product by id.
// GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get product failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpsertProduct creates or replaces a product.
// PUT /api/products/{id}
func (h *ProductHandler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	p.ID = id

	if p.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if p.CurrentPrice <= 0 {
		writeError(w, http.StatusBadRequest, "current_price must be > 0")
		return
	}

	if err := h.products.Upsert(r.Context(), p); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: upsert product failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to upsert product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "upserted", "id": id})
}

// listObservationsResponse wraps a product's competitor observations.
type listObservationsResponse struct {
	Observations []domain.CompetitorObservation `json:"observations"`
}

// ListCompetitors returns the competitor observations linked to a product.
// GET /api/products/{id}/competitors
func (h *ProductHandler) ListCompetitors(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	obs, err := h.observations.LinkedCompetitors(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list competitors failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list competitors")
		return
	}

	if obs == nil {
		obs = []domain.CompetitorObservation{}
	}
	writeJSON(w, http.StatusOK, listObservationsResponse{Observations: obs})
}

// RecordObservation ingests one competitor observation for a product.
// POST /api/products/{id}/competitors
func (h *ProductHandler) RecordObservation(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var obs domain.CompetitorObservation
	if err := json.NewDecoder(r.Body).Decode(&obs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if obs.CompetitorID == "" {
		writeError(w, http.StatusBadRequest, "competitor_id is required")
		return
	}
	if obs.Price <= 0 {
		writeError(w, http.StatusBadRequest, "price must be > 0")
		return
	}
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = time.Now().UTC()
	}

	if err := h.observations.Record(r.Context(), id, obs); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: record observation failed",
			slog.String("product_id", id),
			slog.String("competitor_id", obs.CompetitorID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to record observation")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// UnlinkCompetitor removes a competitor link from a product.
// DELETE /api/products/{id}/competitors/{competitorID}
func (h *ProductHandler) UnlinkCompetitor(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	competitorID := pathParam(r, "competitorID")

	if err := h.observations.Unlink(r.Context(), id, competitorID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "competitor link not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: unlink competitor failed",
			slog.String("product_id", id),
			slog.String("competitor_id", competitorID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to unlink competitor")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unlinked"})
}
