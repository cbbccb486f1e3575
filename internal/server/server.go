// Package server assembles the HTTP + WebSocket API for the pricing engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yDiLity/WB-price-sub000/internal/server/handler"
	"github.com/yDiLity/WB-price-sub000/internal/server/middleware"
	"github.com/yDiLity/WB-price-sub000/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health     *handler.HealthHandler
	Products   *handler.ProductHandler
	Strategies *handler.StrategyHandler
	Changes    *handler.PriceChangeHandler
	Rules      *handler.RuleHandler
	Audit      *handler.AuditHandler
}

// Server is the headless HTTP + WebSocket API server for the pricing engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Product and competitor-observation endpoints.
	mux.HandleFunc("GET /api/products", handlers.Products.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", handlers.Products.GetProduct)
	mux.HandleFunc("PUT /api/products/{id}", handlers.Products.UpsertProduct)
	mux.HandleFunc("GET /api/products/{id}/competitors", handlers.Products.ListCompetitors)
	mux.HandleFunc("POST /api/products/{id}/competitors", handlers.Products.RecordObservation)
	mux.HandleFunc("DELETE /api/products/{id}/competitors/{competitorID}", handlers.Products.UnlinkCompetitor)

	// Strategy catalog endpoints.
	mux.HandleFunc("GET /api/strategies", handlers.Strategies.ListStrategies)
	mux.HandleFunc("POST /api/strategies", handlers.Strategies.CreateStrategy)
	mux.HandleFunc("GET /api/strategies/{id}", handlers.Strategies.GetStrategy)
	mux.HandleFunc("PUT /api/strategies/{id}", handlers.Strategies.UpdateStrategy)
	mux.HandleFunc("DELETE /api/strategies/{id}", handlers.Strategies.DeleteStrategy)

	// Repricing and ledger endpoints.
	mux.HandleFunc("POST /api/products/{id}/reprice", handlers.Changes.Reprice)
	mux.HandleFunc("GET /api/products/{id}/changes", handlers.Changes.ProductHistory)
	mux.HandleFunc("GET /api/changes", handlers.Changes.ListChanges)
	mux.HandleFunc("GET /api/changes/{id}", handlers.Changes.GetChange)
	mux.HandleFunc("POST /api/changes/{id}/apply", handlers.Changes.ApplyChange)
	mux.HandleFunc("POST /api/changes/{id}/reject", handlers.Changes.RejectChange)
	mux.HandleFunc("DELETE /api/changes/{id}", handlers.Changes.DeleteChange)
	mux.HandleFunc("POST /api/changes/clear", handlers.Changes.ClearAll)
	mux.HandleFunc("POST /api/changes/restore", handlers.Changes.RestoreDeleted)

	// Auto-pricing rule endpoints.
	mux.HandleFunc("POST /api/rules", handlers.Rules.CreateRule)
	mux.HandleFunc("GET /api/rules/{id}", handlers.Rules.GetRule)
	mux.HandleFunc("PUT /api/rules/{id}", handlers.Rules.UpdateRule)
	mux.HandleFunc("DELETE /api/rules/{id}", handlers.Rules.DeleteRule)
	mux.HandleFunc("POST /api/rules/{id}/evaluate", handlers.Rules.EvaluateRule)
	mux.HandleFunc("POST /api/rules/{id}/bulk", handlers.Rules.BulkApply)
	mux.HandleFunc("GET /api/products/{id}/rules", handlers.Rules.ProductRules)

	// Audit log endpoint.
	mux.HandleFunc("GET /api/audit", handlers.Audit.ListEntries)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
