package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yDiLity/WB-price-sub000/internal/ledger"
	"github.com/yDiLity/WB-price-sub000/internal/pricing"
	"github.com/yDiLity/WB-price-sub000/internal/rules"
	"github.com/yDiLity/WB-price-sub000/internal/server"
	"github.com/yDiLity/WB-price-sub000/internal/server/handler"
	"github.com/yDiLity/WB-price-sub000/internal/server/ws"
	"github.com/yDiLity/WB-price-sub000/internal/service"
)

const (
	// ruleSweepInterval paces the unattended rule evaluation loop.
	ruleSweepInterval = 5 * time.Minute

	// archiveSweepInterval paces the ledger archival loop.
	archiveSweepInterval = 24 * time.Hour

	// shutdownTimeout bounds graceful HTTP shutdown.
	shutdownTimeout = 10 * time.Second
)

// core bundles the wired services shared by all operating modes.
type core struct {
	hub          *ws.Hub
	ledger       *ledger.Ledger
	catalog      *pricing.Catalog
	observations *service.ObservationService
	repricing    *service.RepricingService
	rules        *service.RuleService
}

// buildCore constructs the service graph on top of the wired dependencies,
// loads the persisted ledger, and seeds the default strategies into an empty
// catalog.
func (a *App) buildCore(ctx context.Context, deps *Dependencies) (*core, error) {
	hub := ws.NewHub(a.cfg.Mode, a.logger)

	led := ledger.New(deps.LedgerStore, hub, a.logger)
	if err := led.Load(ctx); err != nil {
		return nil, fmt.Errorf("app: load ledger: %w", err)
	}

	catalog := pricing.NewCatalog(deps.StrategyStore, a.logger)
	if err := catalog.SeedDefaults(ctx); err != nil {
		return nil, fmt.Errorf("app: seed default strategies: %w", err)
	}

	engine := pricing.NewEngine(a.logger)
	evaluator := rules.NewEvaluator(a.logger)

	observations := service.NewObservationService(
		deps.CompetitorStore,
		deps.ObservationCache,
		deps.HistoryCache,
		a.logger,
	)

	repricing := service.NewRepricingService(
		deps.ProductStore,
		catalog,
		engine,
		led,
		observations,
		deps.Marketplace,
		deps.AuditStore,
		a.logger,
	)

	ruleSvc := service.NewRuleService(
		deps.RuleStore,
		evaluator,
		deps.ProductStore,
		observations,
		deps.HistoryCache,
		led,
		deps.Notifier,
		deps.AuditStore,
		a.cfg.Rules.BulkConcurrency,
		time.Duration(a.cfg.Rules.HistoryWindowHours)*time.Hour,
		a.logger,
	)

	return &core{
		hub:          hub,
		ledger:       led,
		catalog:      catalog,
		observations: observations,
		repricing:    repricing,
		rules:        ruleSvc,
	}, nil
}

// ServerMode runs the HTTP + WebSocket API without the unattended loops.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	c, err := a.buildCore(ctx, deps)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.hub.Run(gctx) })
	g.Go(func() error { return a.runHTTP(gctx, deps, c) })
	return waitGroup(g)
}

// ApplyMode runs the unattended loops (rule sweeps, ledger archival) without
// the HTTP API.
func (a *App) ApplyMode(ctx context.Context, deps *Dependencies) error {
	c, err := a.buildCore(ctx, deps)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.hub.Run(gctx) })
	g.Go(func() error { return a.runRuleSweeps(gctx, deps, c) })
	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		g.Go(func() error { return a.runArchiveSweeps(gctx, deps) })
	}
	return waitGroup(g)
}

// FullMode runs the HTTP API and the unattended loops together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	c, err := a.buildCore(ctx, deps)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.hub.Run(gctx) })
	g.Go(func() error { return a.runRuleSweeps(gctx, deps, c) })
	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		g.Go(func() error { return a.runArchiveSweeps(gctx, deps) })
	}
	if a.cfg.Server.Enabled {
		g.Go(func() error { return a.runHTTP(gctx, deps, c) })
	}
	return waitGroup(g)
}

// runHTTP builds the handler set, starts the HTTP server, and shuts it down
// when the context is cancelled.
func (a *App) runHTTP(ctx context.Context, deps *Dependencies, c *core) error {
	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(deps.Postgres, deps.Redis, a.logger),
		Products:   handler.NewProductHandler(deps.ProductStore, c.observations, a.logger),
		Strategies: handler.NewStrategyHandler(c.catalog, a.logger),
		Changes:    handler.NewPriceChangeHandler(c.repricing, a.logger),
		Rules:      handler.NewRuleHandler(c.rules, a.logger),
		Audit:      handler.NewAuditHandler(deps.AuditStore, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.ApiKey,
	}, handlers, c.hub, a.logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runRuleSweeps periodically evaluates every active rule. Per-rule failures
// are logged and the sweep continues; time_based rules pace themselves
// through their last-run marker.
func (a *App) runRuleSweeps(ctx context.Context, deps *Dependencies, c *core) error {
	ticker := time.NewTicker(ruleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			active, err := deps.RuleStore.ListActive(ctx)
			if err != nil {
				a.logger.ErrorContext(ctx, "rule sweep: list active rules failed",
					slog.String("error", err.Error()),
				)
				continue
			}

			fired := 0
			for _, rule := range active {
				outcome, err := c.rules.EvaluateRule(ctx, rule.ID)
				if err != nil {
					a.logger.ErrorContext(ctx, "rule sweep: evaluation failed",
						slog.String("rule_id", rule.ID),
						slog.String("error", err.Error()),
					)
					continue
				}
				if outcome.ConditionMet {
					fired++
				}
			}
			a.logger.InfoContext(ctx, "rule sweep finished",
				slog.Int("rules", len(active)),
				slog.Int("fired", fired),
			)
		}
	}
}

// runArchiveSweeps periodically exports resolved ledger entries older than
// the retention window to blob storage.
func (a *App) runArchiveSweeps(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(archiveSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			before := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
			count, err := deps.Archiver.ArchiveResolved(ctx, before)
			if err != nil {
				a.logger.ErrorContext(ctx, "archive sweep failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if count > 0 {
				a.logger.InfoContext(ctx, "archived resolved price changes",
					slog.Int64("count", count),
				)
			}
		}
	}
}

// waitGroup normalizes the context.Canceled every goroutine returns on clean
// shutdown.
func waitGroup(g *errgroup.Group) error {
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return context.Canceled
}
