package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
	"github.com/yDiLity/WB-price-sub000/internal/ledger"
	"github.com/yDiLity/WB-price-sub000/internal/notify"
	"github.com/yDiLity/WB-price-sub000/internal/rules"
)

// RuleService manages auto-pricing rules and runs their evaluation,
// including the bulk apply path that fans a rule out over many products.
type RuleService struct {
	store       domain.RuleStore
	evaluator   *rules.Evaluator
	products    domain.ProductStore
	competitors domain.CompetitorSource
	history     domain.HistoryCache
	ledger      *ledger.Ledger
	notifier    *notify.Notifier
	audit       domain.AuditStore
	logger      *slog.Logger

	bulkConcurrency int
	historyWindow   time.Duration
}

// NewRuleService creates a RuleService. bulkConcurrency bounds parallelism
// during bulk apply; historyWindow is how far back price history is read for
// price_change conditions.
func NewRuleService(
	store domain.RuleStore,
	evaluator *rules.Evaluator,
	products domain.ProductStore,
	competitors domain.CompetitorSource,
	history domain.HistoryCache,
	led *ledger.Ledger,
	notifier *notify.Notifier,
	audit domain.AuditStore,
	bulkConcurrency int,
	historyWindow time.Duration,
	logger *slog.Logger,
) *RuleService {
	if bulkConcurrency < 1 {
		bulkConcurrency = 1
	}
	return &RuleService{
		store:           store,
		evaluator:       evaluator,
		products:        products,
		competitors:     competitors,
		history:         history,
		ledger:          led,
		notifier:        notifier,
		audit:           audit,
		logger:          logger.With(slog.String("component", "rule_service")),
		bulkConcurrency: bulkConcurrency,
		historyWindow:   historyWindow,
	}
}

// CreateRule validates and stores a new rule, generating an id when missing.
func (s *RuleService) CreateRule(ctx context.Context, r domain.AutoPricingRule) (domain.AutoPricingRule, error) {
	if err := validateRule(r); err != nil {
		return domain.AutoPricingRule{}, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := s.store.Create(ctx, r); err != nil {
		return domain.AutoPricingRule{}, fmt.Errorf("service: create rule: %w", err)
	}
	return r, nil
}

// UpdateRule validates and replaces an existing rule.
func (s *RuleService) UpdateRule(ctx context.Context, r domain.AutoPricingRule) (domain.AutoPricingRule, error) {
	if err := validateRule(r); err != nil {
		return domain.AutoPricingRule{}, err
	}
	r.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, r); err != nil {
		return domain.AutoPricingRule{}, fmt.Errorf("service: update rule %s: %w", r.ID, err)
	}
	return r, nil
}

// DeleteRule removes a rule.
func (s *RuleService) DeleteRule(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("service: delete rule %s: %w", id, err)
	}
	return nil
}

// GetRule returns one rule by id.
func (s *RuleService) GetRule(ctx context.Context, id string) (domain.AutoPricingRule, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.AutoPricingRule{}, fmt.Errorf("service: get rule %s: %w", id, err)
	}
	return r, nil
}

// RulesForProduct returns the rules attached to one product.
func (s *RuleService) RulesForProduct(ctx context.Context, productID string) ([]domain.AutoPricingRule, error) {
	list, err := s.store.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("service: list rules for %s: %w", productID, err)
	}
	return list, nil
}

// EvaluateRule runs one rule against its own product. A fired price action
// commits the resulting change to the ledger; a fired notify action
// dispatches the alert. The rule's last-run marker is touched whenever the
// condition fires so time_based rules pace themselves.
func (s *RuleService) EvaluateRule(ctx context.Context, ruleID string) (domain.RuleOutcome, error) {
	rule, err := s.store.GetByID(ctx, ruleID)
	if err != nil {
		return domain.RuleOutcome{}, fmt.Errorf("service: load rule %s: %w", ruleID, err)
	}

	outcome := s.evaluateAgainstProduct(ctx, rule, rule.ProductID)
	return outcome, nil
}

// BulkApplyRule evaluates one rule against many products concurrently. One
// outcome is returned per product, in the input order; a failure on one
// product is recorded in its outcome and never aborts the rest.
func (s *RuleService) BulkApplyRule(ctx context.Context, ruleID string, productIDs []string) ([]domain.RuleOutcome, error) {
	rule, err := s.store.GetByID(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("service: load rule %s: %w", ruleID, err)
	}

	outcomes := make([]domain.RuleOutcome, len(productIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.bulkConcurrency)
	for i, pid := range productIDs {
		g.Go(func() error {
			outcomes[i] = s.evaluateAgainstProduct(gctx, rule, pid)
			return nil
		})
	}
	// Workers report failures through their outcome, never through the group.
	_ = g.Wait()

	fired := 0
	for _, o := range outcomes {
		if o.ConditionMet {
			fired++
		}
	}
	s.logger.InfoContext(ctx, "bulk rule apply finished",
		slog.String("rule_id", ruleID),
		slog.Int("products", len(productIDs)),
		slog.Int("fired", fired),
	)
	return outcomes, nil
}

// evaluateAgainstProduct loads everything one evaluation needs, runs the
// evaluator, and carries out the outcome's side effects. All failures land
// in the outcome.
func (s *RuleService) evaluateAgainstProduct(ctx context.Context, rule domain.AutoPricingRule, productID string) domain.RuleOutcome {
	outcome := domain.RuleOutcome{ProductID: productID, RuleID: rule.ID}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		outcome.Err = fmt.Sprintf("load product: %v", err)
		return outcome
	}

	competitors, err := s.competitors.LinkedCompetitors(ctx, productID)
	if err != nil {
		outcome.Err = fmt.Sprintf("load competitors: %v", err)
		return outcome
	}

	var history []domain.PricePoint
	if rule.Condition.Type == domain.ConditionPriceChange && s.history != nil {
		since := time.Now().UTC().Add(-s.historyWindow)
		history, err = s.history.Recent(ctx, productID, since)
		if err != nil {
			outcome.Err = fmt.Sprintf("load history: %v", err)
			return outcome
		}
		sort.Slice(history, func(i, j int) bool { return history[i].At.Before(history[j].At) })
	}

	outcome = s.evaluator.Evaluate(product, competitors, history, rule, time.Now().UTC())
	if !outcome.ConditionMet {
		return outcome
	}

	if outcome.Change != nil {
		if !s.ledger.Add(ctx, *outcome.Change) {
			outcome.Err = "change dropped: id tombstoned"
			outcome.Change = nil
		}
	}
	if outcome.NotifyText != "" && s.notifier != nil {
		if err := s.notifier.Notify(ctx, "rule_fired", "Auto-pricing rule fired", outcome.NotifyText); err != nil {
			s.logger.ErrorContext(ctx, "rule notification failed",
				slog.String("rule_id", rule.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.store.TouchLastRun(ctx, rule.ID, time.Now().UTC()); err != nil {
		s.logger.ErrorContext(ctx, "touch last run failed",
			slog.String("rule_id", rule.ID),
			slog.String("error", err.Error()),
		)
	}
	return outcome
}

// validateRule rejects rules the evaluator could not run.
func validateRule(r domain.AutoPricingRule) error {
	if r.ProductID == "" {
		return fmt.Errorf("service: rule product_id is required: %w", domain.ErrInvalidRule)
	}

	switch r.Condition.Type {
	case domain.ConditionBelowCompetitor, domain.ConditionAboveCompetitor, domain.ConditionPriceChange:
		if r.Condition.Value <= 0 {
			return fmt.Errorf("service: condition value must be > 0: %w", domain.ErrInvalidRule)
		}
		if r.Condition.Unit != domain.UnitPercent && r.Condition.Unit != domain.UnitAbsolute {
			return fmt.Errorf("service: condition unit %q: %w", r.Condition.Unit, domain.ErrInvalidRule)
		}
	case domain.ConditionTimeBased:
		if r.Condition.TimeIntervalHours <= 0 {
			return fmt.Errorf("service: time_based requires time_interval_hours > 0: %w", domain.ErrInvalidRule)
		}
	default:
		return fmt.Errorf("service: condition type %q: %w", r.Condition.Type, domain.ErrInvalidRule)
	}

	switch r.Action.Type {
	case domain.ActionNotify:
	case domain.ActionAdjustPrice, domain.ActionSetPrice:
		if r.Action.Unit != domain.UnitPercent && r.Action.Unit != domain.UnitAbsolute {
			return fmt.Errorf("service: action unit %q: %w", r.Action.Unit, domain.ErrInvalidRule)
		}
		if r.Action.MinPrice != nil && r.Action.MaxPrice != nil && *r.Action.MinPrice > *r.Action.MaxPrice {
			return fmt.Errorf("service: action min_price exceeds max_price: %w", domain.ErrInvalidRule)
		}
	default:
		return fmt.Errorf("service: action type %q: %w", r.Action.Type, domain.ErrInvalidRule)
	}

	return nil
}
