// Package rules evaluates per-product condition/action rules for unattended
// repricing and alerting. Evaluation is pure; committing price changes and
// delivering notifications belong to the service layer.
package rules

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// Evaluator computes rule outcomes. It holds no state beyond a logger and is
// safe for concurrent use.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{
		logger: logger.With(slog.String("component", "rule_evaluator")),
	}
}

// Evaluate checks one rule against one product. history feeds the
// price_change condition and may be nil for the other condition types.
// When the condition fires and the action moves the price, the outcome
// carries a pending PriceChange ready for the ledger; a notify action
// carries the message text instead.
func (ev *Evaluator) Evaluate(p domain.Product, competitors []domain.CompetitorObservation, history []domain.PricePoint, rule domain.AutoPricingRule, now time.Time) domain.RuleOutcome {
	outcome := domain.RuleOutcome{
		ProductID: p.ID,
		RuleID:    rule.ID,
	}
	if !rule.IsActive {
		return outcome
	}

	minComp, hasComp := lowestPrice(competitors)

	met, err := conditionMet(p, rule.Condition, minComp, hasComp, history, rule.LastRunAt, now)
	if err != nil {
		outcome.Err = err.Error()
		return outcome
	}
	if !met {
		return outcome
	}
	outcome.ConditionMet = true
	ev.logger.Debug("rule condition met",
		slog.String("rule_id", rule.ID),
		slog.String("product_id", p.ID),
		slog.String("condition", string(rule.Condition.Type)),
	)

	switch rule.Action.Type {
	case domain.ActionNotify:
		outcome.NotifyText = notifyText(p, rule, minComp, hasComp)
		return outcome

	case domain.ActionAdjustPrice, domain.ActionSetPrice:
		target, err := targetPrice(p, rule.Action, minComp, hasComp)
		if err != nil {
			outcome.Err = err.Error()
			return outcome
		}
		target = clamp(target, rule.Action.MinPrice, rule.Action.MaxPrice)
		target = math.Round(target)
		if target == p.CurrentPrice || target <= 0 {
			// Zero-effect or degenerate targets produce no proposal.
			return outcome
		}
		outcome.Change = changeFromRule(p, rule, target, minComp, hasComp, now)
		return outcome

	default:
		outcome.Err = fmt.Sprintf("rules: action type %q: %v", rule.Action.Type, domain.ErrInvalidRule)
		return outcome
	}
}

// conditionMet decides whether the rule's trigger fires.
func conditionMet(p domain.Product, cond domain.RuleCondition, minComp float64, hasComp bool, history []domain.PricePoint, lastRun *time.Time, now time.Time) (bool, error) {
	switch cond.Type {
	case domain.ConditionBelowCompetitor:
		if !hasComp {
			return false, nil
		}
		return delta(minComp-p.CurrentPrice, minComp, cond.Unit) >= cond.Value, nil

	case domain.ConditionAboveCompetitor:
		if !hasComp {
			return false, nil
		}
		return delta(p.CurrentPrice-minComp, minComp, cond.Unit) >= cond.Value, nil

	case domain.ConditionPriceChange:
		if len(history) < 2 {
			return false, nil
		}
		earliest, latest := history[0], history[len(history)-1]
		move := math.Abs(latest.Price - earliest.Price)
		return delta(move, earliest.Price, cond.Unit) >= cond.Value, nil

	case domain.ConditionTimeBased:
		if cond.TimeIntervalHours <= 0 {
			return false, fmt.Errorf("rules: time_based requires time_interval_hours > 0: %w", domain.ErrInvalidRule)
		}
		if lastRun == nil {
			return true, nil
		}
		return now.Sub(*lastRun) >= time.Duration(cond.TimeIntervalHours)*time.Hour, nil

	default:
		return false, fmt.Errorf("rules: condition type %q: %w", cond.Type, domain.ErrInvalidRule)
	}
}

// delta converts a raw price difference into the condition's unit. Percent
// deltas are relative to the reference price.
func delta(diff, reference float64, unit domain.ValueUnit) float64 {
	if unit == domain.UnitPercent {
		if reference == 0 {
			return 0
		}
		return diff / reference * 100
	}
	return diff
}

// targetPrice computes the price an adjust/set action aims for, before
// clamping and rounding.
func targetPrice(p domain.Product, action domain.RuleAction, minComp float64, hasComp bool) (float64, error) {
	switch action.Type {
	case domain.ActionAdjustPrice:
		if action.Unit == domain.UnitPercent {
			return p.CurrentPrice * (1 + action.Value/100), nil
		}
		return p.CurrentPrice + action.Value, nil

	case domain.ActionSetPrice:
		if action.Unit == domain.UnitPercent {
			// Percent set prices are relative to the lowest competitor.
			if !hasComp {
				return 0, fmt.Errorf("rules: set_price percent needs competitor data: %w", domain.ErrNoCompetitors)
			}
			return minComp * action.Value / 100, nil
		}
		return action.Value, nil

	default:
		return 0, fmt.Errorf("rules: action type %q: %w", action.Type, domain.ErrInvalidRule)
	}
}

// clamp bounds v into [min, max] for whichever bounds are present.
func clamp(v float64, min, max *float64) float64 {
	if min != nil && v < *min {
		v = *min
	}
	if max != nil && v > *max {
		v = *max
	}
	return v
}

// changeFromRule builds the pending PriceChange for a fired price action.
func changeFromRule(p domain.Product, rule domain.AutoPricingRule, target, minComp float64, hasComp bool, now time.Time) *domain.PriceChange {
	reason := fmt.Sprintf("auto rule %s: %s on %s fired, %s to %.2f",
		rule.ID, rule.Condition.Type, p.ID, rule.Action.Type, target)

	change := &domain.PriceChange{
		ID:            uuid.NewString(),
		ProductID:     p.ID,
		OldPrice:      p.CurrentPrice,
		NewPrice:      target,
		ChangeAmount:  target - p.CurrentPrice,
		ChangePercent: roundPercent(target, p.CurrentPrice),
		Reason:        reason,
		Timestamp:     now,
		Status:        domain.ChangePending,
	}
	if hasComp {
		cp := minComp
		change.CompetitorPrice = &cp
	}
	return change
}

// notifyText renders the alert message for a notify action.
func notifyText(p domain.Product, rule domain.AutoPricingRule, minComp float64, hasComp bool) string {
	if hasComp {
		return fmt.Sprintf("rule %s fired for %q: current price %.2f, lowest competitor %.2f",
			rule.ID, p.Title, p.CurrentPrice, minComp)
	}
	return fmt.Sprintf("rule %s fired for %q: current price %.2f", rule.ID, p.Title, p.CurrentPrice)
}

func lowestPrice(competitors []domain.CompetitorObservation) (float64, bool) {
	if len(competitors) == 0 {
		return 0, false
	}
	min := competitors[0].Price
	for _, c := range competitors[1:] {
		if c.Price < min {
			min = c.Price
		}
	}
	return min, true
}

func roundPercent(newPrice, oldPrice float64) float64 {
	if oldPrice == 0 {
		return 0
	}
	return math.Round((newPrice-oldPrice)/oldPrice*100*100) / 100
}
