package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
	"github.com/yDiLity/WB-price-sub000/internal/ledger"
	"github.com/yDiLity/WB-price-sub000/internal/rules"
)

type ruleFixture struct {
	svc     *RuleService
	store   *fakeRuleStore
	ledger  *ledger.Ledger
	history *fakeHistoryCache
}

func newRuleFixture(t *testing.T, products []domain.Product, competitors map[string][]domain.CompetitorObservation, ruleSet ...domain.AutoPricingRule) *ruleFixture {
	t.Helper()
	logger := discardLogger()

	store := newFakeRuleStore(ruleSet...)
	led := ledger.New(nil, nil, logger)
	history := newFakeHistoryCache()

	svc := NewRuleService(
		store,
		rules.NewEvaluator(logger),
		newFakeProductStore(products...),
		&fakeCompetitorSource{byProduct: competitors},
		history,
		led,
		nil,
		&fakeAuditStore{},
		4,
		24*time.Hour,
		logger,
	)
	return &ruleFixture{svc: svc, store: store, ledger: led, history: history}
}

func priceRule(id, productID string) domain.AutoPricingRule {
	return domain.AutoPricingRule{
		ID:        id,
		ProductID: productID,
		IsActive:  true,
		Condition: domain.RuleCondition{
			Type: domain.ConditionAboveCompetitor, Value: 5, Unit: domain.UnitPercent,
		},
		Action: domain.RuleAction{
			Type: domain.ActionAdjustPrice, Value: -10, Unit: domain.UnitPercent,
		},
	}
}

func TestCreateRuleAssignsID(t *testing.T) {
	fx := newRuleFixture(t, nil, nil)

	r := priceRule("", "p1")
	created, err := fx.svc.CreateRule(context.Background(), r)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := fx.svc.GetRule(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreateRuleValidation(t *testing.T) {
	fx := newRuleFixture(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*domain.AutoPricingRule)
	}{
		{"missing product", func(r *domain.AutoPricingRule) { r.ProductID = "" }},
		{"zero condition value", func(r *domain.AutoPricingRule) { r.Condition.Value = 0 }},
		{"bad condition unit", func(r *domain.AutoPricingRule) { r.Condition.Unit = "furlongs" }},
		{"bad condition type", func(r *domain.AutoPricingRule) { r.Condition.Type = "lunar_phase" }},
		{"bad action unit", func(r *domain.AutoPricingRule) { r.Action.Unit = "furlongs" }},
		{"bad action type", func(r *domain.AutoPricingRule) { r.Action.Type = "explode" }},
		{"min above max", func(r *domain.AutoPricingRule) {
			min, max := 500.0, 400.0
			r.Action.MinPrice, r.Action.MaxPrice = &min, &max
		}},
		{"time_based without interval", func(r *domain.AutoPricingRule) {
			r.Condition = domain.RuleCondition{Type: domain.ConditionTimeBased}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := priceRule("", "p1")
			tt.mutate(&r)
			_, err := fx.svc.CreateRule(ctx, r)
			assert.ErrorIs(t, err, domain.ErrInvalidRule)
		})
	}
}

func TestEvaluateRuleCommitsChangeAndTouchesLastRun(t *testing.T) {
	fx := newRuleFixture(t,
		[]domain.Product{{ID: "p1", CurrentPrice: 1000}},
		map[string][]domain.CompetitorObservation{
			"p1": {{CompetitorID: "c1", Price: 900, ObservedAt: time.Now()}},
		},
		priceRule("r1", "p1"),
	)
	ctx := context.Background()

	outcome, err := fx.svc.EvaluateRule(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, outcome.ConditionMet)
	require.NotNil(t, outcome.Change)
	assert.Equal(t, 900.0, outcome.Change.NewPrice)

	got, ok := fx.ledger.Get(outcome.Change.ID)
	require.True(t, ok)
	assert.Equal(t, domain.ChangePending, got.Status)

	_, touched := fx.store.touched["r1"]
	assert.True(t, touched)
}

func TestEvaluateRuleConditionNotMet(t *testing.T) {
	fx := newRuleFixture(t,
		[]domain.Product{{ID: "p1", CurrentPrice: 900}},
		map[string][]domain.CompetitorObservation{
			"p1": {{CompetitorID: "c1", Price: 900, ObservedAt: time.Now()}},
		},
		priceRule("r1", "p1"),
	)

	outcome, err := fx.svc.EvaluateRule(context.Background(), "r1")
	require.NoError(t, err)
	assert.False(t, outcome.ConditionMet)
	assert.Equal(t, 0, fx.ledger.Len())

	_, touched := fx.store.touched["r1"]
	assert.False(t, touched)
}

func TestEvaluateRuleUnknownID(t *testing.T) {
	fx := newRuleFixture(t, nil, nil)

	_, err := fx.svc.EvaluateRule(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEvaluateRuleReadsPriceHistory(t *testing.T) {
	rule := domain.AutoPricingRule{
		ID:        "r1",
		ProductID: "p1",
		IsActive:  true,
		Condition: domain.RuleCondition{
			Type: domain.ConditionPriceChange, Value: 5, Unit: domain.UnitPercent,
		},
		Action: domain.RuleAction{Type: domain.ActionNotify},
	}
	fx := newRuleFixture(t,
		[]domain.Product{{ID: "p1", Title: "Widget", CurrentPrice: 940}},
		nil,
		rule,
	)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, fx.history.Append(ctx, "p1", domain.PricePoint{Price: 1000, At: now.Add(-2 * time.Hour)}))
	require.NoError(t, fx.history.Append(ctx, "p1", domain.PricePoint{Price: 940, At: now.Add(-time.Hour)}))

	outcome, err := fx.svc.EvaluateRule(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, outcome.ConditionMet)
	assert.Contains(t, outcome.NotifyText, "Widget")
}

func TestBulkApplyRuleIsolatesFailures(t *testing.T) {
	fx := newRuleFixture(t,
		[]domain.Product{
			{ID: "p1", CurrentPrice: 1000},
			{ID: "p3", CurrentPrice: 2000},
		},
		map[string][]domain.CompetitorObservation{
			"p1": {{CompetitorID: "c1", Price: 900, ObservedAt: time.Now()}},
			"p3": {{CompetitorID: "c1", Price: 1000, ObservedAt: time.Now()}},
		},
		priceRule("r1", "p1"),
	)
	ctx := context.Background()

	outcomes, err := fx.svc.BulkApplyRule(ctx, "r1", []string{"p1", "p2", "p3"})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	// Outcomes come back in input order.
	assert.Equal(t, "p1", outcomes[0].ProductID)
	assert.Equal(t, "p2", outcomes[1].ProductID)
	assert.Equal(t, "p3", outcomes[2].ProductID)

	assert.True(t, outcomes[0].ConditionMet)
	require.NotNil(t, outcomes[0].Change)
	assert.Equal(t, 900.0, outcomes[0].Change.NewPrice)

	// The missing product fails alone; the rest of the batch is unaffected.
	assert.Contains(t, outcomes[1].Err, "load product")
	assert.Nil(t, outcomes[1].Change)

	assert.True(t, outcomes[2].ConditionMet)
	require.NotNil(t, outcomes[2].Change)
	assert.Equal(t, 1800.0, outcomes[2].Change.NewPrice)

	assert.Equal(t, 2, fx.ledger.Len())
}

func TestBulkApplyRuleUnknownRule(t *testing.T) {
	fx := newRuleFixture(t, nil, nil)

	_, err := fx.svc.BulkApplyRule(context.Background(), "missing", []string{"p1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
