package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- product store ---

type fakeProductStore struct {
	mu             sync.Mutex
	products       map[string]domain.Product
	updatePriceErr error
}

func newFakeProductStore(products ...domain.Product) *fakeProductStore {
	f := &fakeProductStore{products: make(map[string]domain.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProductStore) Upsert(_ context.Context, p domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
	return nil
}

func (f *fakeProductStore) GetByID(_ context.Context, id string) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeProductStore) List(_ context.Context, _ domain.ListOpts) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProductStore) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.products)), nil
}

func (f *fakeProductStore) UpdatePrice(_ context.Context, id string, price float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updatePriceErr != nil {
		return f.updatePriceErr
	}
	p, ok := f.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.CurrentPrice = price
	f.products[id] = p
	return nil
}

var _ domain.ProductStore = (*fakeProductStore)(nil)

// --- strategy store ---

type fakeStrategyStore struct {
	strategies map[string]domain.PricingStrategy
}

func newFakeStrategyStore(strategies ...domain.PricingStrategy) *fakeStrategyStore {
	f := &fakeStrategyStore{strategies: make(map[string]domain.PricingStrategy)}
	for _, s := range strategies {
		f.strategies[s.ID] = s
	}
	return f
}

func (f *fakeStrategyStore) Create(_ context.Context, s domain.PricingStrategy) error {
	f.strategies[s.ID] = s
	return nil
}

func (f *fakeStrategyStore) Update(_ context.Context, s domain.PricingStrategy) error {
	f.strategies[s.ID] = s
	return nil
}

func (f *fakeStrategyStore) Delete(_ context.Context, id string) error {
	delete(f.strategies, id)
	return nil
}

func (f *fakeStrategyStore) GetByID(_ context.Context, id string) (domain.PricingStrategy, error) {
	s, ok := f.strategies[id]
	if !ok {
		return domain.PricingStrategy{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeStrategyStore) List(_ context.Context) ([]domain.PricingStrategy, error) {
	out := make([]domain.PricingStrategy, 0, len(f.strategies))
	for _, s := range f.strategies {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStrategyStore) Count(_ context.Context) (int64, error) {
	return int64(len(f.strategies)), nil
}

var _ domain.StrategyStore = (*fakeStrategyStore)(nil)

// --- rule store ---

type fakeRuleStore struct {
	mu      sync.Mutex
	rules   map[string]domain.AutoPricingRule
	touched map[string]time.Time
}

func newFakeRuleStore(rules ...domain.AutoPricingRule) *fakeRuleStore {
	f := &fakeRuleStore{
		rules:   make(map[string]domain.AutoPricingRule),
		touched: make(map[string]time.Time),
	}
	for _, r := range rules {
		f.rules[r.ID] = r
	}
	return f
}

func (f *fakeRuleStore) Create(_ context.Context, r domain.AutoPricingRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rules[r.ID]; ok {
		return domain.ErrAlreadyExists
	}
	f.rules[r.ID] = r
	return nil
}

func (f *fakeRuleStore) Update(_ context.Context, r domain.AutoPricingRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rules[r.ID]; !ok {
		return domain.ErrNotFound
	}
	f.rules[r.ID] = r
	return nil
}

func (f *fakeRuleStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rules[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.rules, id)
	return nil
}

func (f *fakeRuleStore) GetByID(_ context.Context, id string) (domain.AutoPricingRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[id]
	if !ok {
		return domain.AutoPricingRule{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeRuleStore) ListByProduct(_ context.Context, productID string) ([]domain.AutoPricingRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AutoPricingRule
	for _, r := range f.rules {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleStore) ListActive(_ context.Context) ([]domain.AutoPricingRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AutoPricingRule
	for _, r := range f.rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleStore) TouchLastRun(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[id] = at
	return nil
}

var _ domain.RuleStore = (*fakeRuleStore)(nil)

// --- competitor source ---

type fakeCompetitorSource struct {
	byProduct map[string][]domain.CompetitorObservation
	err       error
}

func (f *fakeCompetitorSource) LinkedCompetitors(_ context.Context, productID string) ([]domain.CompetitorObservation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byProduct[productID], nil
}

var _ domain.CompetitorSource = (*fakeCompetitorSource)(nil)

// --- marketplace ---

type pushRecord struct {
	productID string
	price     float64
}

type fakeMarketplace struct {
	mu      sync.Mutex
	pushed  []pushRecord
	pushErr error
}

func (f *fakeMarketplace) PushPrice(_ context.Context, productID string, price float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, pushRecord{productID: productID, price: price})
	return nil
}

var _ domain.PriceUpdater = (*fakeMarketplace)(nil)

// --- history cache ---

type fakeHistoryCache struct {
	mu        sync.Mutex
	byProduct map[string][]domain.PricePoint
}

func newFakeHistoryCache() *fakeHistoryCache {
	return &fakeHistoryCache{byProduct: make(map[string][]domain.PricePoint)}
}

func (f *fakeHistoryCache) Append(_ context.Context, productID string, point domain.PricePoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byProduct[productID] = append(f.byProduct[productID], point)
	return nil
}

func (f *fakeHistoryCache) Recent(_ context.Context, productID string, since time.Time) ([]domain.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.PricePoint
	for _, pt := range f.byProduct[productID] {
		if !pt.At.Before(since) {
			out = append(out, pt)
		}
	}
	return out, nil
}

var _ domain.HistoryCache = (*fakeHistoryCache)(nil)

// --- audit store ---

type auditRecord struct {
	event  string
	detail map[string]any
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []auditRecord
}

func (f *fakeAuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditRecord{event: event, detail: detail})
	return nil
}

func (f *fakeAuditStore) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AuditEntry, len(f.entries))
	for i, e := range f.entries {
		out[i] = domain.AuditEntry{ID: int64(i + 1), Event: e.event, Detail: e.detail}
	}
	return out, nil
}

func (f *fakeAuditStore) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.event
	}
	return out
}

var _ domain.AuditStore = (*fakeAuditStore)(nil)
