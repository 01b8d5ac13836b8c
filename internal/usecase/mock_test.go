//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"edu-entitlement-engine/internal/domain"
	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/domain/ports/adapter"
	"edu-entitlement-engine/internal/domain/ports/repository"
)

// =============================
// Repositories (in-memory)
// =============================

// ---- Mock EntitlementRepository ----

type MockEntitlementRepo struct {
	mu    sync.Mutex
	rows  map[string]*model.Entitlement
	index map[string]string // sourceKind|sourceID -> entitlement id

	SaveFunc func(ctx context.Context, tx repository.Tx, e *model.Entitlement) error
}

var _ repository.EntitlementRepository = (*MockEntitlementRepo)(nil)

func NewMockEntitlementRepo() *MockEntitlementRepo {
	return &MockEntitlementRepo{
		rows:  make(map[string]*model.Entitlement),
		index: make(map[string]string),
	}
}

func sourceKey(kind model.SourceKind, id string) string { return string(kind) + "|" + id }

func (m *MockEntitlementRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entitlement) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.index[sourceKey(e.SourceKind, e.SourceID)]; dup {
		return domain.ErrAlreadyExists
	}
	cp := *e
	m.rows[e.ID] = &cp
	m.index[sourceKey(e.SourceKind, e.SourceID)] = e.ID
	return nil
}

func (m *MockEntitlementRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MockEntitlementRepo) FindBySource(ctx context.Context, tx repository.Tx, sourceKind model.SourceKind, sourceID string) (*model.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.index[sourceKey(sourceKind, sourceID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m.rows[id]
	return &cp, nil
}

func (m *MockEntitlementRepo) FindActive(ctx context.Context, tx repository.Tx, studentID, contentGroupID string, now time.Time) (*model.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.Entitlement
	for _, e := range m.rows {
		if e.StudentID == studentID && e.ContentGroupID == contentGroupID && e.Covers(now) {
			if best == nil || e.CreatedAt.After(best.CreatedAt) {
				best = e
			}
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *MockEntitlementRepo) DeactivateActive(ctx context.Context, tx repository.Tx, studentID, contentGroupID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.rows {
		if e.StudentID == studentID && e.ContentGroupID == contentGroupID && e.Active {
			e.Active = false
			n++
		}
	}
	return n, nil
}

func (m *MockEntitlementRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Active = false
	return nil
}

func (m *MockEntitlementRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Entitlement
	for _, e := range m.rows {
		if e.Active && !e.EndAt.After(now) {
			e.Active = false
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockEntitlementRepo) ListByStudent(ctx context.Context, tx repository.Tx, studentID string) ([]*model.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Entitlement
	for _, e := range m.rows {
		if e.StudentID == studentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ActiveCount is a test helper counting active rows for one student/group pair.
func (m *MockEntitlementRepo) ActiveCount(studentID, contentGroupID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.rows {
		if e.StudentID == studentID && e.ContentGroupID == contentGroupID && e.Active {
			n++
		}
	}
	return n
}

// ---- Mock ManualPaymentRequestRepository ----

type MockManualRequestRepo struct {
	mu   sync.Mutex
	rows map[string]*model.ManualPaymentRequest

	DecideFunc func(ctx context.Context, tx repository.Tx, id string, status model.ManualRequestStatus, reviewerNote *string, decidedAt time.Time) (bool, error)
}

var _ repository.ManualPaymentRequestRepository = (*MockManualRequestRepo)(nil)

func NewMockManualRequestRepo() *MockManualRequestRepo {
	return &MockManualRequestRepo{rows: make(map[string]*model.ManualPaymentRequest)}
}

func (m *MockManualRequestRepo) Save(ctx context.Context, tx repository.Tx, r *model.ManualPaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *MockManualRequestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ManualPaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MockManualRequestRepo) Decide(ctx context.Context, tx repository.Tx, id string, status model.ManualRequestStatus, reviewerNote *string, decidedAt time.Time) (bool, error) {
	if m.DecideFunc != nil {
		return m.DecideFunc(ctx, tx, id, status, reviewerNote, decidedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != model.ManualRequestPending {
		return false, nil
	}
	r.Status = status
	r.ReviewerNote = reviewerNote
	d := decidedAt
	r.DecidedAt = &d
	return true, nil
}

func (m *MockManualRequestRepo) ListPending(ctx context.Context, tx repository.Tx, limit int) ([]*model.ManualPaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ManualPaymentRequest
	for _, r := range m.rows {
		if r.Status == model.ManualRequestPending {
			cp := *r
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockManualRequestRepo) ListByStudent(ctx context.Context, tx repository.Tx, studentID string) ([]*model.ManualPaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ManualPaymentRequest
	for _, r := range m.rows {
		if r.StudentID == studentID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock GatewayPaymentAttemptRepository ----

type MockGatewayAttemptRepo struct {
	mu      sync.Mutex
	rows    map[string]*model.GatewayPaymentAttempt
	byOrder map[string]string // merchant order id -> attempt id

	SaveFunc                  func(ctx context.Context, tx repository.Tx, a *model.GatewayPaymentAttempt) error
	UpdateStatusIfPendingFunc func(ctx context.Context, tx repository.Tx, id string, status model.AttemptStatus, providerReference *string, webhookReceivedAt *time.Time) (bool, error)
}

var _ repository.GatewayPaymentAttemptRepository = (*MockGatewayAttemptRepo)(nil)

func NewMockGatewayAttemptRepo() *MockGatewayAttemptRepo {
	return &MockGatewayAttemptRepo{
		rows:    make(map[string]*model.GatewayPaymentAttempt),
		byOrder: make(map[string]string),
	}
}

func (m *MockGatewayAttemptRepo) Save(ctx context.Context, tx repository.Tx, a *model.GatewayPaymentAttempt) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byOrder[a.MerchantOrderID]; dup {
		return domain.ErrAlreadyExists
	}
	cp := *a
	m.rows[a.ID] = &cp
	m.byOrder[a.MerchantOrderID] = a.ID
	return nil
}

func (m *MockGatewayAttemptRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GatewayPaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockGatewayAttemptRepo) FindByMerchantOrderID(ctx context.Context, tx repository.Tx, merchantOrderID string) (*model.GatewayPaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byOrder[merchantOrderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m.rows[id]
	return &cp, nil
}

func (m *MockGatewayAttemptRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.AttemptStatus, providerReference *string, webhookReceivedAt *time.Time) (bool, error) {
	if m.UpdateStatusIfPendingFunc != nil {
		return m.UpdateStatusIfPendingFunc(ctx, tx, id, status, providerReference, webhookReceivedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || a.Status != model.AttemptPending {
		return false, nil
	}
	a.Status = status
	if providerReference != nil {
		a.ProviderReference = providerReference
	}
	if webhookReceivedAt != nil {
		a.WebhookReceivedAt = webhookReceivedAt
	}
	a.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockGatewayAttemptRepo) SetProviderReference(ctx context.Context, tx repository.Tx, id string, providerReference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	if a.ProviderReference == nil {
		a.ProviderReference = &providerReference
	}
	return nil
}

func (m *MockGatewayAttemptRepo) ExpirePending(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.GatewayPaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.GatewayPaymentAttempt
	for _, a := range m.rows {
		if a.Status == model.AttemptPending && a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
			a.Status = model.AttemptExpired
			cp := *a
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockGatewayAttemptRepo) ListByStudent(ctx context.Context, tx repository.Tx, studentID string) ([]*model.GatewayPaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.GatewayPaymentAttempt
	for _, a := range m.rows {
		if a.StudentID == studentID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock CatalogRepository ----

type MockCatalogRepo struct {
	mu       sync.Mutex
	groups   map[string]*model.ContentGroup
	contents map[string]*model.Content
	prices   map[string]*model.TierPrice // contentGroupID|tier
}

var _ repository.CatalogRepository = (*MockCatalogRepo)(nil)

func NewMockCatalogRepo() *MockCatalogRepo {
	return &MockCatalogRepo{
		groups:   make(map[string]*model.ContentGroup),
		contents: make(map[string]*model.Content),
		prices:   make(map[string]*model.TierPrice),
	}
}

func priceKey(contentGroupID string, tier model.Tier) string {
	return contentGroupID + "|" + string(tier)
}

func (m *MockCatalogRepo) SaveContentGroup(ctx context.Context, tx repository.Tx, g *model.ContentGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.groups[g.ID] = &cp
	return nil
}

func (m *MockCatalogRepo) FindContentGroup(ctx context.Context, tx repository.Tx, id string) (*model.ContentGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *MockCatalogRepo) SaveContent(ctx context.Context, tx repository.Tx, c *model.Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.contents[c.ID] = &cp
	return nil
}

func (m *MockCatalogRepo) FindContent(ctx context.Context, tx repository.Tx, id string) (*model.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCatalogRepo) SaveTierPrice(ctx context.Context, tx repository.Tx, p *model.TierPrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.prices[priceKey(p.ContentGroupID, p.Tier)] = &cp
	return nil
}

func (m *MockCatalogRepo) FindTierPrice(ctx context.Context, tx repository.Tx, contentGroupID string, tier model.Tier) (*model.TierPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[priceKey(contentGroupID, tier)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockCatalogRepo) ListTierPrices(ctx context.Context, tx repository.Tx, contentGroupID string) ([]*model.TierPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.TierPrice
	for _, p := range m.prices {
		if p.ContentGroupID == contentGroupID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock WebhookAuditRepository ----

type MockAuditRepo struct {
	mu   sync.Mutex
	seen map[string]bool

	Err error // when set, MarkUnknownOrder fails
}

var _ repository.WebhookAuditRepository = (*MockAuditRepo)(nil)

func NewMockAuditRepo() *MockAuditRepo {
	return &MockAuditRepo{seen: make(map[string]bool)}
}

func (m *MockAuditRepo) MarkUnknownOrder(ctx context.Context, merchantOrderID string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[merchantOrderID] {
		return false, nil
	}
	m.seen[merchantOrderID] = true
	return true, nil
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	Provider model.Provider

	CreateCheckoutFunc func(ctx context.Context, merchantOrderID string, amount int64, currency, providerMethod string) (*adapter.CheckoutLaunch, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() model.Provider { return m.Provider }

func (m *MockPaymentGateway) CreateCheckout(ctx context.Context, merchantOrderID string, amount int64, currency, providerMethod string) (*adapter.CheckoutLaunch, error) {
	if m.CreateCheckoutFunc != nil {
		return m.CreateCheckoutFunc(ctx, merchantOrderID, amount, currency, providerMethod)
	}
	return &adapter.CheckoutLaunch{RedirectURL: "https://pay.example/" + merchantOrderID}, nil
}

// ---- Mock Notifier ----

type MockNotifier struct {
	mu     sync.Mutex
	Events []adapter.NotificationEvent
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(ctx context.Context, ev adapter.NotificationEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
}

func (m *MockNotifier) Count(kind adapter.NotificationKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.Events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// =============================
// Infra
// =============================

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

// WithTx runs fn with a nil tx by default; assign WithTxFunc to simulate
// transaction failures.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
