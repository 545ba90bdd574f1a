//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"health-premium-service/internal/domain"
	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/adapter"
	"health-premium-service/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Repositories
// =============================

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.Payment // by id

	SaveFunc                   func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByIDFunc               func(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error)
	UpdateStatusIfPendingFunc  func(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, ref *string, completedAt *time.Time) (bool, error)
	ListByUserFunc             func(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Payment, error)
	ListPendingOlderThanFunc   func(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Payment, error)
	SumCompletedByCurrencyFunc func(ctx context.Context, tx repository.Tx) (map[string]decimal.Decimal, error)

	updates int
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, ref *string, completedAt *time.Time) (bool, error) {
	r.mu.Lock()
	r.updates++
	r.mu.Unlock()
	if r.UpdateStatusIfPendingFunc != nil {
		return r.UpdateStatusIfPendingFunc(ctx, tx, id, status, ref, completedAt)
	}
	return r.applyIfPending(id, status, ref, completedAt)
}

func (r *MockPaymentRepo) applyIfPending(id string, status model.PaymentStatus, ref *string, completedAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	if ref != nil {
		p.TransactionRef = *ref
	}
	p.CompletedAt = completedAt
	return true, nil
}

func (r *MockPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Payment, error) {
	if r.ListByUserFunc != nil {
		return r.ListByUserFunc(ctx, tx, userID, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Payment, error) {
	if r.ListPendingOlderThanFunc != nil {
		return r.ListPendingOlderThanFunc(ctx, tx, before, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(before) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockPaymentRepo) SumCompletedByCurrency(ctx context.Context, tx repository.Tx) (map[string]decimal.Decimal, error) {
	if r.SumCompletedByCurrencyFunc != nil {
		return r.SumCompletedByCurrencyFunc(ctx, tx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]decimal.Decimal{}
	for _, p := range r.data {
		if p.Status == model.PaymentStatusCompleted {
			out[p.Currency] = out[p.Currency].Add(p.Amount)
		}
	}
	return out, nil
}

// Only returns one stored payment; most tests record a single call.
func (r *MockPaymentRepo) only() *model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		cp := *p
		return &cp
	}
	return nil
}

func (r *MockPaymentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data []*model.Subscription

	SaveFunc             func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	FindActiveByUserFunc func(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error)
	LinkPaymentFunc      func(ctx context.Context, tx repository.Tx, subscriptionID, paymentID string) error
	CountByStatusFunc    func(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error)

	findCalls int
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.data {
		if existing.ID == s.ID {
			cp := *s
			r.data[i] = &cp
			return nil
		}
	}
	cp := *s
	r.data = append(r.data, &cp)
	return nil
}

func (r *MockSubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	r.mu.Lock()
	r.findCalls++
	r.mu.Unlock()
	if r.FindActiveByUserFunc != nil {
		return r.FindActiveByUserFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.data) - 1; i >= 0; i-- {
		s := r.data[i]
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) LinkPayment(ctx context.Context, tx repository.Tx, subscriptionID, paymentID string) error {
	if r.LinkPaymentFunc != nil {
		return r.LinkPaymentFunc(ctx, tx, subscriptionID, paymentID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data {
		if s.ID == subscriptionID {
			pid := paymentID
			s.PaymentID = &pid
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *MockSubscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	if r.CountByStatusFunc != nil {
		return r.CountByStatusFunc(ctx, tx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.SubscriptionStatus]int{}
	for _, s := range r.data {
		out[s.Status]++
	}
	return out, nil
}

// ---- Mock LegacyPremiumRepository ----

type MockLegacyRepo struct {
	FindActiveByUserFunc func(ctx context.Context, tx repository.Tx, userID string) (*model.LegacyPremium, error)

	mu    sync.Mutex
	rows  []*model.LegacyPremium
	calls int
}

var _ repository.LegacyPremiumRepository = (*MockLegacyRepo)(nil)

func (r *MockLegacyRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.LegacyPremium, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.FindActiveByUserFunc != nil {
		return r.FindActiveByUserFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].UserID == userID && r.rows[i].IsActive {
			cp := *r.rows[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockLegacyRepo) Save(ctx context.Context, tx repository.Tx, l *model.LegacyPremium) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.rows = append(r.rows, &cp)
	return nil
}

// ---- Mock RenewalProcedure ----

// MockRenewal renews against a MockSubscriptionRepo using model.PlanRenewal.
type MockRenewal struct {
	Subs      *MockSubscriptionRepo
	Now       func() time.Time
	RenewFunc func(ctx context.Context, userID string) (string, error)

	mu    sync.Mutex
	calls int
}

var _ repository.RenewalProcedure = (*MockRenewal)(nil)

func (m *MockRenewal) Renew(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.RenewFunc != nil {
		return m.RenewFunc(ctx, userID)
	}
	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	cur, err := m.Subs.FindActiveByUser(ctx, nil, userID)
	if err != nil {
		cur = nil
	}
	plan := model.PlanRenewal(cur, now, model.DefaultRenewalPeriod, model.StalePolicyFreshWindow)
	if plan.Action == model.RenewalActionExtend {
		cur.EndAt = plan.NewEnd
		return cur.ID, m.Subs.Save(ctx, nil, cur)
	}
	if plan.ExpireCurrent {
		cur.Status = model.SubscriptionStatusExpired
		_ = m.Subs.Save(ctx, nil, cur)
	}
	next, _ := model.NewSubscription(userID, model.DefaultPlanType, now, model.DefaultRenewalPeriod)
	return next.ID, m.Subs.Save(ctx, nil, next)
}

func (m *MockRenewal) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentAuthorizer ----

type MockAuthorizer struct {
	AuthorizeFunc func(ctx context.Context, req adapter.AuthorizationRequest) (adapter.AuthorizationResult, error)
}

var _ adapter.PaymentAuthorizer = (*MockAuthorizer)(nil)

func (m *MockAuthorizer) Name() string { return "mockpay" }

func (m *MockAuthorizer) Authorize(ctx context.Context, req adapter.AuthorizationRequest) (adapter.AuthorizationResult, error) {
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(ctx, req)
	}
	return adapter.AuthorizationResult{Approved: true}, nil
}

// ---- Recording Notifier ----

type sentNotification struct {
	UserID string
	model.Notification
}

type MockNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(ctx context.Context, userID string, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{UserID: userID, Notification: n})
	return nil
}

func (m *MockNotifier) Sent() []sentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentNotification(nil), m.sent...)
}

// ---- Recording EventPublisher ----

type MockPublisher struct {
	mu     sync.Mutex
	events []model.SubscriptionChanged
	Err    error
}

var _ adapter.EventPublisher = (*MockPublisher)(nil)

func (m *MockPublisher) PublishSubscriptionChanged(ctx context.Context, evt model.SubscriptionChanged) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return m.Err
}

func (m *MockPublisher) Events() []model.SubscriptionChanged {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SubscriptionChanged(nil), m.events...)
}

// ---- Static message catalog ----

type mapMessages map[string]string

func (m mapMessages) T(key string, args ...interface{}) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}
