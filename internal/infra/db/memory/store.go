// Package memory is an in-process implementation of the storage ports, used
// when no database url is configured and by the demo and lifecycle tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"health-premium-service/internal/domain"
	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/repository"
)

var (
	_ repository.PaymentRepository       = (*paymentRepo)(nil)
	_ repository.SubscriptionRepository  = (*subscriptionRepo)(nil)
	_ repository.LegacyPremiumRepository = (*legacyRepo)(nil)
	_ repository.RenewalProcedure        = (*renewal)(nil)
)

type Options struct {
	Period      time.Duration
	PlanType    string
	StalePolicy model.StalePolicy
	Now         func() time.Time
}

// Store holds every table behind one mutex, so a renewal is atomic with
// respect to all other reads and writes.
type Store struct {
	mu       sync.Mutex
	payments map[string]*model.Payment
	subs     []*model.Subscription // insertion order
	legacy   []*model.LegacyPremium
	opts     Options
}

func NewStore(opts Options) *Store {
	if opts.Period <= 0 {
		opts.Period = model.DefaultRenewalPeriod
	}
	if opts.PlanType == "" {
		opts.PlanType = model.DefaultPlanType
	}
	if opts.StalePolicy == "" {
		opts.StalePolicy = model.StalePolicyFreshWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{payments: make(map[string]*model.Payment), opts: opts}
}

func (s *Store) Payments() *paymentRepo          { return &paymentRepo{s} }
func (s *Store) Subscriptions() *subscriptionRepo { return &subscriptionRepo{s} }
func (s *Store) Legacy() *legacyRepo              { return &legacyRepo{s} }
func (s *Store) Renewal() *renewal                { return &renewal{s} }

// -----------------------------
// Payments
// -----------------------------

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Save(ctx context.Context, _ any, p *model.Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[p.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	r.s.payments[p.ID] = &cp
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, _ any, id string) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *paymentRepo) UpdateStatusIfPending(ctx context.Context, _ any, id string, status model.PaymentStatus, ref *string, completedAt *time.Time) (bool, error) {
	if !model.PaymentStatusPending.CanTransition(status) {
		return false, domain.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
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
	if completedAt != nil {
		at := *completedAt
		p.CompletedAt = &at
	}
	p.UpdatedAt = r.s.opts.Now().UTC()
	return true, nil
}

func (r *paymentRepo) ListByUser(ctx context.Context, _ any, userID string, limit int) ([]*model.Payment, error) {
	return r.filter(limit, true, func(p *model.Payment) bool { return p.UserID == userID }), nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, _ any, before time.Time, limit int) ([]*model.Payment, error) {
	return r.filter(limit, false, func(p *model.Payment) bool {
		return p.Status == model.PaymentStatusPending && p.CreatedAt.Before(before)
	}), nil
}

func (r *paymentRepo) SumCompletedByCurrency(ctx context.Context, _ any) (map[string]decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]decimal.Decimal)
	for _, p := range r.s.payments {
		if p.Status == model.PaymentStatusCompleted {
			out[p.Currency] = out[p.Currency].Add(p.Amount)
		}
	}
	return out, nil
}

func (r *paymentRepo) filter(limit int, newestFirst bool, keep func(*model.Payment) bool) []*model.Payment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.s.payments {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// -----------------------------
// Subscriptions
// -----------------------------

type subscriptionRepo struct{ s *Store }

func (r *subscriptionRepo) Save(ctx context.Context, _ any, sub *model.Subscription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, existing := range r.s.subs {
		if existing.ID == sub.ID {
			cp := *sub
			r.s.subs[i] = &cp
			return nil
		}
	}
	cp := *sub
	r.s.subs = append(r.s.subs, &cp)
	return nil
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, _ any, userID string) (*model.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur := r.s.latestActiveLocked(userID)
	if cur == nil {
		return nil, domain.ErrNotFound
	}
	cp := *cur
	return &cp, nil
}

func (r *subscriptionRepo) LinkPayment(ctx context.Context, _ any, subscriptionID, paymentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sub := range r.s.subs {
		if sub.ID == subscriptionID {
			pid := paymentID
			sub.PaymentID = &pid
			sub.UpdatedAt = r.s.opts.Now().UTC()
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, _ any, userID string) ([]*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Subscription
	for i := len(r.s.subs) - 1; i >= 0; i-- {
		if r.s.subs[i].UserID == userID {
			cp := *r.s.subs[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, _ any) (map[model.SubscriptionStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[model.SubscriptionStatus]int)
	for _, sub := range r.s.subs {
		counts[sub.Status]++
	}
	return counts, nil
}

// latestActiveLocked breaks created_at ties by insertion order.
func (s *Store) latestActiveLocked(userID string) *model.Subscription {
	var best *model.Subscription
	for _, sub := range s.subs {
		if sub.UserID != userID || sub.Status != model.SubscriptionStatusActive {
			continue
		}
		if best == nil || !sub.CreatedAt.Before(best.CreatedAt) {
			best = sub
		}
	}
	return best
}

// -----------------------------
// Renewal
// -----------------------------

type renewal struct{ s *Store }

func (r *renewal) Renew(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", domain.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now().UTC()
	cur := s.latestActiveLocked(userID)
	plan := model.PlanRenewal(cur, now, s.opts.Period, s.opts.StalePolicy)

	if plan.Action == model.RenewalActionExtend {
		cur.EndAt = plan.NewEnd
		cur.UpdatedAt = now
		return cur.ID, nil
	}
	if plan.ExpireCurrent {
		cur.Status = model.SubscriptionStatusExpired
		cur.UpdatedAt = now
	}
	next, err := model.NewSubscription(userID, s.opts.PlanType, now, s.opts.Period)
	if err != nil {
		return "", err
	}
	s.subs = append(s.subs, next)
	return next.ID, nil
}

// -----------------------------
// Legacy premium records
// -----------------------------

type legacyRepo struct{ s *Store }

func (r *legacyRepo) FindActiveByUser(ctx context.Context, _ any, userID string) (*model.LegacyPremium, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *model.LegacyPremium
	for _, l := range r.s.legacy {
		if l.UserID != userID || !l.IsActive {
			continue
		}
		if best == nil || !l.CreatedAt.Before(best.CreatedAt) {
			best = l
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *legacyRepo) Save(ctx context.Context, _ any, l *model.LegacyPremium) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *l
	r.s.legacy = append(r.s.legacy, &cp)
	return nil
}
