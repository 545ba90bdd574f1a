package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/repository"
	"health-premium-service/internal/infra/metrics"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type Stats struct {
	SubscriptionsByStatus map[model.SubscriptionStatus]int `json:"subscriptions_by_status"`
	RevenueByCurrency     map[string]decimal.Decimal       `json:"revenue_by_currency"`
	StalePendingPayments  int                              `json:"stale_pending_payments"`
}

type StatsUseCase interface {
	Totals(ctx context.Context) (Stats, error)
	UserSubscriptions(ctx context.Context, userID string) ([]*model.Subscription, error)
	StalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*model.Payment, error)
}

type statsUC struct {
	subs       repository.SubscriptionRepository
	payments   repository.PaymentRepository
	staleAfter time.Duration
	now        func() time.Time

	log *zerolog.Logger
}

func NewStatsUseCase(subs repository.SubscriptionRepository, payments repository.PaymentRepository, staleAfter time.Duration, logger *zerolog.Logger) *statsUC {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &statsUC{subs: subs, payments: payments, staleAfter: staleAfter, now: time.Now, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (Stats, error) {
	counts, err := s.subs.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return Stats{}, err
	}
	metrics.SetSubscriptionsTotal(counts)

	revenue, err := s.payments.SumCompletedByCurrency(ctx, repository.NoTX)
	if err != nil {
		return Stats{}, err
	}
	stale, err := s.StalePending(ctx, s.staleAfter, 1000)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		SubscriptionsByStatus: counts,
		RevenueByCurrency:     revenue,
		StalePendingPayments:  len(stale),
	}, nil
}

func (s *statsUC) UserSubscriptions(ctx context.Context, userID string) ([]*model.Subscription, error) {
	return s.subs.ListByUser(ctx, repository.NoTX, userID)
}

func (s *statsUC) StalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*model.Payment, error) {
	return s.payments.ListPendingOlderThan(ctx, repository.NoTX, s.now().Add(-olderThan), limit)
}
