//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"health-premium-service/internal/domain"
	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/repository"
	"health-premium-service/internal/usecase"
)

func TestStatsUseCase_Totals(t *testing.T) {
	ctx := context.Background()

	t.Run("should aggregate subscriptions, revenue and stale payments", func(t *testing.T) {
		// --- Arrange ---
		subs := NewMockSubscriptionRepo()
		s1, _ := model.NewSubscription("u1", "", time.Now(), model.DefaultRenewalPeriod)
		s2, _ := model.NewSubscription("u2", "", time.Now(), model.DefaultRenewalPeriod)
		s2.Status = model.SubscriptionStatusExpired
		_ = subs.Save(ctx, nil, s1)
		_ = subs.Save(ctx, nil, s2)

		payments := NewMockPaymentRepo()
		old, _ := model.NewPendingPayment("u1", decimal.NewFromInt(5), "EUR", "card", time.Now().Add(-2*time.Hour))
		done, _ := model.NewPendingPayment("u2", decimal.RequireFromString("7.50"), "EUR", "card", time.Now())
		done.Status = model.PaymentStatusCompleted
		_ = payments.Save(ctx, nil, old)
		_ = payments.Save(ctx, nil, done)

		uc := usecase.NewStatsUseCase(subs, payments, time.Hour, newTestLogger())

		// --- Act ---
		st, err := uc.Totals(ctx)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if st.SubscriptionsByStatus[model.SubscriptionStatusActive] != 1 || st.SubscriptionsByStatus[model.SubscriptionStatusExpired] != 1 {
			t.Errorf("unexpected counts %v", st.SubscriptionsByStatus)
		}
		if !st.RevenueByCurrency["EUR"].Equal(decimal.RequireFromString("7.50")) {
			t.Errorf("unexpected revenue %v", st.RevenueByCurrency)
		}
		if st.StalePendingPayments != 1 {
			t.Errorf("expected 1 stale payment, got %d", st.StalePendingPayments)
		}
	})

	t.Run("should propagate storage errors", func(t *testing.T) {
		subs := NewMockSubscriptionRepo()
		subs.CountByStatusFunc = func(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
			return nil, domain.ErrOperationFailed
		}
		uc := usecase.NewStatsUseCase(subs, NewMockPaymentRepo(), 0, newTestLogger())
		if _, err := uc.Totals(ctx); !errors.Is(err, domain.ErrOperationFailed) {
			t.Errorf("expected ErrOperationFailed, got %v", err)
		}
	})
}
