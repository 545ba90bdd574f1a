//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"health-premium-service/internal/domain"
	"health-premium-service/internal/domain/model"
)

func TestPaymentRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewPaymentRepo(testPool)

	newPayment := func(t *testing.T, userID, amount string, createdAt time.Time) *model.Payment {
		t.Helper()
		p, err := model.NewPendingPayment(userID, decimal.RequireFromString(amount), "EUR", "card", createdAt)
		if err != nil {
			t.Fatalf("failed to build payment: %v", err)
		}
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("failed to save payment: %v", err)
		}
		return p
	}

	t.Run("should save and find a payment with an exact amount", func(t *testing.T) {
		cleanup(t)
		p := newPayment(t, "user-1", "19.99", time.Now())

		found, err := repo.FindByID(ctx, nil, p.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if !found.Amount.Equal(p.Amount) {
			t.Errorf("expected amount %s, got %s", p.Amount, found.Amount)
		}
		if found.Status != model.PaymentStatusPending || found.TransactionRef != p.TransactionRef {
			t.Errorf("unexpected payment %+v", found)
		}
	})

	t.Run("should return ErrNotFound for a missing payment", func(t *testing.T) {
		cleanup(t)
		_, err := repo.FindByID(ctx, nil, "00000000-0000-0000-0000-000000000000")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("should move a payment out of pending only once", func(t *testing.T) {
		cleanup(t)
		p := newPayment(t, "user-1", "5.00", time.Now())
		ref := "txn-TEST"
		now := time.Now()

		ok, err := repo.UpdateStatusIfPending(ctx, nil, p.ID, model.PaymentStatusCompleted, &ref, &now)
		if err != nil || !ok {
			t.Fatalf("expected completion to apply, got ok=%v err=%v", ok, err)
		}
		ok, err = repo.UpdateStatusIfPending(ctx, nil, p.ID, model.PaymentStatusFailed, nil, nil)
		if err != nil || ok {
			t.Fatalf("expected second transition to be a no-op, got ok=%v err=%v", ok, err)
		}

		found, _ := repo.FindByID(ctx, nil, p.ID)
		if found.Status != model.PaymentStatusCompleted || found.TransactionRef != ref || found.CompletedAt == nil {
			t.Errorf("unexpected payment after transitions %+v", found)
		}
	})

	t.Run("should list history, stale pending and revenue", func(t *testing.T) {
		cleanup(t)
		old := newPayment(t, "user-1", "10.00", time.Now().Add(-2*time.Hour))
		newPayment(t, "user-1", "2.50", time.Now())
		done := newPayment(t, "user-2", "7.25", time.Now())
		ref := "txn-DONE"
		now := time.Now()
		if _, err := repo.UpdateStatusIfPending(ctx, nil, done.ID, model.PaymentStatusCompleted, &ref, &now); err != nil {
			t.Fatalf("complete failed: %v", err)
		}

		history, err := repo.ListByUser(ctx, nil, "user-1", 10)
		if err != nil || len(history) != 2 {
			t.Fatalf("expected 2 payments for user-1, got %d (%v)", len(history), err)
		}
		if history[1].ID != old.ID {
			t.Error("expected history ordered newest first")
		}

		stale, err := repo.ListPendingOlderThan(ctx, nil, time.Now().Add(-time.Hour), 10)
		if err != nil || len(stale) != 1 || stale[0].ID != old.ID {
			t.Fatalf("expected the old pending payment, got %v (%v)", stale, err)
		}

		sums, err := repo.SumCompletedByCurrency(ctx, nil)
		if err != nil {
			t.Fatalf("SumCompletedByCurrency failed: %v", err)
		}
		if !sums["EUR"].Equal(decimal.RequireFromString("7.25")) {
			t.Errorf("expected 7.25 EUR, got %s", sums["EUR"])
		}
	})
}
