package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"health-premium-service/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, qx any, p *model.Payment) error
	FindByID(ctx context.Context, qx any, id string) (*model.Payment, error)
	// UpdateStatusIfPending moves a payment out of pending. It reports false,
	// without error, when the row exists but is no longer pending.
	UpdateStatusIfPending(ctx context.Context, qx any, id string, status model.PaymentStatus, ref *string, completedAt *time.Time) (bool, error)
	ListByUser(ctx context.Context, qx any, userID string, limit int) ([]*model.Payment, error)
	ListPendingOlderThan(ctx context.Context, qx any, before time.Time, limit int) ([]*model.Payment, error)
	SumCompletedByCurrency(ctx context.Context, qx any) (map[string]decimal.Decimal, error)
}
