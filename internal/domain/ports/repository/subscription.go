package repository

import (
	"context"

	"health-premium-service/internal/domain/model"
)

// -----------------------------
// Subscriptions
// -----------------------------

type SubscriptionRepository interface {
	Save(ctx context.Context, qx any, s *model.Subscription) error
	// FindActiveByUser returns the most recently created row with status active,
	// without checking its end date. domain.ErrNotFound when there is none.
	FindActiveByUser(ctx context.Context, qx any, userID string) (*model.Subscription, error)
	LinkPayment(ctx context.Context, qx any, subscriptionID, paymentID string) error
	ListByUser(ctx context.Context, qx any, userID string) ([]*model.Subscription, error)
	CountByStatus(ctx context.Context, qx any) (map[model.SubscriptionStatus]int, error)
}

// RenewalProcedure grants one renewal period to a user as a single atomic
// unit per user and returns the id of the active subscription row.
type RenewalProcedure interface {
	Renew(ctx context.Context, userID string) (string, error)
}

// -----------------------------
// Legacy premium records
// -----------------------------

type LegacyPremiumRepository interface {
	// FindActiveByUser returns the most recent row flagged active, without
	// checking expiry. domain.ErrNotFound when there is none.
	FindActiveByUser(ctx context.Context, qx any, userID string) (*model.LegacyPremium, error)
	Save(ctx context.Context, qx any, l *model.LegacyPremium) error
}
