package model

import (
	"time"

	"github.com/google/uuid"

	"health-premium-service/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

const (
	DefaultPlanType      = "premium-monthly"
	DefaultRenewalPeriod = 30 * 24 * time.Hour
)

// Subscription is one premium entitlement window for a user.
// A row whose EndAt has passed is logically expired even while Status is still active.
type Subscription struct {
	ID        string // UUID
	UserID    string
	PlanType  string
	Status    SubscriptionStatus
	StartAt   time.Time
	EndAt     time.Time
	PaymentID *string // payment that paid for the window, if any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSubscription creates an active window [now, now+period).
func NewSubscription(userID, planType string, now time.Time, period time.Duration) (*Subscription, error) {
	if userID == "" || period <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if planType == "" {
		planType = DefaultPlanType
	}
	now = now.UTC()
	return &Subscription{
		ID:        uuid.NewString(),
		UserID:    userID,
		PlanType:  planType,
		Status:    SubscriptionStatusActive,
		StartAt:   now,
		EndAt:     now.Add(period),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsLive reports whether the subscription grants premium at now.
func (s *Subscription) IsLive(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && s.EndAt.After(now)
}

// IsStale reports a row still marked active whose window has already closed.
func (s *Subscription) IsStale(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && !s.EndAt.After(now)
}
