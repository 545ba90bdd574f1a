package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"health-premium-service/internal/domain"
)

// LegacyPremium is a premium grant from the older record format. The service
// only reads it; rows are written by migration tooling.
type LegacyPremium struct {
	ID               string
	UserID           string
	SubscriptionType string
	ExpiresAt        *time.Time // nil means the grant never expires
	IsActive         bool
	CreatedAt        time.Time
}

// NewLegacyPremium builds an active grant, used by the seed tool and tests.
func NewLegacyPremium(userID, subscriptionType string, expiresAt *time.Time, now time.Time) (*LegacyPremium, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(subscriptionType) == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &LegacyPremium{
		ID:               uuid.NewString(),
		UserID:           userID,
		SubscriptionType: subscriptionType,
		ExpiresAt:        expiresAt,
		IsActive:         true,
		CreatedAt:        now,
	}, nil
}

func (l *LegacyPremium) IsLive(now time.Time) bool {
	if !l.IsActive {
		return false
	}
	return l.ExpiresAt == nil || l.ExpiresAt.After(now)
}
