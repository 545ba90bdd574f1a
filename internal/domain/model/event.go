package model

import "time"

type SubscriptionChangeReason string

const (
	ChangeReasonPayment SubscriptionChangeReason = "payment"
	ChangeReasonRenewal SubscriptionChangeReason = "renewal"
)

// SubscriptionChanged is published after a user's entitlement may have changed.
// Consumers re-resolve instead of trusting the payload.
type SubscriptionChanged struct {
	UserID         string                   `json:"user_id"`
	SubscriptionID string                   `json:"subscription_id"`
	PaymentID      string                   `json:"payment_id,omitempty"`
	Reason         SubscriptionChangeReason `json:"reason"`
	OccurredAt     time.Time                `json:"occurred_at"`
}
