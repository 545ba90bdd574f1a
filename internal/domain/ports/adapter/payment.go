package adapter

import (
	"context"

	"github.com/shopspring/decimal"
)

// AuthorizationRequest is what the processor sends to a payment authorizer.
type AuthorizationRequest struct {
	PaymentID string
	UserID    string
	Amount    decimal.Decimal
	Currency  string
	Method    string
	Reference string // temporary reference of the pending ledger row
}

// AuthorizationResult is a provider-agnostic authorization outcome.
type AuthorizationResult struct {
	Approved  bool
	Reference string // provider settlement reference, optional
	Reason    string // rejection reason when not approved
}

// PaymentAuthorizer is the hex port for payment providers.
type PaymentAuthorizer interface {
	Name() string
	Authorize(ctx context.Context, req AuthorizationRequest) (AuthorizationResult, error)
}
