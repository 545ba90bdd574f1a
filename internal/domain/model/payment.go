package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"health-premium-service/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // recorded, awaiting authorization
	PaymentStatusCompleted PaymentStatus = "completed" // authorized and settled
	PaymentStatusFailed    PaymentStatus = "failed"    // terminal failure, never reopened
)

// Payment is one row of the payment ledger.
type Payment struct {
	ID             string          // UUID
	UserID         string          // owner, as issued by the auth collaborator
	Amount         decimal.Decimal // strictly positive
	Currency       string          // ISO 4217, upper-case
	Method         string          // opaque tag such as "card"
	Status         PaymentStatus
	TransactionRef string // tmp-... while pending, txn-... once completed
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// amountScale matches the ledger column NUMERIC(14, 2).
const amountScale = 2

// NewPendingPayment validates the request fields and builds a pending ledger
// row carrying a temporary transaction reference.
func NewPendingPayment(userID string, amount decimal.Decimal, currency, method string, now time.Time) (*Payment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidArgument)
	}
	if amount.Exponent() < -amountScale && !amount.Equal(amount.Truncate(amountScale)) {
		return nil, fmt.Errorf("%w: amount has more than %d decimal places", domain.ErrInvalidArgument, amountScale)
	}
	cur := NormalizeCurrency(currency)
	if len(cur) != 3 {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", domain.ErrInvalidArgument)
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, fmt.Errorf("%w: payment method is required", domain.ErrInvalidArgument)
	}
	now = now.UTC()
	return &Payment{
		ID:             uuid.NewString(),
		UserID:         userID,
		Amount:         amount,
		Currency:       cur,
		Method:         method,
		Status:         PaymentStatusPending,
		TransactionRef: TemporaryTransactionRef(userID, now),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// TemporaryTransactionRef returns the reference a payment carries until it is authorized.
func TemporaryTransactionRef(userID string, now time.Time) string {
	prefix := userID
	if r := []rune(prefix); len(r) > 8 {
		prefix = string(r[:8])
	}
	return fmt.Sprintf("tmp-%d-%s", now.UnixMilli(), prefix)
}

// FinalTransactionRef returns a fresh, lexically sortable settlement reference.
func FinalTransactionRef(now time.Time) string {
	return "txn-" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}

func NormalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

// CanTransition reports whether a payment may move from s to next.
// Only pending payments move, and only to a terminal state.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	if s != PaymentStatusPending {
		return false
	}
	return next.IsTerminal()
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// Complete marks the payment completed in memory.
func (p *Payment) Complete(ref string, at time.Time) error {
	if !p.Status.CanTransition(PaymentStatusCompleted) {
		return fmt.Errorf("%w: payment %s is %s", domain.ErrInvalidArgument, p.ID, p.Status)
	}
	at = at.UTC()
	p.Status = PaymentStatusCompleted
	p.TransactionRef = ref
	p.CompletedAt = &at
	p.UpdatedAt = at
	return nil
}

// Fail marks the payment failed in memory.
func (p *Payment) Fail(at time.Time) error {
	if !p.Status.CanTransition(PaymentStatusFailed) {
		return fmt.Errorf("%w: payment %s is %s", domain.ErrInvalidArgument, p.ID, p.Status)
	}
	p.Status = PaymentStatusFailed
	p.UpdatedAt = at.UTC()
	return nil
}
