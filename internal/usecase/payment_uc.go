// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"health-premium-service/internal/domain"
	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/adapter"
	"health-premium-service/internal/domain/ports/repository"
	"health-premium-service/internal/infra/logging"
	"health-premium-service/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// ProcessPayment records, authorizes and settles a payment, then grants one renewal period.
	ProcessPayment(ctx context.Context, principal *model.Principal, req PaymentRequest) (PaymentResult, error)
	// RenewSubscription grants one renewal period without a payment.
	RenewSubscription(ctx context.Context, principal *model.Principal) (RenewResult, error)
	// History lists the caller's payments, newest first.
	History(ctx context.Context, principal *model.Principal, limit int) ([]*model.Payment, error)
}

type PaymentRequest struct {
	Amount   decimal.Decimal
	Currency string
	Method   string
}

type PaymentResult struct {
	Success      bool
	PaymentID    string
	Notification model.Notification
}

type RenewResult struct {
	Success        bool
	SubscriptionID string
	Notification   model.Notification
}

// Messages resolves notification catalog keys.
type Messages interface {
	T(key string, args ...interface{}) string
}

type PaymentOptions struct {
	SupportedCurrencies []string
	Now                 func() time.Time
}

type paymentUC struct {
	payments   repository.PaymentRepository
	subs       repository.SubscriptionRepository
	renewal    repository.RenewalProcedure
	authorizer adapter.PaymentAuthorizer
	notifier   adapter.Notifier
	events     adapter.EventPublisher
	msgs       Messages
	currencies map[string]struct{}
	now        func() time.Time
	log        *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	renewal repository.RenewalProcedure,
	authorizer adapter.PaymentAuthorizer,
	notifier adapter.Notifier,
	events adapter.EventPublisher,
	msgs Messages,
	opts PaymentOptions,
	logger *zerolog.Logger,
) *paymentUC {
	currencies := make(map[string]struct{}, len(opts.SupportedCurrencies))
	for _, c := range opts.SupportedCurrencies {
		currencies[model.NormalizeCurrency(c)] = struct{}{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		payments:   payments,
		subs:       subs,
		renewal:    renewal,
		authorizer: authorizer,
		notifier:   notifier,
		events:     events,
		msgs:       msgs,
		currencies: currencies,
		now:        opts.Now,
		log:        &l,
	}
}

func (u *paymentUC) ProcessPayment(ctx context.Context, principal *model.Principal, req PaymentRequest) (PaymentResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.ProcessPayment")()

	if principal.IsZero() {
		return u.paymentFailed(ctx, "", nil, domain.ErrAuthenticationRequired)
	}
	log := logging.With(logging.WithUserID(ctx, principal.UserID), u.log)

	cur := model.NormalizeCurrency(req.Currency)
	if _, ok := u.currencies[cur]; !ok {
		err := fmt.Errorf("%w: currency %q is not supported", domain.ErrInvalidArgument, req.Currency)
		return u.paymentFailed(ctx, principal.UserID, nil, err)
	}
	p, err := model.NewPendingPayment(principal.UserID, req.Amount, cur, req.Method, u.now())
	if err != nil {
		return u.paymentFailed(ctx, principal.UserID, nil, err)
	}

	// Step 1: ledger insert.
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		log.Error().Err(err).Msg("payment ledger insert failed")
		return u.paymentFailed(ctx, principal.UserID, nil, fmt.Errorf("%w: %v", domain.ErrLedgerWriteFailed, err))
	}
	log.Info().Str("payment_id", p.ID).Str("amount", p.Amount.String()).Str("currency", p.Currency).Msg("payment recorded")

	subID, err := u.settle(ctx, log, p)
	if err != nil {
		return u.paymentFailed(ctx, principal.UserID, p, err)
	}

	metrics.IncPayment(string(model.PaymentStatusCompleted))
	metrics.AddPaymentRevenue(p.Currency, p.Amount)
	u.publish(ctx, log, model.SubscriptionChanged{
		UserID:         principal.UserID,
		SubscriptionID: subID,
		PaymentID:      p.ID,
		Reason:         model.ChangeReasonPayment,
		OccurredAt:     u.now().UTC(),
	})

	n := u.notification(model.MsgPaymentSuccessTitle, model.MsgPaymentSuccessBody, model.SeveritySuccess)
	u.notify(ctx, principal.UserID, n)
	return PaymentResult{Success: true, PaymentID: p.ID, Notification: n}, nil
}

// settle runs steps 2-5 for a recorded payment. Panics are converted to
// ErrUnexpected so the caller compensates them like any other fatal error.
func (u *paymentUC) settle(ctx context.Context, log *zerolog.Logger, p *model.Payment) (subID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("payment_id", p.ID).Msg("payment processing panicked")
			subID, err = "", fmt.Errorf("%w: %v", domain.ErrUnexpected, r)
		}
	}()

	// Step 2: authorization.
	res, err := u.authorizer.Authorize(ctx, adapter.AuthorizationRequest{
		PaymentID: p.ID,
		UserID:    p.UserID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Method:    p.Method,
		Reference: p.TransactionRef,
	})
	if err != nil {
		log.Warn().Err(err).Str("payment_id", p.ID).Str("provider", u.authorizer.Name()).Msg("authorization error")
		return "", fmt.Errorf("%w: %v", domain.ErrAuthorizationFailed, err)
	}
	if !res.Approved {
		log.Warn().Str("payment_id", p.ID).Str("provider", u.authorizer.Name()).Str("reason", res.Reason).Msg("authorization rejected")
		return "", fmt.Errorf("%w: %s", domain.ErrAuthorizationFailed, res.Reason)
	}

	// Step 3: mark completed.
	now := u.now().UTC()
	ref := res.Reference
	if ref == "" {
		ref = model.FinalTransactionRef(now)
	}
	ok, err := u.payments.UpdateStatusIfPending(ctx, repository.NoTX, p.ID, model.PaymentStatusCompleted, &ref, &now)
	if err != nil {
		log.Error().Err(err).Str("payment_id", p.ID).Msg("payment completion write failed")
		return "", fmt.Errorf("%w: %v", domain.ErrCompletionWriteFailed, err)
	}
	if !ok {
		log.Error().Str("payment_id", p.ID).Msg("payment left pending before completion")
		return "", fmt.Errorf("%w: payment %s is no longer pending", domain.ErrCompletionWriteFailed, p.ID)
	}
	// The row is already completed; this only syncs the in-memory copy.
	if err := p.Complete(ref, now); err != nil {
		log.Debug().Err(err).Str("payment_id", p.ID).Msg("in-memory completion skipped")
	}

	// Step 4: renewal. From here on the payment is completed.
	subID, err = u.renewal.Renew(ctx, p.UserID)
	if err != nil {
		metrics.IncPaymentInconsistency("renewal")
		log.Error().Err(err).Str("payment_id", p.ID).Str("transaction_ref", ref).
			Msg("payment completed but subscription renewal failed; manual reconciliation required")
		return "", fmt.Errorf("%w: %v", domain.ErrRenewalFailed, err)
	}

	// Step 5: link the payment to the active subscription. Non-fatal.
	if err := u.linkPayment(ctx, p); err != nil {
		log.Warn().Err(err).Str("payment_id", p.ID).Str("subscription_id", subID).Msg("subscription payment link not written")
	}
	return subID, nil
}

func (u *paymentUC) linkPayment(ctx context.Context, p *model.Payment) error {
	active, err := u.subs.FindActiveByUser(ctx, repository.NoTX, p.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLinkWriteFailed, err)
	}
	if err := u.subs.LinkPayment(ctx, repository.NoTX, active.ID, p.ID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLinkWriteFailed, err)
	}
	return nil
}

// paymentFailed compensates p when the failure kind calls for it, records
// the outcome and emits the single generic failure notification.
func (u *paymentUC) paymentFailed(ctx context.Context, userID string, p *model.Payment, cause error) (PaymentResult, error) {
	log := u.log
	if userID != "" {
		log = logging.With(logging.WithUserID(ctx, userID), u.log)
	}

	status := "rejected"
	if p != nil {
		status = string(model.PaymentStatusPending)
		if shouldCompensate(cause) {
			status = string(model.PaymentStatusFailed)
			u.compensate(ctx, log, p)
		}
	}
	metrics.IncPayment(status)
	log.Warn().Err(cause).Str("outcome", status).Msg("payment not completed")

	n := u.notification(model.MsgPaymentFailedTitle, model.MsgPaymentFailedBody, model.SeverityError)
	u.notify(ctx, userID, n)
	res := PaymentResult{Notification: n}
	if p != nil {
		res.PaymentID = p.ID
	}
	return res, cause
}

// shouldCompensate is true for the fatal post-insert errors. Authorization
// failures stay pending for manual reconciliation.
func shouldCompensate(err error) bool {
	switch {
	case errors.Is(err, domain.ErrCompletionWriteFailed),
		errors.Is(err, domain.ErrRenewalFailed),
		errors.Is(err, domain.ErrUnexpected):
		return true
	default:
		return false
	}
}

// compensate marks p failed iff it is still pending. It is a separate write,
// not transactional with the original insert.
func (u *paymentUC) compensate(ctx context.Context, log *zerolog.Logger, p *model.Payment) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("payment_id", p.ID).Msg("payment compensation panicked")
		}
	}()
	ok, err := u.payments.UpdateStatusIfPending(ctx, repository.NoTX, p.ID, model.PaymentStatusFailed, nil, nil)
	switch {
	case err != nil:
		metrics.IncPaymentInconsistency("compensation")
		log.Error().Err(err).Str("payment_id", p.ID).Msg("payment compensation failed")
	case ok:
		log.Info().Str("payment_id", p.ID).Msg("payment marked failed")
	default:
		log.Debug().Str("payment_id", p.ID).Msg("payment already left pending; compensation skipped")
	}
}

func (u *paymentUC) RenewSubscription(ctx context.Context, principal *model.Principal) (RenewResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.RenewSubscription")()

	failed := func(userID string, cause error) (RenewResult, error) {
		u.log.Warn().Err(cause).Str("user_id", userID).Msg("renewal not completed")
		n := u.notification(model.MsgRenewalFailedTitle, model.MsgRenewalFailedBody, model.SeverityError)
		u.notify(ctx, userID, n)
		return RenewResult{Notification: n}, cause
	}
	if principal.IsZero() {
		return failed("", domain.ErrAuthenticationRequired)
	}
	log := logging.With(logging.WithUserID(ctx, principal.UserID), u.log)

	subID, err := u.renewSafely(ctx, principal.UserID)
	if err != nil {
		log.Error().Err(err).Msg("subscription renewal failed")
		return failed(principal.UserID, fmt.Errorf("%w: %v", domain.ErrRenewalFailed, err))
	}

	u.publish(ctx, log, model.SubscriptionChanged{
		UserID:         principal.UserID,
		SubscriptionID: subID,
		Reason:         model.ChangeReasonRenewal,
		OccurredAt:     u.now().UTC(),
	})
	n := u.notification(model.MsgRenewalSuccessTitle, model.MsgRenewalSuccessBody, model.SeveritySuccess)
	u.notify(ctx, principal.UserID, n)
	return RenewResult{Success: true, SubscriptionID: subID, Notification: n}, nil
}

func (u *paymentUC) renewSafely(ctx context.Context, userID string) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			id, err = "", fmt.Errorf("%w: %v", domain.ErrUnexpected, r)
		}
	}()
	return u.renewal.Renew(ctx, userID)
}

func (u *paymentUC) History(ctx context.Context, principal *model.Principal, limit int) ([]*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.History")()
	if principal.IsZero() {
		return nil, domain.ErrAuthenticationRequired
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return u.payments.ListByUser(ctx, repository.NoTX, principal.UserID, limit)
}

func (u *paymentUC) publish(ctx context.Context, log *zerolog.Logger, evt model.SubscriptionChanged) {
	if u.events == nil {
		return
	}
	if err := u.events.PublishSubscriptionChanged(ctx, evt); err != nil {
		log.Warn().Err(err).Str("subscription_id", evt.SubscriptionID).Msg("subscription event not published")
	}
}

func (u *paymentUC) notify(ctx context.Context, userID string, n model.Notification) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.Notify(ctx, userID, n); err != nil {
		u.log.Warn().Err(err).Str("user_id", userID).Msg("notification not delivered")
	}
}

func (u *paymentUC) notification(titleKey, bodyKey string, sev model.Severity) model.Notification {
	return model.Notification{
		Title:       u.text(titleKey),
		Description: u.text(bodyKey),
		Severity:    sev,
	}
}

func (u *paymentUC) text(key string) string {
	if u.msgs != nil {
		if s := u.msgs.T(key); s != key {
			return s
		}
	}
	return fallbackMessages[key]
}

// fallbackMessages are used when no catalog is wired or a key is missing.
var fallbackMessages = map[string]string{
	model.MsgPaymentSuccessTitle: "Payment successful",
	model.MsgPaymentSuccessBody:  "Your premium access is active.",
	model.MsgPaymentFailedTitle:  "Payment failed",
	model.MsgPaymentFailedBody:   "Please try again.",
	model.MsgRenewalSuccessTitle: "Subscription renewed",
	model.MsgRenewalSuccessBody:  "Your premium access has been extended.",
	model.MsgRenewalFailedTitle:  "Renewal failed",
	model.MsgRenewalFailedBody:   "Please contact support.",
}

// ErrorKind names the taxonomy kind of err for logs and responses.
func ErrorKind(err error) string {
	kinds := []struct {
		err  error
		name string
	}{
		{domain.ErrAuthenticationRequired, "authentication_required"},
		{domain.ErrInvalidArgument, "invalid_argument"},
		{domain.ErrLedgerWriteFailed, "ledger_write_failed"},
		{domain.ErrAuthorizationFailed, "authorization_failed"},
		{domain.ErrCompletionWriteFailed, "completion_write_failed"},
		{domain.ErrRenewalFailed, "renewal_failed"},
		{domain.ErrUnexpected, "unexpected"},
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	if err == nil {
		return ""
	}
	return "internal"
}
