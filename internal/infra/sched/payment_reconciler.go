package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/infra/metrics"
)

// StalePaymentSource lists pending payments older than a threshold.
type StalePaymentSource interface {
	StalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*model.Payment, error)
}

// Locker keeps the report to a single instance when several run side by side.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

const reconcilerLockKey = "lock:payment_reconciler"

// PaymentReconciler periodically reports payments stuck in pending, e.g. after
// an authorization failure or a crash mid-processing. It never changes a
// payment; rows are left for manual reconciliation.
type PaymentReconciler struct {
	source     StalePaymentSource
	locker     Locker // optional
	interval   time.Duration
	staleAfter time.Duration
	limit      int
	log        *zerolog.Logger
}

func NewPaymentReconciler(source StalePaymentSource, locker Locker, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		source:     source,
		locker:     locker,
		interval:   interval,
		staleAfter: staleAfter,
		limit:      500,
		log:        &l,
	}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("stale_after", w.staleAfter).Msg("Starting payment reconciler")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-t.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one report and returns the number of stale payments seen, or -1
// when the run was skipped.
func (w *PaymentReconciler) Tick(ctx context.Context) int {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, reconcilerLockKey, w.interval)
		if err != nil {
			w.log.Debug().Err(err).Msg("another instance holds the reconciler lock")
			return -1
		}
		defer func() {
			if err := w.locker.Unlock(context.Background(), reconcilerLockKey, token); err != nil {
				w.log.Warn().Err(err).Msg("reconciler unlock failed")
			}
		}()
	}

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pending, err := w.source.StalePending(runCtx, w.staleAfter, w.limit)
	if err != nil {
		w.log.Error().Err(err).Msg("list stale pending payments failed")
		return -1
	}
	metrics.SetStalePendingPayments(len(pending))
	for _, p := range pending {
		w.log.Warn().
			Str("payment_id", p.ID).
			Str("user_id", p.UserID).
			Str("transaction_ref", p.TransactionRef).
			Time("created_at", p.CreatedAt).
			Msg("payment still pending")
	}
	if len(pending) > 0 {
		w.log.Info().Int("count", len(pending)).Msg("stale pending payments need manual reconciliation")
	}
	return len(pending)
}
