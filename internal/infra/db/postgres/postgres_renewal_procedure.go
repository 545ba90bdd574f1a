package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"health-premium-service/internal/domain"
	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/repository"
	"health-premium-service/internal/infra/metrics"
)

var _ repository.RenewalProcedure = (*renewalProcedure)(nil)

type RenewalOptions struct {
	Period      time.Duration
	PlanType    string
	StalePolicy model.StalePolicy
	Now         func() time.Time
}

// renewalProcedure grants a renewal in one transaction serialized per user
// by a transaction-scoped advisory lock.
type renewalProcedure struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
	subs *subscriptionRepo
	opts RenewalOptions
	log  *zerolog.Logger
}

func NewRenewalProcedure(pool *pgxpool.Pool, tm repository.TransactionManager, opts RenewalOptions, logger *zerolog.Logger) *renewalProcedure {
	if opts.Period <= 0 {
		opts.Period = model.DefaultRenewalPeriod
	}
	if opts.PlanType == "" {
		opts.PlanType = model.DefaultPlanType
	}
	if opts.StalePolicy == "" {
		opts.StalePolicy = model.StalePolicyFreshWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	l := logger.With().Str("component", "RenewalProcedure").Logger()
	return &renewalProcedure{pool: pool, tm: tm, subs: NewSubscriptionRepo(pool), opts: opts, log: &l}
}

func (r *renewalProcedure) Renew(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", domain.ErrInvalidArgument
	}
	var (
		subID  string
		action model.RenewalAction
	)
	err := r.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := execSQL(ctx, r.pool, tx, `SELECT pg_advisory_xact_lock($1)`, hashToInt64(userID)); err != nil {
			return fmt.Errorf("advisory lock: %w", mapExecErr(err))
		}

		cur, err := r.subs.FindActiveByUser(ctx, tx, userID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		now := r.opts.Now().UTC()
		plan := model.PlanRenewal(cur, now, r.opts.Period, r.opts.StalePolicy)
		action = plan.Action

		switch plan.Action {
		case model.RenewalActionExtend:
			cur.EndAt = plan.NewEnd
			cur.UpdatedAt = now
			if err := r.subs.extend(ctx, tx, cur.ID, cur); err != nil {
				return err
			}
			subID = cur.ID
			return nil
		default:
			if plan.ExpireCurrent {
				cur.Status = model.SubscriptionStatusExpired
				cur.UpdatedAt = now
				if err := r.subs.markExpired(ctx, tx, cur); err != nil {
					return err
				}
			}
			next, err := model.NewSubscription(userID, r.opts.PlanType, now, r.opts.Period)
			if err != nil {
				return err
			}
			if err := r.subs.Save(ctx, tx, next); err != nil {
				return err
			}
			subID = next.ID
			return nil
		}
	})
	if err != nil {
		metrics.IncRenewal(string(action), "error")
		r.log.Error().Err(err).Str("user_id", userID).Msg("renewal transaction failed")
		return "", err
	}
	metrics.IncRenewal(string(action), "ok")
	r.log.Debug().Str("user_id", userID).Str("subscription_id", subID).Str("action", string(action)).Msg("renewed")
	return subID, nil
}
