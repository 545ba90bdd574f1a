package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"health-premium-service/internal/domain"
	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/repository"
)

var _ repository.LegacyPremiumRepository = (*legacyPremiumRepo)(nil)

type legacyPremiumRepo struct{ pool *pgxpool.Pool }

func NewLegacyPremiumRepo(pool *pgxpool.Pool) *legacyPremiumRepo {
	return &legacyPremiumRepo{pool: pool}
}

func (r *legacyPremiumRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.LegacyPremium, error) {
	const q = `
SELECT id, user_id, subscription_type, expires_at, is_active, created_at
FROM premium_users
WHERE user_id=$1 AND is_active
ORDER BY created_at DESC
LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	var l model.LegacyPremium
	if err := row.Scan(&l.ID, &l.UserID, &l.SubscriptionType, &l.ExpiresAt, &l.IsActive, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &l, nil
}

func (r *legacyPremiumRepo) Save(ctx context.Context, tx repository.Tx, l *model.LegacyPremium) error {
	const q = `
INSERT INTO premium_users (id, user_id, subscription_type, expires_at, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  subscription_type=EXCLUDED.subscription_type, expires_at=EXCLUDED.expires_at, is_active=EXCLUDED.is_active;`
	_, err := execSQL(ctx, r.pool, tx, q, l.ID, l.UserID, l.SubscriptionType, l.ExpiresAt, l.IsActive, l.CreatedAt)
	return mapExecErr(err)
}
