package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"health-premium-service/internal/domain"
	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, amount::text, currency, method, status, transaction_ref, created_at, updated_at, completed_at`

// Save inserts a new ledger row. Ledger rows are never upserted.
func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, amount, currency, method, status, transaction_ref, created_at, updated_at, completed_at
) VALUES (
  $1,$2,$3::numeric,$4,$5,$6,$7,$8,$9,$10
);`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.Amount.String(), p.Currency, p.Method, string(p.Status),
		p.TransactionRef, p.CreatedAt, p.UpdatedAt, p.CompletedAt)
	return mapExecErr(err)
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, ref *string, completedAt *time.Time) (bool, error) {
	if !model.PaymentStatusPending.CanTransition(status) {
		return false, domain.ErrInvalidArgument
	}
	const q = `
UPDATE payments
SET status=$2,
    transaction_ref=COALESCE($3, transaction_ref),
    completed_at=COALESCE($4, completed_at),
    updated_at=NOW()
WHERE id=$1 AND status='pending';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, string(status), ref, completedAt)
	if err != nil {
		return false, mapExecErr(err)
	}
	return tag.RowsAffected() >= 1, nil
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2;`
	return r.list(ctx, tx, q, userID, limit)
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, before, limit)
}

func (r *paymentRepo) SumCompletedByCurrency(ctx context.Context, tx repository.Tx) (map[string]decimal.Decimal, error) {
	const q = `SELECT currency, COALESCE(SUM(amount), 0)::text FROM payments WHERE status='completed' GROUP BY currency;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var cur, sum string
		if err := rows.Scan(&cur, &sum); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		d, err := decimal.NewFromString(sum)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[cur] = d
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *paymentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Payment, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var (
		p      model.Payment
		amount string
		status string
	)
	if err := row.Scan(&p.ID, &p.UserID, &amount, &p.Currency, &p.Method, &status,
		&p.TransactionRef, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	p.Amount = d
	p.Status = model.PaymentStatus(status)
	return &p, nil
}
