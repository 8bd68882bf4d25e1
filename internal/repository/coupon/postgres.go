package coupon

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notaryorders/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Upsert(ctx context.Context, c domain.Coupon) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO coupons (id, code, percent_off, amount_off_cents, valid, synced_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (code) DO UPDATE SET
    id = EXCLUDED.id,
    percent_off = EXCLUDED.percent_off,
    amount_off_cents = EXCLUDED.amount_off_cents,
    valid = EXCLUDED.valid,
    synced_at = now()
`, c.ID, c.Code, c.PercentOff, c.AmountOffCents, c.Valid)
	return err
}

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var c domain.Coupon
	err := r.pool.QueryRow(ctx, `
SELECT id, code, percent_off, amount_off_cents, valid, synced_at
FROM coupons
WHERE code = $1
`, code).Scan(&c.ID, &c.Code, &c.PercentOff, &c.AmountOffCents, &c.Valid, &c.SyncedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
