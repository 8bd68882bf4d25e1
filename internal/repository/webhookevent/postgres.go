package webhookevent

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

// InsertTx uses ON CONFLICT DO NOTHING rather than surfacing the unique
// violation: a 23505 inside the fulfillment transaction would abort it.
// A concurrent insert of the same event id blocks here until the first
// transaction commits, then reports the conflict.
func (r *postgresRepo) InsertTx(ctx context.Context, tx pgx.Tx, ev domain.WebhookEvent) error {
	cmd, err := tx.Exec(ctx, `
INSERT INTO webhook_events (event_id, type)
VALUES ($1, $2)
ON CONFLICT (event_id) DO NOTHING
`, ev.EventID, ev.Type)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *postgresRepo) MarkOutcomeTx(ctx context.Context, tx pgx.Tx, eventID, outcome, errText string) error {
	cmd, err := tx.Exec(ctx, `
UPDATE webhook_events SET outcome = $1, error = $2 WHERE event_id = $3
`, outcome, errText, eventID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, eventID string) (*domain.WebhookEvent, error) {
	var ev domain.WebhookEvent
	err := r.pool.QueryRow(ctx, `
SELECT event_id, type, outcome, error, received_at
FROM webhook_events
WHERE event_id = $1
`, eventID).Scan(&ev.EventID, &ev.Type, &ev.Outcome, &ev.Error, &ev.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &ev, nil
}
