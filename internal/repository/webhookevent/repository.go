package webhookevent

import (
	"context"

	"github.com/jackc/pgx/v5"

	"notaryorders/internal/domain"
)

// Repository is the append-only dedup ledger. InsertTx returns
// domain.ErrAlreadyExists when the event id was seen before; that is the
// caller's signal to no-op. Both methods run inside the fulfillment
// transaction so a crashed saga leaves no ledger row and the gateway
// redelivery starts clean.
type Repository interface {
	InsertTx(ctx context.Context, tx pgx.Tx, ev domain.WebhookEvent) error
	MarkOutcomeTx(ctx context.Context, tx pgx.Tx, eventID, outcome, errText string) error
	GetByID(ctx context.Context, eventID string) (*domain.WebhookEvent, error)
}
