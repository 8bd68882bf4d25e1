package order

import (
	"context"

	"github.com/jackc/pgx/v5"

	"notaryorders/internal/domain"
)

// Repository persists orders and their line-item hierarchy. The Tx
// variants participate in the fulfillment transaction that serializes
// concurrent webhook deliveries for the same order.
type Repository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	SetCheckoutSession(ctx context.Context, id, sessionID string) error

	GetBySessionIDTx(ctx context.Context, tx pgx.Tx, sessionID string) (*domain.Order, error)
	GetByIntentIDTx(ctx context.Context, tx pgx.Tx, intentID string) (*domain.Order, error)

	SetTotalTx(ctx context.Context, tx pgx.Tx, id string, totalCents int64) error
	SetContactIDTx(ctx context.Context, tx pgx.Tx, id, contactID string) error
	SetInvoiceIDTx(ctx context.Context, tx pgx.Tx, id, invoiceID string) error
	SetDispatchOrderIDTx(ctx context.Context, tx pgx.Tx, id, dispatchOrderID string) error
	SetPaymentIntentIDTx(ctx context.Context, tx pgx.Tx, id, intentID string) error
	SetPaymentStateTx(ctx context.Context, tx pgx.Tx, id, state string) error
	SetStatusTx(ctx context.Context, tx pgx.Tx, id, status string) error
}
