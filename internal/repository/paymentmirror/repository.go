package paymentmirror

import (
	"context"

	"notaryorders/internal/domain"
)

// Repository upserts local projections of gateway objects, keyed by
// their external ids. Audit and reconciliation only.
type Repository interface {
	UpsertCharge(ctx context.Context, c domain.Charge) error
	UpsertSession(ctx context.Context, s domain.CheckoutSession) error
	GetCharge(ctx context.Context, chargeID string) (*domain.Charge, error)
	GetSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
}
