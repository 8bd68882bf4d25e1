package coupon

import (
	"context"

	"notaryorders/internal/domain"
)

// Repository caches external promo codes locally. Rows are replaced on
// re-sync, never merged.
type Repository interface {
	Upsert(ctx context.Context, c domain.Coupon) error
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
}
