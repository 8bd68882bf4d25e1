package coupon

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"notaryorders/internal/domain"
	"notaryorders/internal/payments"
	couponrepo "notaryorders/internal/repository/coupon"
)

// lookup is the gateway promo-code call; tests stub it.
type lookup interface {
	GetPromotionCode(ctx context.Context, code string) (*payments.PromotionCode, error)
}

// Service resolves promo codes against the payment gateway and keeps a
// local snapshot. The snapshot is the fallback when the gateway is
// unreachable, so pricing keeps working through a gateway outage.
type Service struct {
	lookup lookup
	repo   couponrepo.Repository
	logger *log.Logger
}

func New(lookup lookup, repo couponrepo.Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{lookup: lookup, repo: repo, logger: logger}
}

// Resolve returns the coupon for a promo code. Fresh gateway data wins;
// a missing code returns domain.ErrNotFound. Gateway failure falls back
// to the last synced snapshot when one exists.
func (s *Service) Resolve(ctx context.Context, code string) (*domain.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.ErrNotFound
	}

	promo, err := s.lookup.GetPromotionCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		cached, cacheErr := s.repo.GetByCode(ctx, code)
		if cacheErr != nil {
			return nil, err
		}
		s.logger.Printf("coupon lookup failed, serving snapshot for %s: %v", code, err)
		return cached, nil
	}

	c := domain.Coupon{
		ID:             promo.Coupon.ID,
		Code:           code,
		PercentOff:     promo.Coupon.PercentOff,
		AmountOffCents: promo.Coupon.AmountOff,
		Valid:          promo.Active && promo.Coupon.Valid,
		SyncedAt:       time.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, c); err != nil {
		// Snapshot staleness is tolerable; the resolved coupon is not lost.
		s.logger.Printf("coupon snapshot upsert failed for %s: %v", code, err)
	}
	return &c, nil
}
