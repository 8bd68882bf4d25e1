package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"notaryorders/internal/domain"
	"notaryorders/internal/payments"
)

type stubLookup struct {
	promo *payments.PromotionCode
	err   error
}

func (s *stubLookup) GetPromotionCode(context.Context, string) (*payments.PromotionCode, error) {
	return s.promo, s.err
}

type stubRepo struct {
	stored   *domain.Coupon
	upserted []domain.Coupon
	getErr   error
}

func (s *stubRepo) Upsert(_ context.Context, c domain.Coupon) error {
	s.upserted = append(s.upserted, c)
	return nil
}

func (s *stubRepo) GetByCode(context.Context, string) (*domain.Coupon, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.stored, nil
}

func validPromo() *payments.PromotionCode {
	p := &payments.PromotionCode{ID: "promo_1", Code: "SAVE20", Active: true}
	p.Coupon.ID = "coup_1"
	p.Coupon.PercentOff = 20
	p.Coupon.Valid = true
	return p
}

func TestResolveSyncsSnapshot(t *testing.T) {
	repo := &stubRepo{}
	svc := New(&stubLookup{promo: validPromo()}, repo, nil)

	c, err := svc.Resolve(context.Background(), " save20 ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if c.Code != "SAVE20" || c.PercentOff != 20 || !c.Valid {
		t.Fatalf("coupon = %+v", c)
	}
	if len(repo.upserted) != 1 {
		t.Fatalf("upserts = %d, want snapshot written", len(repo.upserted))
	}
}

func TestResolveUnknownCode(t *testing.T) {
	svc := New(&stubLookup{err: domain.ErrNotFound}, &stubRepo{}, nil)

	if _, err := svc.Resolve(context.Background(), "NOPE"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveFallsBackToSnapshot(t *testing.T) {
	cached := &domain.Coupon{Code: "SAVE20", PercentOff: 20, Valid: true, SyncedAt: time.Now().Add(-time.Hour)}
	repo := &stubRepo{stored: cached}
	svc := New(&stubLookup{err: errors.New("gateway down")}, repo, nil)

	c, err := svc.Resolve(context.Background(), "SAVE20")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if c != cached {
		t.Fatal("want the cached snapshot")
	}
}

func TestResolveSurfacesErrorWithoutSnapshot(t *testing.T) {
	repo := &stubRepo{getErr: domain.ErrNotFound}
	svc := New(&stubLookup{err: errors.New("gateway down")}, repo, nil)

	if _, err := svc.Resolve(context.Background(), "SAVE20"); err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want the lookup error", err)
	}
}
