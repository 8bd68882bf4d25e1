package pricing

import (
	"errors"
	"reflect"
	"testing"

	"notaryorders/internal/domain"
)

func int64Ptr(v int64) *int64     { return &v }
func floatPtr(v float64) *float64 { return &v }

func bundledOrder() *domain.Order {
	return &domain.Order{
		ServiceType: domain.ServiceTypeBundle,
		Bundles: []domain.Bundle{
			{GroupName: "Deal Accelerator", Name: "Photos + Walk Through", BasePriceCents: 22000, DiscountedPriceCents: 18000},
		},
	}
}

func TestPriceBundleUsesDiscountedPrice(t *testing.T) {
	b, err := New(Config{}).Price(bundledOrder(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.TotalCents != 18000 {
		t.Fatalf("expected 18000, got %d", b.TotalCents)
	}
	if len(b.Lines) != 1 || b.Lines[0].Kind != LineBundle {
		t.Fatalf("expected a single bundle line, got %+v", b.Lines)
	}
}

func TestPriceItemWithAdditiveSubmenuAndAddOns(t *testing.T) {
	order := &domain.Order{
		ServiceType: domain.ServiceTypeALaCarte,
		Services: []domain.ALaCarteService{
			{
				Name: "Loan Signing",
				Items: []domain.ALaCarteItem{
					{
						Name:           "Refinance Package",
						BasePriceCents: 15000,
						Submenu: &domain.SubmenuModifier{
							Label:       "Page Count",
							Option:      "11-39 pages",
							AmountCents: int64Ptr(3000),
						},
						Options: []domain.ItemOption{
							{Name: "Scan Back", PriceCents: 2500, Selected: true},
							{Name: "Rush", PriceCents: 5000, Selected: false},
						},
					},
				},
			},
		},
	}
	b, err := New(Config{}).Price(order, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.TotalCents != 15000+3000+2500 {
		t.Fatalf("expected 20500, got %d", b.TotalCents)
	}
}

func TestPriceItemWithMultiplicativeSubmenu(t *testing.T) {
	order := &domain.Order{
		Services: []domain.ALaCarteService{
			{
				Name: "Witness Service",
				Items: []domain.ALaCarteItem{
					{
						Name:           "Extra Witness",
						BasePriceCents: 10000,
						Submenu: &domain.SubmenuModifier{
							Label:      "Witness Count",
							Option:     "2 witnesses",
							Multiplier: floatPtr(1.5),
						},
					},
				},
			},
		},
	}
	b, err := New(Config{}).Price(order, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.TotalCents != 15000 {
		t.Fatalf("expected 15000, got %d", b.TotalCents)
	}
}

func TestPriceRejectsModifierWithBothAdjustments(t *testing.T) {
	order := &domain.Order{
		Services: []domain.ALaCarteService{
			{
				Items: []domain.ALaCarteItem{
					{
						Name:           "Broken Item",
						BasePriceCents: 1000,
						Submenu: &domain.SubmenuModifier{
							Label:       "Broken",
							AmountCents: int64Ptr(100),
							Multiplier:  floatPtr(2),
						},
					},
				},
			},
		},
	}
	_, err := New(Config{}).Price(order, nil)
	if !errors.Is(err, ErrBadModifier) {
		t.Fatalf("expected ErrBadModifier, got %v", err)
	}
}

func TestPriceDiscountsCompoundMultiplicatively(t *testing.T) {
	order := bundledOrder()
	order.Bundles[0].DiscountedPriceCents = 10000
	order.DiscountPercent = 10

	coupon := &domain.Coupon{Code: "SAVE20", PercentOff: 20, Valid: true}
	b, err := New(Config{}).Price(order, coupon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 20% and 10% compound to 28%, not 30%.
	if b.DiscountCents != 2800 {
		t.Fatalf("expected 2800 discount, got %d", b.DiscountCents)
	}
	if b.TotalCents != 7200 {
		t.Fatalf("expected 7200 total, got %d", b.TotalCents)
	}
}

func TestPriceInvalidCouponIgnored(t *testing.T) {
	order := bundledOrder()
	order.Bundles[0].DiscountedPriceCents = 10000

	coupon := &domain.Coupon{Code: "EXPIRED", PercentOff: 50, Valid: false}
	b, err := New(Config{}).Price(order, coupon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.DiscountCents != 0 || b.TotalCents != 10000 {
		t.Fatalf("expected no discount, got %+v", b)
	}
}

func TestPriceProtectionPercentOfPreDiscountSubtotal(t *testing.T) {
	order := bundledOrder()
	order.Bundles[0].DiscountedPriceCents = 10000
	order.DiscountPercent = 50
	order.ProtectionEnabled = true
	order.ProtectionType = domain.ProtectionPercent
	order.ProtectionPercent = 10

	b, err := New(Config{}).Price(order, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Fee is 10% of the 10000 pre-discount subtotal, added after the
	// 5000 discount and not discounted itself.
	if b.ProtectionCents != 1000 {
		t.Fatalf("expected 1000 protection, got %d", b.ProtectionCents)
	}
	if b.TotalCents != 10000-5000+1000 {
		t.Fatalf("expected 6000, got %d", b.TotalCents)
	}
}

func TestPriceProtectionFlat(t *testing.T) {
	order := bundledOrder()
	order.ProtectionEnabled = true
	order.ProtectionType = domain.ProtectionFlat
	order.ProtectionFlatCents = 2500

	b, err := New(Config{}).Price(order, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ProtectionCents != 2500 {
		t.Fatalf("expected 2500 protection, got %d", b.ProtectionCents)
	}
}

func TestPriceProtectionDefaultPercentFromConfig(t *testing.T) {
	order := bundledOrder()
	order.Bundles[0].DiscountedPriceCents = 10000
	order.ProtectionEnabled = true

	b, err := New(Config{DefaultProtectionPercent: 10}).Price(order, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ProtectionCents != 1000 {
		t.Fatalf("expected config default rate applied, got %d", b.ProtectionCents)
	}
}

func TestPriceIsDeterministic(t *testing.T) {
	order := &domain.Order{
		DiscountPercent:   7.5,
		ProtectionEnabled: true,
		ProtectionType:    domain.ProtectionPercent,
		ProtectionPercent: 10,
		Bundles: []domain.Bundle{
			{Name: "Bundle", BasePriceCents: 9999, DiscountedPriceCents: 8999},
		},
		Services: []domain.ALaCarteService{
			{
				Name: "Signing",
				Items: []domain.ALaCarteItem{
					{
						Name:           "Package",
						BasePriceCents: 12345,
						Submenu:        &domain.SubmenuModifier{Label: "Pages", Multiplier: floatPtr(1.25)},
						Options:        []domain.ItemOption{{Name: "Scan", PriceCents: 111, Selected: true}},
					},
				},
			},
		},
	}
	coupon := &domain.Coupon{Code: "C", PercentOff: 12.5, Valid: true}

	engine := New(Config{})
	first, err := engine.Price(order, coupon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.Price(order, coupon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("pricing not deterministic: %+v vs %+v", first, second)
	}
}

func TestPriceDiscountNeverExceedsSubtotal(t *testing.T) {
	order := bundledOrder()
	order.Bundles[0].DiscountedPriceCents = 1000

	coupon := &domain.Coupon{Code: "BIG", AmountOffCents: 5000, Valid: true}
	b, err := New(Config{}).Price(order, coupon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.DiscountCents != 1000 || b.TotalCents != 0 {
		t.Fatalf("expected discount clamped to subtotal, got %+v", b)
	}
}
