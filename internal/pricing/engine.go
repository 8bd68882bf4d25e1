package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"notaryorders/internal/domain"
)

// ErrBadModifier is returned when a submenu modifier carries both an
// additive amount and a multiplicative scalar. That is a catalog
// configuration error and is rejected, never silently resolved.
var ErrBadModifier = errors.New("submenu modifier has both amount and multiplier")

// Config carries the pricing constants that used to be implicit.
type Config struct {
	// DefaultProtectionPercent applies when an order enables protection
	// as a percentage without a specific rate.
	DefaultProtectionPercent float64
}

// Engine computes the authoritative order total from persisted line
// items. It is a pure function of its inputs: client-supplied totals are
// never consulted.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Line kinds in a Breakdown, in document order.
const (
	LineBundle     = "bundle"
	LineItem       = "item"
	LineSubmenu    = "submenu"
	LineAddOn      = "add_on"
	LineProtection = "protection"
)

// Breakdown is the engine output: the total plus the per-line amounts
// the invoice builder renders one document line each.
type Breakdown struct {
	SubtotalCents   int64
	DiscountCents   int64
	ProtectionCents int64
	TotalCents      int64
	Lines           []Line
}

// Line is one priced entry of the breakdown.
type Line struct {
	Kind        string
	Name        string
	Description string
	AmountCents int64
}

// contributor is the common capability of the two line-item variants.
type contributor interface {
	contribute(b *Breakdown) error
}

type bundleLine struct{ domain.Bundle }

func (l bundleLine) contribute(b *Breakdown) error {
	b.Lines = append(b.Lines, Line{
		Kind:        LineBundle,
		Name:        l.Name,
		Description: l.GroupName,
		AmountCents: l.DiscountedPriceCents,
	})
	b.SubtotalCents += l.DiscountedPriceCents
	return nil
}

type itemLine struct {
	serviceName string
	domain.ALaCarteItem
}

func (l itemLine) contribute(b *Breakdown) error {
	base := l.BasePriceCents

	var modifier int64
	if sm := l.Submenu; sm != nil {
		switch {
		case sm.AmountCents != nil && sm.Multiplier != nil:
			return fmt.Errorf("%w: item %q submenu %q", ErrBadModifier, l.Name, sm.Label)
		case sm.AmountCents != nil:
			modifier = *sm.AmountCents
		case sm.Multiplier != nil:
			scaled := decimal.NewFromInt(base).
				Mul(decimal.NewFromFloat(*sm.Multiplier)).
				Round(0).IntPart()
			modifier = scaled - base
		}
	}

	b.Lines = append(b.Lines, Line{
		Kind:        LineItem,
		Name:        l.Name,
		Description: l.Description,
		AmountCents: base,
	})
	b.SubtotalCents += base

	if sm := l.Submenu; sm != nil {
		b.Lines = append(b.Lines, Line{
			Kind:        LineSubmenu,
			Name:        l.Name + " - " + sm.Label,
			Description: sm.Option,
			AmountCents: modifier,
		})
		b.SubtotalCents += modifier
	}

	for _, opt := range l.Options {
		if !opt.Selected {
			continue
		}
		b.Lines = append(b.Lines, Line{
			Kind:        LineAddOn,
			Name:        l.Name + " - " + opt.Name,
			Description: "Add-on for " + l.serviceName,
			AmountCents: opt.PriceCents,
		})
		b.SubtotalCents += opt.PriceCents
	}
	return nil
}

// Price computes the breakdown for an order. The coupon may be nil or
// invalid, in which case only the order's own discount percent applies.
//
// Discount stacking compounds multiplicatively:
//
//	combined% = 100 - (100-coupon%) * (100-other%) / 100
//
// The protection fee is computed from the pre-discount subtotal and
// added after discounting; it is never discounted itself.
func (e *Engine) Price(order *domain.Order, coupon *domain.Coupon) (*Breakdown, error) {
	var lines []contributor
	for _, bu := range order.Bundles {
		lines = append(lines, bundleLine{bu})
	}
	for _, svc := range order.Services {
		for _, it := range svc.Items {
			lines = append(lines, itemLine{serviceName: svc.Name, ALaCarteItem: it})
		}
	}

	b := &Breakdown{}
	for _, l := range lines {
		if err := l.contribute(b); err != nil {
			return nil, err
		}
	}

	subtotal := decimal.NewFromInt(b.SubtotalCents)

	couponPct := decimal.Zero
	amountOff := decimal.Zero
	if coupon != nil && coupon.Valid {
		couponPct = decimal.NewFromFloat(coupon.PercentOff)
		amountOff = decimal.NewFromInt(coupon.AmountOffCents)
	}
	combined := combinedPercent(couponPct, decimal.NewFromFloat(order.DiscountPercent))

	discount := subtotal.Mul(combined).Div(decimal.NewFromInt(100)).Add(amountOff).Round(0)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	b.DiscountCents = discount.IntPart()

	if order.ProtectionEnabled {
		fee, err := e.protectionFee(order, subtotal)
		if err != nil {
			return nil, err
		}
		b.ProtectionCents = fee
		b.Lines = append(b.Lines, Line{
			Kind:        LineProtection,
			Name:        "Order Protection",
			AmountCents: fee,
		})
	}

	b.TotalCents = b.SubtotalCents - b.DiscountCents + b.ProtectionCents
	return b, nil
}

func (e *Engine) protectionFee(order *domain.Order, subtotal decimal.Decimal) (int64, error) {
	switch order.ProtectionType {
	case domain.ProtectionFlat:
		return order.ProtectionFlatCents, nil
	case domain.ProtectionPercent, "":
		pct := order.ProtectionPercent
		if pct == 0 {
			pct = e.cfg.DefaultProtectionPercent
		}
		return subtotal.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100)).Round(0).IntPart(), nil
	default:
		return 0, fmt.Errorf("unknown protection type %q", order.ProtectionType)
	}
}

// combinedPercent compounds two percentage discounts multiplicatively.
func combinedPercent(a, b decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	kept := hundred.Sub(a).Mul(hundred.Sub(b)).Div(hundred)
	return hundred.Sub(kept)
}
