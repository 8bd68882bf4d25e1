package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"notaryorders/internal/domain"
	"notaryorders/internal/payments"
	"notaryorders/internal/pricing"
	orderrepo "notaryorders/internal/repository/order"
)

// ErrSessionNotStarted wraps a checkout failure after the order row was
// already persisted. The order exists and can be paid later; the caller
// reports "order created, but payment session could not be started".
var ErrSessionNotStarted = errors.New("payment session could not be started")

// ErrInvalidOrder marks a rejected order payload, as opposed to an
// infrastructure failure while persisting a valid one.
var ErrInvalidOrder = errors.New("invalid order")

type sessionStarter interface {
	CreateCheckoutSession(ctx context.Context, order *domain.Order, lines []payments.SessionLine) (*payments.Session, error)
}

type couponResolver interface {
	Resolve(ctx context.Context, code string) (*domain.Coupon, error)
}

// Service persists inbound orders and opens the held-payment checkout.
// The session's line amounts come from the pricing engine, never from
// the client; the saga recomputes and reconciles them later anyway.
type Service struct {
	orders  orderrepo.Repository
	gateway sessionStarter
	coupons couponResolver
	engine  *pricing.Engine
	logger  *log.Logger
}

func New(orders orderrepo.Repository, gateway sessionStarter, coupons couponResolver, engine *pricing.Engine, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{orders: orders, gateway: gateway, coupons: coupons, engine: engine, logger: logger}
}

// Result is the intake outcome returned to the HTTP layer.
type Result struct {
	Order       *domain.Order `json:"order"`
	CheckoutURL string        `json:"checkoutUrl,omitempty"`
	SessionID   string        `json:"sessionId,omitempty"`
}

// Create persists the order with fresh ids and starts the checkout
// session. On a gateway failure the order is kept and the error wraps
// ErrSessionNotStarted.
func (s *Service) Create(ctx context.Context, order *domain.Order) (*Result, error) {
	assignIDs(order)
	order.Status = domain.StatusCreated
	order.TotalCents = nil
	order.CheckoutSessionID = ""

	var err error
	if order.ServiceType, err = classify(order); err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}
	s.logger.Printf("order %s created (%s)", order.ID, order.ServiceType)

	lines, err := s.checkoutLines(ctx, order)
	if err != nil {
		return &Result{Order: order}, fmt.Errorf("%w: %v", ErrSessionNotStarted, err)
	}
	session, err := s.gateway.CreateCheckoutSession(ctx, order, lines)
	if err != nil {
		s.logger.Printf("checkout session for order %s failed: %v", order.ID, err)
		return &Result{Order: order}, fmt.Errorf("%w: %v", ErrSessionNotStarted, err)
	}
	if err := s.orders.SetCheckoutSession(ctx, order.ID, session.ID); err != nil {
		return &Result{Order: order}, fmt.Errorf("%w: %v", ErrSessionNotStarted, err)
	}
	order.CheckoutSessionID = session.ID
	order.Status = domain.StatusAwaitingPayment

	return &Result{Order: order, CheckoutURL: session.URL, SessionID: session.ID}, nil
}

// Get loads one order by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// checkoutLines prices the order for display on the checkout page. One
// line per priced breakdown line; the gateway accepts neither zero nor
// negative amounts, so negative modifier lines and the discount are
// absorbed by reducing the positive lines until their sum equals the
// computed total. The held amount must equal Breakdown.TotalCents or
// fulfillment reconciliation fails.
func (s *Service) checkoutLines(ctx context.Context, order *domain.Order) ([]payments.SessionLine, error) {
	var coupon *domain.Coupon
	if order.CouponCode != "" {
		c, err := s.coupons.Resolve(ctx, order.CouponCode)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.logger.Printf("order %s coupon %q unknown, ignored", order.ID, order.CouponCode)
		case err != nil:
			return nil, err
		default:
			coupon = c
		}
	}
	breakdown, err := s.engine.Price(order, coupon)
	if err != nil {
		return nil, err
	}

	var lines []payments.SessionLine
	var sum int64
	for _, l := range breakdown.Lines {
		if l.AmountCents <= 0 {
			continue
		}
		lines = append(lines, payments.SessionLine{
			Name:        l.Name,
			Description: l.Description,
			AmountCents: l.AmountCents,
		})
		sum += l.AmountCents
	}
	// Positive lines always sum to at least the total: whatever was
	// skipped above plus the discount is exactly the gap.
	if deficit := sum - breakdown.TotalCents; deficit > 0 {
		spreadReduction(lines, sum, deficit)
	}
	kept := lines[:0]
	for _, l := range lines {
		if l.AmountCents > 0 {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		return nil, errors.New("order prices to zero, nothing to hold")
	}
	return kept, nil
}

// spreadReduction lowers line amounts by deficit in total, proportional
// to each line's share, clamping every line at zero. Integer rounding
// leftovers come off whichever lines still have room.
func spreadReduction(lines []payments.SessionLine, sum, deficit int64) {
	remaining := deficit
	for i := range lines {
		cut := deficit * lines[i].AmountCents / sum
		if cut > lines[i].AmountCents {
			cut = lines[i].AmountCents
		}
		lines[i].AmountCents -= cut
		remaining -= cut
	}
	for i := range lines {
		if remaining == 0 {
			return
		}
		cut := remaining
		if cut > lines[i].AmountCents {
			cut = lines[i].AmountCents
		}
		lines[i].AmountCents -= cut
		remaining -= cut
	}
}

// classify derives the service classification from the persisted lines.
func classify(order *domain.Order) (string, error) {
	hasBundles := len(order.Bundles) > 0
	hasServices := len(order.Services) > 0
	switch {
	case hasBundles && hasServices:
		return domain.ServiceTypeMixed, nil
	case hasBundles:
		return domain.ServiceTypeBundle, nil
	case hasServices:
		return domain.ServiceTypeALaCarte, nil
	default:
		return "", fmt.Errorf("%w: order has no line items", ErrInvalidOrder)
	}
}

func assignIDs(order *domain.Order) {
	order.ID = uuid.NewString()
	for i := range order.Bundles {
		order.Bundles[i].ID = uuid.NewString()
		order.Bundles[i].OrderID = order.ID
	}
	for i := range order.Services {
		svc := &order.Services[i]
		svc.ID = uuid.NewString()
		svc.OrderID = order.ID
		for j := range svc.Items {
			it := &svc.Items[j]
			it.ID = uuid.NewString()
			it.ServiceID = svc.ID
			for k := range it.Options {
				it.Options[k].ID = uuid.NewString()
				it.Options[k].ItemID = it.ID
			}
			if it.Submenu != nil {
				it.Submenu.ID = uuid.NewString()
				it.Submenu.ItemID = it.ID
			}
			for k := range it.ModalFields {
				it.ModalFields[k].ID = uuid.NewString()
				it.ModalFields[k].ItemID = it.ID
			}
			for k := range it.Disclosures {
				it.Disclosures[k].ID = uuid.NewString()
				it.Disclosures[k].ItemID = it.ID
			}
		}
	}
}
