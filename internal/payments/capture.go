package payments

import (
	"context"
	"fmt"
	"io"
	"log"

	"notaryorders/internal/domain"
)

// gatewayAPI is the slice of Gateway the controller needs; tests stub it.
type gatewayAPI interface {
	CaptureIntent(ctx context.Context, intentID string) (*Intent, error)
	CancelIntent(ctx context.Context, intentID string) (*Intent, error)
	ExpireSession(ctx context.Context, sessionID string) (*Session, error)
}

// Controller guards the held-payment lifecycle. The one rule it
// enforces: money moves only after both the invoice and the dispatch
// order exist, so the customer is charged only once the business has
// accepted the work.
type Controller struct {
	gateway gatewayAPI
	logger  *log.Logger
}

func NewController(gateway gatewayAPI, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Controller{gateway: gateway, logger: logger}
}

// Capture transitions the hold to captured. It refuses with
// domain.ErrCaptureBlocked when either external id is still missing.
func (c *Controller) Capture(ctx context.Context, order *domain.Order) (*Intent, error) {
	if order.InvoiceID == nil || *order.InvoiceID == "" {
		return nil, fmt.Errorf("order %s has no invoice: %w", order.ID, domain.ErrCaptureBlocked)
	}
	if order.DispatchOrderID == nil || *order.DispatchOrderID == "" {
		return nil, fmt.Errorf("order %s has no dispatch order: %w", order.ID, domain.ErrCaptureBlocked)
	}
	if order.PaymentIntentID == nil || *order.PaymentIntentID == "" {
		return nil, fmt.Errorf("order %s has no payment intent: %w", order.ID, domain.ErrCaptureBlocked)
	}
	intent, err := c.gateway.CaptureIntent(ctx, *order.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("capture intent %s: %w", *order.PaymentIntentID, err)
	}
	c.logger.Printf("captured intent %s for order %s (%d cents)", intent.ID, order.ID, intent.AmountReceived)
	return intent, nil
}

// Release gives the held funds back: cancel the intent when one exists,
// otherwise expire the checkout session. Used as the saga's
// compensating action, so it must work from any partially-advanced
// order state.
func (c *Controller) Release(ctx context.Context, order *domain.Order) error {
	if order.PaymentIntentID != nil && *order.PaymentIntentID != "" {
		if _, err := c.gateway.CancelIntent(ctx, *order.PaymentIntentID); err != nil {
			return fmt.Errorf("cancel intent %s: %w", *order.PaymentIntentID, err)
		}
		c.logger.Printf("canceled intent %s for order %s", *order.PaymentIntentID, order.ID)
		return nil
	}
	if order.CheckoutSessionID != "" {
		if _, err := c.gateway.ExpireSession(ctx, order.CheckoutSessionID); err != nil {
			return fmt.Errorf("expire session %s: %w", order.CheckoutSessionID, err)
		}
		c.logger.Printf("expired session %s for order %s", order.CheckoutSessionID, order.ID)
		return nil
	}
	return nil
}
