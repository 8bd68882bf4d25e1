package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"notaryorders/internal/crm"
	"notaryorders/internal/domain"
	"notaryorders/internal/invoicing"
	"notaryorders/internal/payments"
	"notaryorders/internal/pricing"
	orderrepo "notaryorders/internal/repository/order"
	"notaryorders/internal/repository/paymentmirror"
	"notaryorders/internal/repository/webhookevent"
)

// Event is the parsed webhook envelope. Signature verification happens
// before this package runs.
type Event struct {
	ID     string
	Type   string
	Object json.RawMessage
}

// Events that start the fulfillment saga; everything else under
// charge.* only updates the local payment mirrors.
const (
	EventSessionCompleted  = "checkout.session.completed"
	EventCapturableUpdated = "payment_intent.amount_capturable_updated"
	eventChargePrefix      = "charge."
)

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type contactResolver interface {
	Resolve(ctx context.Context, in crm.ResolveInput) (*domain.Contact, error)
}

type couponResolver interface {
	Resolve(ctx context.Context, code string) (*domain.Coupon, error)
}

type invoiceAPI interface {
	Create(ctx context.Context, doc invoicing.Document) (*invoicing.Invoice, error)
	Send(ctx context.Context, invoiceID string) error
	RecordPayment(ctx context.Context, invoiceID string, amountCents int64) error
}

type workOrderBuilder interface {
	CreateWorkOrder(ctx context.Context, order *domain.Order, heldCents int64) (string, error)
}

type captureController interface {
	Capture(ctx context.Context, order *domain.Order) (*payments.Intent, error)
	Release(ctx context.Context, order *domain.Order) error
}

// Config carries the saga tunables.
type Config struct {
	// EpsilonCents is the tolerated difference between the computed
	// total and the gateway-held amount before reconciliation fails.
	EpsilonCents int64
}

// Service is the webhook consumer and saga controller. One inbound
// event is handled in one database transaction: the dedup-ledger insert
// and a row lock on the order serialize concurrent deliveries, and a
// crash before commit leaves no ledger row so gateway redelivery starts
// clean.
type Service struct {
	cfg      Config
	db       txBeginner
	orders   orderrepo.Repository
	events   webhookevent.Repository
	mirrors  paymentmirror.Repository
	contacts contactResolver
	coupons  couponResolver
	engine   *pricing.Engine
	invoices invoiceAPI
	invDoc   *invoicing.Builder
	dispatch workOrderBuilder
	capture  captureController
	logger   *log.Logger
}

func New(
	cfg Config,
	db txBeginner,
	orders orderrepo.Repository,
	events webhookevent.Repository,
	mirrors paymentmirror.Repository,
	contacts contactResolver,
	coupons couponResolver,
	engine *pricing.Engine,
	invoices invoiceAPI,
	invDoc *invoicing.Builder,
	dispatch workOrderBuilder,
	capture captureController,
	logger *log.Logger,
) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		cfg:      cfg,
		db:       db,
		orders:   orders,
		events:   events,
		mirrors:  mirrors,
		contacts: contacts,
		coupons:  coupons,
		engine:   engine,
		invoices: invoices,
		invDoc:   invDoc,
		dispatch: dispatch,
		capture:  capture,
		logger:   logger,
	}
}

// sessionObject is the checkout session payload this service reads.
type sessionObject struct {
	ID              string `json:"id"`
	PaymentIntent   string `json:"payment_intent"`
	AmountSubtotal  int64  `json:"amount_subtotal"`
	AmountTotal     int64  `json:"amount_total"`
	Currency        string `json:"currency"`
	PaymentStatus   string `json:"payment_status"`
	CustomerDetails struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer_details"`
	Created int64 `json:"created"`
}

type intentObject struct {
	ID               string `json:"id"`
	AmountCapturable int64  `json:"amount_capturable"`
}

type chargeObject struct {
	ID             string `json:"id"`
	PaymentIntent  string `json:"payment_intent"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Paid           bool   `json:"paid"`
	Status         string `json:"status"`
	Captured       bool   `json:"captured"`
	Refunded       bool   `json:"refunded"`
	ReceiptURL     string `json:"receipt_url"`
	BillingDetails struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"billing_details"`
	PaymentMethodDetails struct {
		Card struct {
			Brand string `json:"brand"`
			Last4 string `json:"last4"`
		} `json:"card"`
	} `json:"payment_method_details"`
	Created int64 `json:"created"`
}

// HandleEvent processes one webhook delivery. A nil return means the
// gateway must not redeliver: processed, deduplicated, or permanently
// failed with compensation done. A non-nil return means the failure is
// plausibly transient; the transaction is rolled back (no ledger row)
// and the gateway's redelivery retries from scratch.
func (s *Service) HandleEvent(ctx context.Context, ev Event) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = s.events.InsertTx(ctx, tx, domain.WebhookEvent{
		EventID:    ev.ID,
		Type:       ev.Type,
		ReceivedAt: time.Now().UTC(),
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		s.logger.Printf("event %s already seen, skipping", ev.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("ledger insert: %w", err)
	}

	switch {
	case strings.HasPrefix(ev.Type, eventChargePrefix):
		if err = s.mirrorCharge(ctx, ev); err == nil {
			err = s.events.MarkOutcomeTx(ctx, tx, ev.ID, domain.EventOutcomeProcessed, "")
		}
	case ev.Type == EventSessionCompleted:
		err = s.runForSession(ctx, tx, ev)
	case ev.Type == EventCapturableUpdated:
		err = s.runForIntent(ctx, tx, ev)
	default:
		s.logger.Printf("event %s has unhandled type %s", ev.ID, ev.Type)
		err = s.events.MarkOutcomeTx(ctx, tx, ev.ID, domain.EventOutcomeSkipped, "")
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Service) mirrorCharge(ctx context.Context, ev Event) error {
	var obj chargeObject
	if err := json.Unmarshal(ev.Object, &obj); err != nil {
		return fmt.Errorf("parse charge object: %w", err)
	}
	charge := domain.Charge{
		ChargeID:        obj.ID,
		PaymentIntentID: obj.PaymentIntent,
		AmountCents:     obj.Amount,
		Currency:        obj.Currency,
		Paid:            obj.Paid,
		Status:          obj.Status,
		Captured:        obj.Captured,
		Refunded:        obj.Refunded,
		ReceiptURL:      obj.ReceiptURL,
		CustomerEmail:   obj.BillingDetails.Email,
		CustomerName:    obj.BillingDetails.Name,
		CardBrand:       obj.PaymentMethodDetails.Card.Brand,
		CardLast4:       obj.PaymentMethodDetails.Card.Last4,
		CreatedAt:       time.Unix(obj.Created, 0).UTC(),
	}
	if err := s.mirrors.UpsertCharge(ctx, charge); err != nil {
		return fmt.Errorf("upsert charge %s: %w", obj.ID, err)
	}
	return nil
}

func (s *Service) runForSession(ctx context.Context, tx pgx.Tx, ev Event) error {
	var obj sessionObject
	if err := json.Unmarshal(ev.Object, &obj); err != nil {
		return fmt.Errorf("parse session object: %w", err)
	}
	if err := s.mirrors.UpsertSession(ctx, domain.CheckoutSession{
		SessionID:       obj.ID,
		PaymentIntentID: obj.PaymentIntent,
		AmountSubtotal:  obj.AmountSubtotal,
		AmountTotal:     obj.AmountTotal,
		Currency:        obj.Currency,
		PaymentStatus:   obj.PaymentStatus,
		CustomerEmail:   obj.CustomerDetails.Email,
		CustomerName:    obj.CustomerDetails.Name,
		CreatedAt:       time.Unix(obj.Created, 0).UTC(),
	}); err != nil {
		s.logger.Printf("session mirror upsert failed for %s: %v", obj.ID, err)
	}

	order, err := s.orders.GetBySessionIDTx(ctx, tx, obj.ID)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Printf("event %s references unknown session %s", ev.ID, obj.ID)
		return s.events.MarkOutcomeTx(ctx, tx, ev.ID, domain.EventOutcomeSkipped, "unknown session")
	}
	if err != nil {
		return fmt.Errorf("load order by session %s: %w", obj.ID, err)
	}

	if obj.PaymentIntent != "" && (order.PaymentIntentID == nil || *order.PaymentIntentID == "") {
		if err := s.orders.SetPaymentIntentIDTx(ctx, tx, order.ID, obj.PaymentIntent); err != nil {
			return fmt.Errorf("attach intent: %w", err)
		}
		order.PaymentIntentID = &obj.PaymentIntent
	}
	return s.advance(ctx, tx, ev, order, obj.AmountTotal)
}

func (s *Service) runForIntent(ctx context.Context, tx pgx.Tx, ev Event) error {
	var obj intentObject
	if err := json.Unmarshal(ev.Object, &obj); err != nil {
		return fmt.Errorf("parse intent object: %w", err)
	}
	order, err := s.orders.GetByIntentIDTx(ctx, tx, obj.ID)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Printf("event %s references unknown intent %s", ev.ID, obj.ID)
		return s.events.MarkOutcomeTx(ctx, tx, ev.ID, domain.EventOutcomeSkipped, "unknown intent")
	}
	if err != nil {
		return fmt.Errorf("load order by intent %s: %w", obj.ID, err)
	}
	return s.advance(ctx, tx, ev, order, obj.AmountCapturable)
}

// advance runs the saga steps in strict order, skipping any step whose
// external id is already attached to the order. heldCents is the amount
// the gateway holds for this order; the computed total must match it.
func (s *Service) advance(ctx context.Context, tx pgx.Tx, ev Event, order *domain.Order, heldCents int64) error {
	if order.Terminal() {
		s.logger.Printf("order %s already %s, event %s skipped", order.ID, order.Status, ev.ID)
		return s.events.MarkOutcomeTx(ctx, tx, ev.ID, domain.EventOutcomeSkipped, "")
	}

	// The event itself is the gateway's word that funds are on hold.
	if order.PaymentState != domain.PaymentHeld && order.PaymentState != domain.PaymentCaptured {
		if err := s.orders.SetPaymentStateTx(ctx, tx, order.ID, domain.PaymentHeld); err != nil {
			return fmt.Errorf("set payment state: %w", err)
		}
		order.PaymentState = domain.PaymentHeld
	}

	if err := s.resolveContact(ctx, tx, order); err != nil {
		return s.fail(ctx, tx, ev, order, fmt.Errorf("resolve contact: %w", err))
	}
	breakdown, err := s.priceAndReconcile(ctx, tx, order, heldCents)
	if err != nil {
		return s.fail(ctx, tx, ev, order, err)
	}
	if err := s.createInvoice(ctx, tx, order, breakdown); err != nil {
		return s.fail(ctx, tx, ev, order, fmt.Errorf("create invoice: %w", err))
	}
	if err := s.createDispatchOrder(ctx, tx, order, heldCents); err != nil {
		return s.fail(ctx, tx, ev, order, fmt.Errorf("create dispatch order: %w", err))
	}

	intent, err := s.capture.Capture(ctx, order)
	if err != nil {
		return s.fail(ctx, tx, ev, order, fmt.Errorf("capture: %w", err))
	}
	if err := s.orders.SetPaymentStateTx(ctx, tx, order.ID, domain.PaymentCaptured); err != nil {
		return fmt.Errorf("set payment state: %w", err)
	}
	if err := s.orders.SetStatusTx(ctx, tx, order.ID, domain.StatusFulfilled); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if order.InvoiceID != nil {
		if err := s.invoices.RecordPayment(ctx, *order.InvoiceID, intent.AmountReceived); err != nil {
			// The money already moved; a missing payment record on the
			// invoice is a back-office annoyance, not a saga failure.
			s.logger.Printf("record payment on invoice %s failed: %v", *order.InvoiceID, err)
		}
	}
	s.logger.Printf("order %s fulfilled: invoice %s, dispatch order %s, captured %d cents",
		order.ID, deref(order.InvoiceID), deref(order.DispatchOrderID), intent.AmountReceived)
	return s.events.MarkOutcomeTx(ctx, tx, ev.ID, domain.EventOutcomeProcessed, "")
}

func (s *Service) resolveContact(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	if order.ContactID != nil && *order.ContactID != "" {
		return nil
	}
	contact, err := s.contacts.Resolve(ctx, crm.ResolveInput{
		Name:  order.ContactName,
		Email: order.ContactEmail,
		Phone: order.ContactPhone,
	})
	if err != nil {
		return err
	}
	if err := s.orders.SetContactIDTx(ctx, tx, order.ID, contact.ID); err != nil {
		return err
	}
	order.ContactID = &contact.ID
	return nil
}

func (s *Service) priceAndReconcile(ctx context.Context, tx pgx.Tx, order *domain.Order, heldCents int64) (*pricing.Breakdown, error) {
	var coupon *domain.Coupon
	if order.CouponCode != "" {
		c, err := s.coupons.Resolve(ctx, order.CouponCode)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.logger.Printf("order %s coupon %q unknown, ignored", order.ID, order.CouponCode)
		case err != nil:
			return nil, fmt.Errorf("resolve coupon: %w", err)
		default:
			coupon = c
		}
	}

	breakdown, err := s.engine.Price(order, coupon)
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	if err := s.orders.SetTotalTx(ctx, tx, order.ID, breakdown.TotalCents); err != nil {
		return nil, fmt.Errorf("set total: %w", err)
	}
	order.TotalCents = &breakdown.TotalCents

	diff := breakdown.TotalCents - heldCents
	if diff < 0 {
		diff = -diff
	}
	if diff > s.cfg.EpsilonCents {
		return nil, fmt.Errorf("computed %d cents, gateway holds %d: %w",
			breakdown.TotalCents, heldCents, domain.ErrReconciliation)
	}
	return breakdown, nil
}

func (s *Service) createInvoice(ctx context.Context, tx pgx.Tx, order *domain.Order, breakdown *pricing.Breakdown) error {
	if order.InvoiceID != nil && *order.InvoiceID != "" {
		return nil
	}
	contact := &domain.Contact{}
	if order.ContactID != nil {
		contact.ID = *order.ContactID
	}
	inv, err := s.invoices.Create(ctx, s.invDoc.Build(order, contact, breakdown))
	if err != nil {
		return err
	}
	if err := s.orders.SetInvoiceIDTx(ctx, tx, order.ID, inv.ID); err != nil {
		return err
	}
	order.InvoiceID = &inv.ID
	if err := s.invoices.Send(ctx, inv.ID); err != nil {
		s.logger.Printf("send invoice %s failed: %v", inv.ID, err)
	}
	return nil
}

func (s *Service) createDispatchOrder(ctx context.Context, tx pgx.Tx, order *domain.Order, heldCents int64) error {
	if order.DispatchOrderID != nil && *order.DispatchOrderID != "" {
		return nil
	}
	id, err := s.dispatch.CreateWorkOrder(ctx, order, heldCents)
	if err != nil {
		return err
	}
	if err := s.orders.SetDispatchOrderIDTx(ctx, tx, order.ID, id); err != nil {
		return err
	}
	order.DispatchOrderID = &id
	return nil
}

// fail is the compensation path: release the held funds, mark the order
// failed, record the ledger outcome, and report success to the gateway
// so the event is not redelivered. External ids already attached stay
// attached; partial progress is observable, never hidden.
func (s *Service) fail(ctx context.Context, tx pgx.Tx, ev Event, order *domain.Order, cause error) error {
	s.logger.Printf("saga failed for order %s on event %s: %v", order.ID, ev.ID, cause)

	if err := s.capture.Release(ctx, order); err != nil {
		// The hold could not be released; redelivery gets another try.
		return fmt.Errorf("compensate order %s: %w (cause: %v)", order.ID, err, cause)
	}
	if err := s.orders.SetPaymentStateTx(ctx, tx, order.ID, domain.PaymentCanceled); err != nil {
		return err
	}
	if err := s.orders.SetStatusTx(ctx, tx, order.ID, domain.StatusFailed); err != nil {
		return err
	}
	return s.events.MarkOutcomeTx(ctx, tx, ev.ID, domain.EventOutcomeFailed, cause.Error())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
