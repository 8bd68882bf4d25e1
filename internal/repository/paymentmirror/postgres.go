package paymentmirror

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notaryorders/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) UpsertCharge(ctx context.Context, c domain.Charge) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO stripe_charges (
    charge_id, payment_intent_id, amount_cents, currency, paid, status, captured, refunded,
    receipt_url, customer_email, customer_name, card_brand, card_last4, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (charge_id) DO UPDATE SET
    payment_intent_id = EXCLUDED.payment_intent_id,
    amount_cents = EXCLUDED.amount_cents,
    currency = EXCLUDED.currency,
    paid = EXCLUDED.paid,
    status = EXCLUDED.status,
    captured = EXCLUDED.captured,
    refunded = EXCLUDED.refunded,
    receipt_url = EXCLUDED.receipt_url,
    customer_email = EXCLUDED.customer_email,
    customer_name = EXCLUDED.customer_name,
    card_brand = EXCLUDED.card_brand,
    card_last4 = EXCLUDED.card_last4
`, c.ChargeID, c.PaymentIntentID, c.AmountCents, c.Currency, c.Paid, c.Status, c.Captured, c.Refunded,
		c.ReceiptURL, c.CustomerEmail, c.CustomerName, c.CardBrand, c.CardLast4, c.CreatedAt)
	return err
}

func (r *postgresRepo) UpsertSession(ctx context.Context, s domain.CheckoutSession) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO checkout_sessions (
    session_id, payment_intent_id, amount_subtotal_cents, amount_total_cents,
    currency, payment_status, customer_email, customer_name, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (session_id) DO UPDATE SET
    payment_intent_id = EXCLUDED.payment_intent_id,
    amount_subtotal_cents = EXCLUDED.amount_subtotal_cents,
    amount_total_cents = EXCLUDED.amount_total_cents,
    currency = EXCLUDED.currency,
    payment_status = EXCLUDED.payment_status,
    customer_email = EXCLUDED.customer_email,
    customer_name = EXCLUDED.customer_name
`, s.SessionID, s.PaymentIntentID, s.AmountSubtotal, s.AmountTotal,
		s.Currency, s.PaymentStatus, s.CustomerEmail, s.CustomerName, s.CreatedAt)
	return err
}

func (r *postgresRepo) GetCharge(ctx context.Context, chargeID string) (*domain.Charge, error) {
	var c domain.Charge
	err := r.pool.QueryRow(ctx, `
SELECT charge_id, payment_intent_id, amount_cents, currency, paid, status, captured, refunded,
       receipt_url, customer_email, customer_name, card_brand, card_last4, created_at
FROM stripe_charges
WHERE charge_id = $1
`, chargeID).Scan(&c.ChargeID, &c.PaymentIntentID, &c.AmountCents, &c.Currency, &c.Paid, &c.Status,
		&c.Captured, &c.Refunded, &c.ReceiptURL, &c.CustomerEmail, &c.CustomerName, &c.CardBrand, &c.CardLast4, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepo) GetSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	var s domain.CheckoutSession
	err := r.pool.QueryRow(ctx, `
SELECT session_id, payment_intent_id, amount_subtotal_cents, amount_total_cents,
       currency, payment_status, customer_email, customer_name, created_at
FROM checkout_sessions
WHERE session_id = $1
`, sessionID).Scan(&s.SessionID, &s.PaymentIntentID, &s.AmountSubtotal, &s.AmountTotal,
		&s.Currency, &s.PaymentStatus, &s.CustomerEmail, &s.CustomerName, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
