package domain

import "time"

// Webhook event processing outcomes recorded on the dedup ledger.
const (
	EventOutcomeProcessed = "processed"
	EventOutcomeFailed    = "failed"
	EventOutcomeSkipped   = "skipped"
)

// WebhookEvent is one row of the append-only dedup ledger. EventID is
// unique; the insert conflict on it is the deduplication mechanism.
type WebhookEvent struct {
	EventID    string    `json:"eventId"`
	Type       string    `json:"type"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Charge is a local read-mostly projection of a gateway charge, upserted
// by charge id. Audit and reconciliation only, never authoritative
// mid-saga.
type Charge struct {
	ChargeID        string    `json:"chargeId"`
	PaymentIntentID string    `json:"paymentIntentId,omitempty"`
	AmountCents     int64     `json:"amountCents"`
	Currency        string    `json:"currency"`
	Paid            bool      `json:"paid"`
	Status          string    `json:"status"`
	Captured        bool      `json:"captured"`
	Refunded        bool      `json:"refunded"`
	ReceiptURL      string    `json:"receiptUrl,omitempty"`
	CustomerEmail   string    `json:"customerEmail,omitempty"`
	CustomerName    string    `json:"customerName,omitempty"`
	CardBrand       string    `json:"cardBrand,omitempty"`
	CardLast4       string    `json:"cardLast4,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CheckoutSession mirrors a gateway checkout session, upserted by
// session id.
type CheckoutSession struct {
	SessionID       string    `json:"sessionId"`
	PaymentIntentID string    `json:"paymentIntentId,omitempty"`
	AmountSubtotal  int64     `json:"amountSubtotalCents"`
	AmountTotal     int64     `json:"amountTotalCents"`
	Currency        string    `json:"currency"`
	PaymentStatus   string    `json:"paymentStatus"`
	CustomerEmail   string    `json:"customerEmail,omitempty"`
	CustomerName    string    `json:"customerName,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
