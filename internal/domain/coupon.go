package domain

import "time"

// Coupon is a read-only snapshot of an external promo code. Re-synced on
// lookup, never merged.
type Coupon struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	PercentOff     float64   `json:"percentOff,omitempty"`
	AmountOffCents int64     `json:"amountOffCents,omitempty"`
	Valid          bool      `json:"valid"`
	SyncedAt       time.Time `json:"syncedAt"`
}
