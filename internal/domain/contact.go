package domain

import "time"

// Contact is the local write-through cache of a CRM contact, upserted by
// the external id. Matching always happens against the CRM, never
// against this cache.
type Contact struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Country    string    `json:"country,omitempty"`
	LocationID string    `json:"locationId"`
	Type       string    `json:"type"`
	DateAdded  time.Time `json:"dateAdded"`
}
