package domain

import "time"

// DispatchClient is a local cache of a dispatch-platform client company,
// upserted by the platform id.
type DispatchClient struct {
	ID              int64     `json:"id"`
	OwnerID         int64     `json:"ownerId"`
	ParentCompanyID *int64    `json:"parentCompanyId,omitempty"`
	Type            string    `json:"type"`
	CompanyName     string    `json:"companyName"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DispatchUser is a local cache of a dispatch-platform client user.
type DispatchUser struct {
	ID        int64     `json:"id"`
	ClientID  int64     `json:"clientId"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     string    `json:"phone,omitempty"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
