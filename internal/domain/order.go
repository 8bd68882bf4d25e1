package domain

import "time"

// Service classification for an order.
const (
	ServiceTypeBundle   = "bundle"
	ServiceTypeALaCarte = "a_la_carte"
	ServiceTypeMixed    = "mixed"
)

// Order lifecycle states. An order is immutable once it reaches
// StatusFulfilled or StatusFailed.
const (
	StatusCreated         = "created"
	StatusAwaitingPayment = "awaiting_payment"
	StatusFulfilled       = "fulfilled"
	StatusFailed          = "failed"
)

// Payment hold states tracked on the order.
const (
	PaymentHeld     = "held"
	PaymentCaptured = "captured"
	PaymentCanceled = "canceled"
)

// Protection fee modes.
const (
	ProtectionFlat    = "flat"
	ProtectionPercent = "percentage"
)

// Order is the root entity created at intake time. TotalCents stays nil
// until the pricing engine computes the authoritative total during
// fulfillment; the external ids are attached by the saga, one step each.
type Order struct {
	ID          string `json:"id"`
	ServiceType string `json:"serviceType"`
	Status      string `json:"status"`

	// Service address and access details.
	StreetAddress     string `json:"streetAddress"`
	Unit              string `json:"unit,omitempty"`
	City              string `json:"city"`
	State             string `json:"state"`
	PostalCode        string `json:"postalCode"`
	AccessNotes       string `json:"accessNotes,omitempty"`
	OccupancyOccupied bool   `json:"occupancyOccupied"`

	// Scheduling contact.
	ContactName  string     `json:"contactName"`
	ContactPhone string     `json:"contactPhone"`
	ContactEmail string     `json:"contactEmail"`
	CosignerName string     `json:"cosignerName,omitempty"`
	PreferredAt  *time.Time `json:"preferredAt,omitempty"`
	ScheduleTBD  bool       `json:"scheduleTbd"`

	// Discounts and protection.
	CouponCode      string  `json:"couponCode,omitempty"`
	DiscountPercent float64 `json:"discountPercent"`

	ProtectionEnabled   bool    `json:"protectionEnabled"`
	ProtectionType      string  `json:"protectionType,omitempty"`
	ProtectionFlatCents int64   `json:"protectionFlatCents,omitempty"`
	ProtectionPercent   float64 `json:"protectionPercent,omitempty"`

	// Computed once by the pricing engine; nil until then.
	TotalCents *int64 `json:"totalCents,omitempty"`

	// External correlation ids.
	CheckoutSessionID string  `json:"-"`
	PaymentIntentID   *string `json:"-"`
	InvoiceID         *string `json:"-"`
	DispatchOrderID   *string `json:"-"`
	ContactID         *string `json:"-"`

	PaymentState string     `json:"-"`
	AcceptedAt   *time.Time `json:"acceptedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`

	Bundles  []Bundle          `json:"bundles,omitempty"`
	Services []ALaCarteService `json:"services,omitempty"`
}

// Terminal reports whether the saga already finished for this order.
func (o *Order) Terminal() bool {
	return o.Status == StatusFulfilled || o.Status == StatusFailed
}

// ServiceTypeLabel returns the human-readable form of the service
// classification, for customer-facing documents.
func (o *Order) ServiceTypeLabel() string {
	switch o.ServiceType {
	case ServiceTypeBundle:
		return "Bundled"
	case ServiceTypeALaCarte:
		return "A La Carte"
	case ServiceTypeMixed:
		return "Mixed"
	default:
		return o.ServiceType
	}
}

// Bundle is a fixed-price line item. The discounted price is the price
// contribution; base price is informational.
type Bundle struct {
	ID                   string            `json:"id"`
	OrderID              string            `json:"-"`
	GroupName            string            `json:"groupName"`
	Name                 string            `json:"name"`
	BasePriceCents       int64             `json:"basePriceCents"`
	DiscountedPriceCents int64             `json:"priceCents"`
	OptionValues         map[string]string `json:"optionValues,omitempty"`
	ModalValues          map[string]string `json:"modalValues,omitempty"`
}

// ALaCarteService groups à-la-carte items under one named service.
type ALaCarteService struct {
	ID      string         `json:"id"`
	OrderID string         `json:"-"`
	Key     string         `json:"key"`
	Name    string         `json:"name"`
	Items   []ALaCarteItem `json:"items"`
}

// ALaCarteItem carries its own base price, boolean add-on options, at
// most one submenu modifier, and conditionally-attached modal fields
// and disclosures.
type ALaCarteItem struct {
	ID             string           `json:"id"`
	ServiceID      string           `json:"-"`
	Key            string           `json:"key"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	BasePriceCents int64            `json:"basePriceCents"`
	Options        []ItemOption     `json:"options,omitempty"`
	Submenu        *SubmenuModifier `json:"submenu,omitempty"`
	ModalFields    []ModalField     `json:"modalFields,omitempty"`
	Disclosures    []Disclosure     `json:"disclosures,omitempty"`
}

// ItemOption is a boolean add-on; only selected options are persisted
// with a price contribution.
type ItemOption struct {
	ID         string `json:"id"`
	ItemID     string `json:"-"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Selected   bool   `json:"selected"`
}

// SubmenuModifier adjusts an item price by either an additive amount or
// a multiplicative scalar, never both. A row with both set is a catalog
// configuration error and is rejected by the pricing engine.
type SubmenuModifier struct {
	ID          string   `json:"id"`
	ItemID      string   `json:"-"`
	Label       string   `json:"label"`
	Option      string   `json:"option"`
	AmountCents *int64   `json:"amountCents,omitempty"`
	Multiplier  *float64 `json:"multiplier,omitempty"`
}

// ModalField is an extra form value attached to a restricted subset of
// items (the validity list is enforced at intake).
type ModalField struct {
	ID     string `json:"id"`
	ItemID string `json:"-"`
	Label  string `json:"label"`
	Value  string `json:"value"`
}

// Disclosure is only persisted when the customer accepted it.
type Disclosure struct {
	ID       string `json:"id"`
	ItemID   string `json:"-"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Accepted bool   `json:"accepted"`
}
