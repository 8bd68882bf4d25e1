package invoicing

import (
	"regexp"
	"time"

	"notaryorders/internal/domain"
	"notaryorders/internal/pricing"
)

// Document is the invoice payload posted to the invoicing API.
type Document struct {
	AltID               string         `json:"altId"`
	AltType             string         `json:"altType"`
	Name                string         `json:"name"`
	BusinessDetails     Party          `json:"businessDetails"`
	Currency            string         `json:"currency"`
	Items               []Item         `json:"items"`
	Discount            *Discount      `json:"discount,omitempty"`
	TermsNotes          string         `json:"termsNotes"`
	Title               string         `json:"title"`
	ContactDetails      ContactDetails `json:"contactDetails"`
	InvoiceNumber       string         `json:"invoiceNumber"`
	IssueDate           string         `json:"issueDate"`
	DueDate             string         `json:"dueDate"`
	SentTo              SentTo         `json:"sentTo"`
	LiveMode            bool           `json:"liveMode"`
	InvoiceNumberPrefix string         `json:"invoiceNumberPrefix"`
	PaymentMethods      map[string]any `json:"paymentMethods"`
	Attachments         []any          `json:"attachments"`
}

type Party struct {
	Name    string  `json:"name"`
	PhoneNo string  `json:"phoneNo"`
	Email   string  `json:"email"`
	Address Address `json:"address"`
}

type ContactDetails struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	PhoneNo          string   `json:"phoneNo"`
	Email            string   `json:"email"`
	AdditionalEmails []string `json:"additionalEmails"`
	CompanyName      string   `json:"companyName"`
	Address          Address  `json:"address"`
	CustomFields     []any    `json:"customFields"`
}

type Address struct {
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	CountryCode  string `json:"countryCode"`
	PostalCode   string `json:"postalCode"`
}

type Item struct {
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Currency       string       `json:"currency"`
	Amount         float64      `json:"amount"`
	Qty            int          `json:"qty"`
	Taxes          []any        `json:"taxes"`
	IsSetupFeeItem bool         `json:"isSetupFeeItem"`
	Type           string       `json:"type"`
	TaxInclusive   bool         `json:"taxInclusive"`
	Discount       ItemDiscount `json:"discount"`
}

type ItemDiscount struct {
	Value             float64  `json:"value"`
	Type              string   `json:"type"`
	ValidOnProductIDs []string `json:"validOnProductIds"`
}

type Discount struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

type SentTo struct {
	Email    []string `json:"email"`
	EmailCC  []string `json:"emailCc"`
	EmailBCC []string `json:"emailBcc"`
	PhoneNo  []string `json:"phoneNo"`
}

var nonPhoneChars = regexp.MustCompile(`[^\d+]`)

// Builder turns an order and its priced breakdown into an invoice document.
type Builder struct {
	LocationID string
	LiveMode   bool
	Now        func() time.Time
}

// Build produces one invoice item per breakdown line. The invoice number
// is the checkout session id, so rebuilding after a crash or a redelivered
// webhook yields the same document.
func (b *Builder) Build(order *domain.Order, contact *domain.Contact, breakdown *pricing.Breakdown) Document {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	today := now().UTC().Format("2006-01-02")

	addr := Address{
		AddressLine1: order.StreetAddress,
		AddressLine2: order.Unit,
		City:         order.City,
		State:        order.State,
		CountryCode:  "US",
		PostalCode:   order.PostalCode,
	}
	phone := nonPhoneChars.ReplaceAllString(order.ContactPhone, "")

	items := make([]Item, 0, len(breakdown.Lines))
	for _, line := range breakdown.Lines {
		if line.Kind == pricing.LineProtection && line.AmountCents == 0 {
			continue
		}
		items = append(items, Item{
			Name:         line.Name,
			Description:  line.Description,
			Currency:     "USD",
			Amount:       float64(line.AmountCents) / 100,
			Qty:          1,
			Taxes:        []any{},
			Type:         "one_time",
			TaxInclusive: true,
			Discount:     ItemDiscount{Type: "percentage", ValidOnProductIDs: []string{}},
		})
	}

	doc := Document{
		AltID:   b.LocationID,
		AltType: "location",
		Name:    "Invoice for " + order.ServiceTypeLabel() + " Order",
		BusinessDetails: Party{
			Name:    order.ContactName,
			PhoneNo: order.ContactPhone,
			Email:   order.ContactEmail,
			Address: addr,
		},
		Currency:   "USD",
		Items:      items,
		TermsNotes: "<p>This is a default terms.</p>",
		Title:      "INVOICE",
		ContactDetails: ContactDetails{
			ID:               contact.ID,
			Name:             order.ContactName,
			PhoneNo:          phone,
			Email:            order.ContactEmail,
			AdditionalEmails: []string{},
			Address:          addr,
			CustomFields:     []any{},
		},
		InvoiceNumber:       order.CheckoutSessionID,
		IssueDate:           today,
		DueDate:             today,
		SentTo:              sentTo(order),
		LiveMode:            b.LiveMode,
		InvoiceNumberPrefix: "INV-",
		PaymentMethods:      map[string]any{"stripe": map[string]any{}},
		Attachments:         []any{},
	}
	if breakdown.DiscountCents > 0 {
		doc.Discount = &Discount{Type: "fixed", Value: float64(breakdown.DiscountCents) / 100}
	}
	return doc
}

func sentTo(order *domain.Order) SentTo {
	st := SentTo{Email: []string{}, EmailCC: []string{}, EmailBCC: []string{}, PhoneNo: []string{}}
	if order.ContactEmail != "" {
		st.Email = []string{order.ContactEmail}
	}
	if order.ContactPhone != "" {
		st.PhoneNo = []string{order.ContactPhone}
	}
	return st
}
