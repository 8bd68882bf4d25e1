package invoicing

import (
	"testing"
	"time"

	"notaryorders/internal/domain"
	"notaryorders/internal/pricing"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:                "ord-1",
		ServiceType:       domain.ServiceTypeALaCarte,
		StreetAddress:     "12 Main St",
		City:              "Austin",
		State:             "TX",
		PostalCode:        "78701",
		ContactName:       "Pat Jones",
		ContactPhone:      "(512) 555-0101",
		ContactEmail:      "pat@example.com",
		CheckoutSessionID: "cs_test_abc123",
	}
}

func TestBuildInvoiceNumberIsSessionID(t *testing.T) {
	b := &Builder{LocationID: "loc-1", Now: fixedNow}
	breakdown := &pricing.Breakdown{
		Lines: []pricing.Line{{Kind: pricing.LineItem, Name: "Loan Signing", AmountCents: 15000}},
	}

	first := b.Build(testOrder(), &domain.Contact{ID: "c-1"}, breakdown)
	second := b.Build(testOrder(), &domain.Contact{ID: "c-1"}, breakdown)

	if first.InvoiceNumber != "cs_test_abc123" {
		t.Fatalf("invoice number = %q, want session id", first.InvoiceNumber)
	}
	if first.InvoiceNumberPrefix != "INV-" {
		t.Fatalf("prefix = %q", first.InvoiceNumberPrefix)
	}
	if second.InvoiceNumber != first.InvoiceNumber {
		t.Fatal("rebuild produced a different invoice number")
	}
	if first.IssueDate != "2025-03-14" || first.DueDate != "2025-03-14" {
		t.Fatalf("dates = %s / %s", first.IssueDate, first.DueDate)
	}
}

func TestBuildOneItemPerLine(t *testing.T) {
	b := &Builder{LocationID: "loc-1", Now: fixedNow}
	breakdown := &pricing.Breakdown{
		DiscountCents: 2500,
		Lines: []pricing.Line{
			{Kind: pricing.LineItem, Name: "Loan Signing", AmountCents: 15000},
			{Kind: pricing.LineSubmenu, Name: "Loan Signing - Pages", Description: "101-200", AmountCents: 2500},
			{Kind: pricing.LineAddOn, Name: "Loan Signing - Scanbacks", AmountCents: 1000},
		},
	}

	doc := b.Build(testOrder(), &domain.Contact{ID: "c-1"}, breakdown)

	if len(doc.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(doc.Items))
	}
	if doc.Items[1].Amount != 25.00 {
		t.Fatalf("submenu amount = %v", doc.Items[1].Amount)
	}
	if doc.Discount == nil || doc.Discount.Type != "fixed" || doc.Discount.Value != 25.00 {
		t.Fatalf("discount = %+v", doc.Discount)
	}
	if doc.ContactDetails.PhoneNo != "5125550101" {
		t.Fatalf("contact phone = %q", doc.ContactDetails.PhoneNo)
	}
}

func TestBuildSkipsZeroProtectionAndDiscount(t *testing.T) {
	b := &Builder{LocationID: "loc-1", Now: fixedNow}
	breakdown := &pricing.Breakdown{
		Lines: []pricing.Line{
			{Kind: pricing.LineBundle, Name: "Refi Bundle", AmountCents: 20000},
			{Kind: pricing.LineProtection, Name: "Signing Protection", AmountCents: 0},
		},
	}

	doc := b.Build(testOrder(), &domain.Contact{ID: "c-1"}, breakdown)

	if len(doc.Items) != 1 {
		t.Fatalf("items = %d, want zero-amount protection dropped", len(doc.Items))
	}
	if doc.Discount != nil {
		t.Fatalf("discount should be omitted, got %+v", doc.Discount)
	}
}
