package dispatch

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"notaryorders/internal/domain"
	"notaryorders/internal/e164"
)

// api is the slice of Client the builder needs; tests stub it.
type api interface {
	CreateProduct(ctx context.Context, req ProductRequest) (*ProductRecord, error)
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderRecord, error)
}

// Builder performs the two-phase work-order creation: a product priced
// at the amount actually held by the payment gateway, then the order
// referencing it. Either call failing fails the whole build; a product
// without an order is harmless on the platform side.
type Builder struct {
	api      api
	clientID int64
	logger   *log.Logger
}

func NewBuilder(c *Client, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Builder{api: c, clientID: c.cfg.ClientID, logger: logger}
}

func newBuilderWithAPI(a api, clientID int64, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Builder{api: a, clientID: clientID, logger: logger}
}

// CreateWorkOrder creates the product and order for a fulfilled order.
// heldCents is the gateway-held amount, which the product mirrors so
// dispatch-side accounting matches what gets captured.
func (b *Builder) CreateWorkOrder(ctx context.Context, order *domain.Order, heldCents int64) (string, error) {
	product, err := b.api.CreateProduct(ctx, ProductRequest{
		Name:         order.ServiceTypeLabel() + " Signing - " + order.ID,
		Description:  productDescription(order),
		ChargeAmount: float64(heldCents) / 100,
	})
	if err != nil {
		return "", fmt.Errorf("create product: %w", err)
	}
	b.logger.Printf("created product %d for order %s", product.ID, order.ID)

	req := OrderRequest{
		ClientID:  b.clientID,
		ProductID: product.ID,
		Signer:    signerFromName(order.ContactName, order.ContactEmail, order.ContactPhone),
		Location: Location{
			Address1: order.StreetAddress,
			Address2: order.Unit,
			City:     order.City,
			State:    order.State,
			Zip:      order.PostalCode,
		},
		Notes: order.AccessNotes,
	}
	if order.CosignerName != "" {
		co := signerFromName(order.CosignerName, "", "")
		req.Cosigner = &co
	}
	if order.ScheduleTBD {
		req.Schedule = &Appointment{TBD: true}
	} else if order.PreferredAt != nil {
		req.Schedule = &Appointment{At: order.PreferredAt.UTC().Format(time.RFC3339)}
	}

	created, err := b.api.CreateOrder(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	b.logger.Printf("created dispatch order %d for order %s", created.ID, order.ID)
	return fmt.Sprintf("%d", created.ID), nil
}

func signerFromName(name, email, phone string) Signer {
	s := Signer{Email: email}
	if phone != "" {
		s.Phone = e164.Normalize(phone)
	}
	parts := strings.Fields(name)
	if len(parts) > 0 {
		s.FirstName = parts[0]
		s.LastName = strings.Join(parts[1:], " ")
	}
	return s
}

func productDescription(order *domain.Order) string {
	var names []string
	for _, b := range order.Bundles {
		names = append(names, b.Name)
	}
	for _, svc := range order.Services {
		names = append(names, svc.Name)
	}
	return strings.Join(names, ", ")
}
