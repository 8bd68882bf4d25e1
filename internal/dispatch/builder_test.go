package dispatch

import (
	"context"
	"errors"
	"testing"

	"notaryorders/internal/domain"
)

type stubAPI struct {
	productReq  *ProductRequest
	orderReq    *OrderRequest
	productErr  error
	orderErr    error
	nextProduct int64
	nextOrder   int64
}

func (s *stubAPI) CreateProduct(_ context.Context, req ProductRequest) (*ProductRecord, error) {
	s.productReq = &req
	if s.productErr != nil {
		return nil, s.productErr
	}
	return &ProductRecord{ID: s.nextProduct, Name: req.Name}, nil
}

func (s *stubAPI) CreateOrder(_ context.Context, req OrderRequest) (*OrderRecord, error) {
	s.orderReq = &req
	if s.orderErr != nil {
		return nil, s.orderErr
	}
	return &OrderRecord{ID: s.nextOrder, Status: "new"}, nil
}

func workOrderFixture() *domain.Order {
	return &domain.Order{
		ID:            "ord-7",
		ServiceType:   domain.ServiceTypeBundle,
		StreetAddress: "44 Elm St",
		City:          "Dallas",
		State:         "TX",
		PostalCode:    "75201",
		ContactName:   "Sam Lee Carter",
		ContactPhone:  "214-555-0188",
		ContactEmail:  "sam@example.com",
		CosignerName:  "Jo Carter",
		ScheduleTBD:   true,
		Bundles:       []domain.Bundle{{Name: "Refi Bundle"}},
	}
}

func TestCreateWorkOrderProductMirrorsHeldAmount(t *testing.T) {
	stub := &stubAPI{nextProduct: 501, nextOrder: 900}
	b := newBuilderWithAPI(stub, 42, nil)

	id, err := b.CreateWorkOrder(context.Background(), workOrderFixture(), 27550)
	if err != nil {
		t.Fatalf("CreateWorkOrder: %v", err)
	}
	if id != "900" {
		t.Fatalf("order id = %q", id)
	}
	if stub.productReq.ChargeAmount != 275.50 {
		t.Fatalf("product charge = %v, want held amount in dollars", stub.productReq.ChargeAmount)
	}
	if stub.orderReq.ProductID != 501 || stub.orderReq.ClientID != 42 {
		t.Fatalf("order references product %d client %d", stub.orderReq.ProductID, stub.orderReq.ClientID)
	}
}

func TestCreateWorkOrderSignerNormalization(t *testing.T) {
	stub := &stubAPI{nextProduct: 1, nextOrder: 2}
	b := newBuilderWithAPI(stub, 42, nil)

	if _, err := b.CreateWorkOrder(context.Background(), workOrderFixture(), 1000); err != nil {
		t.Fatalf("CreateWorkOrder: %v", err)
	}
	signer := stub.orderReq.Signer
	if signer.FirstName != "Sam" || signer.LastName != "Lee Carter" {
		t.Fatalf("signer = %q %q", signer.FirstName, signer.LastName)
	}
	if signer.Phone != "+12145550188" {
		t.Fatalf("signer phone = %q, want E.164", signer.Phone)
	}
	if stub.orderReq.Cosigner == nil || stub.orderReq.Cosigner.FirstName != "Jo" {
		t.Fatalf("cosigner = %+v", stub.orderReq.Cosigner)
	}
	if stub.orderReq.Schedule == nil || !stub.orderReq.Schedule.TBD {
		t.Fatalf("schedule = %+v, want TBD", stub.orderReq.Schedule)
	}
}

func TestCreateWorkOrderProductFailureStopsBuild(t *testing.T) {
	stub := &stubAPI{productErr: errors.New("rate limited")}
	b := newBuilderWithAPI(stub, 42, nil)

	if _, err := b.CreateWorkOrder(context.Background(), workOrderFixture(), 1000); err == nil {
		t.Fatal("want error when product creation fails")
	}
	if stub.orderReq != nil {
		t.Fatal("order must not be created after product failure")
	}
}
