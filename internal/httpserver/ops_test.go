package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"notaryorders/internal/domain"
)

type stubOpsStores struct {
	event   *domain.WebhookEvent
	charge  *domain.Charge
	session *domain.CheckoutSession
}

func (s *stubOpsStores) GetByID(_ context.Context, id string) (*domain.WebhookEvent, error) {
	if s.event == nil || s.event.EventID != id {
		return nil, domain.ErrNotFound
	}
	return s.event, nil
}

func (s *stubOpsStores) GetCharge(_ context.Context, id string) (*domain.Charge, error) {
	if s.charge == nil || s.charge.ChargeID != id {
		return nil, domain.ErrNotFound
	}
	return s.charge, nil
}

func (s *stubOpsStores) GetSession(_ context.Context, id string) (*domain.CheckoutSession, error) {
	if s.session == nil || s.session.SessionID != id {
		return nil, domain.ErrNotFound
	}
	return s.session, nil
}

type stubOpsContacts struct{ contact *domain.Contact }

func (s *stubOpsContacts) GetByID(_ context.Context, id string) (*domain.Contact, error) {
	if s.contact == nil || s.contact.ID != id {
		return nil, domain.ErrNotFound
	}
	return s.contact, nil
}

type stubOpsClients struct{ clients []domain.DispatchClient }

func (s *stubOpsClients) ListClients(context.Context) ([]domain.DispatchClient, error) {
	return s.clients, nil
}

func (s *stubOpsClients) GetClient(_ context.Context, id int64) (*domain.DispatchClient, error) {
	for i := range s.clients {
		if s.clients[i].ID == id {
			return &s.clients[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func opsRouter(stores *stubOpsStores, contacts *stubOpsContacts, clients *stubOpsClients) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerOpsRoutes(router, OpsDeps{
		Events:          stores,
		Mirrors:         stores,
		Contacts:        contacts,
		DispatchClients: clients,
	})
	return router
}

func TestOpsEventLookup(t *testing.T) {
	router := opsRouter(&stubOpsStores{
		event: &domain.WebhookEvent{EventID: "evt-1", Type: "charge.succeeded", Outcome: domain.EventOutcomeProcessed},
	}, &stubOpsContacts{}, &stubOpsClients{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/events/evt-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var got domain.WebhookEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Outcome != domain.EventOutcomeProcessed {
		t.Fatalf("outcome = %q", got.Outcome)
	}
}

func TestOpsEventNotFound(t *testing.T) {
	router := opsRouter(&stubOpsStores{}, &stubOpsContacts{}, &stubOpsClients{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/events/evt-404", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestOpsMirrorLookups(t *testing.T) {
	router := opsRouter(&stubOpsStores{
		charge:  &domain.Charge{ChargeID: "ch_1", AmountCents: 20000},
		session: &domain.CheckoutSession{SessionID: "cs_1", PaymentIntentID: "pi_1"},
	}, &stubOpsContacts{}, &stubOpsClients{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/charges/ch_1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("charge lookup status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/sessions/cs_1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("session lookup status = %d", rec.Code)
	}
}

func TestOpsContactLookup(t *testing.T) {
	router := opsRouter(&stubOpsStores{}, &stubOpsContacts{
		contact: &domain.Contact{ID: "c-1", Email: "pat@example.com"},
	}, &stubOpsClients{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/contacts/c-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestOpsDispatchClients(t *testing.T) {
	router := opsRouter(&stubOpsStores{}, &stubOpsContacts{}, &stubOpsClients{
		clients: []domain.DispatchClient{{ID: 42, CompanyName: "Acme Title"}},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/dispatch-clients", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/dispatch-clients/42", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/dispatch-clients/not-a-number", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}
}
