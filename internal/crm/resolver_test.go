package crm

import (
	"context"
	"errors"
	"testing"

	"notaryorders/internal/domain"
)

type stubAPI struct {
	searchResults []domain.Contact
	searchErr     error
	created       *domain.Contact
	createErr     error
	fetched       *domain.Contact
	getErr        error

	lastSearchEmail string
	lastSearchPhone string
	lastCreate      ContactInput
	lastGetID       string
	createCalls     int
	updates         map[string]map[string]interface{}
	updateErr       error
}

func (s *stubAPI) Search(_ context.Context, email, phone string) ([]domain.Contact, error) {
	s.lastSearchEmail = email
	s.lastSearchPhone = phone
	return s.searchResults, s.searchErr
}

func (s *stubAPI) Create(_ context.Context, in ContactInput) (*domain.Contact, error) {
	s.createCalls++
	s.lastCreate = in
	return s.created, s.createErr
}

func (s *stubAPI) Get(_ context.Context, id string) (*domain.Contact, error) {
	s.lastGetID = id
	return s.fetched, s.getErr
}

func (s *stubAPI) Update(_ context.Context, id string, fields map[string]interface{}) error {
	if s.updates == nil {
		s.updates = make(map[string]map[string]interface{})
	}
	s.updates[id] = fields
	return s.updateErr
}

type stubCache struct {
	upserts []domain.Contact
	err     error
}

func (s *stubCache) Upsert(_ context.Context, c domain.Contact) error {
	s.upserts = append(s.upserts, c)
	return s.err
}

func TestResolveReturnsExistingMatch(t *testing.T) {
	api := &stubAPI{searchResults: []domain.Contact{{ID: "c-1", Email: "jo@example.com"}}}
	cache := &stubCache{}
	r := NewResolver(api, cache, nil)

	got, err := r.Resolve(context.Background(), ResolveInput{Name: "Jo Smith", Email: " Jo@Example.com ", Phone: "(521) 617-7188"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "c-1" {
		t.Fatalf("expected existing contact, got %+v", got)
	}
	if api.createCalls != 0 {
		t.Fatalf("expected no create call")
	}
	if api.lastSearchEmail != "jo@example.com" {
		t.Fatalf("expected lowercased trimmed email, got %q", api.lastSearchEmail)
	}
	if api.lastSearchPhone != "+15216177188" {
		t.Fatalf("expected normalized phone, got %q", api.lastSearchPhone)
	}
	if len(cache.upserts) != 1 {
		t.Fatalf("expected write-through cache upsert")
	}
}

func TestResolveCreatesWhenMissing(t *testing.T) {
	api := &stubAPI{created: &domain.Contact{ID: "c-new"}}
	r := NewResolver(api, &stubCache{}, nil)

	got, err := r.Resolve(context.Background(), ResolveInput{Name: "Roanna Forbes", Email: "rf@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "c-new" {
		t.Fatalf("expected created contact, got %+v", got)
	}
	if api.lastCreate.FirstName != "Roanna" || api.lastCreate.LastName != "Forbes" {
		t.Fatalf("expected split name, got %+v", api.lastCreate)
	}
	if api.lastCreate.Type != "customer" {
		t.Fatalf("expected customer type, got %q", api.lastCreate.Type)
	}
}

func TestResolveConflictFetchesExisting(t *testing.T) {
	api := &stubAPI{
		createErr: &DuplicateError{ContactID: "c-dup"},
		fetched:   &domain.Contact{ID: "c-dup", Email: "dup@example.com"},
	}
	cache := &stubCache{}
	r := NewResolver(api, cache, nil)

	got, err := r.Resolve(context.Background(), ResolveInput{Name: "Dup", Email: "dup@example.com"})
	if err != nil {
		t.Fatalf("expected conflict resolved, got %v", err)
	}
	if got.ID != "c-dup" {
		t.Fatalf("expected existing contact id, got %+v", got)
	}
	if api.lastGetID != "c-dup" {
		t.Fatalf("expected fetch of conflicting id, got %q", api.lastGetID)
	}
}

func TestResolveSurfacesOtherCreateErrors(t *testing.T) {
	boom := errors.New("boom")
	api := &stubAPI{createErr: boom}
	r := NewResolver(api, &stubCache{}, nil)

	_, err := r.Resolve(context.Background(), ResolveInput{Email: "x@example.com"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected create error surfaced, got %v", err)
	}
}

func TestResolveBackfillsMissingName(t *testing.T) {
	api := &stubAPI{searchResults: []domain.Contact{{ID: "c-1", Email: "jo@example.com"}}}
	r := NewResolver(api, &stubCache{}, nil)

	got, err := r.Resolve(context.Background(), ResolveInput{Name: "Jo Smith", Email: "jo@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields := api.updates["c-1"]
	if fields == nil {
		t.Fatalf("expected name push for nameless contact")
	}
	if fields["firstName"] != "Jo" || fields["lastName"] != "Smith" {
		t.Fatalf("unexpected fields pushed: %+v", fields)
	}
	if got.FirstName != "Jo" {
		t.Fatalf("expected returned contact updated, got %+v", got)
	}
}

func TestResolveNamePushFailureIsNotFatal(t *testing.T) {
	api := &stubAPI{
		searchResults: []domain.Contact{{ID: "c-1"}},
		updateErr:     errors.New("crm down"),
	}
	r := NewResolver(api, &stubCache{}, nil)

	got, err := r.Resolve(context.Background(), ResolveInput{Name: "Jo Smith", Email: "jo@example.com"})
	if err != nil {
		t.Fatalf("name push failure must not fail resolution: %v", err)
	}
	if got.FirstName != "" {
		t.Fatalf("expected contact left as found after failed push, got %+v", got)
	}
}

func TestResolveCacheFailureIsNotFatal(t *testing.T) {
	api := &stubAPI{searchResults: []domain.Contact{{ID: "c-1"}}}
	r := NewResolver(api, &stubCache{err: errors.New("cache down")}, nil)

	if _, err := r.Resolve(context.Background(), ResolveInput{Email: "x@example.com"}); err != nil {
		t.Fatalf("cache failure must not fail resolution: %v", err)
	}
}
