package crm

import (
	"context"
	"io"
	"log"
	"strings"

	"notaryorders/internal/domain"
	"notaryorders/internal/e164"
)

// contactAPI is the slice of Client the resolver needs.
type contactAPI interface {
	Search(ctx context.Context, email, phone string) ([]domain.Contact, error)
	Create(ctx context.Context, in ContactInput) (*domain.Contact, error)
	Get(ctx context.Context, id string) (*domain.Contact, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
}

type cacheRepo interface {
	Upsert(ctx context.Context, c domain.Contact) error
}

// Resolver implements search-or-create against the CRM. It never fails
// solely because the contact already exists: a duplicate response from
// the create call is resolved by fetching the conflicting contact.
type Resolver struct {
	api    contactAPI
	cache  cacheRepo
	logger *log.Logger
}

func NewResolver(api contactAPI, cache cacheRepo, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Resolver{api: api, cache: cache, logger: logger}
}

// ResolveInput identifies the customer to find or create.
type ResolveInput struct {
	Name  string
	Email string
	Phone string
}

// Resolve returns the CRM contact for the given email/phone, creating
// one when none exists. The local cache is written through on every
// path but never consulted for matching.
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (*domain.Contact, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	phone := e164.Normalize(in.Phone)

	found, err := r.api.Search(ctx, email, phone)
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		contact := found[0]
		r.backfillName(ctx, &contact, in.Name)
		r.writeThrough(ctx, contact)
		return &contact, nil
	}

	first, last := splitName(in.Name)
	created, err := r.api.Create(ctx, ContactInput{
		FirstName: first,
		LastName:  last,
		Name:      in.Name,
		Email:     email,
		Phone:     phone,
		Country:   "US",
		Type:      "customer",
	})
	if err != nil {
		dup, ok := IsDuplicate(err)
		if !ok {
			return nil, err
		}
		r.logger.Printf("contact create conflict, fetching existing %s", dup.ContactID)
		existing, err := r.api.Get(ctx, dup.ContactID)
		if err != nil {
			return nil, err
		}
		r.writeThrough(ctx, *existing)
		return existing, nil
	}

	r.writeThrough(ctx, *created)
	return created, nil
}

// backfillName pushes the order's name onto a matched contact that has
// none. Best effort: the saga keeps going on failure.
func (r *Resolver) backfillName(ctx context.Context, c *domain.Contact, name string) {
	if name == "" || c.FirstName != "" || c.LastName != "" {
		return
	}
	first, last := splitName(name)
	fields := map[string]interface{}{
		"firstName": first,
		"lastName":  last,
	}
	if err := r.api.Update(ctx, c.ID, fields); err != nil {
		r.logger.Printf("contact name push %s: %v", c.ID, err)
		return
	}
	c.FirstName, c.LastName = first, last
}

func (r *Resolver) writeThrough(ctx context.Context, c domain.Contact) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Upsert(ctx, c); err != nil {
		r.logger.Printf("contact cache upsert %s: %v", c.ID, err)
	}
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
