package contact

import (
	"context"

	"notaryorders/internal/domain"
)

// Repository is the local write-through cache of CRM contacts. Upserted
// by the CRM's contact id; never used for matching.
type Repository interface {
	Upsert(ctx context.Context, c domain.Contact) error
	GetByID(ctx context.Context, id string) (*domain.Contact, error)
}
