package dispatchclient

import (
	"context"

	"notaryorders/internal/domain"
)

// Repository caches dispatch-platform clients and their users locally,
// refreshed by cmd/syncdispatch.
type Repository interface {
	UpsertClient(ctx context.Context, c domain.DispatchClient) error
	UpsertUser(ctx context.Context, u domain.DispatchUser) error
	ListClients(ctx context.Context) ([]domain.DispatchClient, error)
	GetClient(ctx context.Context, id int64) (*domain.DispatchClient, error)
}
