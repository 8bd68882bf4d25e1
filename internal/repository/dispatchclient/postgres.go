package dispatchclient

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notaryorders/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) UpsertClient(ctx context.Context, c domain.DispatchClient) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO dispatch_clients (id, owner_id, parent_company_id, type, company_name, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
    owner_id = EXCLUDED.owner_id,
    parent_company_id = EXCLUDED.parent_company_id,
    type = EXCLUDED.type,
    company_name = EXCLUDED.company_name,
    active = EXCLUDED.active,
    updated_at = EXCLUDED.updated_at
`, c.ID, c.OwnerID, c.ParentCompanyID, c.Type, c.CompanyName, c.Active, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *postgresRepo) UpsertUser(ctx context.Context, u domain.DispatchUser) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO dispatch_users (id, client_id, email, first_name, last_name, phone, disabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    client_id = EXCLUDED.client_id,
    email = EXCLUDED.email,
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    phone = EXCLUDED.phone,
    disabled = EXCLUDED.disabled,
    updated_at = EXCLUDED.updated_at
`, u.ID, u.ClientID, u.Email, u.FirstName, u.LastName, u.Phone, u.Disabled, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r *postgresRepo) ListClients(ctx context.Context) ([]domain.DispatchClient, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, owner_id, parent_company_id, type, company_name, active, created_at, updated_at
FROM dispatch_clients
ORDER BY company_name
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.DispatchClient
	for rows.Next() {
		var c domain.DispatchClient
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.ParentCompanyID, &c.Type, &c.CompanyName, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *postgresRepo) GetClient(ctx context.Context, id int64) (*domain.DispatchClient, error) {
	var c domain.DispatchClient
	err := r.pool.QueryRow(ctx, `
SELECT id, owner_id, parent_company_id, type, company_name, active, created_at, updated_at
FROM dispatch_clients
WHERE id = $1
`, id).Scan(&c.ID, &c.OwnerID, &c.ParentCompanyID, &c.Type, &c.CompanyName, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
