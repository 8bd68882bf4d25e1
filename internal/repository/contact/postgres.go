package contact

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notaryorders/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Upsert(ctx context.Context, c domain.Contact) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO contacts (id, first_name, last_name, email, phone, country, location_id, type, date_added)
VALUES ($1, $2, $3, lower($4), $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    email = EXCLUDED.email,
    phone = EXCLUDED.phone,
    country = EXCLUDED.country,
    location_id = EXCLUDED.location_id,
    type = EXCLUDED.type
`, c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Country, c.LocationID, c.Type, c.DateAdded)
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	var c domain.Contact
	err := r.pool.QueryRow(ctx, `
SELECT id, first_name, last_name, email, phone, country, location_id, type, date_added
FROM contacts
WHERE id = $1
`, id).Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Country, &c.LocationID, &c.Type, &c.DateAdded)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
