package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"notaryorders/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const orderColumns = `
id::text, service_type, status,
street_address, unit, city, state, postal_code, access_notes, occupancy_occupied,
contact_name, contact_phone, contact_email, cosigner_name, preferred_at, schedule_tbd,
coupon_code, discount_percent,
protection_enabled, protection_type, protection_flat_cents, protection_percent,
total_cents,
checkout_session_id, payment_intent_id, invoice_id, dispatch_order_id, contact_id,
payment_state, accepted_at, created_at
`

func (r *postgresRepo) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `
INSERT INTO orders (
    id, service_type, status,
    street_address, unit, city, state, postal_code, access_notes, occupancy_occupied,
    contact_name, contact_phone, contact_email, cosigner_name, preferred_at, schedule_tbd,
    coupon_code, discount_percent,
    protection_enabled, protection_type, protection_flat_cents, protection_percent,
    checkout_session_id, accepted_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
          $17, $18, $19, $20, $21, $22, $23, $24)
RETURNING created_at
`
	if err := tx.QueryRow(ctx, q,
		o.ID, o.ServiceType, o.Status,
		o.StreetAddress, o.Unit, o.City, o.State, o.PostalCode, o.AccessNotes, o.OccupancyOccupied,
		o.ContactName, o.ContactPhone, o.ContactEmail, o.CosignerName, o.PreferredAt, o.ScheduleTBD,
		o.CouponCode, o.DiscountPercent,
		o.ProtectionEnabled, o.ProtectionType, o.ProtectionFlatCents, o.ProtectionPercent,
		o.CheckoutSessionID, o.AcceptedAt,
	).Scan(&o.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}

	for i := range o.Bundles {
		b := &o.Bundles[i]
		if err := tx.QueryRow(ctx, `
INSERT INTO bundles (order_id, group_name, name, base_price_cents, discounted_price_cents, option_values, modal_values)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id::text
`, o.ID, b.GroupName, b.Name, b.BasePriceCents, b.DiscountedPriceCents, b.OptionValues, b.ModalValues).Scan(&b.ID); err != nil {
			return err
		}
		b.OrderID = o.ID
	}

	for i := range o.Services {
		svc := &o.Services[i]
		if err := tx.QueryRow(ctx, `
INSERT INTO alacarte_services (order_id, key, name)
VALUES ($1, $2, $3)
RETURNING id::text
`, o.ID, svc.Key, svc.Name).Scan(&svc.ID); err != nil {
			return err
		}
		svc.OrderID = o.ID

		for j := range svc.Items {
			if err := insertItem(ctx, tx, svc.ID, &svc.Items[j]); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

func insertItem(ctx context.Context, tx pgx.Tx, serviceID string, it *domain.ALaCarteItem) error {
	if err := tx.QueryRow(ctx, `
INSERT INTO alacarte_items (service_id, key, name, description, base_price_cents)
VALUES ($1, $2, $3, $4, $5)
RETURNING id::text
`, serviceID, it.Key, it.Name, it.Description, it.BasePriceCents).Scan(&it.ID); err != nil {
		return err
	}
	it.ServiceID = serviceID

	for k := range it.Options {
		opt := &it.Options[k]
		if err := tx.QueryRow(ctx, `
INSERT INTO item_options (item_id, name, price_cents, selected)
VALUES ($1, $2, $3, $4)
RETURNING id::text
`, it.ID, opt.Name, opt.PriceCents, opt.Selected).Scan(&opt.ID); err != nil {
			return err
		}
		opt.ItemID = it.ID
	}

	if sm := it.Submenu; sm != nil {
		if err := tx.QueryRow(ctx, `
INSERT INTO item_submenus (item_id, label, option, amount_cents, multiplier)
VALUES ($1, $2, $3, $4, $5)
RETURNING id::text
`, it.ID, sm.Label, sm.Option, sm.AmountCents, sm.Multiplier).Scan(&sm.ID); err != nil {
			return err
		}
		sm.ItemID = it.ID
	}

	for k := range it.ModalFields {
		mf := &it.ModalFields[k]
		if err := tx.QueryRow(ctx, `
INSERT INTO item_modal_fields (item_id, label, value)
VALUES ($1, $2, $3)
RETURNING id::text
`, it.ID, mf.Label, mf.Value).Scan(&mf.ID); err != nil {
			return err
		}
		mf.ItemID = it.ID
	}

	// Disclosures are only persisted when accepted.
	for k := range it.Disclosures {
		d := &it.Disclosures[k]
		if !d.Accepted {
			continue
		}
		if err := tx.QueryRow(ctx, `
INSERT INTO item_disclosures (item_id, kind, message, accepted)
VALUES ($1, $2, $3, TRUE)
RETURNING id::text
`, it.ID, d.Kind, d.Message).Scan(&d.ID); err != nil {
			return err
		}
		d.ItemID = it.ID
	}

	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, r.pool, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) SetCheckoutSession(ctx context.Context, id, sessionID string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders SET checkout_session_id = $1, status = $2 WHERE id = $3
`, sessionID, domain.StatusAwaitingPayment, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) GetBySessionIDTx(ctx context.Context, tx pgx.Tx, sessionID string) (*domain.Order, error) {
	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE checkout_session_id = $1 FOR UPDATE`, sessionID)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, tx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) GetByIntentIDTx(ctx context.Context, tx pgx.Tx, intentID string) (*domain.Order, error) {
	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = $1 FOR UPDATE`, intentID)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, tx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) SetTotalTx(ctx context.Context, tx pgx.Tx, id string, totalCents int64) error {
	return execUpdate(ctx, tx, `UPDATE orders SET total_cents = $1 WHERE id = $2`, totalCents, id)
}

func (r *postgresRepo) SetContactIDTx(ctx context.Context, tx pgx.Tx, id, contactID string) error {
	return execUpdate(ctx, tx, `UPDATE orders SET contact_id = $1 WHERE id = $2`, contactID, id)
}

func (r *postgresRepo) SetInvoiceIDTx(ctx context.Context, tx pgx.Tx, id, invoiceID string) error {
	return execUpdate(ctx, tx, `UPDATE orders SET invoice_id = $1 WHERE id = $2`, invoiceID, id)
}

func (r *postgresRepo) SetDispatchOrderIDTx(ctx context.Context, tx pgx.Tx, id, dispatchOrderID string) error {
	return execUpdate(ctx, tx, `UPDATE orders SET dispatch_order_id = $1 WHERE id = $2`, dispatchOrderID, id)
}

func (r *postgresRepo) SetPaymentIntentIDTx(ctx context.Context, tx pgx.Tx, id, intentID string) error {
	return execUpdate(ctx, tx, `UPDATE orders SET payment_intent_id = $1 WHERE id = $2`, intentID, id)
}

func (r *postgresRepo) SetPaymentStateTx(ctx context.Context, tx pgx.Tx, id, state string) error {
	return execUpdate(ctx, tx, `UPDATE orders SET payment_state = $1 WHERE id = $2`, state, id)
}

func (r *postgresRepo) SetStatusTx(ctx context.Context, tx pgx.Tx, id, status string) error {
	return execUpdate(ctx, tx, `UPDATE orders SET status = $1 WHERE id = $2`, status, id)
}

func execUpdate(ctx context.Context, tx pgx.Tx, q string, args ...interface{}) error {
	cmd, err := tx.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(
		&o.ID, &o.ServiceType, &o.Status,
		&o.StreetAddress, &o.Unit, &o.City, &o.State, &o.PostalCode, &o.AccessNotes, &o.OccupancyOccupied,
		&o.ContactName, &o.ContactPhone, &o.ContactEmail, &o.CosignerName, &o.PreferredAt, &o.ScheduleTBD,
		&o.CouponCode, &o.DiscountPercent,
		&o.ProtectionEnabled, &o.ProtectionType, &o.ProtectionFlatCents, &o.ProtectionPercent,
		&o.TotalCents,
		&o.CheckoutSessionID, &o.PaymentIntentID, &o.InvoiceID, &o.DispatchOrderID, &o.ContactID,
		&o.PaymentState, &o.AcceptedAt, &o.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *postgresRepo) loadLines(ctx context.Context, q querier, o *domain.Order) error {
	rows, err := q.Query(ctx, `
SELECT id::text, group_name, name, base_price_cents, discounted_price_cents, option_values, modal_values
FROM bundles
WHERE order_id = $1
ORDER BY name
`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var b domain.Bundle
		if err := rows.Scan(&b.ID, &b.GroupName, &b.Name, &b.BasePriceCents, &b.DiscountedPriceCents, &b.OptionValues, &b.ModalValues); err != nil {
			return err
		}
		b.OrderID = o.ID
		o.Bundles = append(o.Bundles, b)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	svcRows, err := q.Query(ctx, `
SELECT id::text, key, name
FROM alacarte_services
WHERE order_id = $1
ORDER BY name
`, o.ID)
	if err != nil {
		return err
	}
	defer svcRows.Close()
	for svcRows.Next() {
		var svc domain.ALaCarteService
		if err := svcRows.Scan(&svc.ID, &svc.Key, &svc.Name); err != nil {
			return err
		}
		svc.OrderID = o.ID
		o.Services = append(o.Services, svc)
	}
	if err := svcRows.Err(); err != nil {
		return err
	}
	svcRows.Close()

	for i := range o.Services {
		if err := loadItems(ctx, q, &o.Services[i]); err != nil {
			return err
		}
	}
	return nil
}

func loadItems(ctx context.Context, q querier, svc *domain.ALaCarteService) error {
	rows, err := q.Query(ctx, `
SELECT i.id::text, i.key, i.name, i.description, i.base_price_cents,
       s.id::text, s.label, s.option, s.amount_cents, s.multiplier
FROM alacarte_items i
LEFT JOIN item_submenus s ON s.item_id = i.id
WHERE i.service_id = $1
ORDER BY i.name
`, svc.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.ALaCarteItem
		var smID, smLabel, smOption *string
		var smAmount *int64
		var smMultiplier *float64
		if err := rows.Scan(&it.ID, &it.Key, &it.Name, &it.Description, &it.BasePriceCents,
			&smID, &smLabel, &smOption, &smAmount, &smMultiplier); err != nil {
			return err
		}
		it.ServiceID = svc.ID
		if smID != nil {
			it.Submenu = &domain.SubmenuModifier{
				ID:          *smID,
				ItemID:      it.ID,
				Label:       *smLabel,
				Option:      *smOption,
				AmountCents: smAmount,
				Multiplier:  smMultiplier,
			}
		}
		svc.Items = append(svc.Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for i := range svc.Items {
		it := &svc.Items[i]

		optRows, err := q.Query(ctx, `
SELECT id::text, name, price_cents, selected FROM item_options WHERE item_id = $1 ORDER BY name
`, it.ID)
		if err != nil {
			return err
		}
		for optRows.Next() {
			var opt domain.ItemOption
			if err := optRows.Scan(&opt.ID, &opt.Name, &opt.PriceCents, &opt.Selected); err != nil {
				optRows.Close()
				return err
			}
			opt.ItemID = it.ID
			it.Options = append(it.Options, opt)
		}
		if err := optRows.Err(); err != nil {
			optRows.Close()
			return err
		}
		optRows.Close()

		mfRows, err := q.Query(ctx, `
SELECT id::text, label, value FROM item_modal_fields WHERE item_id = $1 ORDER BY label
`, it.ID)
		if err != nil {
			return err
		}
		for mfRows.Next() {
			var mf domain.ModalField
			if err := mfRows.Scan(&mf.ID, &mf.Label, &mf.Value); err != nil {
				mfRows.Close()
				return err
			}
			mf.ItemID = it.ID
			it.ModalFields = append(it.ModalFields, mf)
		}
		if err := mfRows.Err(); err != nil {
			mfRows.Close()
			return err
		}
		mfRows.Close()

		dRows, err := q.Query(ctx, `
SELECT id::text, kind, message, accepted FROM item_disclosures WHERE item_id = $1 ORDER BY kind
`, it.ID)
		if err != nil {
			return err
		}
		for dRows.Next() {
			var d domain.Disclosure
			if err := dRows.Scan(&d.ID, &d.Kind, &d.Message, &d.Accepted); err != nil {
				dRows.Close()
				return err
			}
			d.ItemID = it.ID
			it.Disclosures = append(it.Disclosures, d)
		}
		if err := dRows.Err(); err != nil {
			dRows.Close()
			return err
		}
		dRows.Close()
	}

	return nil
}
