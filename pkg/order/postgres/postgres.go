// Package postgres implements the backoffice order repository.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"fieldflow/pkg/order"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// New creates a PostgreSQL repository.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the orders table if it does not exist. The unique index on
// client_ref makes replayed creates idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		client_ref TEXT UNIQUE,
		payload TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`)
	return err
}

// Create inserts a new order. When an order with the same client_ref already
// exists, the existing order is returned unchanged instead of inserting a
// duplicate.
func (r *Repository) Create(ctx context.Context, o order.Order) (order.Order, error) {
	if o.ClientRef != "" {
		existing, err := r.getByClientRef(ctx, o.ClientRef)
		if err == nil {
			return existing, nil
		}
		if err != order.ErrNotFound {
			return order.Order{}, err
		}
	}
	payload, err := json.Marshal(o.Draft)
	if err != nil {
		return order.Order{}, fmt.Errorf("encode draft: %w", err)
	}
	clientRef := sql.NullString{String: o.ClientRef, Valid: o.ClientRef != ""}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO orders (id, client_ref, payload, created_at) VALUES ($1,$2,$3,$4)",
		o.ID, clientRef, payload, o.CreatedAt)
	if err != nil {
		return order.Order{}, err
	}
	return o, nil
}

// Get retrieves an order by ID.
func (r *Repository) Get(ctx context.Context, id string) (order.Order, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, client_ref, payload, created_at FROM orders WHERE id=$1", id)
	return scanOrder(row)
}

// List fetches all orders, oldest first.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, client_ref, payload, created_at FROM orders ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *Repository) getByClientRef(ctx context.Context, ref string) (order.Order, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, client_ref, payload, created_at FROM orders WHERE client_ref=$1", ref)
	return scanOrder(row)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanOrder(row scannable) (order.Order, error) {
	var o order.Order
	var clientRef sql.NullString
	var payload []byte
	if err := row.Scan(&o.ID, &clientRef, &payload, &o.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return order.Order{}, order.ErrNotFound
		}
		return order.Order{}, err
	}
	o.ClientRef = clientRef.String
	if err := json.Unmarshal(payload, &o.Draft); err != nil {
		return order.Order{}, fmt.Errorf("decode draft: %w", err)
	}
	return o, nil
}
