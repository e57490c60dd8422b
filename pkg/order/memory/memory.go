// Package memory implements an in-memory order repository.
package memory

import (
	"context"
	"sync"

	"fieldflow/pkg/order"
)

// Repository provides an in-memory implementation of order.Repository.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]order.Order
	byRef  map[string]string
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{
		orders: make(map[string]order.Order),
		byRef:  make(map[string]string),
	}
}

// Create stores the order, returning the existing one when the client_ref
// has been seen before.
func (r *Repository) Create(ctx context.Context, o order.Order) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ClientRef != "" {
		if id, ok := r.byRef[o.ClientRef]; ok {
			return r.orders[id], nil
		}
		r.byRef[o.ClientRef] = o.ID
	}
	r.orders[o.ID] = o
	return o, nil
}

// Get retrieves an order by ID.
func (r *Repository) Get(ctx context.Context, id string) (order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}

// List returns all orders.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]order.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, nil
}
