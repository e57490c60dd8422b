// Package order defines the order domain and the contract the offline core
// requires from the remote order service.
package order

import (
	"context"
	"errors"
	"time"

	"fieldflow/pkg/catalog"
)

// Item is one order line.
type Item struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
}

// Draft is an order as authored on the device, before the remote service has
// assigned it an identifier.
type Draft struct {
	Customer      catalog.Customer `json:"customer"`
	Items         []Item           `json:"items"`
	AuthoredBy    string           `json:"authoredBy"`
	Notes         string           `json:"notes,omitempty"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
	Total         float64          `json:"total"`
}

// Order is a remotely created order carrying the authoritative identifier.
type Order struct {
	ID        string    `json:"id"`
	ClientRef string    `json:"clientRef,omitempty"`
	Draft     Draft     `json:"draft"`
	CreatedAt time.Time `json:"createdAt"`
}

// Creator is the remote create operation the agent and the reconciler call.
// idempotencyKey is the client-side reference for the attempt; replaying a
// create with the same key must not produce a second order.
type Creator interface {
	Create(ctx context.Context, draft Draft, idempotencyKey string) (Order, error)
}

// Repository defines behavior for persisting orders on the service side.
type Repository interface {
	Create(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context) ([]Order, error)
}

// ErrNotFound indicates the requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrUnavailable marks connectivity-class failures: the create never reached
// the remote service and is safe to queue for replay.
var ErrUnavailable = errors.New("order service unavailable")
