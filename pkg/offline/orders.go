package offline

import (
	"context"
	"sync"
	"time"

	"fieldflow/pkg/order"
	"fieldflow/pkg/storage"
)

// StatusPending is the only status an offline order ever carries: entries
// are deleted once the remote service confirms creation, never updated in
// place, because remote creation produces a new authoritative identifier.
const StatusPending = "pending"

// PendingOrder is an order-creation request recorded while disconnected.
type PendingOrder struct {
	ProvisionalID string      `json:"provisionalId"`
	Order         order.Draft `json:"orderData"`
	CreatedAt     time.Time   `json:"createdAt"`
	Status        string      `json:"status"`
	Offline       bool        `json:"offline"`
}

// OrderStore is the durable list of offline order-creation requests, drained
// by the reconciler in insertion order.
type OrderStore struct {
	mu    sync.Mutex
	store storage.Store
	key   string
}

// NewOrderStore creates the offline order store over the given store.
func NewOrderStore(store storage.Store) *OrderStore {
	return &OrderStore{store: store, key: storage.KeyOfflineOrders}
}

// Add records a draft for later replay and returns the stored entry with a
// fresh provisional identifier.
func (s *OrderStore) Add(ctx context.Context, draft order.Draft) (PendingOrder, error) {
	return s.AddWithID(ctx, NewProvisionalID(), draft)
}

// AddWithID records a draft under a caller-supplied provisional identifier.
// Used when the failed online attempt already carried an idempotency key
// that the replay must reuse.
func (s *OrderStore) AddWithID(ctx context.Context, provisionalID string, draft order.Draft) (PendingOrder, error) {
	p := PendingOrder{
		ProvisionalID: provisionalID,
		Order:         draft,
		CreatedAt:     time.Now(),
		Status:        StatusPending,
		Offline:       true,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := loadList[PendingOrder](ctx, s.store, s.key)
	orders = append(orders, p)
	if err := saveList(ctx, s.store, s.key, orders); err != nil {
		return PendingOrder{}, err
	}
	return p, nil
}

// List returns all pending orders in insertion order.
func (s *OrderStore) List(ctx context.Context) []PendingOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadList[PendingOrder](ctx, s.store, s.key)
}

// Remove deletes one pending order by provisional ID and re-persists the
// list.
func (s *OrderStore) Remove(ctx context.Context, provisionalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := loadList[PendingOrder](ctx, s.store, s.key)
	kept := orders[:0]
	for _, o := range orders {
		if o.ProvisionalID != provisionalID {
			kept = append(kept, o)
		}
	}
	return saveList(ctx, s.store, s.key, kept)
}

// Count returns the number of pending orders.
func (s *OrderStore) Count(ctx context.Context) int {
	return len(s.List(ctx))
}
