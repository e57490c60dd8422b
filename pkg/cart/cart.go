package cart

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"fieldflow/pkg/logger"
	"fieldflow/pkg/storage"
)

// Cart owns the live cart state and persists it after every dispatch. The
// reducer stays pure; all I/O lives here.
type Cart struct {
	mu    sync.Mutex
	store storage.Store
	state State
}

// New creates a cart rehydrated from persisted storage. A missing or
// unreadable persisted state falls back to the empty cart.
func New(ctx context.Context, store storage.Store) *Cart {
	c := &Cart{store: store, state: Empty()}
	blob, err := store.Get(ctx, storage.KeyCart)
	if err != nil {
		return c
	}
	var persisted State
	if err := json.Unmarshal(blob, &persisted); err != nil {
		logger.Log.Warn("cart: corrupt persisted state, starting empty", zap.Error(err))
		return c
	}
	c.state = Apply(c.state, Load{State: persisted})
	return c
}

// Dispatch applies an action and persists the resulting state. Persistence
// failures are logged and swallowed; the in-memory state is authoritative
// for the session.
func (c *Cart) Dispatch(ctx context.Context, a Action) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Apply(c.state, a)
	c.persist(ctx)
	return c.state
}

func (c *Cart) persist(ctx context.Context) {
	blob, err := json.Marshal(c.state)
	if err != nil {
		logger.Log.Warn("cart: encode state", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, storage.KeyCart, blob); err != nil {
		logger.Log.Warn("cart: persist state", zap.Error(err))
	}
}

// State returns a snapshot of the current cart state.
func (c *Cart) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Items = cloneItems(c.state.Items)
	return s
}

// ItemQuantity returns the quantity in the cart for a product, zero when
// absent.
func (c *Cart) ItemQuantity(productID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.state.Items {
		if it.Product.ID == productID {
			return it.Quantity
		}
	}
	return 0
}

// HasItem reports whether the cart contains a line for the product.
func (c *Cart) HasItem(productID string) bool {
	return c.ItemQuantity(productID) > 0
}
