// Package storage defines the key-value persistence port shared by the
// cache, the sync queue, the offline order store, and the cart.
package storage

import (
	"context"
	"errors"
)

// Fixed keys under which the offline core persists its state. Namespacing
// keeps unrelated data in the same store from colliding.
const (
	KeyCart          = "fieldflow:cart"
	KeySyncQueue     = "fieldflow:sync_queue"
	KeyOfflineOrders = "fieldflow:offline_orders"
	CachePrefix      = "fieldflow:cache:"
)

// Store is the persistence port. Values are opaque byte blobs; every write
// replaces the whole value for its key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// ErrNotFound indicates the requested key does not exist.
var ErrNotFound = errors.New("key not found")
