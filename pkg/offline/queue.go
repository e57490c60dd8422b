// Package offline holds the durable stores for work recorded while
// disconnected: a generic sync queue and the offline order store.
//
// Both persist the whole list on every mutation (read-modify-write, no
// partial writes) and treat an unparseable persisted blob as an empty list.
// That is a deliberate availability-over-durability tradeoff: pending work
// is lost but the app stays usable. The corrupt blob is moved to a
// "<key>:corrupt" quarantine key so it can be inspected later.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fieldflow/pkg/logger"
	"fieldflow/pkg/storage"
)

// Item is a generic unit of deferred work.
type Item struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Queue is a durable FIFO queue of pending mutations.
type Queue struct {
	mu    sync.Mutex
	store storage.Store
	key   string
}

// NewQueue creates the sync queue over the given store.
func NewQueue(store storage.Store) *Queue {
	return &Queue{store: store, key: storage.KeySyncQueue}
}

// Enqueue appends a payload to the queue and persists the whole list.
func (q *Queue) Enqueue(ctx context.Context, payload any) (Item, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Item{}, fmt.Errorf("encode payload: %w", err)
	}
	item := Item{ID: uuid.NewString(), Payload: data, Timestamp: time.Now()}

	q.mu.Lock()
	defer q.mu.Unlock()
	items := loadList[Item](ctx, q.store, q.key)
	items = append(items, item)
	if err := saveList(ctx, q.store, q.key, items); err != nil {
		return Item{}, err
	}
	return item, nil
}

// List returns all pending items in insertion order.
func (q *Queue) List(ctx context.Context) []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return loadList[Item](ctx, q.store, q.key)
}

// Remove deletes one item by ID and re-persists the list.
func (q *Queue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := loadList[Item](ctx, q.store, q.key)
	kept := items[:0]
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	return saveList(ctx, q.store, q.key, kept)
}

// Count returns the number of pending items.
func (q *Queue) Count(ctx context.Context) int {
	return len(q.List(ctx))
}

// NewProvisionalID returns a client-generated placeholder identifier:
// "offline_<unix-ms>_<suffix>". It is locally unique without coordination
// and must never be interpreted as a remote identifier.
func NewProvisionalID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("offline_%d_%s", time.Now().UnixMilli(), suffix)
}

// loadList reads and decodes a persisted list. Absence means empty; a decode
// failure quarantines the blob, clears the primary key, and also yields
// empty. Clearing the key keeps later reads from re-quarantining the same
// blob.
func loadList[T any](ctx context.Context, store storage.Store, key string) []T {
	blob, err := store.Get(ctx, key)
	if err != nil {
		return nil
	}
	var items []T
	if err := json.Unmarshal(blob, &items); err != nil {
		logger.Log.Warn("offline: corrupt persisted list, discarding",
			zap.String("key", key), zap.Error(err))
		quarantine(ctx, store, key, blob)
		if err := store.Remove(ctx, key); err != nil {
			logger.Log.Warn("offline: clearing corrupt list failed",
				zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	return items
}

func saveList[T any](ctx context.Context, store storage.Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	blob, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode list: %w", err)
	}
	return store.Set(ctx, key, blob)
}

func quarantine(ctx context.Context, store storage.Store, key string, blob []byte) {
	if err := store.Set(ctx, key+":corrupt", blob); err != nil {
		logger.Log.Warn("offline: quarantine failed", zap.String("key", key), zap.Error(err))
	}
}
