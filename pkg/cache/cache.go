// Package cache provides a TTL read-through cache over the storage port.
//
// Caching is best-effort: storage and codec failures degrade to a miss and
// are never surfaced to the caller.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"fieldflow/pkg/logger"
	"fieldflow/pkg/storage"
)

// indexKey holds the set of live cache keys so the sweeper can scan them
// without the store having to support enumeration.
const indexKey = storage.CachePrefix + "__keys"

// entry is the persisted envelope around a cached value.
type entry struct {
	Data     json.RawMessage `json:"data"`
	StoredAt time.Time       `json:"storedAt"`
	TTL      time.Duration   `json:"ttl"`
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.StoredAt) > e.TTL
}

// Cache stores JSON-encoded values with per-entry TTLs.
type Cache struct {
	store storage.Store
	now   func() time.Time
}

// New creates a cache over the given store.
func New(store storage.Store) *Cache {
	return &Cache{store: store, now: time.Now}
}

// Put stores value under key with the given TTL, overwriting any existing
// entry. Failures are logged and swallowed.
func (c *Cache) Put(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Log.Warn("cache put: encode value", zap.String("key", key), zap.Error(err))
		return
	}
	blob, err := json.Marshal(entry{Data: data, StoredAt: c.now(), TTL: ttl})
	if err != nil {
		logger.Log.Warn("cache put: encode entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, storage.CachePrefix+key, blob); err != nil {
		logger.Log.Warn("cache put: write", zap.String("key", key), zap.Error(err))
		return
	}
	c.indexAdd(ctx, key)
}

// Get loads the value for key into out. It returns false when the key is
// absent, expired, or unreadable; expired and corrupt entries are evicted as
// a side effect.
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	blob, err := c.store.Get(ctx, storage.CachePrefix+key)
	if err != nil {
		return false
	}
	var e entry
	if err := json.Unmarshal(blob, &e); err != nil {
		logger.Log.Warn("cache get: corrupt entry", zap.String("key", key), zap.Error(err))
		c.evict(ctx, key)
		return false
	}
	if e.expired(c.now()) {
		c.evict(ctx, key)
		return false
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		logger.Log.Warn("cache get: decode value", zap.String("key", key), zap.Error(err))
		c.evict(ctx, key)
		return false
	}
	return true
}

// Remove evicts key unconditionally.
func (c *Cache) Remove(ctx context.Context, key string) {
	c.evict(ctx, key)
}

// RemoveExpired scans all indexed entries and evicts the expired ones,
// returning how many were removed. Used by the periodic sweeper.
func (c *Cache) RemoveExpired(ctx context.Context) int {
	removed := 0
	for _, key := range c.indexList(ctx) {
		blob, err := c.store.Get(ctx, storage.CachePrefix+key)
		if err != nil {
			c.indexRemove(ctx, key)
			continue
		}
		var e entry
		if err := json.Unmarshal(blob, &e); err != nil || e.expired(c.now()) {
			c.evict(ctx, key)
			removed++
		}
	}
	return removed
}

func (c *Cache) evict(ctx context.Context, key string) {
	if err := c.store.Remove(ctx, storage.CachePrefix+key); err != nil {
		logger.Log.Warn("cache evict", zap.String("key", key), zap.Error(err))
	}
	c.indexRemove(ctx, key)
}

func (c *Cache) indexList(ctx context.Context) []string {
	blob, err := c.store.Get(ctx, indexKey)
	if err != nil {
		return nil
	}
	var keys []string
	if err := json.Unmarshal(blob, &keys); err != nil {
		return nil
	}
	return keys
}

func (c *Cache) indexAdd(ctx context.Context, key string) {
	keys := c.indexList(ctx)
	for _, k := range keys {
		if k == key {
			return
		}
	}
	c.indexWrite(ctx, append(keys, key))
}

func (c *Cache) indexRemove(ctx context.Context, key string) {
	keys := c.indexList(ctx)
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	if len(out) != len(keys) {
		c.indexWrite(ctx, out)
	}
}

func (c *Cache) indexWrite(ctx context.Context, keys []string) {
	blob, err := json.Marshal(keys)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, indexKey, blob); err != nil {
		logger.Log.Warn("cache index write", zap.Error(err))
	}
}
