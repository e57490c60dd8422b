// Package redis implements storage.Store on a Redis server, the durable
// device-local store used by the agent binary.
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"fieldflow/pkg/storage"
)

// Store persists key-value blobs in Redis.
type Store struct {
	client *redis.Client
}

// New creates a Redis-backed store.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get retrieves the value for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	return v, err
}

// Set stores value under key with no expiration; TTL handling belongs to
// the cache layer, not the store.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
