package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldflow/pkg/catalog"
	"fieldflow/pkg/order"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo := New()
	o := order.Order{
		ID:        "1",
		Draft:     order.Draft{Customer: catalog.Customer{ID: "c-1"}, Total: 20},
		CreatedAt: time.Now(),
	}

	created, err := repo.Create(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, "1", created.ID)

	got, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Draft.Total)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repo.Get(ctx, "2")
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestRepositoryIdempotentByClientRef(t *testing.T) {
	ctx := context.Background()
	repo := New()

	first, err := repo.Create(ctx, order.Order{ID: "1", ClientRef: "offline_1_abc"})
	require.NoError(t, err)

	// A replay with the same client reference returns the original order.
	replay, err := repo.Create(ctx, order.Order{ID: "2", ClientRef: "offline_1_abc"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
