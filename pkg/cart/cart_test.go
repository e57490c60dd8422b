package cart

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldflow/pkg/storage"
	"fieldflow/pkg/storage/memory"
)

func TestCartPersistsAfterEveryDispatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c := New(ctx, store)

	c.Dispatch(ctx, AddItem{Product: productA, Qty: 2})

	blob, err := store.Get(ctx, storage.KeyCart)
	require.NoError(t, err)
	var persisted State
	require.NoError(t, json.Unmarshal(blob, &persisted))
	assert.Equal(t, 20.0, persisted.Total)
	assert.Equal(t, 2, persisted.ItemCount)
}

func TestCartRehydratesPersistedState(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	first := New(ctx, store)
	first.Dispatch(ctx, AddItem{Product: productA, Qty: 4})
	want := first.State()

	// Simulate a process restart over the same storage.
	second := New(ctx, store)
	assert.Equal(t, want, second.State())
	assert.Equal(t, 40.0, second.State().Total)
}

func TestCartCorruptStateFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, storage.KeyCart, []byte("{not json")))

	c := New(ctx, store)
	assert.Equal(t, Empty(), c.State())
}

func TestCartPersistFailureKeepsSessionState(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.FailWrites = true

	c := New(ctx, store)
	state := c.Dispatch(ctx, AddItem{Product: productA, Qty: 1})

	// The write failed silently; the in-memory state still advanced.
	assert.Equal(t, 1, state.ItemCount)
	assert.Equal(t, 1, c.State().ItemCount)
}

func TestCartAccessors(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, memory.New())
	c.Dispatch(ctx, AddItem{Product: productA, Qty: 3})

	assert.Equal(t, 3, c.ItemQuantity(productA.ID))
	assert.True(t, c.HasItem(productA.ID))
	assert.Equal(t, 0, c.ItemQuantity(productB.ID))
	assert.False(t, c.HasItem(productB.ID))
}

func TestCartStateReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, memory.New())
	c.Dispatch(ctx, AddItem{Product: productA, Qty: 1})

	snap := c.State()
	snap.Items[0].Quantity = 99

	assert.Equal(t, 1, c.ItemQuantity(productA.ID))
}
