package offline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldflow/pkg/catalog"
	"fieldflow/pkg/order"
	"fieldflow/pkg/storage"
	"fieldflow/pkg/storage/memory"
)

func testDraft(customer string) order.Draft {
	return order.Draft{
		Customer: catalog.Customer{ID: customer, Name: customer},
		Items: []order.Item{
			{ProductID: "p-1", Name: "Beans", Price: 10, Quantity: 2, LineTotal: 20},
		},
		AuthoredBy: "agent-1",
		Total:      20,
	}
}

func TestOrderStoreAdd(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore(memory.New())

	p, err := s.Add(ctx, testDraft("c-1"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p.ProvisionalID, "offline_"))
	assert.Equal(t, StatusPending, p.Status)
	assert.True(t, p.Offline)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, 1, s.Count(ctx))
}

func TestOrderStoreAddWithIDPreservesKey(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore(memory.New())

	p, err := s.AddWithID(ctx, "offline_123_abcd1234", testDraft("c-1"))
	require.NoError(t, err)
	assert.Equal(t, "offline_123_abcd1234", p.ProvisionalID)
}

func TestOrderStoreListInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore(memory.New())

	a, _ := s.Add(ctx, testDraft("c-1"))
	b, _ := s.Add(ctx, testDraft("c-2"))
	c, _ := s.Add(ctx, testDraft("c-3"))

	got := s.List(ctx)
	require.Len(t, got, 3)
	assert.Equal(t, []string{a.ProvisionalID, b.ProvisionalID, c.ProvisionalID},
		[]string{got[0].ProvisionalID, got[1].ProvisionalID, got[2].ProvisionalID})
}

func TestOrderStoreRemove(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore(memory.New())

	a, _ := s.Add(ctx, testDraft("c-1"))
	b, _ := s.Add(ctx, testDraft("c-2"))

	require.NoError(t, s.Remove(ctx, a.ProvisionalID))

	got := s.List(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, b.ProvisionalID, got[0].ProvisionalID)
}

func TestOrderStoreSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	s := NewOrderStore(store)
	p, _ := s.Add(ctx, testDraft("c-1"))

	again := NewOrderStore(store)
	got := again.List(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, p.ProvisionalID, got[0].ProvisionalID)
	assert.Equal(t, "c-1", got[0].Order.Customer.ID)
}

func TestOrderStoreCorruptionTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, storage.KeyOfflineOrders, []byte("{{{")))

	s := NewOrderStore(store)
	assert.Empty(t, s.List(ctx))
	assert.Equal(t, 0, s.Count(ctx))
}
