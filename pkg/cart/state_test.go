package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldflow/pkg/catalog"
)

var (
	productA = catalog.Product{ID: "p-1", Name: "Beans", Price: 10, Stock: 50}
	productB = catalog.Product{ID: "p-2", Name: "Mug", Price: 4.5, Stock: 20}
)

// checkInvariants verifies the aggregate invariants that must hold after
// every transition.
func checkInvariants(t *testing.T, s State) {
	t.Helper()
	total := 0.0
	count := 0
	for _, it := range s.Items {
		require.Greater(t, it.Quantity, 0, "no zero-quantity items may exist")
		assert.Equal(t, float64(it.Quantity)*it.Product.Price, it.LineTotal)
		total += it.LineTotal
		count += it.Quantity
	}
	assert.Equal(t, total, s.Total)
	assert.Equal(t, count, s.ItemCount)
}

func TestApplyAddItem(t *testing.T) {
	t.Run("appends new line", func(t *testing.T) {
		s := Apply(Empty(), AddItem{Product: productA, Qty: 2})
		require.Len(t, s.Items, 1)
		assert.Equal(t, 2, s.Items[0].Quantity)
		assert.Equal(t, 20.0, s.Items[0].LineTotal)
		checkInvariants(t, s)
	})

	t.Run("merges repeated product into one line", func(t *testing.T) {
		s := Apply(Empty(), AddItem{Product: productA, Qty: 2})
		s = Apply(s, AddItem{Product: productA, Qty: 3})
		require.Len(t, s.Items, 1)
		assert.Equal(t, 5, s.Items[0].Quantity)
		checkInvariants(t, s)
	})

	t.Run("defaults quantity to one", func(t *testing.T) {
		s := Apply(Empty(), AddItem{Product: productB})
		require.Len(t, s.Items, 1)
		assert.Equal(t, 1, s.Items[0].Quantity)
		checkInvariants(t, s)
	})
}

func TestApplyRemoveItem(t *testing.T) {
	s := Apply(Empty(), AddItem{Product: productA, Qty: 1})
	s = Apply(s, AddItem{Product: productB, Qty: 2})
	s = Apply(s, RemoveItem{ProductID: productA.ID})

	require.Len(t, s.Items, 1)
	assert.Equal(t, productB.ID, s.Items[0].Product.ID)
	checkInvariants(t, s)
}

func TestApplyUpdateQuantity(t *testing.T) {
	t.Run("sets quantity and recomputes totals", func(t *testing.T) {
		s := Apply(Empty(), AddItem{Product: productA, Qty: 1})
		s = Apply(s, UpdateQuantity{ProductID: productA.ID, Qty: 4})
		require.Len(t, s.Items, 1)
		assert.Equal(t, 4, s.Items[0].Quantity)
		assert.Equal(t, 40.0, s.Total)
		checkInvariants(t, s)
	})

	t.Run("zero removes the line", func(t *testing.T) {
		s := Apply(Empty(), AddItem{Product: productA, Qty: 3})
		s = Apply(s, UpdateQuantity{ProductID: productA.ID, Qty: 0})
		assert.Empty(t, s.Items)
		checkInvariants(t, s)
	})

	t.Run("negative removes the line", func(t *testing.T) {
		s := Apply(Empty(), AddItem{Product: productA, Qty: 3})
		s = Apply(s, UpdateQuantity{ProductID: productA.ID, Qty: -1})
		assert.Empty(t, s.Items)
		checkInvariants(t, s)
	})
}

func TestApplyCustomerAndNotes(t *testing.T) {
	customer := catalog.Customer{ID: "c-1", Name: "Cafe"}

	s := Apply(Empty(), SetCustomer{Customer: &customer})
	require.NotNil(t, s.SelectedCustomer)
	assert.Equal(t, "c-1", s.SelectedCustomer.ID)

	s = Apply(s, SetNotes{Text: "deliver before noon"})
	assert.Equal(t, "deliver before noon", s.Notes)

	s = Apply(s, SetCustomer{Customer: nil})
	assert.Nil(t, s.SelectedCustomer)
}

func TestApplyClear(t *testing.T) {
	customer := catalog.Customer{ID: "c-1", Name: "Cafe"}
	s := Apply(Empty(), AddItem{Product: productA, Qty: 2})
	s = Apply(s, SetCustomer{Customer: &customer})
	s = Apply(s, SetNotes{Text: "x"})

	s = Apply(s, Clear{})
	assert.Equal(t, Empty(), s)
}

func TestApplyLoadRecomputesAggregates(t *testing.T) {
	// Persisted aggregates are not trusted; Load recomputes them.
	persisted := State{
		Items: []Item{{Product: productA, Quantity: 4, LineTotal: 40}},
		Total: 1, ItemCount: 1,
	}
	s := Apply(Empty(), Load{State: persisted})
	assert.Equal(t, 40.0, s.Total)
	assert.Equal(t, 4, s.ItemCount)
	checkInvariants(t, s)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	s1 := Apply(Empty(), AddItem{Product: productA, Qty: 1})
	s2 := Apply(s1, AddItem{Product: productA, Qty: 5})

	assert.Equal(t, 1, s1.Items[0].Quantity)
	assert.Equal(t, 6, s2.Items[0].Quantity)
}

func TestInvariantsHoldAcrossSequences(t *testing.T) {
	actions := []Action{
		AddItem{Product: productA, Qty: 2},
		AddItem{Product: productB, Qty: 1},
		UpdateQuantity{ProductID: productB.ID, Qty: 7},
		AddItem{Product: productA, Qty: 3},
		RemoveItem{ProductID: productB.ID},
		UpdateQuantity{ProductID: productA.ID, Qty: -2},
		AddItem{Product: productB, Qty: 4},
	}
	s := Empty()
	for _, a := range actions {
		s = Apply(s, a)
		checkInvariants(t, s)
	}
	require.Len(t, s.Items, 1)
	assert.Equal(t, productB.ID, s.Items[0].Product.ID)
	assert.Equal(t, 4, s.ItemCount)
}
