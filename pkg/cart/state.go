// Package cart implements the persisted order-composition state machine: a
// pure reducer over cart state, wrapped in a container that persists after
// every dispatch.
package cart

import "fieldflow/pkg/catalog"

// Item is one cart line. LineTotal is always derived from quantity and
// price, never set independently.
type Item struct {
	Product   catalog.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal float64         `json:"lineTotal"`
}

// State is the full order-composition state. Items are unique by product ID
// and never carry a quantity below one; Total and ItemCount are aggregates
// recomputed on every transition.
type State struct {
	Items            []Item            `json:"items"`
	SelectedCustomer *catalog.Customer `json:"selectedCustomer"`
	Notes            string            `json:"notes"`
	Total            float64           `json:"total"`
	ItemCount        int               `json:"itemCount"`
}

// Empty returns the initial cart state.
func Empty() State {
	return State{Items: []Item{}}
}

// Action is a cart state transition. Implementations are the only way to
// mutate cart state.
type Action interface {
	action()
}

// AddItem adds Qty units of a product, merging with an existing line for the
// same product.
type AddItem struct {
	Product  catalog.Product
	Qty      int
	isAction
}

// RemoveItem deletes the line for a product.
type RemoveItem struct {
	ProductID string
	isAction
}

// UpdateQuantity sets the quantity for a product's line; a quantity of zero
// or less removes the line.
type UpdateQuantity struct {
	ProductID string
	Qty       int
	isAction
}

// SetCustomer selects the customer the order is authored for. A nil customer
// clears the selection.
type SetCustomer struct {
	Customer *catalog.Customer
	isAction
}

// SetNotes replaces the free-text order notes.
type SetNotes struct {
	Text string
	isAction
}

// Clear resets the cart to the empty state.
type Clear struct {
	isAction
}

// Load replaces the state wholesale; used once at startup to rehydrate from
// persisted storage.
type Load struct {
	State State
	isAction
}

type isAction struct{}

func (isAction) action() {}

// Apply is the reducer: it maps the current state and an action to the next
// state. It performs no I/O and never mutates its input.
func Apply(s State, a Action) State {
	switch a := a.(type) {
	case AddItem:
		qty := a.Qty
		if qty <= 0 {
			qty = 1
		}
		items := cloneItems(s.Items)
		merged := false
		for i := range items {
			if items[i].Product.ID == a.Product.ID {
				items[i].Quantity += qty
				items[i].LineTotal = float64(items[i].Quantity) * items[i].Product.Price
				merged = true
				break
			}
		}
		if !merged {
			items = append(items, Item{
				Product:   a.Product,
				Quantity:  qty,
				LineTotal: float64(qty) * a.Product.Price,
			})
		}
		s.Items = items
		return recompute(s)

	case RemoveItem:
		s.Items = deleteItem(cloneItems(s.Items), a.ProductID)
		return recompute(s)

	case UpdateQuantity:
		items := cloneItems(s.Items)
		if a.Qty <= 0 {
			s.Items = deleteItem(items, a.ProductID)
			return recompute(s)
		}
		for i := range items {
			if items[i].Product.ID == a.ProductID {
				items[i].Quantity = a.Qty
				items[i].LineTotal = float64(a.Qty) * items[i].Product.Price
				break
			}
		}
		s.Items = items
		return recompute(s)

	case SetCustomer:
		s.SelectedCustomer = a.Customer
		return s

	case SetNotes:
		s.Notes = a.Text
		return s

	case Clear:
		return Empty()

	case Load:
		return recompute(a.State)
	}
	return s
}

func recompute(s State) State {
	if s.Items == nil {
		s.Items = []Item{}
	}
	total := 0.0
	count := 0
	for _, it := range s.Items {
		total += it.LineTotal
		count += it.Quantity
	}
	s.Total = total
	s.ItemCount = count
	return s
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func deleteItem(items []Item, productID string) []Item {
	out := items[:0]
	for _, it := range items {
		if it.Product.ID != productID {
			out = append(out, it)
		}
	}
	return out
}
