// Package sales orchestrates order submission over the cart, the remote
// order service, and the offline stores, and exposes the offline status
// surface the UI reads.
package sales

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"fieldflow/pkg/cart"
	"fieldflow/pkg/logger"
	"fieldflow/pkg/offline"
	"fieldflow/pkg/order"
	"fieldflow/pkg/reconcile"
)

// Validation failures reject a submission before any network or queue
// interaction.
var (
	ErrNoCustomer        = errors.New("no customer selected")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// SubmitResult reports how a submission ended: created remotely, or queued
// for reconciliation under a provisional identifier.
type SubmitResult struct {
	Queued        bool        `json:"queued"`
	Order         order.Order `json:"order,omitempty"`
	ProvisionalID string      `json:"provisionalId,omitempty"`
}

// Service ties the cart to the remote order service with an offline
// fallback.
type Service struct {
	cart       *cart.Cart
	creator    order.Creator
	orders     *offline.OrderStore
	queue      *offline.Queue
	monitor    *reconcile.Monitor
	reconciler *reconcile.Reconciler
	authoredBy string
	tracer     trace.Tracer
}

// NewService creates the sales service. authoredBy identifies the agent on
// every order this device produces.
func NewService(
	c *cart.Cart,
	creator order.Creator,
	orders *offline.OrderStore,
	queue *offline.Queue,
	monitor *reconcile.Monitor,
	reconciler *reconcile.Reconciler,
	authoredBy string,
) *Service {
	return &Service{
		cart:       c,
		creator:    creator,
		orders:     orders,
		queue:      queue,
		monitor:    monitor,
		reconciler: reconciler,
		authoredBy: authoredBy,
		tracer:     otel.Tracer("fieldflow/sales"),
	}
}

// Cart exposes the cart for UI mutation routes.
func (s *Service) Cart() *cart.Cart { return s.cart }

// Submit validates the cart and attempts the remote create. A create that
// fails because the service is unreachable is queued for reconciliation
// instead; the cart is cleared in both outcomes.
func (s *Service) Submit(ctx context.Context, paymentMethod string) (SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "sales.Submit")
	defer span.End()

	state := s.cart.State()
	if err := validate(state); err != nil {
		return SubmitResult{}, err
	}
	draft := buildDraft(state, s.authoredBy, paymentMethod)

	// One idempotency key per logical submission: the online attempt and any
	// later replay of the queued copy identify the same order.
	key := offline.NewProvisionalID()

	if s.monitor.IsOnline() {
		created, err := s.creator.Create(ctx, draft, key)
		if err == nil {
			s.cart.Dispatch(ctx, cart.Clear{})
			logger.Log.Info("order created", zap.String("orderId", created.ID))
			return SubmitResult{Order: created}, nil
		}
		if !errors.Is(err, order.ErrUnavailable) {
			return SubmitResult{}, err
		}
		logger.Log.Warn("order service unreachable, queueing", zap.Error(err))
	}

	pending, err := s.orders.AddWithID(ctx, key, draft)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("queue offline order: %w", err)
	}
	s.cart.Dispatch(ctx, cart.Clear{})
	logger.Log.Info("order queued for sync", zap.String("provisionalId", pending.ProvisionalID))
	return SubmitResult{Queued: true, ProvisionalID: pending.ProvisionalID}, nil
}

// Defer records an arbitrary mutation payload on the generic sync queue.
func (s *Service) Defer(ctx context.Context, payload any) (offline.Item, error) {
	return s.queue.Enqueue(ctx, payload)
}

// IsOnline reports the last known connectivity state.
func (s *Service) IsOnline() bool { return s.monitor.IsOnline() }

// HasOfflineData reports whether any deferred work awaits reconciliation.
func (s *Service) HasOfflineData(ctx context.Context) bool {
	return s.PendingSyncCount(ctx) > 0
}

// PendingSyncCount returns the total deferred work across the offline
// stores.
func (s *Service) PendingSyncCount(ctx context.Context) int {
	return s.orders.Count(ctx) + s.queue.Count(ctx)
}

// SyncData manually triggers a reconciliation pass.
func (s *Service) SyncData(ctx context.Context) (reconcile.Result, error) {
	return s.reconciler.Sync(ctx)
}

func validate(state cart.State) error {
	if state.SelectedCustomer == nil {
		return ErrNoCustomer
	}
	if len(state.Items) == 0 {
		return ErrEmptyCart
	}
	for _, it := range state.Items {
		if it.Quantity > it.Product.Stock {
			return fmt.Errorf("%w: %s", ErrInsufficientStock, it.Product.Name)
		}
	}
	return nil
}

func buildDraft(state cart.State, authoredBy, paymentMethod string) order.Draft {
	items := make([]order.Item, 0, len(state.Items))
	for _, it := range state.Items {
		items = append(items, order.Item{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Price:     it.Product.Price,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		})
	}
	return order.Draft{
		Customer:      *state.SelectedCustomer,
		Items:         items,
		AuthoredBy:    authoredBy,
		Notes:         state.Notes,
		PaymentMethod: paymentMethod,
		Total:         state.Total,
	}
}
