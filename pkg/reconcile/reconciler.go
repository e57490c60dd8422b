// Package reconcile drains offline work against the remote order service
// once connectivity returns, and hosts the connectivity monitor that decides
// when that happens.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"fieldflow/pkg/logger"
	"fieldflow/pkg/offline"
	"fieldflow/pkg/order"
)

// ErrSyncInProgress is returned when a sync is requested while another pass
// is already running.
var ErrSyncInProgress = errors.New("sync already in progress")

// DefaultItemTimeout bounds each remote create so one hung call cannot stall
// a pass indefinitely.
const DefaultItemTimeout = 15 * time.Second

// EventType classifies reconciliation notifications.
type EventType string

const (
	// EventSucceeded means a pending order was created remotely and removed
	// from the store.
	EventSucceeded EventType = "succeeded"
	// EventFailed means the remote create failed; the item stays queued for
	// the next pass.
	EventFailed EventType = "failed"
)

// Event is a per-item reconciliation notification.
type Event struct {
	Type          EventType
	ProvisionalID string
	OrderID       string
	Err           error
}

// Listener receives reconciliation events. It is called synchronously from
// the sync pass.
type Listener func(Event)

// Result summarizes one reconciliation pass.
type Result struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Reconciler replays pending offline orders against the remote creator. It
// is a two-state machine, idle or syncing; the guard in Sync ensures two
// passes never run concurrently.
type Reconciler struct {
	store       *offline.OrderStore
	creator     order.Creator
	listener    Listener
	itemTimeout time.Duration
	tracer      trace.Tracer

	mu      sync.Mutex
	syncing bool
	online  func() bool
}

// NewReconciler creates a reconciler. Until a Monitor is attached the
// reconciler assumes connectivity, so manual syncs still work in setups
// without a monitor.
func NewReconciler(store *offline.OrderStore, creator order.Creator, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:       store,
		creator:     creator,
		itemTimeout: DefaultItemTimeout,
		tracer:      otel.Tracer("fieldflow/reconcile"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithListener registers a notification listener.
func WithListener(l Listener) ReconcilerOption {
	return func(r *Reconciler) { r.listener = l }
}

// WithItemTimeout overrides the per-item remote call timeout.
func WithItemTimeout(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) { r.itemTimeout = d }
}

func (r *Reconciler) setConnectivity(online func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online = online
}

// Syncing reports whether a pass is currently running.
func (r *Reconciler) Syncing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.syncing
}

// Sync runs one reconciliation pass: pending orders are replayed in
// insertion order, successes are removed from the store, failures stay for
// the next pass. One item's failure never aborts the remainder.
//
// Sync is a no-op while offline and returns ErrSyncInProgress when a pass is
// already running.
func (r *Reconciler) Sync(ctx context.Context) (Result, error) {
	r.mu.Lock()
	if r.online != nil && !r.online() {
		r.mu.Unlock()
		logger.Log.Debug("reconcile: skipped, offline")
		return Result{}, nil
	}
	if r.syncing {
		r.mu.Unlock()
		return Result{}, ErrSyncInProgress
	}
	r.syncing = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.syncing = false
		r.mu.Unlock()
	}()

	ctx, span := r.tracer.Start(ctx, "reconcile.Sync")
	defer span.End()

	pending := r.store.List(ctx)
	var res Result
	for _, p := range pending {
		res.Attempted++
		created, err := r.createOne(ctx, p)
		if err != nil {
			res.Failed++
			logger.Log.Warn("reconcile: replay failed",
				zap.String("provisionalId", p.ProvisionalID), zap.Error(err))
			r.emit(Event{Type: EventFailed, ProvisionalID: p.ProvisionalID, Err: err})
			continue
		}
		if err := r.store.Remove(ctx, p.ProvisionalID); err != nil {
			// The order exists remotely; the idempotency key keeps the
			// inevitable replay from duplicating it.
			res.Failed++
			logger.Log.Warn("reconcile: remove after create failed",
				zap.String("provisionalId", p.ProvisionalID), zap.Error(err))
			r.emit(Event{Type: EventFailed, ProvisionalID: p.ProvisionalID, Err: err})
			continue
		}
		res.Succeeded++
		logger.Log.Info("reconcile: order created",
			zap.String("provisionalId", p.ProvisionalID), zap.String("orderId", created.ID))
		r.emit(Event{Type: EventSucceeded, ProvisionalID: p.ProvisionalID, OrderID: created.ID})
	}
	return res, nil
}

func (r *Reconciler) createOne(ctx context.Context, p offline.PendingOrder) (order.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, r.itemTimeout)
	defer cancel()
	ctx, span := r.tracer.Start(ctx, "reconcile.createOrder")
	defer span.End()
	return r.creator.Create(ctx, p.Order, p.ProvisionalID)
}

func (r *Reconciler) emit(e Event) {
	if r.listener != nil {
		r.listener(e)
	}
}
