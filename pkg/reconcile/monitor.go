package reconcile

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"fieldflow/pkg/logger"
)

// Monitor defaults. The debounce keeps a flapping link from firing redundant
// passes; the poll is a low-frequency safety net against missed transition
// signals.
const (
	DefaultDebounce     = time.Second
	DefaultPollInterval = time.Minute
)

// PendingCounter reports how much deferred work a store holds.
type PendingCounter interface {
	Count(ctx context.Context) int
}

// Monitor tracks environment-level connectivity transitions and triggers
// the reconciler when the link comes back. It does not probe the network
// itself; it strictly reacts to delivered signals plus the periodic poll.
type Monitor struct {
	reconciler *Reconciler
	counters   []PendingCounter
	debounce   time.Duration
	poll       time.Duration

	mu           sync.Mutex
	online       bool
	lastOnline   time.Time
	offlineSince time.Time
	stopped      bool

	lifecycle context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewMonitor creates a connectivity monitor and makes it the reconciler's
// connectivity authority. The monitor starts in the online state; counters
// are the stores whose pending work a reconnect should flush.
func NewMonitor(r *Reconciler, counters []PendingCounter, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		reconciler: r,
		counters:   counters,
		debounce:   DefaultDebounce,
		poll:       DefaultPollInterval,
		online:     true,
		lastOnline: time.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lifecycle, m.cancel = context.WithCancel(context.Background())
	r.setConnectivity(m.IsOnline)
	return m
}

// begin registers a background goroutine with the monitor lifecycle. It
// refuses once Stop has run, so a late signal cannot race Stop's wait.
func (m *Monitor) begin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	m.wg.Add(1)
	return true
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithDebounce overrides the reconnect debounce delay.
func WithDebounce(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.debounce = d }
}

// WithPollInterval overrides the periodic safety-net poll interval.
func WithPollInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.poll = d }
}

// IsOnline reports the last known connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// LastOnline returns when the link was last known up; zero if never.
func (m *Monitor) LastOnline() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOnline
}

// OfflineSince returns when the current outage began; zero while online.
func (m *Monitor) OfflineSince() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offlineSince
}

// SetOnline records a "became reachable" signal. After the debounce delay
// the reconciler runs if there is pending work.
func (m *Monitor) SetOnline(ctx context.Context) {
	m.mu.Lock()
	m.online = true
	m.lastOnline = time.Now()
	m.offlineSince = time.Time{}
	m.mu.Unlock()

	logger.Log.Info("connectivity: online")
	if !m.begin() {
		return
	}
	go func() {
		defer m.wg.Done()
		timer := time.NewTimer(m.debounce)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		case <-m.lifecycle.Done():
			return
		}
		m.syncIfPending(ctx)
	}()
}

// SetOffline records a "became unreachable" signal.
func (m *Monitor) SetOffline() {
	m.mu.Lock()
	wasOnline := m.online
	m.online = false
	if wasOnline {
		m.offlineSince = time.Now()
	}
	m.mu.Unlock()
	if wasOnline {
		logger.Log.Info("connectivity: offline")
	}
}

// PendingCount returns the total deferred work across all tracked stores.
func (m *Monitor) PendingCount(ctx context.Context) int {
	total := 0
	for _, c := range m.counters {
		total += c.Count(ctx)
	}
	return total
}

// Start launches the periodic poll. Call Stop to tear it down.
func (m *Monitor) Start(ctx context.Context) {
	if !m.begin() {
		return
	}
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if m.IsOnline() {
					m.syncIfPending(ctx)
				}
			case <-ctx.Done():
				logger.Log.Debug("connectivity: poll stopped")
				return
			case <-m.lifecycle.Done():
				logger.Log.Debug("connectivity: poll stopped")
				return
			}
		}
	}()
}

// Stop ends the monitor lifecycle and waits for in-flight goroutines.
// Signals delivered afterwards still update the connectivity flag but no
// longer trigger syncs.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
}

func (m *Monitor) syncIfPending(ctx context.Context) {
	pending := m.PendingCount(ctx)
	if pending == 0 {
		return
	}
	logger.Log.Info("connectivity: pending work detected", zap.Int("pending", pending))
	if _, err := m.reconciler.Sync(ctx); err != nil && err != ErrSyncInProgress {
		logger.Log.Warn("connectivity: sync failed", zap.Error(err))
	}
}
