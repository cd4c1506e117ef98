// Package realtime keeps a single live transport in step with the auth
// session and exposes the chat event surface on top of it.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hashicorp/go-hclog"

	"rentdirect/internal/hub"
	"rentdirect/internal/logging"
	"rentdirect/internal/metrics"
	"rentdirect/pkg/interfaces"
	"rentdirect/pkg/types"
)

// Options configures a Manager.
type Options struct {
	Policy     SubscriptionPolicy
	BufferSize int
	Logger     hclog.Logger
	Metrics    *metrics.Metrics
}

// Manager owns the realtime transport. Every transport it opens is tagged
// with a generation; callbacks from an older generation are ignored, so
// nothing from a torn-down connection reaches subscribers.
type Manager struct {
	transport interfaces.Transport
	hub       *hub.Hub
	policy    SubscriptionPolicy
	logger    hclog.Logger
	metrics   *metrics.Metrics

	// syncMu serializes reconciliation with the session.
	syncMu sync.Mutex
	source interfaces.SessionSource
	unbind func()

	mu       sync.Mutex
	conn     interfaces.TransportConn
	token    string
	state    State
	gen      uint64
	disposed bool
}

func NewManager(transport interfaces.Transport, opts Options) *Manager {
	logger := logging.OrNull(opts.Logger)
	return &Manager{
		transport: transport,
		hub:       hub.NewHub(nil, opts.BufferSize, logger.Named("hub")),
		policy:    opts.Policy,
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

// Bind starts event dispatch and follows src from now on, opening or
// closing the transport on every committed session change.
func (m *Manager) Bind(ctx context.Context, src interfaces.SessionSource) error {
	m.syncMu.Lock()
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		m.syncMu.Unlock()
		return ErrDisposed
	}
	if m.source != nil {
		m.mu.Unlock()
		m.syncMu.Unlock()
		return ErrAlreadyBound
	}
	m.mu.Unlock()

	if err := m.hub.Start(ctx); err != nil {
		m.syncMu.Unlock()
		return err
	}
	m.source = src
	m.syncMu.Unlock()

	unbind := src.Subscribe(func(types.SessionState) { m.reconcile() })
	m.syncMu.Lock()
	m.unbind = unbind
	m.syncMu.Unlock()

	m.reconcile()
	return nil
}

// reconcile compares the live transport with the latest session snapshot.
// It always reads a fresh snapshot, so late notifications converge on the
// current state.
func (m *Manager) reconcile() {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()
	if m.source == nil {
		return
	}

	snap := m.source.Snapshot()
	want := ""
	if snap.IsAuthenticated && snap.Token != "" {
		want = snap.Token
	}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	if m.conn != nil && m.token == want {
		m.mu.Unlock()
		return
	}
	old := m.teardownLocked()
	if want == "" {
		m.mu.Unlock()
		m.closeConn(old, "session ended")
		return
	}
	gen := m.advanceLocked()
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	m.closeConn(old, "token changed")

	conn, err := m.transport.Connect(want, m.handlerFor(gen))
	if err != nil {
		m.logger.Error("realtime connect failed", "error", err)
		m.mu.Lock()
		if m.gen == gen {
			m.setStateLocked(StateDisconnected)
		}
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	if m.gen != gen || m.disposed {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	m.token = want
	m.mu.Unlock()

	m.metrics.ConnectionOpened()
	m.logger.Debug("realtime connection opened", "generation", gen, "has_token", true)
}

// teardownLocked detaches the current connection and returns it for the
// caller to close outside the lock.
func (m *Manager) teardownLocked() interfaces.TransportConn {
	old := m.conn
	if old == nil && m.state == StateDisconnected {
		return nil
	}
	m.conn = nil
	m.token = ""
	m.advanceLocked()
	m.setStateLocked(StateDisconnected)
	if m.policy == SubscriptionsDropWhileDisconnected {
		m.hub.Registry().Clear()
	}
	return old
}

func (m *Manager) advanceLocked() uint64 {
	m.gen = m.hub.Advance()
	return m.gen
}

func (m *Manager) setStateLocked(s State) {
	m.state = s
	m.metrics.SetConnectionState(int(s))
}

func (m *Manager) closeConn(conn interfaces.TransportConn, reason string) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		m.logger.Warn("closing realtime connection", "reason", reason, "error", err)
	}
	m.metrics.ConnectionClosed()
	m.logger.Debug("realtime connection closed", "reason", reason)
}

func (m *Manager) handlerFor(gen uint64) interfaces.TransportHandler {
	return interfaces.TransportHandler{
		OnConnect: func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.gen != gen {
				return
			}
			m.setStateLocked(StateConnected)
			m.logger.Info("realtime connected")
		},
		OnDisconnect: func(err error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.gen != gen {
				return
			}
			m.setStateLocked(StateDisconnected)
			m.metrics.TransportDisconnected()
			m.logger.Warn("realtime disconnected", "error", err)
		},
		OnClosed: func(err error) {
			m.mu.Lock()
			if m.gen != gen {
				m.mu.Unlock()
				return
			}
			old := m.conn
			m.conn = nil
			m.token = ""
			m.advanceLocked()
			m.setStateLocked(StateDisconnected)
			if m.policy == SubscriptionsDropWhileDisconnected {
				m.hub.Registry().Clear()
			}
			m.mu.Unlock()

			m.logger.Error("realtime connection gave up", "error", err)
			if old != nil {
				_ = old.Close()
			}
		},
		OnEvent: func(event string, data json.RawMessage) {
			m.metrics.EventReceived(event)
			if err := m.hub.Publish(gen, event, data); err != nil {
				m.logger.Warn("dropping realtime event", "event", event, "error", err)
			}
		},
	}
}

// State reports the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the transport has acknowledged the connection.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// SubscriberCount returns the number of live subscriptions.
func (m *Manager) SubscriberCount() int {
	return m.hub.Registry().Stats().Subscribers
}

// Dispose stops following the session, closes the transport and stops
// dispatch. The manager cannot be reused. It may be called from inside a
// subscriber.
func (m *Manager) Dispose() {
	m.syncMu.Lock()
	unbind := m.unbind
	m.unbind = nil
	bound := m.source != nil
	m.source = nil

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		m.syncMu.Unlock()
		return
	}
	m.disposed = true
	old := m.teardownLocked()
	m.mu.Unlock()
	m.syncMu.Unlock()

	if unbind != nil {
		unbind()
	}
	m.closeConn(old, "disposed")
	if bound {
		_ = m.hub.Stop()
	}
	m.hub.Registry().Clear()
}
