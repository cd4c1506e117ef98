// Package hub fans inbound realtime events out to subscribers on a single
// dispatch goroutine.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"

	"rentdirect/internal/logging"
)

// Envelope is one queued event tagged with the connection generation that
// produced it.
type Envelope struct {
	Generation uint64
	Event      string
	Data       json.RawMessage
}

// Hub dispatches events to the registry's subscribers. Events from an old
// generation are dropped, both at publish time and again before every
// subscriber call, so nothing from a torn-down connection is delivered.
type Hub struct {
	events   chan Envelope
	shutdown chan struct{}
	done     chan struct{}

	registry   *Registry
	generation atomic.Uint64
	logger     hclog.Logger

	// advanced is closed and replaced on every Advance.
	genMu    sync.Mutex
	advanced chan struct{}
	inCall   atomic.Bool

	running bool
	mu      sync.RWMutex
}

// NewHub creates a stopped hub. bufferSize bounds the queue; 0 means 1000.
func NewHub(registry *Registry, bufferSize int, logger hclog.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Hub{
		events:   make(chan Envelope, bufferSize),
		advanced: make(chan struct{}),
		registry: registry,
		logger:   logging.OrNull(logger),
	}
}

// Start begins dispatching.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.shutdown = make(chan struct{})
	h.done = make(chan struct{})

	h.logger.Debug("starting event hub")
	go h.run(ctx, h.shutdown, h.done)
	return nil
}

// Stop ends dispatching and discards queued events. It waits for the loop
// to exit unless a subscriber is running, which makes it safe to call from
// inside one; the loop then exits when that subscriber returns. No further
// subscriber starts after Stop.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return ErrHubNotRunning
	}
	h.running = false
	close(h.shutdown)
	done := h.done
	h.mu.Unlock()

	if h.inCall.Load() {
		h.logger.Debug("event hub stopping from subscriber")
		return nil
	}
	<-done
	h.logger.Debug("event hub stopped")
	return nil
}

// Registry returns the subscriber registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Subscribe registers fn for event.
func (h *Hub) Subscribe(event string, fn Handler) (string, error) {
	return h.registry.Add(event, fn)
}

// Unsubscribe removes one subscription.
func (h *Hub) Unsubscribe(id string) bool {
	return h.registry.Remove(id)
}

// Generation returns the current connection generation.
func (h *Hub) Generation() uint64 {
	return h.generation.Load()
}

// Advance starts a new generation and returns it. Everything published
// under older generations is dropped from then on.
func (h *Hub) Advance() uint64 {
	h.genMu.Lock()
	defer h.genMu.Unlock()
	g := h.generation.Add(1)
	close(h.advanced)
	h.advanced = make(chan struct{})
	return g
}

// Publish queues an event, blocking while the queue is full so a slow
// subscriber slows the producer instead of losing events. It returns nil
// without queuing once generation is stale, including when the generation
// moves on while waiting, and ErrHubNotRunning if the hub stops first.
func (h *Hub) Publish(generation uint64, event string, data json.RawMessage) error {
	h.mu.RLock()
	running, shutdown, done := h.running, h.shutdown, h.done
	h.mu.RUnlock()
	if !running {
		return ErrHubNotRunning
	}

	h.genMu.Lock()
	advanced := h.advanced
	current := h.generation.Load()
	h.genMu.Unlock()
	if generation != current {
		return nil
	}

	select {
	case h.events <- Envelope{Generation: generation, Event: event, Data: data}:
		return nil
	case <-advanced:
		return nil
	case <-shutdown:
		return ErrHubNotRunning
	case <-done:
		return ErrHubNotRunning
	}
}

func (h *Hub) run(ctx context.Context, shutdown, done chan struct{}) {
	defer close(done)

	for {
		select {
		case env := <-h.events:
			h.dispatch(env)
		case <-shutdown:
			return
		case <-ctx.Done():
			h.logger.Debug("hub context cancelled")
			h.mu.Lock()
			if h.running && h.shutdown == shutdown {
				h.running = false
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) dispatch(env Envelope) {
	for _, fn := range h.registry.Subscribers(env.Event) {
		if env.Generation != h.generation.Load() {
			return
		}
		h.call(env, fn)
	}
}

func (h *Hub) call(env Envelope, fn Handler) {
	h.inCall.Store(true)
	defer func() {
		h.inCall.Store(false)
		if r := recover(); r != nil {
			h.logger.Error("subscriber panicked", "event", env.Event, "panic", r)
		}
	}()
	fn(env.Data)
}
