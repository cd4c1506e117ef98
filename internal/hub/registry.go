package hub

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Handler receives the raw data of one inbound event.
type Handler func(data json.RawMessage)

// RegistryStats is a point-in-time count of registrations.
type RegistryStats struct {
	Events      int
	Subscribers int
}

type subscription struct {
	event   string
	handler Handler
}

// Registry tracks event subscribers. IDs are ULIDs, so sorting them gives
// registration order.
type Registry struct {
	byEvent map[string]map[string]Handler
	byID    map[string]subscription
	mu      sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		byEvent: make(map[string]map[string]Handler),
		byID:    make(map[string]subscription),
	}
}

// Add registers h for event and returns its subscription ID.
func (r *Registry) Add(event string, h Handler) (string, error) {
	if event == "" {
		return "", ErrEmptyEvent
	}
	if h == nil {
		return "", ErrNilHandler
	}

	id := ulid.Make().String()

	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.byEvent[event]
	if !ok {
		subs = make(map[string]Handler)
		r.byEvent[event] = subs
	}
	subs[id] = h
	r.byID[id] = subscription{event: event, handler: h}
	return id, nil
}

// Remove drops one subscription. It reports false for unknown IDs.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	if subs, ok := r.byEvent[sub.event]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(r.byEvent, sub.event)
		}
	}
	return true
}

// Subscribers returns a snapshot of event's handlers in registration order.
func (r *Registry) Subscribers(event string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.byEvent[event]
	if len(subs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, subs[id])
	}
	return handlers
}

// Clear removes every subscription.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byEvent = make(map[string]map[string]Handler)
	r.byID = make(map[string]subscription)
}

func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RegistryStats{
		Events:      len(r.byEvent),
		Subscribers: len(r.byID),
	}
}
