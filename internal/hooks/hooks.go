// Package hooks gives every REST call a uniform lifecycle: loading and
// error state, notifications, callbacks, and a generation guard so that a
// result arriving after Close, or after a newer call, changes nothing.
package hooks

import (
	"sync"

	"github.com/hashicorp/go-hclog"

	"rentdirect/internal/api"
	"rentdirect/internal/logging"
	"rentdirect/internal/metrics"
	"rentdirect/internal/notify"
	"rentdirect/pkg/interfaces"
)

// Request outcomes recorded in metrics.
const (
	outcomeSuccess   = "success"
	outcomeError     = "error"
	outcomeDiscarded = "discarded"
)

// Runtime carries the collaborators every hook shares. Zero values are
// replaced with no-op implementations.
type Runtime struct {
	Notifier interfaces.Notifier
	Logger   hclog.Logger
	Metrics  *metrics.Metrics
}

func (r Runtime) withDefaults() Runtime {
	if r.Notifier == nil {
		r.Notifier = notify.Discard{}
	}
	r.Logger = logging.OrNull(r.Logger)
	return r
}

// RequestState is the observable state of a query or mutation hook.
// Data is nil until a call succeeds (or InitialData is set).
type RequestState[T any] struct {
	Data      *T
	IsLoading bool
	Err       *api.Error
}

// tracker guards a hook's state. Every call takes a new generation; only
// the latest generation may settle, and nothing settles after close.
type tracker struct {
	mu     sync.Mutex
	gen    uint64
	closed bool
}

// begin starts a call and runs fn, unless the hook is closed.
func (t *tracker) begin(fn func()) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if !t.closed {
		fn()
	}
	return t.gen
}

// settle runs fn if gen is still current and reports whether it did.
func (t *tracker) settle(gen uint64, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || gen != t.gen {
		return false
	}
	fn()
	return true
}

func (t *tracker) with(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn()
}

func (t *tracker) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

func ptr[T any](v T) *T {
	return &v
}
