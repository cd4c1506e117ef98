package hooks

import (
	"context"
	"reflect"

	"rentdirect/internal/api"
)

// QueryOptions configures a Query.
type QueryOptions[T any] struct {
	Runtime
	OnSuccess func(data T)
	OnError   func(err *api.Error)
	// SilentErrors suppresses the error notification.
	SilentErrors bool
	InitialData  *T
}

// Query runs one request function on demand.
type Query[T any] struct {
	req  api.Request[T]
	opts QueryOptions[T]

	t     tracker
	state RequestState[T]
}

func NewQuery[T any](req api.Request[T], opts QueryOptions[T]) *Query[T] {
	opts.Runtime = opts.Runtime.withDefaults()
	q := &Query[T]{req: req, opts: opts}
	q.state.Data = q.initialData()
	return q
}

func (q *Query[T]) initialData() *T {
	if q.opts.InitialData == nil {
		return nil
	}
	return ptr(*q.opts.InitialData)
}

// Execute calls the request function once. The result is always returned;
// state and callbacks are only touched if this is still the latest call
// and the query has not been closed.
func (q *Query[T]) Execute(ctx context.Context) api.Result[T] {
	gen := q.t.begin(func() {
		q.state.IsLoading = true
		q.state.Err = nil
	})

	data, err := api.Unwrap(q.req(ctx))
	if err != nil {
		apiErr := api.AsError(err, api.DefaultErrorMessage)
		live := q.t.settle(gen, func() {
			q.state.IsLoading = false
			q.state.Err = apiErr
		})
		if !live {
			q.opts.Metrics.RequestDone("query", outcomeDiscarded)
			return api.Result[T]{Err: apiErr}
		}
		q.opts.Metrics.RequestDone("query", outcomeError)
		q.opts.Logger.Debug("query failed", "error", apiErr)
		if !q.opts.SilentErrors {
			q.opts.Notifier.Error(apiErr.Message)
		}
		if q.opts.OnError != nil {
			q.opts.OnError(apiErr)
		}
		return api.Result[T]{Err: apiErr}
	}

	live := q.t.settle(gen, func() {
		q.state = RequestState[T]{Data: ptr(data)}
	})
	if !live {
		q.opts.Metrics.RequestDone("query", outcomeDiscarded)
		return api.Result[T]{Data: data}
	}
	q.opts.Metrics.RequestDone("query", outcomeSuccess)
	if q.opts.OnSuccess != nil {
		q.opts.OnSuccess(data)
	}
	return api.Result[T]{Data: data}
}

// Reset restores the initial state. In-flight calls are not cancelled.
func (q *Query[T]) Reset() {
	q.t.with(func() {
		q.state = RequestState[T]{Data: q.initialData()}
	})
}

// SetData replaces the data without a request. nil clears it.
func (q *Query[T]) SetData(data *T) {
	q.t.with(func() {
		if data == nil {
			q.state.Data = nil
			return
		}
		q.state.Data = ptr(*data)
	})
}

func (q *Query[T]) State() RequestState[T] {
	var s RequestState[T]
	q.t.with(func() { s = q.state })
	return s
}

// Close detaches the query from its owner. Later results are discarded.
func (q *Query[T]) Close() {
	q.t.close()
}

// Fetch is a Query that runs itself whenever its dependency list changes.
type Fetch[T any] struct {
	*Query[T]

	deps    []any
	started bool
}

func NewFetch[T any](req api.Request[T], opts QueryOptions[T]) *Fetch[T] {
	return &Fetch[T]{Query: NewQuery(req, opts)}
}

// SetDeps executes the query on the first call and on every call whose
// dependencies differ from the previous ones. It reports whether a request
// was made.
func (f *Fetch[T]) SetDeps(ctx context.Context, deps ...any) (api.Result[T], bool) {
	var run bool
	f.t.with(func() {
		if !f.started || !reflect.DeepEqual(f.deps, deps) {
			f.started = true
			f.deps = append([]any(nil), deps...)
			run = true
		}
	})
	if !run {
		return api.Result[T]{}, false
	}
	return f.Execute(ctx), true
}

// Refetch executes the query regardless of dependencies.
func (f *Fetch[T]) Refetch(ctx context.Context) api.Result[T] {
	return f.Execute(ctx)
}
