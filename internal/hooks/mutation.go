package hooks

import (
	"context"

	"rentdirect/internal/api"
	"rentdirect/pkg/types"
)

// SuccessToastDefault is the success notification used when a caller wants
// one but has no message of its own.
const SuccessToastDefault = api.DefaultSuccessMessage

// MutationFunc performs one write with the given variables.
type MutationFunc[T, V any] func(ctx context.Context, vars V) (*types.Envelope[T], error)

// MutationOptions configures a Mutation.
type MutationOptions[T, V any] struct {
	Runtime
	OnSuccess    func(data T, vars V)
	OnError      func(err *api.Error, vars V)
	SilentErrors bool
	// SuccessToast is shown after a successful mutation. Empty disables it.
	SuccessToast string
}

// Mutation runs a write with variables supplied per call.
type Mutation[T, V any] struct {
	fn   MutationFunc[T, V]
	opts MutationOptions[T, V]

	t     tracker
	state RequestState[T]
}

func NewMutation[T, V any](fn MutationFunc[T, V], opts MutationOptions[T, V]) *Mutation[T, V] {
	opts.Runtime = opts.Runtime.withDefaults()
	return &Mutation[T, V]{fn: fn, opts: opts}
}

// Mutate calls the mutation function once with vars.
func (m *Mutation[T, V]) Mutate(ctx context.Context, vars V) api.Result[T] {
	gen := m.t.begin(func() {
		m.state.IsLoading = true
		m.state.Err = nil
	})

	data, err := api.Unwrap(m.fn(ctx, vars))
	if err != nil {
		apiErr := api.AsError(err, api.DefaultErrorMessage)
		live := m.t.settle(gen, func() {
			m.state.IsLoading = false
			m.state.Err = apiErr
		})
		if !live {
			m.opts.Metrics.RequestDone("mutation", outcomeDiscarded)
			return api.Result[T]{Err: apiErr}
		}
		m.opts.Metrics.RequestDone("mutation", outcomeError)
		if !m.opts.SilentErrors {
			m.opts.Notifier.Error(apiErr.Message)
		}
		if m.opts.OnError != nil {
			m.opts.OnError(apiErr, vars)
		}
		return api.Result[T]{Err: apiErr}
	}

	live := m.t.settle(gen, func() {
		m.state = RequestState[T]{Data: ptr(data)}
	})
	if !live {
		m.opts.Metrics.RequestDone("mutation", outcomeDiscarded)
		return api.Result[T]{Data: data}
	}
	m.opts.Metrics.RequestDone("mutation", outcomeSuccess)
	if m.opts.SuccessToast != "" {
		m.opts.Notifier.Success(m.opts.SuccessToast)
	}
	if m.opts.OnSuccess != nil {
		m.opts.OnSuccess(data, vars)
	}
	return api.Result[T]{Data: data}
}

func (m *Mutation[T, V]) Reset() {
	m.t.with(func() { m.state = RequestState[T]{} })
}

func (m *Mutation[T, V]) State() RequestState[T] {
	var s RequestState[T]
	m.t.with(func() { s = m.state })
	return s
}

func (m *Mutation[T, V]) Close() {
	m.t.close()
}
