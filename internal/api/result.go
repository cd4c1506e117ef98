package api

import (
	"context"

	"rentdirect/pkg/types"
)

// Request produces one tagged response. Hooks call it exactly once per attempt.
type Request[T any] func(ctx context.Context) (*types.Envelope[T], error)

// Result is what every hook call resolves to: Data on success, Err otherwise.
type Result[T any] struct {
	Data T
	Err  *Error
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Unwrap extracts the payload from a tagged response. It accepts the
// (envelope, error) pair straight from an endpoint call. A success envelope
// without data is malformed, unless T is struct{} for endpoints that answer
// with no body.
func Unwrap[T any](env *types.Envelope[T], err error) (T, error) {
	data, err := unwrap(env, err)
	if err != nil {
		return data, err
	}
	if env.Data == nil {
		if _, empty := any(data).(struct{}); !empty {
			return data, &Error{Message: InvalidResponseError, StatusCode: env.StatusCode, Err: ErrMissingData}
		}
	}
	return data, nil
}

// UnwrapOrZero is Unwrap for callers that default every missing field, such
// as paged listings: a success envelope without data yields the zero T.
func UnwrapOrZero[T any](env *types.Envelope[T], err error) (T, error) {
	return unwrap(env, err)
}

func unwrap[T any](env *types.Envelope[T], err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if env == nil {
		return zero, &Error{Message: InvalidResponseError, Err: ErrNilEnvelope}
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = DefaultRequestError
		}
		return zero, &Error{Message: msg, StatusCode: env.StatusCode}
	}
	if env.Data == nil {
		return zero, nil
	}
	return *env.Data, nil
}
