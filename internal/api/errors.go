package api

import (
	"errors"
	"fmt"
)

// Fallback messages shown when the server gave none.
const (
	DefaultErrorMessage   = "An unexpected error occurred"
	DefaultFetchError     = "Failed to fetch data"
	DefaultRequestError   = "Request failed"
	InvalidResponseError  = "Invalid response from server"
	DefaultSuccessMessage = "Operation successful"
)

var (
	ErrNilEnvelope = errors.New("api: nil envelope")
	ErrMissingData = errors.New("api: success envelope without data")
	ErrRateLimited = errors.New("api: rate limiter wait aborted")
)

// Error is the uniform failure shape handed to callers. Message is always
// human-readable; StatusCode is zero when no HTTP response was received.
type Error struct {
	Message    string
	StatusCode int
	Code       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError returns err as *Error when it already is one, otherwise wraps it
// under fallback. A nil err yields nil.
func AsError(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if fallback == "" {
		fallback = DefaultErrorMessage
	}
	return &Error{Message: fallback, Err: err}
}
