package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdirect/pkg/types"
)

func TestUnwrap(t *testing.T) {
	user := types.User{ID: "u1"}

	t.Run("success", func(t *testing.T) {
		got, err := Unwrap(&types.Envelope[types.User]{Success: true, Data: &user}, nil)
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)
	})

	t.Run("success without data is malformed", func(t *testing.T) {
		_, err := Unwrap(&types.Envelope[types.User]{Success: true, StatusCode: 200}, nil)
		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, InvalidResponseError, apiErr.Message)
		assert.Equal(t, 200, apiErr.StatusCode)
		assert.ErrorIs(t, err, ErrMissingData)
	})

	t.Run("bodyless endpoint succeeds without data", func(t *testing.T) {
		_, err := Unwrap(&types.Envelope[struct{}]{Success: true}, nil)
		assert.NoError(t, err)
	})

	t.Run("or zero defaults missing data", func(t *testing.T) {
		got, err := UnwrapOrZero(&types.Envelope[types.Page[types.User]]{Success: true}, nil)
		require.NoError(t, err)
		assert.Empty(t, got.Items)
		_, err = UnwrapOrZero(&types.Envelope[types.User]{Error: "boom"}, nil)
		assert.EqualError(t, err, "boom")
	})

	t.Run("failure prefers error over message", func(t *testing.T) {
		_, err := Unwrap(&types.Envelope[types.User]{Error: "boom", Message: "ignored"}, nil)
		assert.EqualError(t, err, "boom")
	})

	t.Run("failure falls back to message then default", func(t *testing.T) {
		_, err := Unwrap(&types.Envelope[types.User]{Message: "from message"}, nil)
		assert.EqualError(t, err, "from message")
		_, err = Unwrap(&types.Envelope[types.User]{}, nil)
		assert.EqualError(t, err, DefaultRequestError)
	})

	t.Run("nil envelope is malformed", func(t *testing.T) {
		_, err := Unwrap[types.User](nil, nil)
		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, InvalidResponseError, apiErr.Message)
		assert.ErrorIs(t, err, ErrNilEnvelope)
	})

	t.Run("transport error passes through", func(t *testing.T) {
		cause := errors.New("dial tcp: refused")
		_, err := Unwrap[types.User](nil, cause)
		assert.Same(t, cause, err)
	})
}

func TestAsError(t *testing.T) {
	assert.Nil(t, AsError(nil, ""))

	orig := &Error{Message: "Invalid credentials", StatusCode: 401}
	assert.Same(t, orig, AsError(fmt.Errorf("wrapped: %w", orig), "ignored"))

	plain := AsError(errors.New("socket hang up"), DefaultFetchError)
	assert.Equal(t, DefaultFetchError, plain.Message)
	assert.EqualError(t, plain.Unwrap(), "socket hang up")

	assert.Equal(t, DefaultErrorMessage, AsError(errors.New("x"), "").Message)
}

func TestError_Error(t *testing.T) {
	assert.Equal(t, "nope", (&Error{Message: "nope"}).Error())
	assert.Equal(t, "nope (status 404)", (&Error{Message: "nope", StatusCode: 404}).Error())
}

func TestResult_OK(t *testing.T) {
	assert.True(t, Result[int]{Data: 1}.OK())
	assert.False(t, Result[int]{Err: &Error{Message: "x"}}.OK())
}
