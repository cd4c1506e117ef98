package websocket

import (
	"errors"
	"fmt"
)

// Connection-related errors
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrWriteTimeout     = errors.New("write timeout")
	ErrInvalidJSON      = errors.New("invalid JSON data")
)

// Dial-related errors
var (
	ErrUnauthorized   = errors.New("realtime handshake rejected the token")
	ErrServerClosed   = errors.New("server closed the connection")
	ErrRetriesExhaust = errors.New("reconnect attempts exhausted")
)

// TransportError wraps a failure of the realtime channel. It is logged,
// never surfaced to UI code.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
