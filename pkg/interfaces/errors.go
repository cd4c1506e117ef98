package interfaces

import "errors"

// Common interface errors used across components
var (
	ErrNotConnected = errors.New("transport not connected")
	ErrMissingToken = errors.New("token is required to open a realtime connection")
)
