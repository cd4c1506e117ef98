package hub

import "errors"

var (
	ErrHubAlreadyRunning = errors.New("hub is already running")
	ErrHubNotRunning     = errors.New("hub is not running")
	ErrEmptyEvent        = errors.New("event name is required")
	ErrNilHandler        = errors.New("handler is required")
)
