package realtime

import "errors"

var (
	ErrAlreadyBound = errors.New("manager is already bound to a session")
	ErrDisposed     = errors.New("manager has been disposed")
)
