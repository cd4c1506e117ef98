package storage

import "errors"

var (
	ErrStoreClosed   = errors.New("storage is closed")
	ErrWriteTimeout  = errors.New("storage write timeout")
	ErrUnknownDriver = errors.New("unknown storage driver")
)
