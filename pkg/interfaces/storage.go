package interfaces

import "context"

// Storage is the persisted key-value area that survives restarts.
// Get reports found=false for absent keys rather than an error.
type Storage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
