package interfaces

import (
	"context"

	"rentdirect/pkg/types"
)

// AuthAPI is the subset of the REST surface the session store needs.
// A non-nil error means the call never produced an envelope.
type AuthAPI interface {
	Login(ctx context.Context, req types.LoginRequest) (*types.Envelope[types.AuthPayload], error)
	Register(ctx context.Context, req types.RegisterRequest) (*types.Envelope[types.AuthPayload], error)
	// GetProfile verifies token explicitly since it is not committed yet
	// while stored credentials are being checked.
	GetProfile(ctx context.Context, token string) (*types.Envelope[types.User], error)
}

// SessionSource exposes session changes to the realtime layer.
type SessionSource interface {
	Snapshot() types.SessionState
	// Subscribe registers fn for every committed state, in commit order.
	Subscribe(fn func(types.SessionState)) (unsubscribe func())
}

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	Token() string
}
