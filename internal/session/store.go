// Package session owns the client's authentication state and keeps it in
// step with persisted storage.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"rentdirect/internal/logging"
	"rentdirect/internal/metrics"
	"rentdirect/internal/storage"
	"rentdirect/pkg/interfaces"
	"rentdirect/pkg/types"
)

// Store is the single source of truth for who is logged in. Every commit
// writes storage first, then state, then notifies listeners in order.
//
// Listeners run on the committing goroutine and must not call Login,
// Register, Logout, UpdateUser or Initialize synchronously.
type Store struct {
	auth    interfaces.AuthAPI
	storage interfaces.Storage
	logger  hclog.Logger
	metrics *metrics.Metrics

	// opMu serializes persist+commit+notify so listeners observe commits in order.
	opMu sync.Mutex

	mu        sync.RWMutex
	state     types.SessionState
	listeners []listener
	nextID    uint64
}

type listener struct {
	id uint64
	fn func(types.SessionState)
}

// NewStore creates a store in the initial loading state.
func NewStore(auth interfaces.AuthAPI, store interfaces.Storage, logger hclog.Logger, m *metrics.Metrics) *Store {
	return &Store{
		auth:    auth,
		storage: store,
		logger:  logging.OrNull(logger),
		metrics: m,
		state:   types.InitialSessionState(),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() types.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Token returns the committed token, empty when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Subscribe registers fn for every subsequent commit.
func (s *Store) Subscribe(fn func(types.SessionState)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Initialize restores a persisted session after verifying it with the
// server. It never fails: anything unexpected leaves the store logged out
// with storage cleared.
func (s *Store) Initialize(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	token, hasToken, err := s.storage.Get(ctx, storage.KeyToken)
	if err != nil {
		s.logger.Warn("failed to read stored token", "error", err)
		s.clearLocked(ctx, "initialize")
		return
	}
	_, hasUser, err := s.storage.Get(ctx, storage.KeyUser)
	if err != nil {
		s.logger.Warn("failed to read stored user", "error", err)
		s.clearLocked(ctx, "initialize")
		return
	}

	if !hasToken || !hasUser {
		s.logger.Debug("no stored session")
		s.commitLocked("initialize", types.LoggedOutSessionState())
		return
	}

	env, err := s.auth.GetProfile(ctx, token)
	switch {
	case err != nil:
		s.logger.Warn("stored session could not be verified", "error", err)
		s.clearLocked(ctx, "initialize")
		return
	case env == nil || !env.Success:
		s.logger.Info("stored session rejected by server")
		s.clearLocked(ctx, "initialize")
		return
	case env.Data == nil || env.Data.ID == "":
		s.logger.Warn("stored session verification returned no user")
		s.clearLocked(ctx, "initialize")
		return
	}

	user := *env.Data
	if err := s.persistUser(ctx, user); err != nil {
		s.logger.Warn("failed to refresh stored user", "error", err)
		s.clearLocked(ctx, "initialize")
		return
	}

	s.commitLocked("initialize", types.SessionState{
		User:            &user,
		Token:           token,
		IsAuthenticated: true,
	})
}

// Login authenticates and commits the session. A server rejection returns
// *AuthError; a request that never produced a response returns the
// underlying error. State is unchanged on any error.
func (s *Store) Login(ctx context.Context, email, password string) (*types.User, error) {
	env, err := s.auth.Login(ctx, types.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	return s.accept(ctx, "login", env, LoginFailedMessage)
}

// Register creates an account and logs it in. Only OWNER and TENANT roles
// may register; anything else is rejected before the request is sent.
func (s *Store) Register(ctx context.Context, req types.RegisterRequest) (*types.User, error) {
	if err := req.Validate(); err != nil {
		return nil, &AuthError{Message: err.Error(), Err: err}
	}
	env, err := s.auth.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("register request: %w", err)
	}
	return s.accept(ctx, "register", env, RegistrationFailedMessage)
}

// Logout clears storage and state. Storage failures are logged, the
// in-memory session is dropped regardless.
func (s *Store) Logout(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.clearLocked(ctx, "logout")
}

// UpdateUser replaces the stored and in-memory user record, leaving the
// token and flags untouched.
func (s *Store) UpdateUser(ctx context.Context, user types.User) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.persistUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	next := s.Snapshot()
	next.User = &user
	s.commitLocked("update_user", next)
	return nil
}

func (s *Store) accept(ctx context.Context, op string, env *types.Envelope[types.AuthPayload], fallback string) (*types.User, error) {
	if env == nil {
		return nil, &AuthError{Message: fallback, Err: ErrMalformedAuthPayload}
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = fallback
		}
		s.logger.Info("authentication rejected", "op", op, "status", env.StatusCode)
		return nil, &AuthError{Message: msg, StatusCode: env.StatusCode}
	}
	if env.Data == nil || env.Data.User.ID == "" || env.Data.Token == "" {
		return nil, &AuthError{Message: fallback, StatusCode: env.StatusCode, Err: ErrMalformedAuthPayload}
	}

	user := env.Data.User
	token := env.Data.Token

	s.opMu.Lock()
	defer s.opMu.Unlock()

	prev := s.Snapshot()
	if err := s.storage.Set(ctx, storage.KeyToken, token); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}
	if err := s.persistUser(ctx, user); err != nil {
		s.rollbackLocked(ctx, op, prev)
		return nil, fmt.Errorf("persist user: %w", err)
	}

	s.commitLocked(op, types.SessionState{
		User:            &user,
		Token:           token,
		IsAuthenticated: true,
	})
	out := user
	return &out, nil
}

func (s *Store) persistUser(ctx context.Context, user types.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.storage.Set(ctx, storage.KeyUser, string(raw))
}

// rollbackLocked puts back the credentials of prev after a partial write.
// If they cannot be restored the session is logged out so that state
// matches what storage holds.
func (s *Store) rollbackLocked(ctx context.Context, op string, prev types.SessionState) {
	if prev.IsAuthenticated && prev.User != nil {
		err := s.storage.Set(ctx, storage.KeyToken, prev.Token)
		if err == nil {
			err = s.persistUser(ctx, *prev.User)
		}
		if err == nil {
			return
		}
		s.logger.Warn("failed to restore previous session", "op", op, "error", err)
		s.clearLocked(ctx, op+"_rollback")
		return
	}
	if err := s.storage.Delete(ctx, storage.KeyToken, storage.KeyUser); err != nil {
		s.logger.Warn("failed to roll back partial session", "op", op, "error", err)
	}
}

// clearLocked removes persisted credentials and commits the logged-out state.
func (s *Store) clearLocked(ctx context.Context, op string) {
	if err := s.storage.Delete(ctx, storage.KeyToken, storage.KeyUser); err != nil {
		s.logger.Warn("failed to clear stored session", "op", op, "error", err)
	}
	s.commitLocked(op, types.LoggedOutSessionState())
}

// commitLocked must be called with opMu held.
func (s *Store) commitLocked(op string, next types.SessionState) {
	s.mu.Lock()
	s.state = next
	listeners := make([]listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	s.metrics.SessionTransition(op)
	s.logger.Debug("session committed", "op", op, "authenticated", next.IsAuthenticated)

	for _, l := range listeners {
		l.fn(next.Clone())
	}
}
