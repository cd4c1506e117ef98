package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdirect/internal/storage"
	"rentdirect/pkg/interfaces"
	"rentdirect/pkg/types"
)

// fakeAuth answers each call through an optional function field.
type fakeAuth struct {
	mu           sync.Mutex
	loginFn      func(req types.LoginRequest) (*types.Envelope[types.AuthPayload], error)
	registerFn   func(req types.RegisterRequest) (*types.Envelope[types.AuthPayload], error)
	profileFn    func(token string) (*types.Envelope[types.User], error)
	registerCall int
	profileCalls []string
}

func (f *fakeAuth) Login(ctx context.Context, req types.LoginRequest) (*types.Envelope[types.AuthPayload], error) {
	return f.loginFn(req)
}

func (f *fakeAuth) Register(ctx context.Context, req types.RegisterRequest) (*types.Envelope[types.AuthPayload], error) {
	f.mu.Lock()
	f.registerCall++
	f.mu.Unlock()
	return f.registerFn(req)
}

func (f *fakeAuth) GetProfile(ctx context.Context, token string) (*types.Envelope[types.User], error) {
	f.mu.Lock()
	f.profileCalls = append(f.profileCalls, token)
	f.mu.Unlock()
	return f.profileFn(token)
}

// failingStorage wraps a MemoryStore and fails the selected operations.
type failingStorage struct {
	*storage.MemoryStore
	failGet, failSet, failDelete bool
	// failSetKey fails Set for one key only.
	failSetKey string
}

var errDisk = errors.New("disk full")

func (f *failingStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failGet {
		return "", false, errDisk
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *failingStorage) Set(ctx context.Context, key, value string) error {
	if f.failSet || (f.failSetKey != "" && key == f.failSetKey) {
		return errDisk
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func (f *failingStorage) Delete(ctx context.Context, keys ...string) error {
	if f.failDelete {
		return errDisk
	}
	return f.MemoryStore.Delete(ctx, keys...)
}

func okLogin(id, token string) func(types.LoginRequest) (*types.Envelope[types.AuthPayload], error) {
	return func(types.LoginRequest) (*types.Envelope[types.AuthPayload], error) {
		return &types.Envelope[types.AuthPayload]{
			Success: true,
			Data:    &types.AuthPayload{User: types.User{ID: id, Role: types.RoleTenant}, Token: token},
		}, nil
	}
}

func newTestStore(auth interfaces.AuthAPI, st interfaces.Storage) *Store {
	return NewStore(auth, st, nil, nil)
}

func stored(t *testing.T, st interfaces.Storage, key string) (string, bool) {
	t.Helper()
	v, ok, err := st.Get(context.Background(), key)
	require.NoError(t, err)
	return v, ok
}

func TestStore_InitialState(t *testing.T) {
	s := newTestStore(&fakeAuth{}, storage.NewMemoryStore())
	assert.Equal(t, types.InitialSessionState(), s.Snapshot())
	assert.Empty(t, s.Token())
}

func TestStore_LoginSuccess(t *testing.T) {
	st := storage.NewMemoryStore()
	s := newTestStore(&fakeAuth{loginFn: okLogin("u1", "tok1")}, st)
	s.Initialize(context.Background())

	user, err := s.Login(context.Background(), "ana@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	snap := s.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.False(t, snap.IsLoading)
	assert.Equal(t, "tok1", snap.Token)
	require.NotNil(t, snap.User)
	assert.Equal(t, "u1", snap.User.ID)

	token, ok := stored(t, st, storage.KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "tok1", token)

	raw, ok := stored(t, st, storage.KeyUser)
	require.True(t, ok)
	var persisted types.User
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, "u1", persisted.ID)
}

func TestStore_LoginRejected(t *testing.T) {
	st := storage.NewMemoryStore()
	auth := &fakeAuth{loginFn: func(types.LoginRequest) (*types.Envelope[types.AuthPayload], error) {
		return &types.Envelope[types.AuthPayload]{Success: false, Error: "Invalid credentials", StatusCode: 401}, nil
	}}
	s := newTestStore(auth, st)
	s.Initialize(context.Background())
	before := s.Snapshot()

	user, err := s.Login(context.Background(), "ana@example.com", "wrong")
	assert.Nil(t, user)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "Invalid credentials", authErr.Message)
	assert.Equal(t, 401, authErr.StatusCode)

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, 0, st.Len())
}

func TestStore_LoginRejectedWithoutMessage(t *testing.T) {
	auth := &fakeAuth{loginFn: func(types.LoginRequest) (*types.Envelope[types.AuthPayload], error) {
		return &types.Envelope[types.AuthPayload]{Success: false}, nil
	}}
	s := newTestStore(auth, storage.NewMemoryStore())

	_, err := s.Login(context.Background(), "a", "b")
	assert.EqualError(t, err, LoginFailedMessage)
}

func TestStore_LoginMalformedPayload(t *testing.T) {
	auth := &fakeAuth{loginFn: func(types.LoginRequest) (*types.Envelope[types.AuthPayload], error) {
		return &types.Envelope[types.AuthPayload]{Success: true, Data: &types.AuthPayload{User: types.User{ID: "u1"}}}, nil
	}}
	s := newTestStore(auth, storage.NewMemoryStore())

	_, err := s.Login(context.Background(), "a", "b")
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.ErrorIs(t, err, ErrMalformedAuthPayload)
	assert.False(t, s.Snapshot().IsAuthenticated)
}

func TestStore_LoginTransportErrorPropagates(t *testing.T) {
	cause := errors.New("connection refused")
	auth := &fakeAuth{loginFn: func(types.LoginRequest) (*types.Envelope[types.AuthPayload], error) {
		return nil, cause
	}}
	s := newTestStore(auth, storage.NewMemoryStore())

	_, err := s.Login(context.Background(), "a", "b")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	var authErr *AuthError
	assert.False(t, errors.As(err, &authErr))
	assert.Equal(t, types.InitialSessionState(), s.Snapshot())
}

func TestStore_LoginStorageFailureLeavesStateUntouched(t *testing.T) {
	st := &failingStorage{MemoryStore: storage.NewMemoryStore(), failSet: true}
	s := newTestStore(&fakeAuth{loginFn: okLogin("u1", "tok1")}, st)
	s.Initialize(context.Background())

	_, err := s.Login(context.Background(), "a", "b")
	assert.ErrorIs(t, err, errDisk)
	assert.False(t, s.Snapshot().IsAuthenticated)
	assert.Equal(t, 0, st.Len())
}

func TestStore_ReloginPartialWriteRestoresPreviousSession(t *testing.T) {
	st := &failingStorage{MemoryStore: storage.NewMemoryStore()}
	auth := &fakeAuth{loginFn: okLogin("u1", "tokA")}
	s := newTestStore(auth, st)
	s.Initialize(context.Background())

	_, err := s.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)

	auth.loginFn = okLogin("u2", "tokB")
	st.failSetKey = storage.KeyUser
	_, err = s.Login(context.Background(), "b@example.com", "pw")
	require.ErrorIs(t, err, errDisk)

	// User writes keep failing, so the previous session cannot be restored.
	snap := s.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Empty(t, snap.Token)
	_, ok := stored(t, st, storage.KeyToken)
	assert.False(t, ok)
	_, ok = stored(t, st, storage.KeyUser)
	assert.False(t, ok)
}

func TestStore_ReloginRollbackKeepsPreviousCredentials(t *testing.T) {
	st := &flakyUserStorage{MemoryStore: storage.NewMemoryStore()}
	auth := &fakeAuth{loginFn: okLogin("u1", "tokA")}
	s := newTestStore(auth, st)
	s.Initialize(context.Background())

	_, err := s.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)

	auth.loginFn = okLogin("u2", "tokB")
	st.failNextUser = true
	_, err = s.Login(context.Background(), "b@example.com", "pw")
	require.ErrorIs(t, err, errDisk)

	snap := s.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, "tokA", snap.Token)
	token, ok := stored(t, st, storage.KeyToken)
	require.True(t, ok)
	assert.Equal(t, "tokA", token)
	raw, ok := stored(t, st, storage.KeyUser)
	require.True(t, ok)
	var persisted types.User
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, "u1", persisted.ID)
}

// flakyUserStorage fails a single user write.
type flakyUserStorage struct {
	*storage.MemoryStore
	failNextUser bool
}

func (f *flakyUserStorage) Set(ctx context.Context, key, value string) error {
	if key == storage.KeyUser && f.failNextUser {
		f.failNextUser = false
		return errDisk
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func TestStore_LoginThenLogoutRestoresLoggedOutState(t *testing.T) {
	st := storage.NewMemoryStore()
	s := newTestStore(&fakeAuth{loginFn: okLogin("u1", "tok1")}, st)
	s.Initialize(context.Background())
	initial := s.Snapshot()

	_, err := s.Login(context.Background(), "a", "b")
	require.NoError(t, err)
	s.Logout(context.Background())

	assert.Equal(t, initial, s.Snapshot())
	assert.Equal(t, types.LoggedOutSessionState(), s.Snapshot())
	assert.Equal(t, 0, st.Len())
}

func TestStore_LogoutIgnoresStorageFailure(t *testing.T) {
	st := &failingStorage{MemoryStore: storage.NewMemoryStore()}
	s := newTestStore(&fakeAuth{loginFn: okLogin("u1", "tok1")}, st)
	_, err := s.Login(context.Background(), "a", "b")
	require.NoError(t, err)

	st.failDelete = true
	s.Logout(context.Background())
	assert.False(t, s.Snapshot().IsAuthenticated)
	assert.Empty(t, s.Token())
}

func TestStore_Register(t *testing.T) {
	valid := types.RegisterRequest{Email: "o@example.com", Password: "pw", FirstName: "O", LastName: "W", Role: types.RoleOwner}

	t.Run("admin role rejected locally", func(t *testing.T) {
		auth := &fakeAuth{}
		s := newTestStore(auth, storage.NewMemoryStore())
		req := valid
		req.Role = types.RoleAdmin

		_, err := s.Register(context.Background(), req)
		var authErr *AuthError
		require.True(t, errors.As(err, &authErr))
		assert.ErrorIs(t, err, types.ErrInvalidRole)
		assert.Equal(t, 0, auth.registerCall)
	})

	t.Run("server rejection uses fallback", func(t *testing.T) {
		auth := &fakeAuth{registerFn: func(types.RegisterRequest) (*types.Envelope[types.AuthPayload], error) {
			return &types.Envelope[types.AuthPayload]{Success: false}, nil
		}}
		s := newTestStore(auth, storage.NewMemoryStore())
		_, err := s.Register(context.Background(), valid)
		assert.EqualError(t, err, RegistrationFailedMessage)
	})

	t.Run("success logs in", func(t *testing.T) {
		st := storage.NewMemoryStore()
		auth := &fakeAuth{registerFn: func(r types.RegisterRequest) (*types.Envelope[types.AuthPayload], error) {
			return &types.Envelope[types.AuthPayload]{Success: true, Data: &types.AuthPayload{
				User: types.User{ID: "u9", Email: r.Email, Role: r.Role}, Token: "tok9",
			}}, nil
		}}
		s := newTestStore(auth, st)
		user, err := s.Register(context.Background(), valid)
		require.NoError(t, err)
		assert.Equal(t, types.RoleOwner, user.Role)
		assert.Equal(t, "tok9", s.Token())
		token, _ := stored(t, st, storage.KeyToken)
		assert.Equal(t, "tok9", token)
	})
}

func TestStore_Initialize(t *testing.T) {
	seed := func(t *testing.T) *storage.MemoryStore {
		st := storage.NewMemoryStore()
		require.NoError(t, st.Set(context.Background(), storage.KeyToken, "saved"))
		require.NoError(t, st.Set(context.Background(), storage.KeyUser, `{"id":"u1","firstName":"Old"}`))
		return st
	}

	t.Run("nothing stored", func(t *testing.T) {
		auth := &fakeAuth{}
		s := newTestStore(auth, storage.NewMemoryStore())
		s.Initialize(context.Background())
		assert.Equal(t, types.LoggedOutSessionState(), s.Snapshot())
		assert.Empty(t, auth.profileCalls)
	})

	t.Run("verified session is restored with fresh profile", func(t *testing.T) {
		st := seed(t)
		auth := &fakeAuth{profileFn: func(token string) (*types.Envelope[types.User], error) {
			return &types.Envelope[types.User]{Success: true, Data: &types.User{ID: "u1", FirstName: "New"}}, nil
		}}
		s := newTestStore(auth, st)
		s.Initialize(context.Background())

		snap := s.Snapshot()
		assert.True(t, snap.IsAuthenticated)
		assert.False(t, snap.IsLoading)
		assert.Equal(t, "saved", snap.Token)
		assert.Equal(t, "New", snap.User.FirstName)
		assert.Equal(t, []string{"saved"}, auth.profileCalls)

		raw, _ := stored(t, st, storage.KeyUser)
		assert.Contains(t, raw, "New")
	})

	failures := map[string]func(string) (*types.Envelope[types.User], error){
		"network error": func(string) (*types.Envelope[types.User], error) { return nil, errors.New("offline") },
		"rejected":      func(string) (*types.Envelope[types.User], error) { return &types.Envelope[types.User]{Success: false}, nil },
		"malformed":     func(string) (*types.Envelope[types.User], error) { return &types.Envelope[types.User]{Success: true}, nil },
	}
	for name, fn := range failures {
		t.Run(name+" clears storage", func(t *testing.T) {
			st := seed(t)
			s := newTestStore(&fakeAuth{profileFn: fn}, st)
			s.Initialize(context.Background())

			assert.Equal(t, types.LoggedOutSessionState(), s.Snapshot())
			assert.Equal(t, 0, st.Len())
		})
	}

	t.Run("storage read error", func(t *testing.T) {
		st := &failingStorage{MemoryStore: seed(t), failGet: true}
		s := newTestStore(&fakeAuth{}, st)
		s.Initialize(context.Background())
		assert.Equal(t, types.LoggedOutSessionState(), s.Snapshot())
	})
}

func TestStore_UpdateUser(t *testing.T) {
	st := storage.NewMemoryStore()
	s := newTestStore(&fakeAuth{loginFn: okLogin("u1", "tok1")}, st)
	_, err := s.Login(context.Background(), "a", "b")
	require.NoError(t, err)

	require.NoError(t, s.UpdateUser(context.Background(), types.User{ID: "u1", FirstName: "Renamed"}))

	snap := s.Snapshot()
	assert.Equal(t, "Renamed", snap.User.FirstName)
	assert.Equal(t, "tok1", snap.Token)
	assert.True(t, snap.IsAuthenticated)

	raw, _ := stored(t, st, storage.KeyUser)
	assert.Contains(t, raw, "Renamed")
}

func TestStore_SubscribeSeesCommitsInOrder(t *testing.T) {
	s := newTestStore(&fakeAuth{loginFn: okLogin("u1", "tok1")}, storage.NewMemoryStore())

	var seen []bool
	unsubscribe := s.Subscribe(func(st types.SessionState) {
		seen = append(seen, st.IsAuthenticated)
	})

	s.Initialize(context.Background())
	_, err := s.Login(context.Background(), "a", "b")
	require.NoError(t, err)
	s.Logout(context.Background())
	unsubscribe()
	unsubscribe()
	_, err = s.Login(context.Background(), "a", "b")
	require.NoError(t, err)

	assert.Equal(t, []bool{false, true, false}, seen)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := newTestStore(&fakeAuth{loginFn: okLogin("u1", "tok1")}, storage.NewMemoryStore())
	_, err := s.Login(context.Background(), "a", "b")
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.User.ID = "mutated"
	assert.Equal(t, "u1", s.Snapshot().User.ID)
}

func TestStore_SatisfiesInterfaces(t *testing.T) {
	var _ interfaces.SessionSource = (*Store)(nil)
	var _ interfaces.TokenSource = (*Store)(nil)
}
