package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdirect/pkg/interfaces"
	"rentdirect/pkg/types"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestAuthEndpoints_SatisfiesInterface(t *testing.T) {
	var _ interfaces.AuthAPI = (*AuthEndpoints)(nil)
}

func TestLogin_SendsBodyAndDecodesEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body types.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body.Email)

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"user": map[string]any{"id": "u1", "role": "TENANT"}, "token": "tok1"},
		})
	})

	payload, err := Unwrap(c.Auth.Login(context.Background(), types.LoginRequest{Email: "ana@example.com", Password: "pw"}))
	require.NoError(t, err)
	assert.Equal(t, "u1", payload.User.ID)
	assert.Equal(t, "tok1", payload.Token)
}

func TestErrorStatusWithEnvelope_IsFailedEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Invalid credentials"})
	})

	env, err := c.Auth.Login(context.Background(), types.LoginRequest{Email: "a", Password: "b"})
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusUnauthorized, env.StatusCode)

	_, err = Unwrap(env, nil)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestErrorStatusWithSuccessTrue_IsForcedToFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": true})
	})

	env, err := c.Deals.List(context.Background())
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, "Request failed with status 500", env.Error)
}

func TestNonEnvelopeBody(t *testing.T) {
	t.Run("error status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>bad gateway</html>"))
		})
		_, err := c.Deals.List(context.Background())
		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	})

	t.Run("ok status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		})
		_, err := c.Deals.List(context.Background())
		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, InvalidResponseError, apiErr.Message)
	})

	t.Run("empty ok body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		env, err := c.Properties.RemoveBookmark(context.Background(), "p1")
		require.NoError(t, err)
		assert.True(t, env.Success)
	})
}

func TestBearerToken(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"id": "u1"}})
	})
	c.SetTokenSource(staticToken("session-token"))

	_, err := c.Auth.GetProfile(context.Background(), "")
	require.NoError(t, err)
	_, err = c.Auth.GetProfile(context.Background(), "explicit")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Bearer session-token", "Bearer explicit"}, seen)
}

func TestPropertiesList_QueryParameters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/properties", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "12", q.Get("limit"))
		assert.Equal(t, "Pune", q.Get("city"))
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"items":      []map[string]any{{"id": "p1", "title": "Loft"}},
				"pagination": map[string]any{"total": 13, "page": 2, "limit": 12, "totalPages": 2},
			},
		})
	})

	filter := url.Values{"city": {"Pune"}}
	page, err := Unwrap(c.Properties.List(context.Background(), filter, 2, 12))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Empty(t, filter.Get("page"), "caller's filter is not mutated")
}

func TestEndpointRoutes(t *testing.T) {
	type route struct{ method, path string }
	var mu sync.Mutex
	var got []route
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, route{r.Method, r.URL.Path})
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	ctx := context.Background()

	c.Auth.ForgotPassword(ctx, "a@b.c")
	c.Auth.VerifyOTP(ctx, "a@b.c", "123456")
	c.Auth.ResetPassword(ctx, "a@b.c", "123456", "new")
	c.Properties.Get(ctx, "p1")
	c.Properties.Create(ctx, types.Property{Title: "x"})
	c.Properties.Update(ctx, "p1", types.Property{Title: "y"})
	c.Properties.UpdateStatus(ctx, "p1", "ACTIVE")
	c.Properties.Mine(ctx)
	c.Properties.OwnerStats(ctx)
	c.Properties.Bookmarks(ctx)
	c.Chat.Conversations(ctx)
	c.Chat.Messages(ctx, "c1", 1, 20)
	c.Admin.Overview(ctx)
	c.Admin.Users(ctx, nil, 1, 5)
	c.Admin.UpdateUserStatus(ctx, "u1", "SUSPENDED")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []route{
		{http.MethodPost, "/api/auth/forgot-password"},
		{http.MethodPost, "/api/auth/verify-otp"},
		{http.MethodPost, "/api/auth/reset-password"},
		{http.MethodGet, "/api/properties/p1"},
		{http.MethodPost, "/api/properties"},
		{http.MethodPut, "/api/properties/p1"},
		{http.MethodPatch, "/api/properties/p1/status"},
		{http.MethodGet, "/api/properties/owner/me"},
		{http.MethodGet, "/api/properties/owner/stats"},
		{http.MethodGet, "/api/properties/bookmarks"},
		{http.MethodGet, "/api/chat/conversations"},
		{http.MethodGet, "/api/chat/conversations/c1/messages"},
		{http.MethodGet, "/api/admin/overview"},
		{http.MethodGet, "/api/admin/users"},
		{http.MethodPatch, "/api/admin/users/u1/status"},
	}, got)
}

func TestNetworkFailure_IsPlainError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(Options{BaseURL: srv.URL + "/api", Timeout: time.Second})

	env, err := c.Deals.List(context.Background())
	require.Error(t, err)
	assert.Nil(t, env)

	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
	assert.Equal(t, DefaultErrorMessage, AsError(err, "").Message)
}

func TestRateLimiter_HonorsContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	c = NewClient(Options{BaseURL: c.BaseURL(), RequestsPerSecond: 0.001, Burst: 1})

	_, err := c.Deals.List(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Deals.List(ctx)
	assert.ErrorIs(t, err, ErrRateLimited)
}
