package api

import (
	"context"
	"net/http"

	"rentdirect/pkg/types"
)

// AuthEndpoints covers /auth. It satisfies interfaces.AuthAPI.
type AuthEndpoints struct {
	c *Client
}

func (a *AuthEndpoints) Login(ctx context.Context, req types.LoginRequest) (*types.Envelope[types.AuthPayload], error) {
	return send[types.AuthPayload](ctx, a.c, call{method: http.MethodPost, path: "/auth/login", body: req})
}

func (a *AuthEndpoints) Register(ctx context.Context, req types.RegisterRequest) (*types.Envelope[types.AuthPayload], error) {
	return send[types.AuthPayload](ctx, a.c, call{method: http.MethodPost, path: "/auth/register", body: req})
}

// GetProfile fetches the user behind token, or behind the current session
// token when token is empty.
func (a *AuthEndpoints) GetProfile(ctx context.Context, token string) (*types.Envelope[types.User], error) {
	return send[types.User](ctx, a.c, call{method: http.MethodGet, path: "/auth/profile", token: token})
}

func (a *AuthEndpoints) ForgotPassword(ctx context.Context, email string) (*types.Envelope[struct{}], error) {
	return send[struct{}](ctx, a.c, call{method: http.MethodPost, path: "/auth/forgot-password",
		body: map[string]string{"email": email}})
}

func (a *AuthEndpoints) VerifyOTP(ctx context.Context, email, otp string) (*types.Envelope[struct{}], error) {
	return send[struct{}](ctx, a.c, call{method: http.MethodPost, path: "/auth/verify-otp",
		body: map[string]string{"email": email, "otp": otp}})
}

func (a *AuthEndpoints) ResetPassword(ctx context.Context, email, otp, newPassword string) (*types.Envelope[struct{}], error) {
	return send[struct{}](ctx, a.c, call{method: http.MethodPost, path: "/auth/reset-password",
		body: map[string]string{"email": email, "otp": otp, "newPassword": newPassword}})
}
