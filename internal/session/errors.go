package session

import "errors"

// Fallback messages when the server rejects without saying why.
const (
	LoginFailedMessage        = "Login failed"
	RegistrationFailedMessage = "Registration failed"
)

var ErrMalformedAuthPayload = errors.New("auth payload missing user or token")

// AuthError is a rejected login or registration. State is never modified
// when it is returned.
type AuthError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
