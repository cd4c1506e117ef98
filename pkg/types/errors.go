package types

import "errors"

var (
	ErrInvalidEmail          = errors.New("email is required")
	ErrInvalidPassword       = errors.New("password is required")
	ErrInvalidName           = errors.New("first and last name are required")
	ErrInvalidRole           = errors.New("role must be OWNER or TENANT")
	ErrInvalidConversationID = errors.New("conversation ID is required")
)
