package types

import "strings"

// Validate checks a registration request before it is sent. Only owners and
// tenants may self-register; administrators are provisioned server-side.
func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return ErrInvalidEmail
	}
	if r.Password == "" {
		return ErrInvalidPassword
	}
	if strings.TrimSpace(r.FirstName) == "" || strings.TrimSpace(r.LastName) == "" {
		return ErrInvalidName
	}
	if r.Role != RoleOwner && r.Role != RoleTenant {
		return ErrInvalidRole
	}
	return nil
}

// Validate checks a login request before it is sent.
func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return ErrInvalidEmail
	}
	if r.Password == "" {
		return ErrInvalidPassword
	}
	return nil
}

// IsValidRole reports whether role is one the server assigns.
func IsValidRole(role Role) bool {
	switch role {
	case RoleOwner, RoleTenant, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsValidConversationID reports whether id can name a chat room. The
// server owns the format; only an empty id is rejected here.
func IsValidConversationID(id string) bool {
	return strings.TrimSpace(id) != ""
}
