package types

// SessionState is the client's view of who is logged in.
// IsAuthenticated is true only when both User and Token are set.
type SessionState struct {
	User            *User  `json:"user"`
	Token           string `json:"-"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	IsLoading       bool   `json:"isLoading"`
}

// InitialSessionState is the state before stored credentials are checked.
func InitialSessionState() SessionState {
	return SessionState{IsLoading: true}
}

// LoggedOutSessionState is the state after logout or failed verification.
func LoggedOutSessionState() SessionState {
	return SessionState{}
}

// Clone returns a copy that shares no memory with s.
func (s SessionState) Clone() SessionState {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
