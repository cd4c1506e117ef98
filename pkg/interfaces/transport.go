package interfaces

import "encoding/json"

// TransportHandler receives lifecycle and event callbacks from a transport
// connection. Nil fields are skipped.
type TransportHandler struct {
	OnConnect    func()
	OnDisconnect func(err error)
	// OnClosed fires once when the transport gives up on its own, for
	// example after a rejected token. Never fires after the caller's Close.
	OnClosed func(err error)
	OnEvent  func(event string, data json.RawMessage)
}

// Transport opens authenticated realtime connections.
// Connect must not block on the network.
type Transport interface {
	Connect(token string, handler TransportHandler) (TransportConn, error)
}

// TransportConn is one logical realtime connection. It may reconnect
// internally; Close ends it and stops all callbacks.
type TransportConn interface {
	Emit(event string, payload any) error
	Close() error
}
