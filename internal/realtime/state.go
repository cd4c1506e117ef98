package realtime

// State of the manager's current connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// SubscriptionPolicy decides what happens to subscriptions made while no
// connection exists, and to registrations when a connection is torn down.
type SubscriptionPolicy int

const (
	// SubscriptionsDropWhileDisconnected ignores subscriptions made without
	// a connection and forgets all registrations on teardown.
	SubscriptionsDropWhileDisconnected SubscriptionPolicy = iota
	// SubscriptionsPersistent keeps every registration until it is
	// unsubscribed, across reconnects and logins.
	SubscriptionsPersistent
)

func (p SubscriptionPolicy) String() string {
	switch p {
	case SubscriptionsDropWhileDisconnected:
		return "drop-while-disconnected"
	case SubscriptionsPersistent:
		return "persistent"
	default:
		return "unknown"
	}
}

// Unsubscribe removes one subscription. Calling it more than once is fine.
type Unsubscribe func()
