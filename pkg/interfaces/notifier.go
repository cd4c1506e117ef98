package interfaces

// Notifier surfaces short user-visible messages (toasts).
type Notifier interface {
	Success(message string)
	Error(message string)
}
