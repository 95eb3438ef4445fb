// internal/notify/notifier.go
package notify

// Notifier pushes campaign events to whoever is watching. The worker
// depends on this interface, never on a concrete socket.
type Notifier interface {
	Emit(event string, payload any)
}

// Noop drops every event. Used by tests and the offline runner.
type Noop struct{}

func (Noop) Emit(event string, payload any) {}
