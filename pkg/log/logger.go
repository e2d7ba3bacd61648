package log

// Logger receives protocol events from the transport and entry layers.
// A nil Logger disables protocol logging.
type Logger interface {
	// Log records one event. It is called from connection read loops and
	// timer callbacks, so it must be safe for concurrent use and must not
	// block.
	Log(event Event)
}

// NoopLogger drops every event.
type NoopLogger struct{}

// Log drops the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
