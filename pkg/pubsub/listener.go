package pubsub

import "sync/atomic"

// Listener receives low-level events from a connection. Implementations must
// be safe for concurrent use and must not block; the connection calls them
// from its read loop.
type Listener interface {
	// OnMessage is called for every inbound publication.
	OnMessage(msg *Message)

	// OnStatus is called for every subscribe/unsubscribe acknowledgement.
	OnStatus(status Status)
}

// MessageHandler is a user callback for publications.
type MessageHandler func(msg *Message)

// HandlerID identifies a user handler wrapped by a listener.
type HandlerID uint64

// Delegator is implemented by listeners that wrap a user handler.
type Delegator interface {
	Delegate() HandlerID
}

// Identified is implemented by listeners that carry a stable listener ID.
type Identified interface {
	ListenerID() uint64
}

var (
	nextHandlerID  atomic.Uint64
	nextListenerID atomic.Uint64
)

// NewHandlerID returns a process-unique handler ID.
func NewHandlerID() HandlerID {
	return HandlerID(nextHandlerID.Add(1))
}

// BaseListener implements Listener with no-op methods. Embed it to
// implement only the callbacks you need.
type BaseListener struct{}

// OnMessage does nothing.
func (BaseListener) OnMessage(*Message) {}

// OnStatus does nothing.
func (BaseListener) OnStatus(Status) {}

// MessageListener delivers publications on one channel to a user handler.
type MessageListener struct {
	BaseListener

	id      uint64
	channel ChannelName
	handler MessageHandler
	handle  HandlerID
}

// NewMessageListener wraps handler for messages published to channel.
// The handle identifies handler for later removal by delegate.
func NewMessageListener(channel ChannelName, handle HandlerID, handler MessageHandler) *MessageListener {
	return &MessageListener{
		id:      nextListenerID.Add(1),
		channel: channel,
		handler: handler,
		handle:  handle,
	}
}

// OnMessage forwards direct (non-pattern) messages for the listener's channel.
func (l *MessageListener) OnMessage(msg *Message) {
	if msg.IsPattern() || msg.Channel != l.channel {
		return
	}
	l.handler(msg)
}

// Delegate returns the wrapped handler's ID.
func (l *MessageListener) Delegate() HandlerID { return l.handle }

// ListenerID returns the listener's ID.
func (l *MessageListener) ListenerID() uint64 { return l.id }

// Channel returns the channel the listener is bound to.
func (l *MessageListener) Channel() ChannelName { return l.channel }

// PatternListener delivers publications matched by one pattern to a user handler.
type PatternListener struct {
	BaseListener

	id      uint64
	pattern ChannelName
	handler MessageHandler
	handle  HandlerID
}

// NewPatternListener wraps handler for messages matched by pattern.
func NewPatternListener(pattern ChannelName, handle HandlerID, handler MessageHandler) *PatternListener {
	return &PatternListener{
		id:      nextListenerID.Add(1),
		pattern: pattern,
		handler: handler,
		handle:  handle,
	}
}

// OnMessage forwards messages delivered through the listener's pattern.
func (l *PatternListener) OnMessage(msg *Message) {
	if msg.Pattern != l.pattern {
		return
	}
	l.handler(msg)
}

// Delegate returns the wrapped handler's ID.
func (l *PatternListener) Delegate() HandlerID { return l.handle }

// ListenerID returns the listener's ID.
func (l *PatternListener) ListenerID() uint64 { return l.id }

// Pattern returns the pattern the listener is bound to.
func (l *PatternListener) Pattern() ChannelName { return l.pattern }

// StatusListener adapts a function to a Listener that only observes
// statuses. It is a pointer type so it can be compared and deregistered.
type StatusListener struct {
	BaseListener
	fn func(status Status)
}

// NewStatusListener returns a listener calling fn for every status.
func NewStatusListener(fn func(status Status)) *StatusListener {
	return &StatusListener{fn: fn}
}

// OnStatus calls the wrapped function.
func (l *StatusListener) OnStatus(status Status) { l.fn(status) }

// Compile-time interface satisfaction checks.
var (
	_ Listener   = BaseListener{}
	_ Listener   = (*MessageListener)(nil)
	_ Listener   = (*PatternListener)(nil)
	_ Listener   = (*StatusListener)(nil)
	_ Delegator  = (*MessageListener)(nil)
	_ Delegator  = (*PatternListener)(nil)
	_ Identified = (*MessageListener)(nil)
	_ Identified = (*PatternListener)(nil)
)
