package entry

import (
	"log/slog"
	"time"

	"github.com/submux/submux-go/pkg/clock"
	"github.com/submux/submux-go/pkg/log"
	"github.com/submux/submux-go/pkg/pubsub"
	"github.com/submux/submux-go/pkg/promise"
	"github.com/submux/submux-go/pkg/wire"
)

// Default configuration values.
const (
	DefaultRequestTimeout             = 3 * time.Second
	DefaultSubscriptionsPerConnection = 5
)

// Config configures an Entry.
type Config struct {
	// RequestTimeout bounds the wait for a subscribe or unsubscribe
	// acknowledgement.
	RequestTimeout time.Duration

	// SubscriptionsPerConnection is the slot capacity of one connection.
	SubscriptionsPerConnection int

	// Clock schedules acknowledgement timeouts. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for debug logging. If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives subscribe/unsubscribe state transitions.
	// If nil, protocol logging is disabled.
	ProtocolLogger log.Logger
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:             DefaultRequestTimeout,
		SubscriptionsPerConnection: DefaultSubscriptionsPerConnection,
		Clock:                      clock.Real(),
	}
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.SubscriptionsPerConnection <= 0 {
		c.SubscriptionsPerConnection = DefaultSubscriptionsPerConnection
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	return c
}

// Conn is the raw pub/sub connection an Entry drives.
type Conn interface {
	// Subscribe sends a subscribe command. Messages on channel are decoded
	// with codec. A non-nil error means the command was not sent.
	Subscribe(kind pubsub.Kind, codec wire.Codec, channel pubsub.ChannelName) error

	// Unsubscribe sends an unsubscribe command.
	Unsubscribe(kind pubsub.Kind, channel pubsub.ChannelName) error

	// AddListener registers a low-level listener for every inbound event.
	AddListener(l pubsub.Listener)

	// RemoveListener deregisters a low-level listener. Unknown listeners
	// are ignored.
	RemoveListener(l pubsub.Listener)

	// Inject dispatches a locally generated status to the listeners as if
	// it had been received from the server.
	Inject(status pubsub.Status)

	// RemoveDisconnectListener drops the disconnect hook for channel.
	RemoveDisconnectListener(channel pubsub.ChannelName)
}

// Service is the routing service that owns the cross-connection view of
// subscriptions.
type Service interface {
	// Unsubscribe unsubscribes channel on whichever connection serves it
	// and yields the codec it was subscribed with.
	Unsubscribe(channel pubsub.ChannelName, kind pubsub.Kind) *promise.Promise[wire.Codec]

	// UnsubscribeLocked unsubscribes channel once its last listener is gone.
	UnsubscribeLocked(kind pubsub.Kind, channel pubsub.ChannelName) *promise.Promise[struct{}]
}

// Releaser is an admission permit held for the duration of one subscribe.
type Releaser interface {
	Release()
}

// identifier is implemented by connections that carry a stable ID.
type identifier interface {
	ID() string
}
