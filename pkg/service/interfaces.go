package service

import (
	"context"

	"github.com/submux/submux-go/pkg/entry"
	"github.com/submux/submux-go/pkg/pubsub"
	"github.com/submux/submux-go/pkg/transport"
	"github.com/submux/submux-go/pkg/wire"
)

// Conn is a pooled pub/sub connection. It is satisfied by *transport.Conn.
type Conn interface {
	entry.Conn

	// Codec returns the codec channel was subscribed with by a command of
	// kind's family.
	Codec(kind pubsub.Kind, channel pubsub.ChannelName) (wire.Codec, bool)

	// Publish encodes v with codec and publishes it on channel.
	Publish(channel pubsub.ChannelName, codec wire.Codec, v any) error

	// AddDisconnectListener registers fn to run if the connection ends
	// while channel is subscribed.
	AddDisconnectListener(channel pubsub.ChannelName, fn func())

	// Done is closed once the connection has ended.
	Done() <-chan struct{}

	Close() error
}

// Compile-time check: *transport.Conn implements Conn.
var _ Conn = (*transport.Conn)(nil)

// Connector opens a new connection for the pool.
type Connector func(ctx context.Context) (Conn, error)

// DialConnector returns a Connector that dials address over TCP.
func DialConnector(address string, config transport.ConnConfig) Connector {
	return func(ctx context.Context) (Conn, error) {
		c, err := transport.Dial(ctx, address, config)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
