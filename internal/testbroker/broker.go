// Package testbroker is an in-process pub/sub broker speaking the submux
// wire protocol. It backs transport, service and command tests, and the
// submux-broker demo binary.
//
// Acknowledgements can be suppressed per command kind to exercise timeout
// recovery in clients.
package testbroker

import (
	"context"
	"log/slog"
	"path"
	"sync"
	"sync/atomic"

	"github.com/submux/submux-go/pkg/log"
	"github.com/submux/submux-go/pkg/pubsub"
	"github.com/submux/submux-go/pkg/transport"
	"github.com/submux/submux-go/pkg/wire"
)

// Config configures a Broker.
type Config struct {
	// Address to listen on. Defaults to "127.0.0.1:0".
	Address string

	// Logger is used for debug logging. If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives transport events.
	ProtocolLogger log.Logger
}

type session struct {
	conn *transport.ServerConn

	mu       sync.Mutex
	channels map[pubsub.ChannelName]struct{}
	patterns map[pubsub.ChannelName]struct{}
}

func (s *session) count() int {
	return len(s.channels) + len(s.patterns)
}

// Broker is a minimal pub/sub server.
type Broker struct {
	server *transport.Server
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[*transport.ServerConn]*session

	dropAcks [pubsub.PUnsubscribe + 1]atomic.Bool
	commands [pubsub.PUnsubscribe + 1]atomic.Int64
}

// New creates a broker. Call Start to listen.
func New(cfg Config) *Broker {
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:0"
	}
	b := &Broker{
		logger:   cfg.Logger,
		sessions: make(map[*transport.ServerConn]*session),
	}
	b.server = transport.NewServer(transport.ServerConfig{
		Address:      cfg.Address,
		Logger:       cfg.ProtocolLogger,
		OnConnect:    b.onConnect,
		OnDisconnect: b.onDisconnect,
		OnFrame:      b.onFrame,
		OnError: func(_ *transport.ServerConn, err error) {
			b.debugLog("connection error", "error", err)
		},
	})
	return b
}

// Start begins accepting connections.
func (b *Broker) Start(ctx context.Context) error {
	return b.server.Start(ctx)
}

// Stop closes every connection.
func (b *Broker) Stop() error {
	return b.server.Stop()
}

// Addr returns the listen address.
func (b *Broker) Addr() string {
	return b.server.Addr().String()
}

// ConnectionCount returns the number of connected clients.
func (b *Broker) ConnectionCount() int {
	return b.server.ConnectionCount()
}

// DropAcks makes the broker apply commands of kind without acknowledging them.
func (b *Broker) DropAcks(kind pubsub.Kind, drop bool) {
	if kind.Valid() {
		b.dropAcks[kind].Store(drop)
	}
}

// Commands returns how many commands of kind were received.
func (b *Broker) Commands(kind pubsub.Kind) int {
	if !kind.Valid() {
		return 0
	}
	return int(b.commands[kind].Load())
}

// Subscribers returns the number of connections subscribed to channel,
// directly or through a pattern that matches it.
func (b *Broker) Subscribers(channel pubsub.ChannelName) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, s := range b.sessions {
		if _, ok := s.match(channel); ok {
			n++
		}
	}
	return n
}

// Publish delivers payload to every subscriber of channel and returns the
// number of deliveries.
func (b *Broker) Publish(channel pubsub.ChannelName, payload []byte) int {
	b.mu.RLock()
	sessions := make([]*session, 0, len(b.sessions))
	for _, s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.mu.RUnlock()

	delivered := 0
	for _, s := range sessions {
		s.mu.Lock()
		_, direct := s.channels[channel]
		var matched []pubsub.ChannelName
		for p := range s.patterns {
			if ok, _ := path.Match(p.Name, channel.Name); ok {
				matched = append(matched, p)
			}
		}
		s.mu.Unlock()

		if direct && s.conn.Send(wire.MessageFrame(channel, pubsub.ChannelName{}, payload)) == nil {
			delivered++
		}
		for _, p := range matched {
			if s.conn.Send(wire.MessageFrame(channel, p, payload)) == nil {
				delivered++
			}
		}
	}
	return delivered
}

func (s *session) match(channel pubsub.ChannelName) (pubsub.ChannelName, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[channel]; ok {
		return channel, true
	}
	for p := range s.patterns {
		if ok, _ := path.Match(p.Name, channel.Name); ok {
			return p, true
		}
	}
	return pubsub.ChannelName{}, false
}

func (b *Broker) onConnect(conn *transport.ServerConn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[conn] = &session{
		conn:     conn,
		channels: make(map[pubsub.ChannelName]struct{}),
		patterns: make(map[pubsub.ChannelName]struct{}),
	}
	b.debugLog("client connected", "conn", conn.ConnID(), "remote", conn.RemoteAddr())
}

func (b *Broker) onDisconnect(conn *transport.ServerConn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, conn)
	b.debugLog("client disconnected", "conn", conn.ConnID())
}

func (b *Broker) onFrame(conn *transport.ServerConn, f *wire.Frame) {
	switch f.Type {
	case wire.FrameCommand:
		b.handleCommand(conn, f)
	case wire.FramePublish:
		n := b.Publish(f.Channel, f.Payload)
		b.debugLog("published", "channel", f.Channel, "deliveries", n)
	default:
		b.debugLog("ignoring frame", "type", f.Type)
	}
}

func (b *Broker) handleCommand(conn *transport.ServerConn, f *wire.Frame) {
	b.mu.RLock()
	s := b.sessions[conn]
	b.mu.RUnlock()
	if s == nil {
		return
	}
	b.commands[f.Kind].Add(1)

	s.mu.Lock()
	set := s.channels
	if f.Kind.IsPattern() {
		set = s.patterns
	}
	if f.Kind.IsSubscribe() {
		set[f.Channel] = struct{}{}
	} else {
		delete(set, f.Channel)
	}
	count := s.count()
	s.mu.Unlock()

	if b.dropAcks[f.Kind].Load() {
		b.debugLog("dropping acknowledgement", "kind", f.Kind, "channel", f.Channel)
		return
	}
	if err := conn.Send(wire.AckFrame(f.Kind, f.Channel, count)); err != nil {
		b.debugLog("ack send failed", "error", err)
	}
}

func (b *Broker) debugLog(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}
