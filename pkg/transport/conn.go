package transport

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/submux/submux-go/pkg/log"
	"github.com/submux/submux-go/pkg/pubsub"
	"github.com/submux/submux-go/pkg/wire"
)

// ConnectionState is the lifecycle state of a Conn.
type ConnectionState int32

const (
	// StateConnected indicates the read loop is running.
	StateConnected ConnectionState = iota

	// StateClosing indicates Close was called and the loop is stopping.
	StateClosing

	// StateClosed indicates the read loop has exited.
	StateClosed
)

// String returns the connection state name.
func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ErrConnectionClosed is returned by operations on a closed Conn.
var ErrConnectionClosed = errors.New("connection closed")

// ConnConfig configures a Conn.
type ConnConfig struct {
	// MaxMessageSize bounds frame payloads (default: 1 MiB).
	MaxMessageSize uint32

	// RemoteAddr is recorded in protocol log events.
	RemoteAddr string

	// Logger is used for debug logging. If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives frame and wire events. If nil, protocol
	// logging is disabled.
	ProtocolLogger log.Logger
}

// Conn is a client pub/sub connection over an established byte stream. It
// sends commands, dispatches inbound acknowledgements and publications to
// registered listeners, and runs disconnect hooks when the stream ends.
type Conn struct {
	id     string
	rwc    io.ReadWriteCloser
	framer *Framer
	config ConnConfig

	listenersMu sync.RWMutex
	listeners   []pubsub.Listener

	codecsMu sync.Mutex
	codecs   map[codecKey]wire.Codec

	hooksMu sync.Mutex
	hooks   map[pubsub.ChannelName]func()

	state     atomic.Int32
	closeOnce sync.Once
	done      chan struct{}
	err       error

	logger         *slog.Logger
	protocolLogger log.Logger
}

// NewConn wraps rwc and starts its read loop.
func NewConn(rwc io.ReadWriteCloser, config ConnConfig) *Conn {
	c := &Conn{
		id:             uuid.NewString(),
		rwc:            rwc,
		framer:         NewFramer(rwc, config.MaxMessageSize),
		config:         config,
		codecs:         make(map[codecKey]wire.Codec),
		hooks:          make(map[pubsub.ChannelName]func()),
		done:           make(chan struct{}),
		logger:         config.Logger,
		protocolLogger: config.ProtocolLogger,
	}
	if c.protocolLogger != nil {
		c.framer.SetLogger(c.protocolLogger, c.id)
	}
	c.logState("", StateConnected.String(), "")

	go c.readLoop()
	return c
}

// ID returns the connection ID used in protocol logs.
func (c *Conn) ID() string { return c.id }

// State returns the current connection state.
func (c *Conn) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// Done is closed once the read loop has exited.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns the error that ended the read loop, or nil for a clean close.
// It is valid after Done is closed.
func (c *Conn) Err() error {
	<-c.done
	return c.err
}

func (c *Conn) String() string {
	return fmt.Sprintf("Conn [id=%s, remote=%s, state=%s]", c.id, c.config.RemoteAddr, c.State())
}

// codecKey separates a channel subscribed by name from the same name
// subscribed as a pattern.
type codecKey struct {
	channel pubsub.ChannelName
	pattern bool
}

func keyFor(kind pubsub.Kind, channel pubsub.ChannelName) codecKey {
	return codecKey{channel: channel, pattern: kind.IsPattern()}
}

// Subscribe sends a subscribe command. Publications on channel are decoded
// with codec; a nil codec passes payloads through as bytes. If the command
// cannot be sent, the codec previously registered for channel is restored.
func (c *Conn) Subscribe(kind pubsub.Kind, codec wire.Codec, channel pubsub.ChannelName) error {
	if codec == nil {
		codec = wire.RawCodec{}
	}
	key := keyFor(kind, channel)

	// Publications may arrive as soon as the command is sent.
	c.codecsMu.Lock()
	prev, hadPrev := c.codecs[key]
	c.codecs[key] = codec
	c.codecsMu.Unlock()

	if err := c.send(wire.CommandFrame(kind, channel)); err != nil {
		c.codecsMu.Lock()
		if hadPrev {
			c.codecs[key] = prev
		} else {
			delete(c.codecs, key)
		}
		c.codecsMu.Unlock()
		return err
	}
	return nil
}

// Unsubscribe sends an unsubscribe command.
func (c *Conn) Unsubscribe(kind pubsub.Kind, channel pubsub.ChannelName) error {
	return c.send(wire.CommandFrame(kind, channel))
}

// Publish encodes v with codec and asks the server to publish it on channel.
func (c *Conn) Publish(channel pubsub.ChannelName, codec wire.Codec, v any) error {
	if codec == nil {
		codec = wire.RawCodec{}
	}
	payload, err := codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return c.send(wire.PublishFrame(channel, payload))
}

// Codec returns the codec channel was subscribed with by a command of
// kind's family. Either the subscribe or the unsubscribe kind may be passed.
func (c *Conn) Codec(kind pubsub.Kind, channel pubsub.ChannelName) (wire.Codec, bool) {
	c.codecsMu.Lock()
	defer c.codecsMu.Unlock()
	codec, ok := c.codecs[keyFor(kind, channel)]
	return codec, ok
}

func (c *Conn) send(f *wire.Frame) error {
	if c.State() != StateConnected {
		return ErrConnectionClosed
	}
	data, err := wire.EncodeFrame(f)
	if err != nil {
		return err
	}
	if err := c.framer.WriteFrame(data); err != nil {
		c.logError(err, "send "+f.Type.String())
		return err
	}
	c.logFrame(log.DirectionOut, f, false)
	return nil
}

// AddListener registers l for every inbound status and publication.
func (c *Conn) AddListener(l pubsub.Listener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, l)
}

// RemoveListener deregisters one registration of l.
func (c *Conn) RemoveListener(l pubsub.Listener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	if i := slices.Index(c.listeners, l); i >= 0 {
		c.listeners = slices.Delete(c.listeners, i, i+1)
	}
}

// ListenerCount returns the number of registered listeners.
func (c *Conn) ListenerCount() int {
	c.listenersMu.RLock()
	defer c.listenersMu.RUnlock()
	return len(c.listeners)
}

func (c *Conn) snapshot() []pubsub.Listener {
	c.listenersMu.RLock()
	defer c.listenersMu.RUnlock()
	return slices.Clone(c.listeners)
}

// Inject dispatches status to the listeners on the calling goroutine as if
// the server had sent it.
func (c *Conn) Inject(status pubsub.Status) {
	c.logFrame(log.DirectionLocal, wire.AckFrame(status.Kind, status.Channel, status.Count), true)
	c.dispatchStatus(status)
}

// AddDisconnectListener registers fn to run once if the connection ends
// while channel is still subscribed. A later registration for the same
// channel replaces the earlier one.
func (c *Conn) AddDisconnectListener(channel pubsub.ChannelName, fn func()) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.hooks[channel] = fn
}

// RemoveDisconnectListener drops the disconnect hook of channel.
func (c *Conn) RemoveDisconnectListener(channel pubsub.ChannelName) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	delete(c.hooks, channel)
}

// Close closes the stream and waits for the read loop to exit.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.CompareAndSwap(int32(StateConnected), int32(StateClosing))
		err = c.rwc.Close()
	})
	<-c.done
	return err
}

func (c *Conn) readLoop() {
	var loopErr error
	for {
		data, err := c.framer.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && c.State() == StateConnected {
				loopErr = err
			}
			break
		}

		f, err := wire.DecodeFrame(data)
		if err != nil {
			c.debugLog("dropping undecodable frame", "error", err)
			c.logError(err, "decode frame")
			continue
		}
		c.handleFrame(f)
	}
	c.shutdown(loopErr)
}

func (c *Conn) handleFrame(f *wire.Frame) {
	c.logFrame(log.DirectionIn, f, false)

	switch f.Type {
	case wire.FrameAck:
		c.dispatchStatus(f.Status())
	case wire.FrameMessage:
		c.dispatchMessage(f)
	default:
		c.debugLog("ignoring unexpected frame", "type", f.Type, "channel", f.Channel)
	}
}

func (c *Conn) dispatchStatus(status pubsub.Status) {
	for _, l := range c.snapshot() {
		l.OnStatus(status)
	}
	if !status.Kind.IsSubscribe() {
		c.codecsMu.Lock()
		delete(c.codecs, keyFor(status.Kind, status.Channel))
		c.codecsMu.Unlock()
	}
}

func (c *Conn) dispatchMessage(f *wire.Frame) {
	key := f.Channel
	kind := pubsub.Subscribe
	if !f.Pattern.IsZero() {
		key = f.Pattern
		kind = pubsub.PSubscribe
	}
	codec, ok := c.Codec(kind, key)
	if !ok {
		codec = wire.RawCodec{}
	}
	payload, err := codec.Decode(f.Payload)
	if err != nil {
		c.logError(err, "decode payload on "+key.String())
		return
	}

	msg := &pubsub.Message{Channel: f.Channel, Pattern: f.Pattern, Payload: payload}
	for _, l := range c.snapshot() {
		l.OnMessage(msg)
	}
}

func (c *Conn) shutdown(err error) {
	c.err = err
	c.state.Store(int32(StateClosed))
	c.closeOnce.Do(func() { _ = c.rwc.Close() })

	c.hooksMu.Lock()
	hooks := c.hooks
	c.hooks = make(map[pubsub.ChannelName]func())
	c.hooksMu.Unlock()

	reason := "closed"
	if err != nil {
		reason = err.Error()
	}
	c.debugLog("connection closed", "hooks", len(hooks), "reason", reason)
	c.logState(StateConnected.String(), StateClosed.String(), reason)

	close(c.done)
	for _, fn := range hooks {
		fn()
	}
}

func (c *Conn) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, append([]any{"conn", c.id}, args...)...)
	}
}

func (c *Conn) logFrame(dir log.Direction, f *wire.Frame, synthesized bool) {
	if c.protocolLogger == nil {
		return
	}
	category := log.CategoryCommand
	switch f.Type {
	case wire.FrameAck:
		category = log.CategoryStatus
	case wire.FrameMessage:
		category = log.CategoryMessage
	}
	channel := f.Channel.String()
	c.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     category,
		RemoteAddr:   c.config.RemoteAddr,
		Channel:      channel,
		Kind:         f.Kind,
		Wire: &log.WireEvent{
			FrameType:   f.Type.String(),
			Pattern:     f.Pattern.String(),
			Count:       f.Count,
			PayloadSize: len(f.Payload),
			Synthesized: synthesized,
		},
	})
}

func (c *Conn) logState(from, to, reason string) {
	if c.protocolLogger == nil {
		return
	}
	c.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    log.DirectionLocal,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   c.config.RemoteAddr,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: from,
			NewState: to,
			Reason:   reason,
		},
	})
}

func (c *Conn) logError(err error, context string) {
	if c.protocolLogger == nil {
		return
	}
	c.protocolLogger.Log(log.NewErrorEvent(c.id, log.LayerTransport, err, context))
}
