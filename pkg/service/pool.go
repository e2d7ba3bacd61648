package service

import (
	"context"
	"fmt"
	"hash/maphash"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/submux/submux-go/pkg/admission"
	"github.com/submux/submux-go/pkg/clock"
	"github.com/submux/submux-go/pkg/entry"
	"github.com/submux/submux-go/pkg/pubsub"
	"github.com/submux/submux-go/pkg/promise"
	"github.com/submux/submux-go/pkg/wire"
)

// Default pool limits.
const (
	DefaultMaxConnections = 8
	DefaultAdmissionLimit = 64

	// channelLockStripes is the number of locks channels are hashed onto.
	channelLockStripes = 50
)

// Config configures a Pool.
type Config struct {
	// Connect opens new connections. Required.
	Connect Connector

	// MaxConnections bounds the number of open connections.
	MaxConnections int

	// AdmissionLimit bounds the number of subscribes in flight.
	AdmissionLimit int

	// Entry configures every connection entry.
	Entry entry.Config

	// Logger is used for debug logging. If nil, logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with default limits and no connector.
func DefaultConfig() Config {
	return Config{
		MaxConnections: DefaultMaxConnections,
		AdmissionLimit: DefaultAdmissionLimit,
		Entry:          entry.DefaultConfig(),
	}
}

type poolEntry struct {
	*entry.Entry
	conn Conn
}

// Pool multiplexes subscriptions onto a bounded set of connections. Each
// channel is served by exactly one connection entry, chosen when the
// channel is first subscribed.
//
// Pool implements entry.Service, so entries route their compensating and
// rollback unsubscribes back through it.
type Pool struct {
	config  Config
	gate    *admission.Gate
	tracker *connTracker
	seed    maphash.Seed
	locks   [channelLockStripes]sync.Mutex

	mu      sync.Mutex
	entries []*poolEntry
	owners  map[pubsub.ChannelName]*poolEntry
	dialing int
	closed  bool

	// unsubscribing holds a channel per channel whose unsubscribe has not
	// settled yet. It is closed once the entry has purged the channel.
	unsubscribing map[pubsub.ChannelName]chan struct{}

	logger *slog.Logger
}

// Compile-time checks: *Pool and the service handed to entries implement
// entry.Service.
var (
	_ entry.Service = (*Pool)(nil)
	_ entry.Service = entryService{}
)

// NewPool creates a pool. Connections are opened lazily.
func NewPool(config Config) (*Pool, error) {
	if config.Connect == nil {
		return nil, ErrNoConnector
	}
	if config.MaxConnections <= 0 {
		config.MaxConnections = DefaultMaxConnections
	}
	if config.AdmissionLimit <= 0 {
		config.AdmissionLimit = DefaultAdmissionLimit
	}
	if config.Entry.Clock == nil {
		config.Entry.Clock = clock.Real()
	}
	if config.Entry.Logger == nil {
		config.Entry.Logger = config.Logger
	}

	gate, err := admission.NewGate(config.AdmissionLimit)
	if err != nil {
		return nil, err
	}

	return &Pool{
		config:  config,
		gate:    gate,
		tracker: newConnTracker(config.Entry.Clock),
		seed:    maphash.MakeSeed(),
		owners:  make(map[pubsub.ChannelName]*poolEntry),
		logger:  config.Logger,

		unsubscribing: make(map[pubsub.ChannelName]chan struct{}),
	}, nil
}

func (p *Pool) channelLock(channel pubsub.ChannelName) *sync.Mutex {
	return &p.locks[maphash.Comparable(p.seed, channel)%channelLockStripes]
}

// Subscribe subscribes channel on the connection that serves it, or on a
// connection with a free slot when no connection does yet. It blocks until
// an admission permit is available or ctx is done, and while an earlier
// unsubscribe of channel is waiting for its acknowledgement.
func (p *Pool) Subscribe(ctx context.Context, kind pubsub.Kind, codec wire.Codec, channel pubsub.ChannelName, listeners ...pubsub.Listener) *promise.Promise[*entry.Entry] {
	if !kind.IsSubscribe() {
		return promise.Failed[*entry.Entry](fmt.Errorf("%w: %s is not a subscribe kind", entry.ErrInvalidKind, kind))
	}

	permit, err := p.gate.Acquire(ctx)
	if err != nil {
		return promise.Failed[*entry.Entry](err)
	}

	mu := p.channelLock(channel)
	for {
		mu.Lock()
		pe, wait, err := p.route(ctx, channel)
		if err != nil {
			mu.Unlock()
			permit.Release()
			return promise.Failed[*entry.Entry](err)
		}
		if wait == nil {
			p.tracker.Touch(pe)
			pm := pe.Subscribe(codec, kind, channel, permit, listeners...)
			mu.Unlock()
			return pm
		}
		mu.Unlock()

		p.debugLog("waiting for pending unsubscribe", "channel", channel)
		select {
		case <-wait:
		case <-ctx.Done():
			permit.Release()
			return promise.Failed[*entry.Entry](ctx.Err())
		}
	}
}

// route returns the entry owning channel, assigning one if needed. While an
// unsubscribe of channel is pending it returns a channel that is closed once
// the unsubscribe settles instead. Callers hold the channel lock.
func (p *Pool) route(ctx context.Context, channel pubsub.ChannelName) (*poolEntry, <-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, nil, ErrPoolClosed
	}
	if wait, ok := p.unsubscribing[channel]; ok {
		return nil, wait, nil
	}
	if pe, ok := p.owners[channel]; ok {
		return pe, nil, nil
	}

	pe, err := p.acquireSlot(ctx)
	if err != nil {
		return nil, nil, err
	}
	p.owners[channel] = pe
	pe.conn.AddDisconnectListener(channel, func() {
		p.disown(channel, pe)
	})
	p.debugLog("channel assigned", "channel", channel, "entry", pe.ID(), "freeSlots", pe.FreeSlots())
	return pe, nil, nil
}

// acquireSlot reserves a slot on the first entry that has one, opening a
// new connection when all are full. Callers hold p.mu; it is released while
// dialing.
func (p *Pool) acquireSlot(ctx context.Context) (*poolEntry, error) {
	for _, pe := range p.entries {
		if _, ok := pe.TryAcquireSlot(); ok {
			return pe, nil
		}
	}

	pe, err := p.connectLocked(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := pe.TryAcquireSlot(); !ok {
		return nil, fmt.Errorf("%w: new connection has no slots", ErrNoConnection)
	}
	return pe, nil
}

// connectLocked opens a connection and adds its entry. Callers hold p.mu;
// it is released while dialing. Dials in progress count against
// MaxConnections.
func (p *Pool) connectLocked(ctx context.Context) (*poolEntry, error) {
	if n := len(p.entries) + p.dialing; n >= p.config.MaxConnections {
		return nil, fmt.Errorf("%w: %d connections in use", ErrNoConnection, n)
	}

	p.dialing++
	p.mu.Unlock()
	conn, err := p.config.Connect(ctx)
	p.mu.Lock()
	p.dialing--

	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if p.closed {
		p.mu.Unlock()
		_ = conn.Close()
		p.mu.Lock()
		return nil, ErrPoolClosed
	}

	pe := &poolEntry{
		Entry: entry.New(conn, entryService{p}, p.config.Entry),
		conn:  conn,
	}
	p.entries = append(p.entries, pe)
	p.tracker.Add(pe)
	go p.watch(pe)

	p.debugLog("connection opened", "entry", pe.ID(), "connections", len(p.entries))
	return pe, nil
}

// watch drops pe from the pool once its connection ends.
func (p *Pool) watch(pe *poolEntry) {
	<-pe.conn.Done()
	p.remove(pe)
}

func (p *Pool) remove(pe *poolEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i := slices.Index(p.entries, pe); i >= 0 {
		p.entries = slices.Delete(p.entries, i, i+1)
		p.debugLog("connection removed", "entry", pe.ID(), "connections", len(p.entries))
	}
	for channel, owner := range p.owners {
		if owner == pe {
			delete(p.owners, channel)
		}
	}
	p.tracker.Remove(pe)
}

// disown forgets that pe serves channel.
func (p *Pool) disown(channel pubsub.ChannelName, pe *poolEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if owner, ok := p.owners[channel]; ok && owner == pe {
		delete(p.owners, channel)
	}
}

func (p *Pool) owner(channel pubsub.ChannelName) (*poolEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pe, ok := p.owners[channel]
	return pe, ok
}

// Unsubscribe unsubscribes channel on the connection serving it. The
// promise yields the codec the channel was subscribed with, or nil when no
// connection serves the channel.
//
// The channel is unassigned immediately. Subscribes of channel wait until
// the unsubscribe is acknowledged or has failed to send; the slot is
// returned at the same point.
func (p *Pool) Unsubscribe(channel pubsub.ChannelName, kind pubsub.Kind) *promise.Promise[wire.Codec] {
	mu := p.channelLock(channel)
	mu.Lock()
	defer mu.Unlock()
	return p.unsubscribeOwned(channel, kind)
}

func (p *Pool) unsubscribeOwned(channel pubsub.ChannelName, kind pubsub.Kind) *promise.Promise[wire.Codec] {
	p.mu.Lock()
	pe, ok := p.owners[channel]
	if !ok {
		p.mu.Unlock()
		return promise.Completed[wire.Codec](nil)
	}
	done := p.disownLocked(channel)
	p.mu.Unlock()
	return p.unsubscribe(pe, kind, channel, done)
}

// disownLocked unassigns channel and marks its unsubscribe as pending.
// Callers hold p.mu.
func (p *Pool) disownLocked(channel pubsub.ChannelName) chan struct{} {
	delete(p.owners, channel)
	done := make(chan struct{})
	p.unsubscribing[channel] = done
	return done
}

func (p *Pool) unsubscribe(pe *poolEntry, kind pubsub.Kind, channel pubsub.ChannelName, done chan struct{}) *promise.Promise[wire.Codec] {
	pm := promise.New[wire.Codec]()
	codec, _ := pe.conn.Codec(kind, channel)

	err := pe.Unsubscribe(kind, channel, pubsub.NewStatusListener(func(pubsub.Status) {
		p.releaseSlot(pe)
		p.unsubscribed(channel, done)
		pm.Complete(codec)
	}))
	if err != nil {
		p.debugLog("unsubscribe failed", "channel", channel, "entry", pe.ID(), "error", err)
		p.releaseSlot(pe)
		p.unsubscribed(channel, done)
		pm.Fail(err)
	}
	return pm
}

// unsubscribed clears the pending mark set by disownLocked and wakes the
// subscribes waiting on it.
func (p *Pool) unsubscribed(channel pubsub.ChannelName, done chan struct{}) {
	p.mu.Lock()
	if p.unsubscribing[channel] == done {
		delete(p.unsubscribing, channel)
	}
	p.mu.Unlock()
	close(done)
}

func (p *Pool) releaseSlot(pe *poolEntry) {
	free := pe.ReleaseSlot()
	p.tracker.Touch(pe)
	p.debugLog("slot released", "entry", pe.ID(), "freeSlots", free)
}

// UnsubscribeLocked unsubscribes channel if its serving connection has no
// listener left for it. It does not take the channel lock; callers must
// hold it.
func (p *Pool) UnsubscribeLocked(kind pubsub.Kind, channel pubsub.ChannelName) *promise.Promise[struct{}] {
	p.mu.Lock()
	pe, ok := p.owners[channel]
	if !ok || pe.HasListeners(channel) {
		p.mu.Unlock()
		return promise.Completed(struct{}{})
	}
	done := p.disownLocked(channel)
	p.mu.Unlock()

	pm := promise.New[struct{}]()
	p.unsubscribe(pe, kind, channel, done).OnComplete(func(_ wire.Codec, err error) {
		if err != nil {
			pm.Fail(err)
			return
		}
		pm.Complete(struct{}{})
	})
	return pm
}

// RemoveListener removes l from channel, which was subscribed with kind.
// Removing the last listener unsubscribes the channel.
func (p *Pool) RemoveListener(kind pubsub.Kind, channel pubsub.ChannelName, l pubsub.Listener) *promise.Promise[struct{}] {
	return p.removeWith(kind, channel, func(pe *poolEntry) {
		pe.Entry.RemoveListener(channel, l)
	})
}

// RemoveHandler removes the listener wrapping the handler identified by id.
// Removing the last listener unsubscribes the channel.
func (p *Pool) RemoveHandler(kind pubsub.Kind, channel pubsub.ChannelName, id pubsub.HandlerID) *promise.Promise[struct{}] {
	return p.removeWith(kind, channel, func(pe *poolEntry) {
		pe.RemoveListenerByDelegate(channel, id)
	})
}

func (p *Pool) removeWith(kind pubsub.Kind, channel pubsub.ChannelName, remove func(*poolEntry)) *promise.Promise[struct{}] {
	if !kind.IsSubscribe() {
		return promise.Failed[struct{}](fmt.Errorf("%w: %s is not a subscribe kind", entry.ErrInvalidKind, kind))
	}

	mu := p.channelLock(channel)
	mu.Lock()
	defer mu.Unlock()

	pe, ok := p.owner(channel)
	if !ok {
		return promise.Completed(struct{}{})
	}
	remove(pe)
	return p.UnsubscribeLocked(kind.Unsubscribe(), channel)
}

// Publish publishes v on channel through any open connection.
func (p *Pool) Publish(ctx context.Context, channel pubsub.ChannelName, codec wire.Codec, v any) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	var pe *poolEntry
	if len(p.entries) > 0 {
		pe = p.entries[0]
	} else {
		var err error
		if pe, err = p.connectLocked(ctx); err != nil {
			p.mu.Unlock()
			return err
		}
	}
	p.mu.Unlock()

	return pe.conn.Publish(channel, codec, v)
}

// Owner returns the entry serving channel.
func (p *Pool) Owner(channel pubsub.ChannelName) (*entry.Entry, bool) {
	pe, ok := p.owner(channel)
	if !ok {
		return nil, false
	}
	return pe.Entry, true
}

// Entries returns the pool's connection entries in creation order.
func (p *Pool) Entries() []*entry.Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*entry.Entry, len(p.entries))
	for i, pe := range p.entries {
		out[i] = pe.Entry
	}
	return out
}

// ConnectionCount returns the number of open connections.
func (p *Pool) ConnectionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// InFlight returns the number of subscribes holding an admission permit.
func (p *Pool) InFlight() int {
	return p.gate.InUse()
}

// CloseIdle closes connections that have served no channel for at least
// maxIdle and returns how many were closed.
func (p *Pool) CloseIdle(maxIdle time.Duration) int {
	p.mu.Lock()
	idle := p.tracker.TakeIdle(maxIdle)
	for _, pe := range idle {
		if i := slices.Index(p.entries, pe); i >= 0 {
			p.entries = slices.Delete(p.entries, i, i+1)
		}
	}
	p.mu.Unlock()

	for _, pe := range idle {
		if err := pe.conn.Close(); err != nil {
			p.debugLog("close idle connection", "entry", pe.ID(), "error", err)
		}
	}
	return len(idle)
}

// Close closes every connection. Further subscribes fail with
// ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	entries := slices.Clone(p.entries)
	p.mu.Unlock()

	var g errgroup.Group
	for _, pe := range entries {
		g.Go(pe.conn.Close)
	}
	return g.Wait()
}

// entryService is the entry.Service the pool hands to its entries. Entries
// call it from their acknowledgement and timeout paths and from within
// Pool.Subscribe when a send fails, so it takes the channel lock on a
// goroutine of its own.
type entryService struct {
	p *Pool
}

func (s entryService) Unsubscribe(channel pubsub.ChannelName, kind pubsub.Kind) *promise.Promise[wire.Codec] {
	pm := promise.New[wire.Codec]()
	go func() {
		mu := s.p.channelLock(channel)
		mu.Lock()
		inner := s.p.unsubscribeOwned(channel, kind)
		mu.Unlock()
		inner.OnComplete(func(codec wire.Codec, err error) {
			if err != nil {
				pm.Fail(err)
				return
			}
			pm.Complete(codec)
		})
	}()
	return pm
}

func (s entryService) UnsubscribeLocked(kind pubsub.Kind, channel pubsub.ChannelName) *promise.Promise[struct{}] {
	pm := promise.New[struct{}]()
	go func() {
		mu := s.p.channelLock(channel)
		mu.Lock()
		inner := s.p.UnsubscribeLocked(kind, channel)
		mu.Unlock()
		inner.OnComplete(func(_ struct{}, err error) {
			if err != nil {
				pm.Fail(err)
				return
			}
			pm.Complete(struct{}{})
		})
	}()
	return pm
}

func (p *Pool) debugLog(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
