package entry

import (
	"slices"
	"sync"
	"time"

	"github.com/submux/submux-go/pkg/clock"
	"github.com/submux/submux-go/pkg/pubsub"
	"github.com/submux/submux-go/pkg/wire"
)

type command struct {
	kind    pubsub.Kind
	channel pubsub.ChannelName
}

// fakeConn records commands and dispatches statuses synchronously to its
// low-level listeners.
type fakeConn struct {
	mu          sync.Mutex
	listeners   []pubsub.Listener
	subscribes  []command
	unsubs      []command
	injected    []pubsub.Status
	hooksPurged []pubsub.ChannelName

	subscribeErr   error
	unsubscribeErr error

	// ackUnsubscribe makes Unsubscribe acknowledge immediately.
	ackUnsubscribe bool
}

func (c *fakeConn) ID() string { return "fake-conn" }

func (c *fakeConn) Subscribe(kind pubsub.Kind, _ wire.Codec, channel pubsub.ChannelName) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribeErr != nil {
		return c.subscribeErr
	}
	c.subscribes = append(c.subscribes, command{kind, channel})
	return nil
}

func (c *fakeConn) Unsubscribe(kind pubsub.Kind, channel pubsub.ChannelName) error {
	c.mu.Lock()
	if c.unsubscribeErr != nil {
		c.mu.Unlock()
		return c.unsubscribeErr
	}
	c.unsubs = append(c.unsubs, command{kind, channel})
	ack := c.ackUnsubscribe
	c.mu.Unlock()

	if ack {
		c.status(pubsub.Status{Kind: kind, Channel: channel})
	}
	return nil
}

func (c *fakeConn) AddListener(l pubsub.Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *fakeConn) RemoveListener(l pubsub.Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.Index(c.listeners, l); i >= 0 {
		c.listeners = slices.Delete(c.listeners, i, i+1)
	}
}

func (c *fakeConn) Inject(status pubsub.Status) {
	c.mu.Lock()
	c.injected = append(c.injected, status)
	c.mu.Unlock()
	c.status(status)
}

func (c *fakeConn) RemoveDisconnectListener(channel pubsub.ChannelName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooksPurged = append(c.hooksPurged, channel)
}

// status delivers a server acknowledgement.
func (c *fakeConn) status(status pubsub.Status) {
	c.mu.Lock()
	snapshot := slices.Clone(c.listeners)
	c.mu.Unlock()
	for _, l := range snapshot {
		l.OnStatus(status)
	}
}

func (c *fakeConn) listenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *fakeConn) hasListener(l pubsub.Listener) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.listeners, l)
}

func (c *fakeConn) subscribeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribes)
}

func (c *fakeConn) unsubscribeCommands() []command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.unsubs)
}

func (c *fakeConn) injectedStatuses() []pubsub.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.injected)
}

const testTimeout = 3 * time.Second

func testConfig(clk clock.Clock) Config {
	return Config{
		RequestTimeout:             testTimeout,
		SubscriptionsPerConnection: 2,
		Clock:                      clk,
	}
}

func newFakeClock() *clock.FakeClock {
	return clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

// statusRecorder counts statuses it observes.
type statusRecorder struct {
	pubsub.BaseListener
	mu       sync.Mutex
	statuses []pubsub.Status
}

func (r *statusRecorder) OnStatus(s pubsub.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *statusRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.statuses)
}

func noopHandler(*pubsub.Message) {}

func newListener(channel pubsub.ChannelName) *pubsub.MessageListener {
	return pubsub.NewMessageListener(channel, pubsub.NewHandlerID(), noopHandler)
}
