package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/submux/submux-go/internal/testbroker"
	"github.com/submux/submux-go/pkg/entry"
	"github.com/submux/submux-go/pkg/pubsub"
	"github.com/submux/submux-go/pkg/transport"
	"github.com/submux/submux-go/pkg/wire"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func startBroker(t *testing.T) *testbroker.Broker {
	t.Helper()
	b := testbroker.New(testbroker.Config{})
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { b.Stop() })
	return b
}

func newTestPool(t *testing.T, b *testbroker.Broker, mutate func(*Config)) *Pool {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Connect = DialConnector(b.Addr(), transport.ConnConfig{})
	cfg.Entry.RequestTimeout = 200 * time.Millisecond
	cfg.Entry.SubscriptionsPerConnection = 2
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := NewPool(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func await[T any](t *testing.T, pm interface {
	Wait(context.Context) (T, error)
}) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	return pm.Wait(ctx)
}

func messageSink(channel pubsub.ChannelName) (*pubsub.MessageListener, <-chan *pubsub.Message) {
	ch := make(chan *pubsub.Message, 16)
	l := pubsub.NewMessageListener(channel, pubsub.NewHandlerID(), func(msg *pubsub.Message) {
		ch <- msg
	})
	return l, ch
}

func TestNewPoolRequiresConnector(t *testing.T) {
	_, err := NewPool(DefaultConfig())
	assert.ErrorIs(t, err, ErrNoConnector)
}

func TestPoolSubscribeReceivesMessages(t *testing.T) {
	b := startBroker(t)
	p := newTestPool(t, b, nil)

	ch := pubsub.Channel("news")
	l, msgs := messageSink(ch)
	e, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, wire.StringCodec{}, ch, l))
	require.NoError(t, err)

	owner, ok := p.Owner(ch)
	require.True(t, ok)
	assert.Same(t, e, owner)
	assert.Equal(t, 1, e.FreeSlots())
	assert.Zero(t, p.InFlight(), "the admission permit is released on acknowledgement")

	assert.Equal(t, 1, b.Publish(ch, []byte("hello")))
	select {
	case msg := <-msgs:
		assert.Equal(t, "hello", msg.Payload)
	case <-time.After(waitFor):
		t.Fatal("no message delivered")
	}
}

func TestPoolSpreadsChannelsAcrossConnections(t *testing.T) {
	b := startBroker(t)
	p := newTestPool(t, b, nil)

	var entries []*entry.Entry
	for _, name := range []string{"a", "b", "c"} {
		e, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, nil, pubsub.Channel(name)))
		require.NoError(t, err)
		entries = append(entries, e)
	}

	assert.Same(t, entries[0], entries[1])
	assert.NotSame(t, entries[0], entries[2])
	assert.Equal(t, 2, p.ConnectionCount())
	assert.Equal(t, 2, b.ConnectionCount())
}

func TestPoolSameChannelSharesEntry(t *testing.T) {
	b := startBroker(t)
	p := newTestPool(t, b, nil)
	ch := pubsub.Channel("shared")

	const n = 5
	var wg sync.WaitGroup
	results := make([]*entry.Entry, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l, _ := messageSink(ch)
			results[i], errs[i] = await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, nil, ch, l))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, n, results[0].CountListeners(ch))
	assert.Equal(t, 1, results[0].FreeSlots(), "one channel occupies one slot")
	assert.Equal(t, 1, p.ConnectionCount())
}

func TestPoolNoCapacity(t *testing.T) {
	b := startBroker(t)
	p := newTestPool(t, b, func(cfg *Config) {
		cfg.MaxConnections = 1
		cfg.Entry.SubscriptionsPerConnection = 1
	})

	_, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, nil, pubsub.Channel("a")))
	require.NoError(t, err)

	_, err = await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, nil, pubsub.Channel("b")))
	assert.ErrorIs(t, err, ErrNoConnection)
	assert.Zero(t, p.InFlight())
}

func TestPoolSubscribeRejectsUnsubscribeKind(t *testing.T) {
	b := startBroker(t)
	p := newTestPool(t, b, nil)

	_, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Unsubscribe, nil, pubsub.Channel("a")))
	assert.ErrorIs(t, err, entry.ErrInvalidKind)
	assert.Zero(t, p.ConnectionCount())
}

func TestPoolUnsubscribeReturnsCodec(t *testing.T) {
	b := startBroker(t)
	p := newTestPool(t, b, nil)
	ch := pubsub.Channel("ch1")

	e, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, wire.CBORCodec{}, ch))
	require.NoError(t, err)

	codec, err := await[wire.Codec](t, p.Unsubscribe(ch, pubsub.Unsubscribe))
	require.NoError(t, err)
	assert.Equal(t, wire.CBORCodec{}, codec)

	_, ok := p.Owner(ch)
	assert.False(t, ok)
	assert.Equal(t, 2, e.FreeSlots())
	assert.False(t, e.HasListeners(ch))
	assert.Zero(t, b.Subscribers(ch))
}

func TestPoolUnsubscribeUnknownChannel(t *testing.T) {
	b := startBroker(t)
	p := newTestPool(t, b, nil)

	codec, err := await[wire.Codec](t, p.Unsubscribe(pubsub.Channel("nope"), pubsub.Unsubscribe))
	require.NoError(t, err)
	assert.Nil(t, codec)
}

func TestPoolUnsubscribeTimeoutSynthesizesAcknowledgement(t *testing.T) {
	b := startBroker(t)
	b.DropAcks(pubsub.Unsubscribe, true)
	p := newTestPool(t, b, nil)
	ch := pubsub.Channel("ch1")

	e, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, nil, ch))
	require.NoError(t, err)

	_, err = await[wire.Codec](t, p.Unsubscribe(ch, pubsub.Unsubscribe))
	require.NoError(t, err)
	assert.Equal(t, 2, e.FreeSlots())
	assert.Equal(t, 1, b.Commands(pubsub.Unsubscribe))
}

func TestPoolSubscribeTimeoutCompensates(t *testing.T) {
	b := startBroker(t)
	b.DropAcks(pubsub.Subscribe, true)
	p := newTestPool(t, b, nil)
	ch := pubsub.Channel("ch1")

	l, _ := messageSink(ch)
	_, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, nil, ch, l))
	require.Error(t, err)
	assert.True(t, errors.Is(err, entry.ErrSubscribeTimeout))
	assert.Contains(t, err.Error(), "after 200ms")

	assert.Equal(t, 1, b.Commands(pubsub.Unsubscribe), "a compensating unsubscribe is sent")
	_, ok := p.Owner(ch)
	assert.False(t, ok)
	assert.Zero(t, p.InFlight())

	entries := p.Entries()
	require.Len(t, entries, 1)
	assert.Eventually(t, func() bool { return entries[0].FreeSlots() == 2 }, waitFor, tick)
	assert.False(t, entries[0].HasListeners(ch))
}

func TestPoolRemoveListenerUnsubscribesLastListener(t *testing.T) {
	b := startBroker(t)
	p := newTestPool(t, b, nil)
	ch := pubsub.Channel("ch1")

	l1, _ := messageSink(ch)
	l2, _ := messageSink(ch)
	e, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, nil, ch, l1, l2))
	require.NoError(t, err)

	_, err = await[struct{}](t, p.RemoveListener(pubsub.Subscribe, ch, l1))
	require.NoError(t, err)
	assert.Equal(t, 1, e.CountListeners(ch))
	assert.Zero(t, b.Commands(pubsub.Unsubscribe))

	_, err = await[struct{}](t, p.RemoveHandler(pubsub.Subscribe, ch, l2.Delegate()))
	require.NoError(t, err)
	assert.False(t, e.HasListeners(ch))
	assert.Equal(t, 1, b.Commands(pubsub.Unsubscribe))
	assert.Zero(t, b.Subscribers(ch))
	assert.Equal(t, 2, e.FreeSlots())
}

func TestPoolPatternSubscribe(t *testing.T) {
	b := startBroker(t)
	p := newTestPool(t, b, nil)
	pattern := pubsub.Channel("sensor.*")

	msgs := make(chan *pubsub.Message, 4)
	l := pubsub.NewPatternListener(pattern, pubsub.NewHandlerID(), func(msg *pubsub.Message) {
		msgs <- msg
	})
	_, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.PSubscribe, wire.StringCodec{}, pattern, l))
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), pubsub.Channel("sensor.1"), wire.StringCodec{}, "21.5"))
	select {
	case msg := <-msgs:
		assert.Equal(t, pubsub.Channel("sensor.1"), msg.Channel)
		assert.Equal(t, "21.5", msg.Payload)
	case <-time.After(waitFor):
		t.Fatal("no message delivered")
	}
}

func TestPoolDropsDisconnectedEntries(t *testing.T) {
	b := startBroker(t)
	p := newTestPool(t, b, nil)
	ch := pubsub.Channel("ch1")

	_, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, nil, ch))
	require.NoError(t, err)

	require.NoError(t, b.Stop())

	assert.Eventually(t, func() bool { return p.ConnectionCount() == 0 }, waitFor, tick)
	_, ok := p.Owner(ch)
	assert.False(t, ok)
}

func TestPoolCloseIdle(t *testing.T) {
	b := startBroker(t)
	p := newTestPool(t, b, nil)
	ch := pubsub.Channel("ch1")

	_, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, nil, ch))
	require.NoError(t, err)
	assert.Zero(t, p.CloseIdle(0), "a connection serving a channel is not idle")

	_, err = await[wire.Codec](t, p.Unsubscribe(ch, pubsub.Unsubscribe))
	require.NoError(t, err)
	assert.Zero(t, p.CloseIdle(time.Hour))
	assert.Equal(t, 1, p.CloseIdle(0))
	assert.Zero(t, p.ConnectionCount())
	assert.Eventually(t, func() bool { return b.ConnectionCount() == 0 }, waitFor, tick)
}

func TestPoolClose(t *testing.T) {
	b := startBroker(t)
	p := newTestPool(t, b, nil)

	_, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, nil, pubsub.Channel("a")))
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, nil, pubsub.Channel("b")))
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.ErrorIs(t, p.Publish(context.Background(), pubsub.Channel("b"), nil, []byte("x")), ErrPoolClosed)
	assert.Eventually(t, func() bool { return b.ConnectionCount() == 0 }, waitFor, tick)
}

func TestPoolAdmissionRespectsContext(t *testing.T) {
	b := startBroker(t)
	b.DropAcks(pubsub.Subscribe, true)
	p := newTestPool(t, b, func(cfg *Config) {
		cfg.AdmissionLimit = 1
		cfg.Entry.RequestTimeout = time.Second
	})

	first := p.Subscribe(context.Background(), pubsub.Subscribe, nil, pubsub.Channel("a"))
	assert.Equal(t, 1, p.InFlight())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := await[*entry.Entry](t, p.Subscribe(ctx, pubsub.Subscribe, nil, pubsub.Channel("b")))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = await[*entry.Entry](t, first)
	assert.ErrorIs(t, err, entry.ErrSubscribeTimeout)
}

func TestPoolResubscribeWaitsForPendingUnsubscribe(t *testing.T) {
	b := startBroker(t)
	b.DropAcks(pubsub.Unsubscribe, true)
	p := newTestPool(t, b, nil)
	ch := pubsub.Channel("ch1")

	l1, _ := messageSink(ch)
	_, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, nil, ch, l1))
	require.NoError(t, err)

	// The acknowledgement is dropped, so the unsubscribe stays pending
	// until its timeout synthesizes one.
	unsub := p.Unsubscribe(ch, pubsub.Unsubscribe)

	l2, msgs := messageSink(ch)
	e, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, wire.StringCodec{}, ch, l2))
	require.NoError(t, err)

	_, err = await[wire.Codec](t, unsub)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Commands(pubsub.Unsubscribe))

	owner, ok := p.Owner(ch)
	require.True(t, ok)
	assert.Same(t, e, owner)
	assert.Equal(t, []pubsub.Listener{l2}, e.Listeners(ch))
	assert.Equal(t, 1, e.FreeSlots())
	assert.Equal(t, 2, b.Commands(pubsub.Subscribe))

	assert.Equal(t, 1, b.Publish(ch, []byte("after")))
	select {
	case msg := <-msgs:
		assert.Equal(t, "after", msg.Payload)
	case <-time.After(waitFor):
		t.Fatal("resubscribed listener received nothing")
	}
}

func TestPoolResubscribeWaitRespectsContext(t *testing.T) {
	b := startBroker(t)
	b.DropAcks(pubsub.Unsubscribe, true)
	p := newTestPool(t, b, func(cfg *Config) {
		cfg.Entry.RequestTimeout = time.Second
	})
	ch := pubsub.Channel("ch1")

	_, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, nil, ch))
	require.NoError(t, err)
	unsub := p.Unsubscribe(ch, pubsub.Unsubscribe)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = await[*entry.Entry](t, p.Subscribe(ctx, pubsub.Subscribe, nil, ch))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, p.InFlight())
	assert.Equal(t, 1, b.Commands(pubsub.Subscribe))

	_, err = await[wire.Codec](t, unsub)
	require.NoError(t, err)
}

func TestPoolDialDoesNotBlockOtherChannels(t *testing.T) {
	b := startBroker(t)
	dial := DialConnector(b.Addr(), transport.ConnConfig{})

	entered := make(chan struct{})
	release := make(chan struct{})
	releaseDial := sync.OnceFunc(func() { close(release) })
	t.Cleanup(releaseDial)

	var first sync.Once
	p := newTestPool(t, b, func(cfg *Config) {
		cfg.Connect = func(ctx context.Context) (Conn, error) {
			first.Do(func() {
				close(entered)
				<-release
			})
			return dial(ctx)
		}
	})

	subscribed := make(chan error, 1)
	go func() {
		_, err := await[*entry.Entry](t, p.Subscribe(context.Background(), pubsub.Subscribe, nil, pubsub.Channel("a")))
		subscribed <- err
	}()

	select {
	case <-entered:
	case <-time.After(waitFor):
		t.Fatal("connector was not called")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.ConnectionCount()
		p.Entries()
		p.Owner(pubsub.Channel("other"))
		p.UnsubscribeLocked(pubsub.Unsubscribe, pubsub.Channel("other"))
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("pool state blocked while a connection was dialing")
	}

	releaseDial()
	require.NoError(t, <-subscribed)
	assert.Equal(t, 1, p.ConnectionCount())
}
