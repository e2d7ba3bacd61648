package entry

import (
	"sync/atomic"

	"github.com/submux/submux-go/pkg/pubsub"
	"github.com/submux/submux-go/pkg/promise"
)

type pendingKey struct {
	channel pubsub.ChannelName
	kind    pubsub.Kind
}

// pendingAck is the rendezvous for one in-flight wire subscribe. Every
// subscriber of the same (channel, kind) waits on the same result.
type pendingAck struct {
	key      pendingKey
	result   *promise.Promise[struct{}]
	listener *pubsub.StatusListener
	settled  atomic.Bool
}

// pendingAck returns the in-flight acknowledgement for (channel, kind),
// creating it if absent. created is true for exactly one caller per
// rendezvous; that caller owns sending the command and arming the timeout.
func (e *Entry) pendingAck(channel pubsub.ChannelName, kind pubsub.Kind) (*pendingAck, bool) {
	key := pendingKey{channel: channel, kind: kind}
	if v, ok := e.pending.Load(key); ok {
		return v.(*pendingAck), false
	}

	ack := &pendingAck{key: key, result: promise.New[struct{}]()}
	ack.listener = pubsub.NewStatusListener(func(status pubsub.Status) {
		if status.Kind == kind && status.Channel == channel {
			e.settle(ack, nil)
		}
	})

	v, loaded := e.pending.LoadOrStore(key, ack)
	if loaded {
		return v.(*pendingAck), false
	}
	e.conn.AddListener(ack.listener)
	return ack, true
}

// settle removes the rendezvous and then resolves it, so waiters never see
// a resolved ack still published. It reports whether this call resolved it.
func (e *Entry) settle(ack *pendingAck, err error) bool {
	if !ack.settled.CompareAndSwap(false, true) {
		return false
	}
	e.pending.CompareAndDelete(ack.key, ack)
	e.conn.RemoveListener(ack.listener)

	if err != nil {
		ack.result.Fail(err)
	} else {
		ack.result.Complete(struct{}{})
	}
	return true
}

// dropPending forgets every in-flight subscribe of channel without
// resolving it. Waiters still fail on their timeout.
func (e *Entry) dropPending(channel pubsub.ChannelName) {
	for _, kind := range []pubsub.Kind{pubsub.Subscribe, pubsub.SSubscribe, pubsub.PSubscribe} {
		key := pendingKey{channel: channel, kind: kind}
		if v, ok := e.pending.LoadAndDelete(key); ok {
			e.conn.RemoveListener(v.(*pendingAck).listener)
		}
	}
}

// PendingSubscribes returns the number of subscribe commands awaiting an
// acknowledgement.
func (e *Entry) PendingSubscribes() int {
	n := 0
	e.pending.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
