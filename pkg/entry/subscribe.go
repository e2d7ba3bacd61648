package entry

import (
	"errors"
	"fmt"

	"github.com/submux/submux-go/pkg/log"
	"github.com/submux/submux-go/pkg/pubsub"
	"github.com/submux/submux-go/pkg/promise"
	"github.com/submux/submux-go/pkg/wire"
)

// Subscribe attempt states reported to the protocol logger.
const (
	StateRequested    = "REQUESTED"
	StateWireSent     = "WIRE_SENT"
	StateAcknowledged = "ACKNOWLEDGED"
	StateTimedOut     = "TIMED_OUT"
	StateFailed       = "FAILED"
	StateRolledBack   = "ROLLED_BACK"
)

// Subscribe subscribes channel with the given subscribe kind and registers
// listeners for it. The returned promise resolves with e once the server
// acknowledges the subscription.
//
// Listeners are visible to dispatch before the acknowledgement. Concurrent
// subscribers of the same (channel, kind) share a single wire command and
// its acknowledgement.
//
// If the returned promise is resolved by someone else before the
// acknowledgement arrives, the listeners are removed again and, when the
// channel is left without listeners, the channel is unsubscribed through
// Service.UnsubscribeLocked. On a send failure or a timeout the channel is
// unsubscribed through Service.Unsubscribe and the promise then fails with
// the original error.
//
// permit is released exactly once on every path. It may be nil.
func (e *Entry) Subscribe(codec wire.Codec, kind pubsub.Kind, channel pubsub.ChannelName, permit Releaser, listeners ...pubsub.Listener) *promise.Promise[*Entry] {
	pm := promise.New[*Entry]()
	if !kind.IsSubscribe() {
		release(permit)
		pm.Fail(fmt.Errorf("%w: %s is not a subscribe kind", ErrInvalidKind, kind))
		return pm
	}

	e.logState(log.StateEntitySubscribe, kind, channel, "", StateRequested, "")
	for _, l := range listeners {
		e.AddListener(channel, l)
	}

	ack, created := e.pendingAck(channel, kind)
	ack.result.OnComplete(func(_ struct{}, err error) {
		if err != nil {
			e.subscribeFailed(kind, channel, pm, permit, err)
			return
		}
		e.subscribeAcknowledged(kind, channel, pm, permit, listeners)
	})

	if !created {
		e.debugLog("joined pending subscribe", "channel", channel, "kind", kind)
		return pm
	}

	if err := e.conn.Subscribe(kind, codec, channel); err != nil {
		e.debugLog("subscribe send failed", "channel", channel, "kind", kind, "error", err)
		e.settle(ack, err)
		return pm
	}
	e.logState(log.StateEntitySubscribe, kind, channel, StateRequested, StateWireSent, "")

	timeout := e.cfg.RequestTimeout
	e.cfg.Clock.AfterFunc(timeout, func() {
		err := fmt.Errorf("%w after %dms: check network and/or increase the request timeout",
			ErrSubscribeTimeout, timeout.Milliseconds())
		e.settle(ack, err)
	})
	return pm
}

func (e *Entry) subscribeAcknowledged(kind pubsub.Kind, channel pubsub.ChannelName, pm *promise.Promise[*Entry], permit Releaser, listeners []pubsub.Listener) {
	if pm.Complete(e) {
		e.logState(log.StateEntitySubscribe, kind, channel, StateWireSent, StateAcknowledged, "")
		release(permit)
		return
	}

	// The caller's promise was settled elsewhere; undo this attempt only.
	e.debugLog("subscribe acknowledged after promise was settled, rolling back",
		"channel", channel, "kind", kind, "listeners", len(listeners))
	e.logState(log.StateEntitySubscribe, kind, channel, StateAcknowledged, StateRolledBack, "promise already resolved")
	for _, l := range listeners {
		e.RemoveListener(channel, l)
	}
	if e.HasListeners(channel) {
		release(permit)
		return
	}
	e.svc.UnsubscribeLocked(kind.Unsubscribe(), channel).OnComplete(func(struct{}, error) {
		release(permit)
	})
}

func (e *Entry) subscribeFailed(kind pubsub.Kind, channel pubsub.ChannelName, pm *promise.Promise[*Entry], permit Releaser, cause error) {
	if errors.Is(cause, ErrSubscribeTimeout) {
		e.logState(log.StateEntitySubscribe, kind, channel, StateWireSent, StateTimedOut, cause.Error())
	} else {
		e.logState(log.StateEntitySubscribe, kind, channel, StateRequested, StateFailed, cause.Error())
	}
	release(permit)
	e.svc.Unsubscribe(channel, kind.Unsubscribe()).OnComplete(func(_ wire.Codec, err error) {
		if err != nil {
			e.debugLog("compensating unsubscribe failed", "channel", channel, "error", err)
		}
		pm.Fail(cause)
	})
}

func release(permit Releaser) {
	if permit != nil {
		permit.Release()
	}
}
