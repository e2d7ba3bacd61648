package entry

import (
	"fmt"
	"sync/atomic"

	"github.com/submux/submux-go/pkg/log"
	"github.com/submux/submux-go/pkg/pubsub"
)

// Unsubscribe sends an unsubscribe command for channel and, once it is
// acknowledged, drops every piece of state this entry holds for the channel.
// The acknowledgement is then forwarded to listener, which may be nil.
//
// If no acknowledgement arrives within the request timeout, a synthetic one
// is injected through the connection and handled exactly like a genuine
// one. Whichever arrives first wins; the other is ignored.
//
// A send failure is returned as is and nothing is purged.
func (e *Entry) Unsubscribe(kind pubsub.Kind, channel pubsub.ChannelName, listener pubsub.Listener) error {
	if !kind.Valid() || kind.IsSubscribe() {
		return fmt.Errorf("%w: %s is not an unsubscribe kind", ErrInvalidKind, kind)
	}

	var executed atomic.Bool
	var waiter *pubsub.StatusListener
	waiter = pubsub.NewStatusListener(func(status pubsub.Status) {
		if status.Kind != kind || status.Channel != channel {
			return
		}
		if !executed.CompareAndSwap(false, true) {
			return
		}
		e.conn.RemoveListener(waiter)
		e.purge(channel)
		e.logState(log.StateEntityUnsubscribe, kind, channel, StateWireSent, StateAcknowledged, "")
		if listener != nil {
			listener.OnStatus(status)
		}
	})
	e.conn.AddListener(waiter)

	if err := e.conn.Unsubscribe(kind, channel); err != nil {
		e.conn.RemoveListener(waiter)
		e.logState(log.StateEntityUnsubscribe, kind, channel, StateRequested, StateFailed, err.Error())
		return err
	}
	e.logState(log.StateEntityUnsubscribe, kind, channel, StateRequested, StateWireSent, "")

	e.cfg.Clock.AfterFunc(e.cfg.RequestTimeout, func() {
		if executed.Load() {
			return
		}
		e.debugLog("unsubscribe acknowledgement timed out, injecting status",
			"channel", channel, "kind", kind, "timeout", e.cfg.RequestTimeout)
		e.logState(log.StateEntityUnsubscribe, kind, channel, StateWireSent, StateTimedOut, "synthesizing acknowledgement")
		e.conn.Inject(pubsub.Status{Kind: kind, Channel: channel})
	})
	return nil
}

// purge removes the disconnect hook, pending subscribes and listeners of
// channel.
func (e *Entry) purge(channel pubsub.ChannelName) {
	e.conn.RemoveDisconnectListener(channel)
	e.dropPending(channel)
	for _, l := range e.dropChannel(channel) {
		e.conn.RemoveListener(l)
	}
}
