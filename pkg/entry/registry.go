package entry

import (
	"slices"
	"sync"

	"github.com/submux/submux-go/pkg/pubsub"
)

// channelQueue is the ordered listener list of one channel. Its mutex is the
// channel lock: the queue and its lock enter and leave the registry as one
// map value, so they share a lifetime by construction.
type channelQueue struct {
	mu        sync.Mutex
	listeners []pubsub.Listener
}

// lockLive locks q and reports whether q is still the queue published for
// channel. On false the lock is released and the caller must retry with a
// fresh lookup.
func (e *Entry) lockLive(channel pubsub.ChannelName, q *channelQueue) bool {
	if e.testHookQueueLookup != nil {
		e.testHookQueueLookup(channel, q)
	}
	q.mu.Lock()
	if cur, ok := e.queues.Load(channel); ok && cur.(*channelQueue) == q {
		return true
	}
	q.mu.Unlock()
	return false
}

// AddListener appends l to the channel's listeners and registers it with the
// connection for dispatch. A nil listener is ignored.
func (e *Entry) AddListener(channel pubsub.ChannelName, l pubsub.Listener) {
	if l == nil {
		return
	}

	for {
		v, ok := e.queues.Load(channel)
		if !ok {
			v, _ = e.queues.LoadOrStore(channel, &channelQueue{})
		}
		q := v.(*channelQueue)

		// The queue may have been emptied and unpublished between the
		// lookup and the lock.
		if !e.lockLive(channel, q) {
			continue
		}
		q.listeners = append(q.listeners, l)
		q.mu.Unlock()
		break
	}

	e.conn.AddListener(l)
}

// RemoveListener removes l from the channel's listeners. Removing the last
// listener drops the channel from the registry. The listener is always
// deregistered from the connection, whether or not it was found.
func (e *Entry) RemoveListener(channel pubsub.ChannelName, l pubsub.Listener) {
	e.removeFromQueue(channel, l)
	e.conn.RemoveListener(l)
}

// removeFromQueue reports whether l was found and removed.
func (e *Entry) removeFromQueue(channel pubsub.ChannelName, l pubsub.Listener) bool {
	for {
		v, ok := e.queues.Load(channel)
		if !ok {
			return false
		}
		q := v.(*channelQueue)
		if !e.lockLive(channel, q) {
			continue
		}

		i := slices.Index(q.listeners, l)
		if i >= 0 {
			q.listeners = slices.Delete(q.listeners, i, i+1)
			if len(q.listeners) == 0 {
				e.queues.Delete(channel)
			}
		}
		q.mu.Unlock()
		return i >= 0
	}
}

// RemoveListenerByDelegate removes the first listener on channel that wraps
// the handler identified by id. It reports whether one was found.
func (e *Entry) RemoveListenerByDelegate(channel pubsub.ChannelName, id pubsub.HandlerID) bool {
	return e.removeMatching(channel, func(l pubsub.Listener) bool {
		d, ok := l.(pubsub.Delegator)
		return ok && d.Delegate() == id
	})
}

// RemoveListenerByID removes the listener on channel whose ListenerID is id.
// It reports whether one was found.
func (e *Entry) RemoveListenerByID(channel pubsub.ChannelName, id uint64) bool {
	return e.removeMatching(channel, func(l pubsub.Listener) bool {
		i, ok := l.(pubsub.Identified)
		return ok && i.ListenerID() == id
	})
}

// removeMatching removes the first listener on channel that match accepts.
// It reports false when none matched or a concurrent remover took the match
// first.
func (e *Entry) removeMatching(channel pubsub.ChannelName, match func(pubsub.Listener) bool) bool {
	for _, l := range e.Listeners(channel) {
		if match(l) {
			if !e.removeFromQueue(channel, l) {
				return false
			}
			e.conn.RemoveListener(l)
			return true
		}
	}
	return false
}

// CountListeners returns the number of listeners registered for channel.
func (e *Entry) CountListeners(channel pubsub.ChannelName) int {
	v, ok := e.queues.Load(channel)
	if !ok {
		return 0
	}
	q := v.(*channelQueue)
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.listeners)
}

// HasListeners reports whether channel has a listener queue.
func (e *Entry) HasListeners(channel pubsub.ChannelName) bool {
	_, ok := e.queues.Load(channel)
	return ok
}

// Listeners returns a snapshot of the channel's listeners in insertion
// order, or nil when the channel has none.
func (e *Entry) Listeners(channel pubsub.ChannelName) []pubsub.Listener {
	v, ok := e.queues.Load(channel)
	if !ok {
		return nil
	}
	q := v.(*channelQueue)
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.listeners)
}

// Channels returns the channels that currently have listeners.
func (e *Entry) Channels() []pubsub.ChannelName {
	var out []pubsub.ChannelName
	e.queues.Range(func(k, _ any) bool {
		out = append(out, k.(pubsub.ChannelName))
		return true
	})
	return out
}

// dropChannel unpublishes the channel's queue and returns the listeners it
// held.
func (e *Entry) dropChannel(channel pubsub.ChannelName) []pubsub.Listener {
	for {
		v, ok := e.queues.Load(channel)
		if !ok {
			return nil
		}
		q := v.(*channelQueue)
		if !e.lockLive(channel, q) {
			continue
		}
		e.queues.Delete(channel)
		listeners := q.listeners
		q.listeners = nil
		q.mu.Unlock()
		return listeners
	}
}
