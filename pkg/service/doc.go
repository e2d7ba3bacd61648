// Package service routes pub/sub subscriptions onto a pool of connections.
//
// # Pool
//
// Pool owns a bounded set of connections, each driven by an entry.Entry.
// A channel is assigned to one entry when it is first subscribed and stays
// there until it is unsubscribed or its connection ends. New channels go to
// the first entry with a free slot; a new connection is opened when every
// entry is full.
//
// Subscribes are admission-gated: at most Config.AdmissionLimit subscribes
// wait for an acknowledgement at any time.
//
// Example usage:
//
//	cfg := service.DefaultConfig()
//	cfg.Connect = service.DialConnector("127.0.0.1:6380", transport.ConnConfig{})
//	pool, err := service.NewPool(cfg)
//	defer pool.Close()
//
//	l := pubsub.NewMessageListener(pubsub.Channel("news"), pubsub.NewHandlerID(), handle)
//	e, err := pool.Subscribe(ctx, pubsub.Subscribe, wire.StringCodec{}, pubsub.Channel("news"), l).Wait(ctx)
//
//	// Later: the last removal unsubscribes the channel.
//	_, err = pool.RemoveListener(pubsub.Subscribe, pubsub.Channel("news"), l).Wait(ctx)
//
// # Failure handling
//
// Pool implements entry.Service. Entries call back into the pool to
// unsubscribe a channel after a failed or timed-out subscribe, and to roll
// back a subscribe whose caller has already given up. Those calls take the
// channel lock on their own goroutine.
//
// An unsubscribe unassigns its channel at once, but a subscribe of the same
// channel waits until that unsubscribe has settled, so the old unsubscribe
// cannot discard the new listeners.
//
// Connections are not re-established; when one ends, its entry and channel
// assignments are dropped.
package service
