// Package pubsub defines the value types shared by the submux layers.
//
// A channel is identified by a ChannelName (name plus optional shard tag).
// Subscriptions come in three families, each with a subscribe and an
// unsubscribe command:
//
//	SUBSCRIBE  / UNSUBSCRIBE   plain channels
//	SSUBSCRIBE / SUNSUBSCRIBE  shard channels
//	PSUBSCRIBE / PUNSUBSCRIBE  glob patterns
//
// # Listeners
//
// Listeners are registered at two levels. The connection dispatches every
// inbound Message and Status to all of its low-level listeners; each listener
// decides whether the event concerns it. The connection entry additionally
// keeps a per-channel queue of listeners so it knows when a channel has no
// interested party left.
//
// MessageListener and PatternListener wrap a user MessageHandler. Because Go
// funcs are not comparable, a wrapped handler is identified by its HandlerID,
// returned by Delegate().
package pubsub
