// Package entry implements the connection entry: the per-connection state
// machine that multiplexes many logical pub/sub subscriptions onto one
// physical connection.
//
// An Entry combines three pieces of state:
//
//   - a slot counter bounding how many distinct channels the connection
//     carries (TryAcquireSlot, ReleaseSlot, IsFree)
//   - a listener registry mapping each channel to its ordered listeners,
//     guarded per channel rather than per connection
//   - the subscribe rendezvous: at most one in-flight wire subscribe per
//     (channel, kind), shared by every concurrent subscriber
//
// Subscribe registers listeners optimistically, sends one wire command per
// rendezvous and resolves the caller's promise when the server acknowledges.
// An acknowledgement that does not arrive within Config.RequestTimeout fails
// the attempt with ErrSubscribeTimeout. Unsubscribe masks a lost
// acknowledgement instead: when the timeout fires first, a synthetic status is
// injected through the connection so the waiting state machine progresses
// exactly as if the server had answered.
//
// Entries own no goroutines. Promise callbacks run on whichever goroutine
// resolves the promise: the connection's read loop for acknowledgements, the
// clock's timer goroutine for timeouts, or the caller for send failures.
package entry
