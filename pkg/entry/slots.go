package entry

import "sync/atomic"

// slotCounter counts the channels a connection may still accept.
// The value stays in [0, capacity] as long as every successful tryAcquire
// is paired with exactly one release.
type slotCounter struct {
	capacity int32
	free     atomic.Int32
}

func newSlotCounter(capacity int) *slotCounter {
	s := &slotCounter{capacity: int32(capacity)}
	s.free.Store(int32(capacity))
	return s
}

func (s *slotCounter) tryAcquire() (int, bool) {
	for {
		v := s.free.Load()
		if v == 0 {
			return 0, false
		}
		if s.free.CompareAndSwap(v, v-1) {
			return int(v - 1), true
		}
	}
}

func (s *slotCounter) release() int {
	return int(s.free.Add(1))
}

func (s *slotCounter) isFree() bool {
	return s.free.Load() == s.capacity
}

func (s *slotCounter) load() int {
	return int(s.free.Load())
}

// TryAcquireSlot reserves one channel slot. It returns the number of slots
// left and false when the connection is full.
func (e *Entry) TryAcquireSlot() (int, bool) {
	return e.slots.tryAcquire()
}

// ReleaseSlot returns a slot and reports the new number of free slots.
// Call it exactly once per successful TryAcquireSlot.
func (e *Entry) ReleaseSlot() int {
	return e.slots.release()
}

// IsFree reports whether the connection carries no channel.
func (e *Entry) IsFree() bool {
	return e.slots.isFree()
}

// FreeSlots returns the number of slots currently available.
func (e *Entry) FreeSlots() int {
	return e.slots.load()
}
