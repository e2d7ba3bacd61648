package service

import (
	"sync"
	"time"

	"github.com/submux/submux-go/pkg/clock"
)

// connTracker records when each pooled connection was last used.
// It backs Pool.CloseIdle, which closes connections that have carried no
// channel for too long.
type connTracker struct {
	mu    sync.Mutex
	clock clock.Clock
	conns map[*poolEntry]time.Time
}

// newConnTracker creates a new connection tracker.
func newConnTracker(clk clock.Clock) *connTracker {
	return &connTracker{
		clock: clk,
		conns: make(map[*poolEntry]time.Time),
	}
}

// Add registers a connection with the current time.
func (ct *connTracker) Add(pe *poolEntry) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.conns[pe] = ct.clock.Now()
}

// Touch refreshes the last use of a tracked connection. Absent connections
// are ignored.
func (ct *connTracker) Touch(pe *poolEntry) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if _, ok := ct.conns[pe]; ok {
		ct.conns[pe] = ct.clock.Now()
	}
}

// Remove deregisters a connection. Safe to call on absent connections.
func (ct *connTracker) Remove(pe *poolEntry) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	delete(ct.conns, pe)
}

// TakeIdle removes and returns every connection that carries no channel and
// was last used more than maxIdle ago.
func (ct *connTracker) TakeIdle(maxIdle time.Duration) []*poolEntry {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	cutoff := ct.clock.Now().Add(-maxIdle)
	var idle []*poolEntry
	for pe, used := range ct.conns {
		if pe.IsFree() && !used.After(cutoff) {
			idle = append(idle, pe)
			delete(ct.conns, pe)
		}
	}
	return idle
}

// Len returns the number of tracked connections.
func (ct *connTracker) Len() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return len(ct.conns)
}
