// Package admission bounds the number of subscribe operations in flight.
//
// A Gate hands out Permits. Each permit must be released exactly once when
// the operation it guards finishes, whatever the outcome; extra Release calls
// are ignored so callers on racing completion paths cannot over-release.
package admission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrGateFull is returned by TryAcquire when no permit is available.
	ErrGateFull = errors.New("admission gate full")

	// ErrInvalidLimit is returned by NewGate for non-positive limits.
	ErrInvalidLimit = errors.New("admission limit must be positive")
)

// Gate is a counting admission gate.
type Gate struct {
	sem   *semaphore.Weighted
	limit int64
	held  atomic.Int64
}

// NewGate creates a gate admitting at most limit concurrent operations.
func NewGate(limit int) (*Gate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	return &Gate{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: int64(limit),
	}, nil
}

// Acquire blocks until a permit is available or ctx is done.
func (g *Gate) Acquire(ctx context.Context) (*Permit, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	g.held.Add(1)
	return &Permit{gate: g}, nil
}

// TryAcquire returns a permit without blocking, or ErrGateFull.
func (g *Gate) TryAcquire() (*Permit, error) {
	if !g.sem.TryAcquire(1) {
		return nil, ErrGateFull
	}
	g.held.Add(1)
	return &Permit{gate: g}, nil
}

// InUse returns the number of permits currently held.
func (g *Gate) InUse() int {
	return int(g.held.Load())
}

// Limit returns the gate capacity.
func (g *Gate) Limit() int {
	return int(g.limit)
}

// Permit is one admission. It satisfies entry.Releaser.
type Permit struct {
	gate *Gate
	once sync.Once
}

// Release returns the permit to its gate. Only the first call has an effect.
func (p *Permit) Release() {
	p.once.Do(func() {
		p.gate.held.Add(-1)
		p.gate.sem.Release(1)
	})
}
