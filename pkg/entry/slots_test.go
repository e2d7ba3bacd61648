package entry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotCapacityOne(t *testing.T) {
	cfg := testConfig(newFakeClock())
	cfg.SubscriptionsPerConnection = 1
	e := New(&fakeConn{}, nil, cfg)

	assert.True(t, e.IsFree())

	remaining, ok := e.TryAcquireSlot()
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)
	assert.False(t, e.IsFree())

	_, ok = e.TryAcquireSlot()
	assert.False(t, ok)

	assert.Equal(t, 1, e.ReleaseSlot())
	assert.True(t, e.IsFree())
}

func TestSlotCounterConcurrent(t *testing.T) {
	const capacity = 16
	cfg := testConfig(newFakeClock())
	cfg.SubscriptionsPerConnection = capacity
	e := New(&fakeConn{}, nil, cfg)

	var (
		wg          sync.WaitGroup
		outstanding atomic.Int32
		violations  atomic.Int32
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if _, ok := e.TryAcquireSlot(); !ok {
					continue
				}
				if n := outstanding.Add(1); n > capacity {
					violations.Add(1)
				}
				if free := e.FreeSlots(); free < 0 || free > capacity {
					violations.Add(1)
				}
				outstanding.Add(-1)
				e.ReleaseSlot()
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, violations.Load())
	assert.Equal(t, capacity, e.FreeSlots())
	assert.True(t, e.IsFree())
}

func TestSlotAccounting(t *testing.T) {
	cfg := testConfig(newFakeClock())
	cfg.SubscriptionsPerConnection = 4
	e := New(&fakeConn{}, nil, cfg)

	held := 0
	for {
		if _, ok := e.TryAcquireSlot(); !ok {
			break
		}
		held++
		assert.Equal(t, e.Capacity()-held, e.FreeSlots())
	}
	assert.Equal(t, 4, held)
	assert.Equal(t, 0, e.FreeSlots())
}
