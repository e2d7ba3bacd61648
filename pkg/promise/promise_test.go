package promise

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCompleteOnce(t *testing.T) {
	p := New[int]()

	if !p.Complete(1) {
		t.Fatal("first Complete() = false")
	}
	if p.Complete(2) {
		t.Error("second Complete() = true")
	}
	if p.Fail(errors.New("late")) {
		t.Error("Fail() after Complete() = true")
	}

	v, err := p.Result()
	if !p.IsDone() || err != nil || v != 1 {
		t.Errorf("Result() = %d, %v; want 1, nil", v, err)
	}
}

func TestFailThenCancel(t *testing.T) {
	boom := errors.New("boom")
	p := New[string]()

	if !p.Fail(boom) {
		t.Fatal("Fail() = false")
	}
	if p.Cancel() {
		t.Error("Cancel() after Fail() = true")
	}

	_, err := p.Wait(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Wait() err = %v, want boom", err)
	}
}

func TestConcurrentResolutionHasOneWinner(t *testing.T) {
	p := New[int]()
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				if p.Complete(i) {
					wins.Add(1)
				}
			} else if p.Fail(errors.New("x")) {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("winners = %d, want 1", wins.Load())
	}
}

func TestOnCompleteOrderAndLateRegistration(t *testing.T) {
	p := New[int]()
	var calls []string

	p.OnComplete(func(int, error) { calls = append(calls, "a") })
	p.OnComplete(func(int, error) { calls = append(calls, "b") })
	p.Complete(7)
	p.OnComplete(func(v int, _ error) {
		if v != 7 {
			t.Errorf("late callback value = %d, want 7", v)
		}
		calls = append(calls, "c")
	})

	if len(calls) != 3 || calls[0] != "a" || calls[1] != "b" || calls[2] != "c" {
		t.Errorf("calls = %v, want [a b c]", calls)
	}
}

func TestWaitContext(t *testing.T) {
	p := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := p.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() err = %v, want DeadlineExceeded", err)
	}
	if p.IsDone() {
		t.Error("IsDone() = true for unresolved promise")
	}
}

func TestHelpers(t *testing.T) {
	if v, err := Completed("x").Result(); err != nil || v != "x" {
		t.Errorf("Completed() result = %q, %v", v, err)
	}
	boom := errors.New("boom")
	failed := Failed[int](boom)
	if _, err := failed.Result(); !failed.IsDone() || err != boom {
		t.Errorf("Failed() result = %v", err)
	}
}
