package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiterBoundsConcurrency(t *testing.T) {
	l := NewLimiter(3)

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Do(context.Background(), func() {
				cur := atomic.AddInt32(&active, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&active, -1)
			})
		}()
	}
	wg.Wait()

	if p := atomic.LoadInt32(&peak); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
	if l.InUse() != 0 {
		t.Errorf("InUse() = %d after all work done, want 0", l.InUse())
	}
}

func TestLimiterFIFOOrder(t *testing.T) {
	l := NewLimiter(1)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// Queue three waiters with a deterministic arrival order.
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup
	starts := make(chan struct{})
	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			starts <- struct{}{}
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			l.Release()
		}(i)
		<-starts
		// Give the goroutine time to enqueue before starting the next.
		time.Sleep(10 * time.Millisecond)
	}

	l.Release()
	wg.Wait()

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("service order = %v, want [1 2 3]", order)
	}
}

func TestLimiterAcquireCancelled(t *testing.T) {
	l := NewLimiter(1)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Acquire(ctx); err != context.DeadlineExceeded {
		t.Errorf("Acquire on full limiter = %v, want DeadlineExceeded", err)
	}

	// The cancelled waiter must not consume the slot.
	l.Release()
	if err := l.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire after release: %v", err)
	}
}

func TestLimiterDoReleasesOnPanic(t *testing.T) {
	l := NewLimiter(1)

	func() {
		defer func() { recover() }()
		l.Do(context.Background(), func() {
			panic("worker failed")
		})
	}()

	if l.InUse() != 0 {
		t.Errorf("InUse() = %d after panicking task, want 0", l.InUse())
	}
}

func TestLimiterMinimumOne(t *testing.T) {
	l := NewLimiter(0)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	l.Release()
}
