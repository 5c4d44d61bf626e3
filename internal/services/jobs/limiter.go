package jobs

import (
	"context"
	"sync"
)

// Limiter bounds concurrent domain workers. Waiters are served strictly
// first-come-first-served: a released slot transfers to the oldest
// waiter, never to a late arrival.
type Limiter struct {
	mu      sync.Mutex
	max     int
	current int
	waiters []chan struct{}
}

// NewLimiter creates a limiter with the given slot count (minimum 1).
func NewLimiter(max int) *Limiter {
	if max < 1 {
		max = 1
	}
	return &Limiter{max: max}
}

// Acquire blocks until a slot is free or the context is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if l.current < l.max {
		l.current++
		l.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	l.waiters = append(l.waiters, ready)
	l.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		for i, w := range l.waiters {
			if w == ready {
				l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
				l.mu.Unlock()
				return ctx.Err()
			}
		}
		// The slot was handed over while we were cancelling; pass it on.
		l.releaseLocked()
		l.mu.Unlock()
		return ctx.Err()
	}
}

// Release frees a slot. The slot transfers directly to the oldest
// waiter when one is queued.
func (l *Limiter) Release() {
	l.mu.Lock()
	l.releaseLocked()
	l.mu.Unlock()
}

func (l *Limiter) releaseLocked() {
	if len(l.waiters) > 0 {
		ready := l.waiters[0]
		l.waiters = l.waiters[1:]
		close(ready)
		return
	}
	if l.current > 0 {
		l.current--
	}
}

// Do runs fn inside an acquired slot. The slot is released even when fn
// panics; a failed task never leaks capacity.
func (l *Limiter) Do(ctx context.Context, fn func()) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	fn()
	return nil
}

// InUse returns the number of occupied slots.
func (l *Limiter) InUse() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}
