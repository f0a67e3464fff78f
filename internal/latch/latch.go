// Package latch provides count-down latches used to hold a plugin back until
// all of its dependencies have finished initializing.
package latch

import (
	"context"
	"sync"
)

// Latch is released once its count reaches zero. A latch created with a
// count of zero is released immediately.
type Latch struct {
	mu    sync.Mutex
	count int
	done  chan struct{}
}

// New creates a latch with the given count. Negative counts are treated as zero.
func New(n int) *Latch {
	l := &Latch{count: max(n, 0), done: make(chan struct{})}
	if l.count == 0 {
		close(l.done)
	}
	return l
}

// CountDown decrements the count, releasing waiters when it reaches zero.
// Calls after release are no-ops.
func (l *Latch) CountDown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 {
		return
	}
	l.count--
	if l.count == 0 {
		close(l.done)
	}
}

// Count returns the current count.
func (l *Latch) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Done returns a channel closed when the latch is released.
func (l *Latch) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the latch is released or ctx is done, in which case the
// context's error is returned.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	default:
	}

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
