package pipeline

import "context"

// Lock serializes runs within a run group. A trigger that arrives while a
// run is in flight queues behind it; it is never cancelled. Context
// cancellation abandons the wait.
type Lock struct {
	ch chan struct{}
}

// NewLock returns an unheld lock.
func NewLock() *Lock {
	return &Lock{ch: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is free or ctx is done.
func (l *Lock) Acquire(ctx context.Context) error {
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes the lock without blocking and reports whether it did.
func (l *Lock) TryAcquire() bool {
	select {
	case l.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the lock. Releasing an unheld lock blocks; callers pair
// every Release with a prior Acquire.
func (l *Lock) Release() {
	<-l.ch
}
