// Package limiter bounds the number of simultaneously outstanding external
// analyzer and executor calls.
package limiter

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter is a counting semaphore with strictly FIFO admission. Callers
// beyond the bound queue and are released in order as slots free.
type Limiter struct {
	sem *semaphore.Weighted
	max int
}

// New creates a Limiter admitting at most maxInFlight concurrent callers.
func New(maxInFlight int) *Limiter {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Limiter{
		sem: semaphore.NewWeighted(int64(maxInFlight)),
		max: maxInFlight,
	}
}

// Max returns the configured bound.
func (l *Limiter) Max() int { return l.max }

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release frees a slot.
func (l *Limiter) Release() {
	l.sem.Release(1)
}

// Do runs fn while holding a slot.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
