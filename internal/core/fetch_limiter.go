package core

// fetch_limiter.go bounds the number of requests the console has in flight
// against the back-office API.
//
// The limiter uses a semaphore pattern. When all slots are occupied, new
// fetches wait up to maxWait before failing with ErrTooManyFetches. It also
// supports graceful shutdown via WaitForDrain, which blocks until all active
// fetches complete.

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
)

// ErrTooManyFetches is returned when all fetch slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyFetches = errors.New("too many concurrent fetches, please try again later")

// DefaultMaxConcurrentFetches is the default limit for parallel fetches.
const DefaultMaxConcurrentFetches = 8

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 10 * time.Second

var _ listing.Limiter = (*FetchLimiter)(nil)

// FetchLimiter controls concurrent remote fetches using a semaphore pattern.
type FetchLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewFetchLimiter creates a limiter that allows at most maxConcurrent simultaneous fetches.
// Requests that cannot acquire a slot within maxWait will receive ErrTooManyFetches.
func NewFetchLimiter(maxConcurrent int, maxWait time.Duration) *FetchLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentFetches
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &FetchLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire a fetch slot.
// Returns nil on success, ErrTooManyFetches if timeout expires.
// The caller MUST call Release() when the fetch completes (use defer).
func (l *FetchLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// Check if original context was cancelled vs timeout
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyFetches
	}
}

// TryAcquire attempts to acquire a slot without blocking.
// Returns true if a slot was acquired, false otherwise.
func (l *FetchLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful Acquire/TryAcquire.
func (l *FetchLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of currently active fetches.
func (l *FetchLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the maximum allowed concurrent fetches.
func (l *FetchLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of available slots.
func (l *FetchLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active fetches complete or context is cancelled.
func (l *FetchLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the limiter's current state.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *FetchLimiter) Status() LimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return LimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
