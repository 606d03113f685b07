// Package ratelimit implements a per-key token bucket held in process memory.
// State is not persisted; a process restart resets every bucket.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Options configures a single limit check.
type Options struct {
	Limit  int
	Window time.Duration
}

// Result reports the remaining quota after a successful check.
type Result struct {
	Remaining int
	ResetAt   time.Time
}

// LimitExceededError is returned when a bucket has no tokens left.
type LimitExceededError struct {
	Key     string
	Limit   int
	Window  time.Duration
	ResetAt time.Time
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit of %d per %s exceeded for %q", e.Limit, e.Window, e.Key)
}

type bucket struct {
	tokens    int
	updatedAt time.Time
}

// Service is an injectable rate limiter. A single instance is constructed per
// process and shared across handlers; the mutex keeps the read-modify-write of
// each bucket atomic under concurrent requests.
type Service struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	defaults Options

	now func() time.Time
}

// New builds a Service with the given default quota.
func New(defaults Options) *Service {
	return &Service{
		buckets:  make(map[string]*bucket),
		defaults: defaults,
		now:      time.Now,
	}
}

// Assert consumes one token for key, or fails with *LimitExceededError.
// Zero fields in opts fall back to the Service defaults.
//
// ResetAt on success is anchored to the last bucket write plus one window,
// which keeps it non-decreasing across calls for the same key within an
// unexhausted window.
func (s *Service) Assert(key string, opts Options) (Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.defaults.Limit
	}
	window := opts.Window
	if window <= 0 {
		window = s.defaults.Window
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok {
		s.buckets[key] = &bucket{tokens: limit - 1, updatedAt: now}
		return Result{Remaining: limit - 1, ResetAt: now.Add(window)}, nil
	}

	elapsed := now.Sub(b.updatedAt)
	refill := int(elapsed/window) * limit
	tokens := b.tokens + refill
	if tokens > limit {
		tokens = limit
	}
	nextReset := b.updatedAt.Add(window)

	if tokens <= 0 {
		return Result{}, &LimitExceededError{Key: key, Limit: limit, Window: window, ResetAt: nextReset}
	}

	tokens--
	b.tokens = tokens
	b.updatedAt = now
	return Result{Remaining: tokens, ResetAt: nextReset}, nil
}
