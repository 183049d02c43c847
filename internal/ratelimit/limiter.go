// Package ratelimit implements per-caller fixed-window admission control.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/basel-ax/pixelart/internal/repository"
)

// Decision is the outcome of one admission check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// FixedWindow admits at most Limit requests per key within each window
type FixedWindow struct {
	counters repository.CounterRepository
	limit    int
	window   time.Duration
}

// NewFixedWindow creates a new fixed-window limiter over the given counters
func NewFixedWindow(counters repository.CounterRepository, limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		counters: counters,
		limit:    limit,
		window:   window,
	}
}

// Allow records a hit for key and reports whether it is within the limit
func (l *FixedWindow) Allow(ctx context.Context, key string) (Decision, error) {
	count, err := l.counters.Increment(ctx, key, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check rate limit: %w", err)
	}

	remaining := l.limit - int(count.Count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count.Count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
		ResetIn:   count.ResetIn,
	}, nil
}

// Limit returns the maximum number of requests per window
func (l *FixedWindow) Limit() int {
	return l.limit
}

// Window returns the window length
func (l *FixedWindow) Window() time.Duration {
	return l.window
}
