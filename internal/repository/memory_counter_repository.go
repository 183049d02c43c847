package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryCounterRepository implements CounterRepository in process memory.
// Expired windows are removed by a cron-scheduled sweep.
type MemoryCounterRepository struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
	cron    *cron.Cron
}

// NewMemoryCounterRepository creates a new in-memory counter repository
func NewMemoryCounterRepository() *MemoryCounterRepository {
	return &MemoryCounterRepository{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

// Increment adds one hit to key's current window, opening a new window when the last one has ended
func (r *MemoryCounterRepository) Increment(ctx context.Context, key string, window time.Duration) (WindowCount, error) {
	if err := ctx.Err(); err != nil {
		return WindowCount{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		r.windows[key] = w
	}
	w.count++

	return WindowCount{Count: w.count, ResetIn: w.resetAt.Sub(now)}, nil
}

// Sweep removes every window that has ended and returns how many were removed
func (r *MemoryCounterRepository) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for key, w := range r.windows {
		if !now.Before(w.resetAt) {
			delete(r.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked windows
func (r *MemoryCounterRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}

// StartSweeper schedules Sweep with a seconds-precision cron spec, e.g. "0 * * * * *"
func (r *MemoryCounterRepository) StartSweeper(spec string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		return fmt.Errorf("sweeper already started")
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, func() { r.Sweep() }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	c.Start()
	r.cron = c
	return nil
}

// Close stops the sweeper
func (r *MemoryCounterRepository) Close() error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	return nil
}
