// Package clock holds the now sources and the bounded wait used by the planner and the shooter
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock reports the current instant
type Clock interface {
	Now() time.Time
}

// Sleeper blocks for d or until ctx is done
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Wall is the live clock. Now keeps the monotonic reading so intervals measured between
// two calls ignore wall clock steps, while comparisons against contact instants fall back
// to wall time.
type Wall struct{}

// Now returns time.Now
func (Wall) Now() time.Time { return time.Now() }

// Sleep waits on a timer and honours ctx
func (Wall) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Nominal is the clock used to materialize a schedule ahead of time.
// It reports the zero instant so max(now, nominal start) always resolves to the nominal start.
type Nominal struct{}

// Now returns the zero time
func (Nominal) Now() time.Time { return time.Time{} }

// Manual is a settable clock for tests and rehearsals. Sleep advances the clock instead of blocking.
type Manual struct {
	mu sync.Mutex
	t  time.Time

	// OnSleep, when set, runs after each Sleep with the slept duration
	OnSleep func(d time.Duration)
}

// NewManual returns a Manual clock set to t
func NewManual(t time.Time) *Manual { return &Manual{t: t} }

// Now returns the current manual time
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

// Set moves the clock to t
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.t = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.t = m.t.Add(d)
	m.mu.Unlock()
}

// Sleep advances the clock by d unless ctx is already done
func (m *Manual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d > 0 {
		m.Advance(d)
	}
	if m.OnSleep != nil {
		m.OnSleep(d)
	}
	return nil
}
