// Package time contains time related helpers shared by the planner and the shooter
// schedule arithmetic is done in float seconds, these helpers keep the conversions in one place
package time

import (
	"math"
	"time"
)

// Ptr returns a pointer to t or nil if t is zero
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Seconds converts float seconds to a Duration rounded to the nanosecond.
// Values past the Duration range saturate, NaN is 0.
func Seconds(s float64) time.Duration {
	ns := math.Round(s * float64(time.Second))
	switch {
	case math.IsNaN(ns):
		return 0
	case ns >= math.MaxInt64:
		return math.MaxInt64
	case ns <= math.MinInt64:
		return math.MinInt64
	}
	return time.Duration(ns)
}

// AddSeconds returns t shifted by s seconds
func AddSeconds(t time.Time, s float64) time.Time { return t.Add(Seconds(s)) }

// Diff returns b - a in float seconds
func Diff(a, b time.Time) float64 { return b.Sub(a).Seconds() }

// Later returns the later of a and b
func Later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
