// Package testkit holds the assertions and seams shared by the package tests
package testkit

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// MustPanic fails unless fn panics
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic, got none")
		}
	}()
	fn()
}

// MustNotPanic fails if fn panics
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	fn()
}

// MustContain checks for needle; on failure the full haystack lands in a temp file
// because audit logs and tables are too long for the test output
func MustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if strings.Contains(haystack, needle) {
		return
	}
	dump := filepath.Join(t.TempDir(), "haystack.txt")
	_ = os.WriteFile(dump, []byte(haystack), 0o600)
	t.Fatalf("missing %q, output in %s", needle, dump)
}

// MustNear asserts |got-want| <= tol
func MustNear(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %.12g, want %.12g (tol %g)", what, got, want, tol)
	}
}

// MustTimeNear asserts got is within tol of want
func MustTimeNear(t *testing.T, got, want time.Time, tol time.Duration, what string) {
	t.Helper()
	d := got.Sub(want).Abs()
	if d > tol {
		t.Fatalf("%s = %s, want %s (off by %s, tol %s)", what, got.Format(time.RFC3339Nano), want.Format(time.RFC3339Nano), d, tol)
	}
}

var seams sync.Mutex

// Swap replaces a package level seam (usually a constructor var) until the test ends
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	orig := *target
	*target = replacement
	t.Cleanup(func() { *target = orig })
}

// Serial holds a process wide lock for the rest of the test; use it with Swap
func Serial(t *testing.T) {
	t.Helper()
	seams.Lock()
	t.Cleanup(seams.Unlock)
}
