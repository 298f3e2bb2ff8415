// Package sim is a camera that only pretends to take pictures. It blocks for as long as a
// real body would and remembers what it was asked to do, which is enough for rehearsals.
package sim

import (
	"context"
	"sync"
	"time"

	"umbra/internal/core/clock"
	perr "umbra/internal/platform/errors"
	"umbra/internal/platform/logger"
	ptime "umbra/internal/platform/time"
)

// DefaultOverhead matches the slowest body we shoot with (write to card, mirror, shutter)
const DefaultOverhead = 3.0

// Options configures the simulated camera
type Options struct {
	// Overhead in seconds; a capture takes Overhead - 0.1 + exposure
	Overhead float64

	// Sleeper is used to pass the capture time, clock.Wall when nil
	Sleeper clock.Sleeper

	// Fail, when set, is asked before every capture (1-based) and its error is returned
	Fail func(n int) error
}

// Settings is what the camera was configured with for one capture
type Settings struct {
	ISO      float64
	Exposure float64
}

// Camera implements the shooter camera port without hardware
type Camera struct {
	opt Options
	log *logger.Logger

	mu       sync.Mutex
	iso      float64
	exposure float64
	shots    []Settings
}

// New returns a simulated camera
func New(opt Options) *Camera {
	if opt.Overhead <= 0 {
		opt.Overhead = DefaultOverhead
	}
	if opt.Sleeper == nil {
		opt.Sleeper = clock.Wall{}
	}
	return &Camera{opt: opt, log: logger.Named("camera.sim")}
}

// SetISO stores the sensitivity
func (c *Camera) SetISO(_ context.Context, iso float64) error {
	if iso <= 0 {
		return perr.InvalidArgf("iso must be positive, got %v", iso)
	}
	c.mu.Lock()
	c.iso = iso
	c.mu.Unlock()
	return nil
}

// SetExposure stores the exposure in seconds
func (c *Camera) SetExposure(_ context.Context, seconds float64) error {
	if seconds <= 0 {
		return perr.InvalidArgf("exposure must be positive, got %v", seconds)
	}
	c.mu.Lock()
	c.exposure = seconds
	c.mu.Unlock()
	return nil
}

// CaptureImage blocks for the simulated capture time
func (c *Camera) CaptureImage(ctx context.Context) error {
	c.mu.Lock()
	s := Settings{ISO: c.iso, Exposure: c.exposure}
	n := len(c.shots) + 1
	c.mu.Unlock()

	if s.ISO <= 0 || s.Exposure <= 0 {
		return perr.Devicef("capture before iso and exposure were set")
	}
	if c.opt.Fail != nil {
		if err := c.opt.Fail(n); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeDevice, "sim: capture %d", n)
		}
	}

	d := c.Duration(s.Exposure)
	c.log.Debug().Float64("iso", s.ISO).Float64("exposure", s.Exposure).Dur("takes", d).Msg("sim: capturing")
	if err := c.opt.Sleeper.Sleep(ctx, d); err != nil {
		return err
	}

	c.mu.Lock()
	c.shots = append(c.shots, s)
	c.mu.Unlock()
	return nil
}

// Duration is how long a capture with the given exposure blocks
func (c *Camera) Duration(exposure float64) time.Duration {
	d := ptime.Seconds(c.opt.Overhead - 0.1 + exposure)
	if d < 0 {
		return 0
	}
	return d
}

// Shots returns the settings of every completed capture
func (c *Camera) Shots() []Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Settings(nil), c.shots...)
}
