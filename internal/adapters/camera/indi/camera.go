package indi

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"umbra/internal/core/clock"
	perr "umbra/internal/platform/errors"
	"umbra/internal/platform/logger"
	ptime "umbra/internal/platform/time"
)

// Property names used by the gphoto CCD driver
const (
	propConnection    = "CONNECTION"
	propCaptureTarget = "CCD_CAPTURE_TARGET"
	propTransfer      = "CCD_TRANSFER_FORMAT"
	propUploadMode    = "UPLOAD_MODE"
	propISO           = "CCD_ISO"
	propExposure      = "CCD_EXPOSURE"
	propExposureValue = "CCD_EXPOSURE_VALUE"
	propExposureMode  = "autoexposuremode"
)

// Exposures above this are known to get lost or misconfigured by the gphoto driver
const longExposureWarn = 1.0

// Options configures the camera adapter
type Options struct {
	Device string

	// Sleeper passes the exposure time before polling for completion, clock.Wall when nil
	Sleeper clock.Sleeper

	// Setup bounds connecting and configuring the device, default 30s
	Setup time.Duration

	// Timeout bounds one capture beyond its exposure time, default 30s
	Timeout time.Duration
}

// Camera drives a DSLR through indiserver
type Camera struct {
	cl  *Client
	dev string
	opt Options
	log *logger.Logger

	mu       sync.Mutex
	exposure float64
}

// Connect connects the device and puts it into the mode the shooter expects: images stay on
// the card, nothing is uploaded to the client, raw format, manual exposure.
func Connect(ctx context.Context, cl *Client, opt Options) (*Camera, error) {
	if opt.Device == "" {
		return nil, perr.Validationf("device", "indi device name is required")
	}
	if opt.Sleeper == nil {
		opt.Sleeper = clock.Wall{}
	}
	if opt.Setup <= 0 {
		opt.Setup = 30 * time.Second
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 30 * time.Second
	}
	c := &Camera{cl: cl, dev: opt.Device, opt: opt, log: logger.Named("camera.indi")}

	ctx, cancel := context.WithTimeout(ctx, opt.Setup)
	defer cancel()

	if err := cl.GetProperties(c.dev); err != nil {
		return nil, err
	}
	conn, err := cl.Wait(ctx, c.dev, propConnection, nil)
	if err != nil {
		return nil, perr.WithOp(err, "indi: find device")
	}
	if e, _ := conn.Element("CONNECT"); !e.On() {
		c.log.Info().Str("device", c.dev).Msg("indi: connecting device")
		if err := cl.SendSwitch(c.dev, propConnection, []Element{{Name: "CONNECT", Value: "On"}, {Name: "DISCONNECT", Value: "Off"}}); err != nil {
			return nil, err
		}
		if _, err := cl.Wait(ctx, c.dev, propConnection, func(v Vector) bool {
			e, _ := v.Element("CONNECT")
			return e.On() && v.State != StateBusy
		}); err != nil {
			return nil, perr.WithOp(err, "indi: connect device")
		}
	}

	// capture target: second switch is the SD card
	if err := c.selectIndex(ctx, propCaptureTarget, 1); err != nil {
		return nil, err
	}
	// upload mode: first switch is client, nothing is written locally
	if err := c.selectIndex(ctx, propUploadMode, 0); err != nil {
		return nil, err
	}
	// transfer format: second switch is native (raw), not every body exposes it
	if _, ok := cl.Vector(c.dev, propTransfer); ok {
		if err := c.selectIndex(ctx, propTransfer, 1); err != nil {
			return nil, err
		}
	}

	if v, ok := cl.Vector(c.dev, propExposureMode); ok {
		for _, e := range v.Elements {
			if e.On() && strings.EqualFold(e.Label, "Bulb") {
				return nil, perr.Devicef("indi: %s is in bulb mode, switch the dial to manual and reconnect", c.dev)
			}
		}
	}

	c.log.Info().Str("device", c.dev).Msg("indi: camera ready")
	return c, nil
}

// SetISO selects the ISO switch whose label is numerically closest to iso
func (c *Camera) SetISO(ctx context.Context, iso float64) error {
	ctx, cancel := context.WithTimeout(ctx, c.opt.Timeout)
	defer cancel()
	v, err := c.cl.Wait(ctx, c.dev, propISO, nil)
	if err != nil {
		return err
	}
	idx := NearestISO(v.Elements, iso)
	if idx < 0 {
		return perr.Devicef("indi: no numeric iso among %d choices of %s", len(v.Elements), propISO)
	}
	return c.cl.SendSwitch(c.dev, propISO, oneOfMany(v.Elements, idx))
}

// SetExposure stores the exposure used by the next capture
func (c *Camera) SetExposure(_ context.Context, seconds float64) error {
	if seconds <= 0 {
		return perr.InvalidArgf("exposure must be positive, got %v", seconds)
	}
	if seconds > longExposureWarn {
		c.log.Warn().Float64("exposure", seconds).Msg("indi: exposures above 1s are unreliable with this driver, expect lost or misconfigured shots")
	}
	c.mu.Lock()
	c.exposure = seconds
	c.mu.Unlock()
	return nil
}

// CaptureImage starts the exposure, lets it run and waits for the driver to report Ok
func (c *Camera) CaptureImage(ctx context.Context) error {
	c.mu.Lock()
	exp := c.exposure
	c.mu.Unlock()
	if exp <= 0 {
		return perr.Devicef("indi: capture before exposure was set")
	}

	ctx, cancel := context.WithTimeout(ctx, c.opt.Timeout+ptime.Seconds(exp))
	defer cancel()

	if _, err := c.cl.Wait(ctx, c.dev, propExposure, nil); err != nil {
		return err
	}
	val := strconv.FormatFloat(exp, 'g', -1, 64)
	if err := c.cl.SendNumber(c.dev, propExposure, []Element{{Name: propExposureValue, Value: val}}); err != nil {
		return err
	}
	if err := c.opt.Sleeper.Sleep(ctx, ptime.Seconds(exp)); err != nil {
		return err
	}
	if _, err := c.cl.WaitState(ctx, c.dev, propExposure, StateOk); err != nil {
		return perr.WithOp(err, "indi: capture")
	}
	return nil
}

func (c *Camera) selectIndex(ctx context.Context, name string, idx int) error {
	v, err := c.cl.Wait(ctx, c.dev, name, nil)
	if err != nil {
		return perr.WithOp(err, "indi: configure "+name)
	}
	if idx >= len(v.Elements) {
		return perr.Devicef("indi: %s has %d switches, want index %d", name, len(v.Elements), idx)
	}
	return c.cl.SendSwitch(c.dev, name, oneOfMany(v.Elements, idx))
}

// NearestISO returns the index of the element whose label is the closest number to iso, -1 if
// no label is numeric (Auto and friends are ignored)
func NearestISO(elems []Element, iso float64) int {
	best, bestDiff := -1, math.Inf(1)
	for i, e := range elems {
		label := e.Label
		if label == "" {
			label = e.Name
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(label), 64)
		if err != nil {
			continue
		}
		if d := math.Abs(v - iso); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best
}

func oneOfMany(elems []Element, idx int) []Element {
	out := make([]Element, len(elems))
	for i, e := range elems {
		out[i] = Element{Name: e.Name, Value: "Off"}
		if i == idx {
			out[i].Value = "On"
		}
	}
	return out
}
