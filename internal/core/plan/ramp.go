package plan

import (
	"math"
	"time"

	"umbra/internal/core/clock"
	"umbra/internal/core/exposure"
	ptime "umbra/internal/platform/time"
)

type ramp struct {
	phase    Phase
	clk      clock.Clock
	start    time.Time
	end      time.Time
	cfg      Ramp
	overhead float64

	available float64 // seconds of the window usable for shot starts
	perSecond float64
	lo, hi    float64

	seq  int
	next time.Time
	done bool
}

// NewRamp returns a generator whose exposure value follows
// StartProduct * perSecond^t for t seconds since start, reaching EndProduct
// when the last shot of the window starts. Shots run back to back; each is solved
// for (exposure, iso) under MinISO and MaxExposure. A window too short for the
// final shot yields nothing.
func NewRamp(phase Phase, clk clock.Clock, start, end time.Time, cfg Ramp, overhead float64, first int) Generator {
	g := &ramp{
		phase:    phase,
		clk:      clk,
		start:    start,
		end:      end,
		cfg:      cfg,
		overhead: overhead,
		seq:      first,
		next:     start,
	}

	last := exposure.Solve(cfg.MinISO, cfg.MaxExposure, cfg.EndProduct).Exposure
	g.available = ptime.Diff(start, end) - (last + overhead)
	if g.available <= 0 || cfg.StartProduct <= 0 || cfg.EndProduct <= 0 {
		g.done = true
		return g
	}
	g.perSecond = math.Pow(cfg.EndProduct/cfg.StartProduct, 1/g.available)
	g.lo = math.Min(cfg.StartProduct, cfg.EndProduct)
	g.hi = math.Max(cfg.StartProduct, cfg.EndProduct)
	return g
}

// product is the clamped exposure value t seconds into the window
func (g *ramp) product(t float64) float64 {
	if t < 0 {
		t = 0
	}
	p := g.cfg.StartProduct * math.Pow(g.perSecond, t)
	return math.Min(g.hi, math.Max(g.lo, p))
}

func (g *ramp) Next() (Shot, bool) {
	if g.done {
		return Shot{}, false
	}

	at := ptime.Later(g.clk.Now(), g.next)
	t := ptime.Diff(g.start, at)
	if t >= g.available {
		g.done = true
		return Shot{}, false
	}

	s := exposure.Solve(g.cfg.MinISO, g.cfg.MaxExposure, g.product(t))
	stop := ptime.AddSeconds(at, s.Exposure+g.overhead)
	if !stop.After(at) || stop.After(g.end) {
		g.done = true
		return Shot{}, false
	}

	shot := Shot{Seq: g.seq, Phase: g.phase, Start: at, Stop: stop, Exposure: s.Exposure, ISO: s.ISO}
	g.seq++
	g.next = stop
	return shot, true
}
