package plan

import (
	"time"

	"umbra/internal/core/clock"
	ptime "umbra/internal/platform/time"
)

// totality runs two ramps: up to maximum eclipse and back down to third contact
type totality struct {
	clk      clock.Clock
	start    time.Time
	peak     time.Time
	end      time.Time
	cfg      Ramp
	overhead float64

	cur      Generator
	second   bool
	seq      int
	lastStop time.Time
	emitted  bool
}

// NewTotality returns ramp one (label totality1, StartProduct to EndProduct) over
// [start, peak) followed by ramp two (label totality2, reversed) from the last stop of
// ramp one, or from peak when ramp one was empty, to end. Sequence numbers run on without a gap.
func NewTotality(clk clock.Clock, start, peak, end time.Time, cfg Ramp, overhead float64, first int) Generator {
	return &totality{
		clk:      clk,
		start:    start,
		peak:     peak,
		end:      end,
		cfg:      cfg,
		overhead: overhead,
		seq:      first,
		cur:      NewRamp(Totality1, clk, start, peak, cfg, overhead, first),
	}
}

func (g *totality) Next() (Shot, bool) {
	for {
		if s, ok := g.cur.Next(); ok {
			g.seq = s.Seq + 1
			g.lastStop = s.Stop
			g.emitted = true
			return s, true
		}
		if g.second {
			return Shot{}, false
		}
		from := ptime.Later(g.start, g.peak)
		if g.emitted {
			from = g.lastStop
		}
		g.cur = NewRamp(Totality2, g.clk, from, g.end, g.cfg.Reversed(), g.overhead, g.seq)
		g.second = true
	}
}
