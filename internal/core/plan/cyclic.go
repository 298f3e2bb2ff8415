package plan

import (
	"time"

	"umbra/internal/core/clock"
	ptime "umbra/internal/platform/time"
)

type cyclic struct {
	phase    Phase
	clk      clock.Clock
	end      time.Time
	cfg      Cyclic
	overhead float64

	seq        int
	n          int // shots emitted
	next       time.Time
	cycleStart time.Time
	done       bool
}

// NewCyclic returns a generator cycling cfg.Exposures over [start, end).
// Within a pass shots run back to back; a new pass starts no earlier than Delta seconds
// after the previous pass started. Every start is max(now, nominal) so a live clock
// skips ahead when execution falls behind. first is the sequence number of the first shot.
func NewCyclic(phase Phase, clk clock.Clock, start, end time.Time, cfg Cyclic, overhead float64, first int) Generator {
	return &cyclic{
		phase:    phase,
		clk:      clk,
		end:      end,
		cfg:      cfg,
		overhead: overhead,
		seq:      first,
		next:     start,
	}
}

func (g *cyclic) Next() (Shot, bool) {
	if g.done || len(g.cfg.Exposures) == 0 {
		g.done = true
		return Shot{}, false
	}

	start := ptime.Later(g.clk.Now(), g.next)
	k := g.n % len(g.cfg.Exposures)
	if k == 0 {
		if g.n > 0 {
			start = ptime.Later(start, ptime.AddSeconds(g.cycleStart, g.cfg.Delta))
		}
		g.cycleStart = start
	}

	exp := g.cfg.Exposures[k]
	need := exp + g.overhead
	stop := ptime.AddSeconds(start, need)
	// a duration that overflowed lands stop before start
	if need <= 0 || !stop.After(start) || !stop.Before(g.end) {
		g.done = true
		return Shot{}, false
	}

	shot := Shot{Seq: g.seq, Phase: g.phase, Start: start, Stop: stop, Exposure: exp, ISO: g.cfg.ISO}
	g.seq++
	g.n++
	g.next = stop
	return shot, true
}
