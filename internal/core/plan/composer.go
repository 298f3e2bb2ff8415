package plan

import (
	"time"

	"umbra/internal/core/clock"
	ptime "umbra/internal/platform/time"
)

type stage struct {
	end   time.Time // nominal end of the window
	build func(start time.Time, first int) Generator
}

// Composer chains the seven phases into one ordered stream. Each phase starts at the
// stop of the last shot emitted so far; a phase that emits nothing moves the cursor to
// its nominal end instead so the next phase does not start early.
//
// The clock decides the mode: a live clock re-evaluates now before every shot,
// clock.Nominal materializes the table against nominal times. With no execution
// delay both produce the same shots.
type Composer struct {
	stages  []stage
	idx     int
	cur     Generator
	cursor  time.Time
	seq     int // last emitted sequence number
	phase   Phase
	emitted bool // current stage emitted
}

// NewComposer builds the composer for cfg evaluated against clk. cfg is not validated here.
func NewComposer(cfg Config, clk clock.Clock) *Composer {
	c := cfg.Contacts
	cyc := func(p Phase, end time.Time, cy Cyclic) stage {
		return stage{end: end, build: func(start time.Time, first int) Generator {
			return NewCyclic(p, clk, start, end, cy, cfg.Overhead, first)
		}}
	}
	return &Composer{
		cursor: c.C1,
		stages: []stage{
			cyc(Partial1, c.BeadsStart(), cfg.Partial),
			cyc(Beads1, c.DiamondsStart(), cfg.Beads),
			cyc(Diamonds1, c.C2, cfg.Diamonds),
			{end: c.C3, build: func(start time.Time, first int) Generator {
				return NewTotality(clk, start, c.Max, c.C3, cfg.Totality, cfg.Overhead, first)
			}},
			cyc(Diamonds2, c.DiamondsEnd(), cfg.Diamonds),
			cyc(Beads2, c.BeadsEnd(), cfg.Beads),
			cyc(Partial2, c.C4, cfg.Partial),
		},
	}
}

// Next returns the next shot of the run
func (c *Composer) Next() (Shot, bool) {
	for c.idx < len(c.stages) {
		st := c.stages[c.idx]
		if c.cur == nil {
			c.cur = st.build(c.cursor, c.seq+1)
			c.emitted = false
		}
		if s, ok := c.cur.Next(); ok {
			c.seq = s.Seq
			c.cursor = s.Stop
			c.phase = s.Phase
			c.emitted = true
			return s, true
		}
		if !c.emitted {
			c.cursor = ptime.Later(c.cursor, st.end)
		}
		c.cur = nil
		c.idx++
	}
	return Shot{}, false
}

// Phase is the label of the last emitted shot
func (c *Composer) Phase() Phase { return c.phase }

// Drain pulls every remaining shot from g
func Drain(g Generator) []Shot {
	var out []Shot
	for {
		s, ok := g.Next()
		if !ok {
			return out
		}
		out = append(out, s)
	}
}

// Table materializes the full schedule for cfg against nominal times
func Table(cfg Config) []Shot {
	return Drain(NewComposer(cfg, clock.Nominal{}))
}
