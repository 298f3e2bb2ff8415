package plan

import (
	"time"

	"umbra/internal/core/clock"
)

// DefaultTolerance is how late a precomputed shot may be and still fire
const DefaultTolerance = 100 * time.Millisecond

// Skip describes a precomputed shot dropped because its start had passed
type Skip struct {
	Shot Shot
	Late time.Duration
}

// Precomputed replays a materialized table against a live clock.
// Shots whose start passed more than the tolerance ago are skipped, never fired late.
type Precomputed struct {
	shots   []Shot
	i       int
	clk     clock.Clock
	tol     time.Duration
	skipped int
	onSkip  func(Skip)
}

// NewPrecomputed wraps shots; tol <= 0 selects DefaultTolerance
func NewPrecomputed(shots []Shot, clk clock.Clock, tol time.Duration) *Precomputed {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return &Precomputed{shots: shots, clk: clk, tol: tol}
}

// OnSkip registers fn to be called for every skipped shot
func (p *Precomputed) OnSkip(fn func(Skip)) { p.onSkip = fn }

// Next returns the next shot that is not yet late
func (p *Precomputed) Next() (Shot, bool) {
	for p.i < len(p.shots) {
		s := p.shots[p.i]
		p.i++
		late := p.clk.Now().Sub(s.Start)
		if late <= p.tol {
			return s, true
		}
		p.skipped++
		if p.onSkip != nil {
			p.onSkip(Skip{Shot: s, Late: late})
		}
	}
	return Shot{}, false
}

// Skipped is the number of shots dropped so far
func (p *Precomputed) Skipped() int { return p.skipped }

// Remaining is the number of table rows not yet visited
func (p *Precomputed) Remaining() int { return len(p.shots) - p.i }
