package domain

import (
	"math"
	"time"

	"umbra/internal/core/plan"
)

// Drift statistics over completed shots
type Drift struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
}

// PhaseStats aggregates the records of one phase
type PhaseStats struct {
	Phase   plan.Phase `json:"phase"`
	Done    int        `json:"done"`
	Skipped int        `json:"skipped"`
	Failed  int        `json:"failed"`
	Drift   Drift      `json:"drift"`
}

// Summary is the outcome of a run
type Summary struct {
	RunInfo
	Finished time.Time    `json:"finished"`
	Done     int          `json:"done"`
	Skipped  int          `json:"skipped"`
	Failed   int          `json:"failed"`
	Drift    Drift        `json:"drift"`
	Phases   []PhaseStats `json:"phases"`
}

type driftAcc struct {
	n             int
	sum, min, max float64
}

func (a *driftAcc) add(d float64) {
	if a.n == 0 || d < a.min {
		a.min = d
	}
	if a.n == 0 || d > a.max {
		a.max = d
	}
	a.sum += d
	a.n++
}

func (a driftAcc) drift() Drift {
	if a.n == 0 {
		return Drift{}
	}
	return Drift{Min: a.min, Mean: a.sum / float64(a.n), Max: a.max}
}

// Summarize counts records by status and computes drift statistics, overall and per phase
// in shooting order. Drift only covers completed shots.
func Summarize(run RunInfo, recs []Record) Summary {
	s := Summary{RunInfo: run}
	byPhase := map[plan.Phase]*PhaseStats{}
	accs := map[plan.Phase]*driftAcc{}
	var all driftAcc

	for _, r := range recs {
		ps, ok := byPhase[r.Phase]
		if !ok {
			ps = &PhaseStats{Phase: r.Phase}
			byPhase[r.Phase] = ps
			accs[r.Phase] = &driftAcc{}
		}
		switch r.Status {
		case StatusDone:
			s.Done++
			ps.Done++
			all.add(r.Drift)
			accs[r.Phase].add(r.Drift)
		case StatusSkipped:
			s.Skipped++
			ps.Skipped++
		case StatusFailed:
			s.Failed++
			ps.Failed++
		}
	}

	s.Drift = all.drift()
	for _, p := range plan.Phases() {
		if ps, ok := byPhase[p]; ok {
			ps.Drift = accs[p].drift()
			s.Phases = append(s.Phases, *ps)
		}
	}
	return s
}

// RoundDrift rounds seconds to the microsecond, the resolution of the contact instants
func RoundDrift(d float64) float64 { return math.Round(d*1e6) / 1e6 }
