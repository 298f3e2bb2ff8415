package domain

import (
	"time"

	"umbra/internal/core/plan"
)

// PlannerPort serves the loaded schedule
type PlannerPort interface {
	// Config is the validated configuration of this run
	Config() plan.Config
	// Mode is lazy or precomputed
	Mode() Mode
	// Table is the nominal schedule, identical to what a run produces without delays
	Table() []plan.Shot
	// Source builds a fresh shot stream for one run
	Source() plan.Generator
}

// PreviewPort computes tables for ad hoc configurations without touching the loaded one
type PreviewPort interface {
	Preview(f PlanFile) (plan.Config, []plan.Shot, error)
}

// Summary describes a table at a glance
type Summary struct {
	Shots    int                `json:"shots" yaml:"shots"`
	First    time.Time          `json:"first" yaml:"first"`
	Last     time.Time          `json:"last" yaml:"last"`
	PerPhase map[plan.Phase]int `json:"per_phase" yaml:"per_phase"`
}

// Summarize counts a table per phase
func Summarize(shots []plan.Shot) Summary {
	s := Summary{Shots: len(shots), PerPhase: map[plan.Phase]int{}}
	if len(shots) == 0 {
		return s
	}
	s.First = shots[0].Start
	s.Last = shots[len(shots)-1].Stop
	for _, sh := range shots {
		s.PerPhase[sh.Phase]++
	}
	return s
}
