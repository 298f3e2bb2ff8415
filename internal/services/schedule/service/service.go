// Package service loads the eclipse schedule and hands out shot streams for runs
package service

import (
	"time"

	"umbra/internal/core/clock"
	"umbra/internal/core/plan"
	"umbra/internal/core/timeline"
	perr "umbra/internal/platform/errors"
	"umbra/internal/platform/logger"
	dom "umbra/internal/services/schedule/domain"
)

// Rehearsal moves the schedule close to now for a dry run
type Rehearsal struct {
	Lead    time.Duration // until first contact, default 5s
	Partial time.Duration // C1..C2 and C3..C4, default 60s, must exceed the 30s beads lead
}

// Config for the schedule service
type Config struct {
	Plan      plan.Config
	Mode      dom.Mode
	Tolerance time.Duration // precomputed mode only
	Rehearsal *Rehearsal
}

// Svc owns one validated, immutable plan configuration
type Svc struct {
	cfg  plan.Config
	mode dom.Mode
	tol  time.Duration
	clk  clock.Clock
}

var (
	_ dom.PlannerPort = (*Svc)(nil)
	_ dom.PreviewPort = (*Svc)(nil)
)

// New validates cfg. With a rehearsal the contacts are shifted relative to clk.Now first.
func New(cfg Config, clk clock.Clock) (*Svc, error) {
	if clk == nil {
		clk = clock.Wall{}
	}
	if cfg.Mode == "" {
		cfg.Mode = dom.ModeLazy
	}
	if !cfg.Mode.Valid() {
		return nil, perr.Validationf("mode", "mode must be lazy or precomputed, got %q", cfg.Mode)
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = plan.DefaultTolerance
	}

	log := logger.Named("schedule")
	if r := cfg.Rehearsal; r != nil {
		lead, partial := r.Lead, r.Partial
		if lead <= 0 {
			lead = 5 * time.Second
		}
		if partial <= 0 {
			partial = time.Minute
		}
		if partial <= timeline.BeadsLead {
			return nil, perr.Validationf("test_partial", "test run partial phase must be longer than %s", timeline.BeadsLead)
		}
		if err := cfg.Plan.Contacts.Validate(); err != nil {
			return nil, perr.WithOp(err, "rehearsal needs the real contacts")
		}
		cfg.Plan.Contacts = cfg.Plan.Contacts.Rehearsal(clk.Now(), lead, partial)
		log.Warn().Time("c1", cfg.Plan.Contacts.C1).Time("c2", cfg.Plan.Contacts.C2).
			Msg("schedule: test run, contacts shifted to now")
	}

	if err := cfg.Plan.Validate(); err != nil {
		return nil, err
	}

	s := &Svc{cfg: cfg.Plan, mode: cfg.Mode, tol: cfg.Tolerance, clk: clk}
	sum := dom.Summarize(s.Table())
	log.Info().Str("mode", string(s.mode)).Time("c1", s.cfg.Contacts.C1).Time("c2", s.cfg.Contacts.C2).
		Time("max", s.cfg.Contacts.Max).Time("c3", s.cfg.Contacts.C3).Time("c4", s.cfg.Contacts.C4).
		Int("shots", sum.Shots).Msg("schedule: plan loaded")
	return s, nil
}

// Config returns the plan configuration
func (s *Svc) Config() plan.Config { return s.cfg }

// Mode returns the evaluation mode
func (s *Svc) Mode() dom.Mode { return s.mode }

// Table materializes the nominal schedule
func (s *Svc) Table() []plan.Shot { return plan.Table(s.cfg) }

// Source returns a fresh stream: a live composer in lazy mode, the nominal table behind a
// lateness filter in precomputed mode
func (s *Svc) Source() plan.Generator {
	if s.mode == dom.ModePrecomputed {
		return plan.NewPrecomputed(s.Table(), s.clk, s.tol)
	}
	return plan.NewComposer(s.cfg, s.clk)
}

// Preview overlays f on the loaded configuration and returns the resulting table
func (s *Svc) Preview(f dom.PlanFile) (plan.Config, []plan.Shot, error) {
	cfg, err := f.Apply(s.cfg)
	if err != nil {
		return cfg, nil, err
	}
	cfg.Contacts = cfg.Contacts.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	return cfg, plan.Table(cfg), nil
}
