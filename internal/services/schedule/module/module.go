// Package module wires the schedule service as a modkit.Module
package module

import (
	"umbra/internal/core/clock"
	"umbra/internal/modkit"
	modreg "umbra/internal/modkit/module"
	phttp "umbra/internal/platform/net/http"
	pstrings "umbra/internal/platform/strings"

	dom "umbra/internal/services/schedule/domain"
	"umbra/internal/services/schedule/service"
)

// Ports exported by the schedule module
type Ports struct {
	Planner dom.PlannerPort
	Preview dom.PreviewPort
}

// Module implements modkit.Module for the schedule
type Module struct {
	deps  modkit.Deps
	ports Ports
	svc   *service.Svc
}

// New loads and validates the plan. Non zero overrides (command line flags) win over the
// environment, which wins over the plan file. clk may be nil for the wall clock.
func New(deps modkit.Deps, overrides Options, clk clock.Clock) (*Module, error) {
	o := FromConfig(deps.Cfg)
	if overrides.PlanPath != "" {
		o.PlanPath = overrides.PlanPath
	}
	if overrides.Tolerance != 0 {
		o.Tolerance = overrides.Tolerance
	}
	if overrides.TestRun {
		o.TestRun = true
	}

	cfg, file, err := service.Load(deps.Cfg.Prefix("CORE_SCHED_"), o.PlanPath)
	if err != nil {
		return nil, err
	}
	tol, err := file.ToleranceOr(0)
	if err != nil {
		return nil, err
	}
	if o.Tolerance != 0 {
		tol = o.Tolerance
	}

	sc := service.Config{
		Plan:      cfg,
		Mode:      dom.Mode(pstrings.FirstNonEmpty(overrides.Mode, o.Mode, string(file.Mode), string(dom.ModeLazy))),
		Tolerance: tol,
	}
	if o.TestRun {
		sc.Rehearsal = &service.Rehearsal{Lead: o.TestLead, Partial: o.TestPartial}
	}
	svc, err := service.New(sc, clk)
	if err != nil {
		return nil, err
	}

	m := &Module{deps: deps, svc: svc}
	m.ports = Ports{Planner: svc, Preview: svc}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "schedule" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op: plan endpoints are served by the status module
func (m *Module) MountRoutes(_ phttp.Router) {}

// Register publishes the ports
func (m *Module) Register() { modreg.Register(m.Name(), m.ports) }
