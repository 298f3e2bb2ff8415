// Package module wires the shooter service as a modkit.Module
package module

import (
	"umbra/internal/modkit"
	modreg "umbra/internal/modkit/module"
	phttp "umbra/internal/platform/net/http"

	dom "umbra/internal/services/shooter/domain"
	"umbra/internal/services/shooter/service"
)

// Ports exported by the shooter module
type Ports struct {
	Runner dom.RunnerPort
	State  dom.StatePort
}

// Module implements modkit.Module for the shooter
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New wires the loop around cam and sink. Non zero overrides win over the environment.
func New(deps modkit.Deps, cam dom.Camera, sink dom.LogSink, overrides Options, opts ...service.Option) *Module {
	o := FromConfig(deps.Cfg)
	if overrides.Mode != "" {
		o.Mode = overrides.Mode
	}
	if overrides.Poll != 0 {
		o.Poll = overrides.Poll
	}
	if overrides.FlushAfter != 0 {
		o.FlushAfter = overrides.FlushAfter
	}
	if overrides.OnCaptureError != "" {
		o.OnCaptureError = overrides.OnCaptureError
	}

	svc := service.New(cam, sink, service.Config{
		Mode:           o.Mode,
		Poll:           o.Poll,
		FlushAfter:     o.FlushAfter,
		OnCaptureError: o.OnCaptureError,
	}, opts...)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc, State: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "shooter" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op: the status module serves the shooter state
func (m *Module) MountRoutes(_ phttp.Router) {}

// Register publishes the ports so the status module can resolve them
func (m *Module) Register() { modreg.Register(m.Name(), m.ports) }
