// Package module wires the status API as a modkit.Module
package module

import (
	"net/http"

	"umbra/internal/modkit"
	"umbra/internal/modkit/httpkit"
	modreg "umbra/internal/modkit/module"
	pstrings "umbra/internal/platform/strings"
	schedmod "umbra/internal/services/schedule/module"
	shoot "umbra/internal/services/shooter/domain"
	shootmod "umbra/internal/services/shooter/module"
	"umbra/internal/services/status/feed"
	statushttp "umbra/internal/services/status/http"
)

// Ports exported by the status module
type Ports struct {
	// Feed is a shooter observer, pass it to the shooter so clients see the run live
	Feed *feed.Hub
}

// Module implements modkit.Module for the status API
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string
	mw     []func(http.Handler) http.Handler
	opts   Options

	ports Ports
	h     statushttp.Deps
}

// New builds the module. The plan ports are looked up from the schedule module when it is
// registered; the shooter state is looked up on every request.
// WithMiddlewares appends to the api stack, it never wraps the feed.
func New(deps modkit.Deps, service string, opts ...modkit.Option) *Module {
	o := FromConfig(deps.Cfg)
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("status"),
		modkit.WithPrefix("/v1"),
		modkit.WithMiddlewares(httpkit.APIStack(o.Timeout)...),
	}, opts...)...)

	h := statushttp.Deps{Service: service, State: shooterState}
	if sp, ok := modreg.PortsAs[schedmod.Ports]("schedule"); ok {
		h.Planner, h.Preview = sp.Planner, sp.Preview
	}
	if p, ok := b.Ports.(schedmod.Ports); ok {
		h.Planner, h.Preview = p.Planner, p.Preview
	}

	return &Module{
		deps:   deps,
		name:   b.Name,
		prefix: pstrings.MustPrefix(b.Prefix),
		mw:     b.Mw,
		opts:   o,
		ports:  Ports{Feed: feed.NewHub(o.FeedBuffer)},
		h:      h,
	}
}

func shooterState() shoot.StatePort {
	p, ok := modreg.PortsAs[shootmod.Ports]("shooter")
	if !ok {
		return nil
	}
	return p.State
}

// MountRoutes mounts /v1. The feed sits outside the api stack so the timeout and
// compression never touch the websocket.
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		rr.Handle("/feed", m.ports.Feed)
		httpkit.MountGroup(rr, m.mw, func(api httpkit.Router) {
			statushttp.Register(api, m.h)
		})
	})
}

// Health is the /healthz handler
func (m *Module) Health() httpkit.Handler { return statushttp.Health(m.h) }

// Options returns the effective options
func (m *Module) Options() Options { return m.opts }

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Register publishes the ports
func (m *Module) Register() { modreg.Register(m.Name(), m.ports) }
