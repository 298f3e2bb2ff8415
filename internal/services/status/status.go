// Package status serves the live state of a shoot over HTTP
package status

import (
	"net/http"

	"umbra/internal/modkit/httpkit"
	"umbra/internal/modkit/swaggerkit"
	phttp "umbra/internal/platform/net/http"
	statusmod "umbra/internal/services/status/module"
)

// Options are the status server options
type Options struct {
	Module *statusmod.Module
	// Metrics serves /metrics when set
	Metrics http.Handler
}

// Mount mounts the status routes onto the given router
func Mount(r phttp.Router, opt Options) {
	m := opt.Module
	o := m.Options()

	r.Use(httpkit.CommonStack(httpkit.StackOptions{Origins: o.Origins, Slow: o.Slow})...)

	r.Get("/healthz", m.Health())
	if opt.Metrics != nil {
		r.Handle("/metrics", opt.Metrics)
	}
	swaggerkit.Mount(r, o.Swagger)
	phttp.MountProfiler(r, "/debug", o.Profiler)

	m.Register()
	m.MountRoutes(r)
}
