// Package http provides http transport for the status API
package http

import (
	stdhttp "net/http"
	"time"

	"umbra/internal/core/plan"
	"umbra/internal/core/version"
	"umbra/internal/modkit/httpkit"
	perr "umbra/internal/platform/errors"
	sched "umbra/internal/services/schedule/domain"
	shoot "umbra/internal/services/shooter/domain"
	"umbra/internal/services/status/domain"
)

// Deps are the ports the handlers read from. State is resolved per request because the
// shooter registers after the routes are mounted; it returns nil in a process that only plans.
type Deps struct {
	Planner sched.PlannerPort
	Preview sched.PreviewPort
	State   func() shoot.StatePort
	Service string
}

func (d Deps) state() shoot.StatePort {
	if d.State == nil {
		return nil
	}
	return d.State()
}

// Register mounts the v1 endpoints on the given router
func Register(r httpkit.Router, d Deps) {
	h := &handlers{d: d}

	httpkit.Get(r, "/run", h.run)
	httpkit.Get(r, "/shots", h.shots)
	httpkit.Get(r, "/plan", h.plan)
	httpkit.PostJSON[domain.PreviewInput](r, "/plan/preview", h.preview)
}

// Health answers /healthz, outside the v1 envelope routes
func Health(d Deps) httpkit.Handler {
	return httpkit.Call(func(*stdhttp.Request) (any, error) {
		out := domain.Health{Status: "ok", Build: version.Info(d.Service), Now: time.Now().UTC()}
		if st := d.state(); st != nil {
			out.Running = st.State().Running
		}
		return out, nil
	})
}

type handlers struct{ d Deps }

// swagger:route GET /v1/run Status statusRun
// @Summary Live run state
// @Tags Status
// @Produce json
// @Success 200 {object} shoot.RunState "ok"
// @Failure 404 {object} httpkit.Envelope "no shooter in this process"
// @Router /v1/run [get]
func (h *handlers) run(*stdhttp.Request) (any, error) {
	st := h.d.state()
	if st == nil {
		return nil, perr.NotFoundf("no shooter in this process")
	}
	return st.State(), nil
}

// swagger:route GET /v1/shots Status statusShots
// @Summary Last flushed audit log
// @Tags Status
// @Produce json
// @Success 200 {object} domain.ShotsView "ok"
// @Router /v1/shots [get]
func (h *handlers) shots(*stdhttp.Request) (any, error) {
	sp := h.d.state()
	if sp == nil {
		return nil, perr.NotFoundf("no shooter in this process")
	}
	st, recs := sp.State(), sp.Records()
	return domain.ShotsView{RunID: st.ID, Flushed: st.Flushed, Count: len(recs), Shots: recs}, nil
}

// swagger:route GET /v1/plan Plan planTable
// @Summary Nominal table of the loaded plan
// @Tags Plan
// @Produce json
// @Success 200 {object} domain.PlanView "ok"
// @Router /v1/plan [get]
func (h *handlers) plan(*stdhttp.Request) (any, error) {
	if h.d.Planner == nil {
		return nil, perr.Unavailablef("no plan loaded")
	}
	v := view(h.d.Planner.Config(), h.d.Planner.Table())
	v.Mode = h.d.Planner.Mode()
	return v, nil
}

// swagger:route POST /v1/plan/preview Plan planPreview
// @Summary Table for an ad hoc plan file, layered over the loaded plan
// @Tags Plan
// @Accept json
// @Produce json
// @Param payload body domain.PreviewInput true "Plan overrides"
// @Success 200 {object} domain.PlanView "ok"
// @Router /v1/plan/preview [post]
func (h *handlers) preview(_ *stdhttp.Request, in domain.PreviewInput) (any, error) {
	if h.d.Preview == nil {
		return nil, perr.Unavailablef("no plan loaded")
	}
	cfg, shots, err := h.d.Preview.Preview(in)
	if err != nil {
		return nil, err
	}
	v := view(cfg, shots)
	v.Mode = in.Mode
	return v, nil
}

func view(cfg plan.Config, shots []plan.Shot) domain.PlanView {
	return domain.PlanView{
		Contacts: cfg.Contacts,
		Overhead: cfg.Overhead,
		Summary:  sched.Summarize(shots),
		Rows:     sched.Rows(cfg.Contacts, shots),
	}
}
