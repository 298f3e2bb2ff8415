// Package observability turns shooter events into Prometheus metrics
package observability

import (
	"net/http"

	dom "umbra/internal/services/shooter/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prom observes shooter events. Metrics live on a private registry so tests and
// several shooters in one process never collide on the default one.
type Prom struct {
	reg *prometheus.Registry

	shots   *prometheus.CounterVec
	drift   prometheus.Histogram
	wait    prometheus.Gauge
	flushes prometheus.Counter
	active  prometheus.Gauge
}

var _ dom.Observer = (*Prom)(nil)

// NewProm creates and registers the shooter metrics
func NewProm() *Prom {
	p := &Prom{
		reg: prometheus.NewRegistry(),
		shots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "umbra_shots_total",
			Help: "Scheduled shots by phase and outcome.",
		}, []string{"phase", "status"}),
		drift: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "umbra_shot_drift_seconds",
			Help:    "Actual minus scheduled start of captured shots.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		wait: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "umbra_wait_seconds",
			Help: "Wait before the next shot when the loop last went to sleep.",
		}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "umbra_log_flushes_total",
			Help: "Audit log flushes during long waits.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "umbra_run_active",
			Help: "1 while a shooting run is in progress.",
		}),
	}
	p.reg.MustRegister(p.shots, p.drift, p.wait, p.flushes, p.active)
	return p
}

// Observe implements dom.Observer
func (p *Prom) Observe(ev dom.Event) {
	switch ev.Kind {
	case dom.EventRunStarted:
		p.active.Set(1)
	case dom.EventWaiting:
		p.wait.Set(ev.Wait)
	case dom.EventShot:
		if ev.Record == nil {
			return
		}
		p.shots.WithLabelValues(string(ev.Record.Phase), string(ev.Record.Status)).Inc()
		if ev.Record.Status == dom.StatusDone {
			p.drift.Observe(ev.Record.Drift)
		}
	case dom.EventFlushed:
		p.flushes.Inc()
	case dom.EventRunFinished:
		p.active.Set(0)
		p.wait.Set(0)
	}
}

// Registry exposes the private registry, e.g. to add process collectors
func (p *Prom) Registry() *prometheus.Registry { return p.reg }

// Handler serves the registry in the Prometheus text format
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}
