// Package module wires the audit sinks as a modkit.Module
package module

import (
	"context"
	"fmt"
	"time"

	"umbra/internal/core/clock"
	"umbra/internal/modkit"
	modreg "umbra/internal/modkit/module"
	"umbra/internal/modkit/repokit"
	phttp "umbra/internal/platform/net/http"

	"umbra/internal/services/audit/domain"
	"umbra/internal/services/audit/repo"
	"umbra/internal/services/audit/service"
)

// Ports exported by the audit module
type Ports struct {
	// Sink is what the shooter writes to
	Sink domain.Sink
	// CSV is always present
	CSV *service.CSVSink
	// Importer is nil without postgres
	Importer domain.ImporterPort
}

// Module implements modkit.Module for the audit log
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New builds the sinks. Postgres and ClickHouse join only when both the store seam and the toggle are on.
// Schema failures are returned so a misconfigured database is noticed before first contact, not after.
func New(ctx context.Context, deps modkit.Deps, clk clock.Clock, overrides Options) (*Module, error) {
	o := FromConfig(deps.Cfg)
	if overrides.Dir != "" {
		o.Dir = overrides.Dir
	}

	csv := service.NewCSV(o.Dir)
	var optional []service.Named
	var importer domain.ImporterPort

	if deps.PG != nil && o.PG {
		tx := repokit.WithBeginHooks(deps.PG, statementTimeout(o.StatementTimeout))
		if o.Migrate {
			if err := repo.EnsureSchema(ctx, deps.PG); err != nil {
				return nil, err
			}
		}
		pg := service.NewPG(tx, repo.NewPG(), clk)
		optional = append(optional, service.Named{Name: "postgres", Sink: pg})
		importer = pg
	}
	if deps.CH != nil && o.CH {
		cr := repo.NewCH(deps.CH, o.CHTable)
		if o.Migrate {
			if err := cr.EnsureSchema(ctx); err != nil {
				return nil, err
			}
		}
		optional = append(optional, service.Named{Name: "clickhouse", Sink: service.NewCH(cr)})
	}

	fan := service.NewFanout(csv, o.SinkTimeout, optional...)
	deps.Log.Info().Str("dir", o.Dir).Strs("optional", fan.Sinks()).Msg("audit: sinks ready")

	m := &Module{deps: deps, opts: o}
	m.ports = Ports{Sink: fan, CSV: csv, Importer: importer}
	return m, nil
}

// statementTimeout bounds every audit statement so a stalled database cannot hold up the shot loop
func statementTimeout(d time.Duration) repokit.BeginHook {
	return func(ctx context.Context, q repokit.Queryer) error {
		if d <= 0 {
			return nil
		}
		_, err := q.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", d.Milliseconds()))
		return err
	}
}

// Name returns the module name
func (m *Module) Name() string { return "audit" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op: the status module serves the flushed log
func (m *Module) MountRoutes(_ phttp.Router) {}

// Register publishes the ports
func (m *Module) Register() { modreg.Register(m.Name(), m.ports) }
