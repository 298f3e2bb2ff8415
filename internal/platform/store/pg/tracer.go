package pg

import (
	"context"
	"strings"

	"umbra/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent is reported once per finished statement
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer observes statements, implementations must not block
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

type logTracer struct{ l logger.Logger }

// Tracer logs statements on a child logger pinned to debug, so SERVICE_PGSQL_LOG_SQL
// shows queries even when the root level is higher. Failures log at error, slow ones at warn.
func Tracer(root logger.Logger) QueryTracer {
	return logTracer{l: root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()}
}

func (t logTracer) OnQuery(ctx context.Context, ev QueryEvent) {
	lvl := zerolog.DebugLevel
	if ev.Err != nil {
		lvl = zerolog.ErrorLevel
	} else if ev.Slow {
		lvl = zerolog.WarnLevel
	}
	e := t.l.WithLevel(lvl).
		Str("sql", strings.Join(strings.Fields(ev.SQL), " ")).
		Interface("args", ev.Args).
		Float64("elapsed_ms", float64(ev.ElapsedUS)/1e3).
		Bool("slow", ev.Slow)
	if id := logger.RunID(ctx); id != "" {
		e = e.Str("run_id", id)
	}
	e.Err(ev.Err).Msg("pg query")
}
