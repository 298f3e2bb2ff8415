// Package service implements the audit log sinks
package service

import (
	"context"
	"time"

	"umbra/internal/platform/logger"
	"umbra/internal/services/audit/domain"
	shoot "umbra/internal/services/shooter/domain"
)

// Named pairs an optional sink with the name used in logs
type Named struct {
	Name string
	Sink domain.Sink
}

// Fanout writes to the primary sink and then to every optional one.
// Only the primary decides the result; optional sinks are bounded by Timeout and only warn.
type Fanout struct {
	primary  domain.Sink
	optional []Named
	timeout  time.Duration
}

// NewFanout builds the fan-out; timeout <= 0 means 3s
func NewFanout(primary domain.Sink, timeout time.Duration, optional ...Named) *Fanout {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Fanout{primary: primary, optional: optional, timeout: timeout}
}

// Flush implements domain.Sink
func (f *Fanout) Flush(ctx context.Context, run shoot.RunInfo, recs []shoot.Record) error {
	err := f.primary.Flush(ctx, run, recs)
	for _, o := range f.optional {
		f.optionally(ctx, o, "flush", func(ctx context.Context) error { return o.Sink.Flush(ctx, run, recs) })
	}
	return err
}

// Final implements domain.Sink
func (f *Fanout) Final(ctx context.Context, run shoot.RunInfo, recs []shoot.Record) error {
	err := f.primary.Final(ctx, run, recs)
	for _, o := range f.optional {
		f.optionally(ctx, o, "final", func(ctx context.Context) error { return o.Sink.Final(ctx, run, recs) })
	}
	return err
}

// Sinks lists the optional sink names, for the startup log
func (f *Fanout) Sinks() []string {
	out := make([]string, 0, len(f.optional))
	for _, o := range f.optional {
		out = append(out, o.Name)
	}
	return out
}

func (f *Fanout) optionally(ctx context.Context, o Named, what string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.C(ctx).Warn().Err(err).Str("sink", o.Name).Str("write", what).Msg("audit: optional sink failed")
	}
}
