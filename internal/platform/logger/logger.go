// Package logger is the process wide zerolog root plus the context fields every line
// of a run carries (request_id, run_id, mode)
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"umbra/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is zerolog's, aliased so packages only import this one
type Logger = zerolog.Logger

// Options configures the root logger
type Options struct {
	Level        string
	Format       string // console or json
	Service      string
	Component    string
	Writer       io.Writer
	WithCaller   bool
	SampleEvery  int
	StaticFields map[string]string
}

// FromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_SERVICE, LOG_COMPONENT, LOG_CALLER and LOG_SAMPLE_EVERY
func FromEnv() Options {
	c := raw.New().Prefix("LOG_")
	return Options{
		Level:       c.Get("LEVEL", "info"),
		Format:      strings.ToLower(c.Get("FORMAT", "console")),
		Service:     c.Get("SERVICE", "umbra"),
		Component:   c.Get("COMPONENT", ""),
		WithCaller:  c.GetBool("CALLER", false),
		SampleEvery: c.GetInt("SAMPLE_EVERY", 0),
	}
}

var (
	initOnce sync.Once
	root     atomic.Pointer[Logger]
)

// Get returns the root logger, built from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

// Init builds the root logger; only the first call has an effect
func Init(opt Options) {
	initOnce.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		w := opt.Writer
		if w == nil {
			w = os.Stdout
		}
		if opt.Format == "console" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
		}

		fields := map[string]any{}
		if bi, ok := debug.ReadBuildInfo(); ok {
			fields["go_version"] = bi.GoVersion
		}
		for k, v := range map[string]string{"service": opt.Service, "component": opt.Component} {
			if v != "" {
				fields[k] = v
			}
		}
		for k, v := range opt.StaticFields {
			fields[k] = v
		}

		zc := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp().Fields(fields)
		if opt.WithCaller {
			zc = zc.Caller()
		}
		l := zc.Logger()
		if opt.SampleEvery > 1 {
			l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
		}
		root.Store(&l)
	})
}

// parseLevel falls back to debug for anything zerolog does not know
func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.DebugLevel
	}
	return lvl
}

type ctxKey string

const (
	keyRequestID ctxKey = "request_id"
	keyRunID     ctxKey = "run_id"
	keyMode      ctxKey = "mode"
)

func withValue(ctx context.Context, k ctxKey, v string) context.Context {
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, k, v)
}

// WithRequest tags ctx with the http request id
func WithRequest(ctx context.Context, reqID string) context.Context {
	return withValue(ctx, keyRequestID, reqID)
}

// WithRun tags ctx with the shooting run id and the schedule mode
func WithRun(ctx context.Context, runID, mode string) context.Context {
	return withValue(withValue(ctx, keyRunID, runID), keyMode, mode)
}

// RunID is the run id set by WithRun, "" outside a run
func RunID(ctx context.Context) string {
	s, _ := ctx.Value(keyRunID).(string)
	return s
}

// C is the root logger plus whatever of request_id, run_id and mode ctx carries
func C(ctx context.Context) *Logger {
	zc := Get().With()
	for _, k := range []ctxKey{keyRequestID, keyRunID, keyMode} {
		if s, _ := ctx.Value(k).(string); s != "" {
			zc = zc.Str(string(k), s)
		}
	}
	l := zc.Logger()
	return &l
}

// Named is the root logger with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}
