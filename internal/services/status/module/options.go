package module

import (
	"time"

	"umbra/internal/platform/config"
)

// Options for the status API
type Options struct {
	Swagger    bool
	Profiler   bool
	Origins    []string
	Slow       time.Duration
	Timeout    time.Duration
	FeedBuffer int
}

// FromConfig fills options from environment. The listen address is read by the server
// itself from CORE_STATUS_ADDR (default :4600).
// CORE_STATUS_SWAGGER (default true) serves the docs at /api/docs
// CORE_STATUS_PROFILER (default false) mounts pprof under /debug
// CORE_STATUS_CORS_ORIGINS is a comma separated origin list
// CORE_STATUS_SLOW (default 500ms) logs slower requests as warnings
// CORE_STATUS_TIMEOUT (default 10s) bounds the JSON routes
// CORE_STATUS_FEED_BUFFER (default 64) events queued per feed client before it is dropped
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_STATUS_")
	return Options{
		Swagger:    c.MayBool("SWAGGER", true),
		Profiler:   c.MayBool("PROFILER", false),
		Origins:    c.MayCSV("CORS_ORIGINS", nil),
		Slow:       c.MayDuration("SLOW", 500*time.Millisecond),
		Timeout:    c.MayDuration("TIMEOUT", 10*time.Second),
		FeedBuffer: c.MayInt("FEED_BUFFER", 64),
	}
}
