package module

import (
	"time"

	"umbra/internal/platform/config"
	dom "umbra/internal/services/shooter/domain"
)

// Options for the shooter module
type Options struct {
	Mode           string
	Poll           time.Duration
	FlushAfter     time.Duration
	OnCaptureError dom.CapturePolicy
}

// FromConfig fills options from environment
// CORE_SHOOT_POLL (default 100ms) is the longest single sleep while waiting for a shot
// CORE_SHOOT_FLUSH_AFTER (default 5s) flushes the log before any wait longer than this
// CORE_SHOOT_ON_CAPTURE_ERROR (default "abort") is "abort" or "continue"
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_SHOOT_")
	return Options{
		Poll:           c.MayDuration("POLL", 100*time.Millisecond),
		FlushAfter:     c.MayDuration("FLUSH_AFTER", 5*time.Second),
		OnCaptureError: dom.CapturePolicy(c.MayEnum("ON_CAPTURE_ERROR", string(dom.PolicyAbort), string(dom.PolicyAbort), string(dom.PolicyContinue))),
	}
}
