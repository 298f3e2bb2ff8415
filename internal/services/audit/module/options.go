package module

import (
	"time"

	"umbra/internal/platform/config"
)

// Options for the audit module
type Options struct {
	Dir              string
	PG               bool
	CH               bool
	CHTable          string
	Migrate          bool
	SinkTimeout      time.Duration
	StatementTimeout time.Duration
}

// FromConfig fills options from environment
// CORE_AUDIT_DIR (default ".") is where the CSV logs go
// CORE_AUDIT_PG / CORE_AUDIT_CH (default true) use the store backends when they are configured
// CORE_AUDIT_MIGRATE (default true) creates the tables on boot
// CORE_AUDIT_SINK_TIMEOUT (default 3s) bounds each optional sink write
// CORE_AUDIT_STATEMENT_TIMEOUT (default 2s) is set as the postgres statement_timeout of audit transactions
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_AUDIT_")
	return Options{
		Dir:              c.MayString("DIR", "."),
		PG:               c.MayBool("PG", true),
		CH:               c.MayBool("CH", true),
		CHTable:          c.MayString("CH_TABLE", ""),
		Migrate:          c.MayBool("MIGRATE", true),
		SinkTimeout:      c.MayDuration("SINK_TIMEOUT", 3*time.Second),
		StatementTimeout: c.MayDuration("STATEMENT_TIMEOUT", 2*time.Second),
	}
}
