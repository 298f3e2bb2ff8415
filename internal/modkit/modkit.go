// Package modkit provides module wiring and core deps
package modkit

import (
	"umbra/internal/modkit/repokit"
	"umbra/internal/platform/config"
	"umbra/internal/platform/logger"
	"umbra/internal/platform/store"
)

// Deps holds core dependencies passed to modules.
// PG and CH are nil when the database is not configured; modules that can run without them nil check.
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}
