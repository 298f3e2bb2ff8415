package store

import (
	"time"

	"umbra/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	IdleTimeout time.Duration

	// boot knobs, zero means default
	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled    bool
	URL        string
	ClientName string
	ClientTag  string
}

// FromEnv reads SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_*
// a backend is enabled only when its DBURL is set so a field laptop runs without either
func FromEnv(root config.Conf, role string) Config {
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	pgURL := pgCfg.MayString("DBURL", "")
	chURL := chCfg.MayString("DBURL", "")

	return Config{
		AppName: "umbra-" + role,
		PG: PGConfig{
			Enabled:        pgURL != "",
			URL:            pgURL,
			MaxConns:       int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs:    pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:         pgCfg.MayBool("LOG_SQL", false),
			IdleTimeout:    pgCfg.MayDuration("IDLE_TIMEOUT", 0),
			ConnectRetries: pgCfg.MayInt("CONNECT_RETRIES", 0),
			PingTimeout:    pgCfg.MayDuration("PING_TIMEOUT", 0),
		},
		CH: CHConfig{
			Enabled:    chURL != "",
			URL:        chURL,
			ClientName: role,
			ClientTag:  chCfg.MayString("TAG", ""),
		},
	}
}
