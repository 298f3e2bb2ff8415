// Package ch provides a clickhouse client
package ch

import (
	"context"
	"errors"
	"strings"

	perr "umbra/internal/platform/errors"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config configures clickhouse client
type Config struct {
	URL string

	// Role and Tag land in system.query_log client info
	Role string
	Tag  string
}

// Rows is the driver result set
type Rows = driver.Rows

// CH wraps a native clickhouse connection
type CH struct {
	conn driver.Conn
}

// openConn is the driver seam, tests swap it
var openConn = clickhouse.Open

// Open parses the DSN, dials and pings
func Open(ctx context.Context, cfg Config) (*CH, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, perr.Validationf("url", "clickhouse url is required")
	}
	opt, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeValidation, "clickhouse dsn")
	}
	opt.ClientInfo = BuildClientInfo(cfg.Role, cfg.Tag)

	conn, err := openConn(opt)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "clickhouse open")
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "clickhouse ping")
	}
	return &CH{conn: conn}, nil
}

// New wraps an already open connection
func New(conn driver.Conn) *CH { return &CH{conn: conn} }

// Insert appends rows to table in one batch
// each row must match the table column order
func (c *CH) Insert(ctx context.Context, table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	b, err := c.conn.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDB, "prepare batch %s", table)
	}
	for _, r := range rows {
		if err := b.Append(r...); err != nil {
			return errors.Join(perr.Wrapf(err, perr.ErrorCodeDB, "append %s", table), b.Abort())
		}
	}
	if err := b.Send(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDB, "send %s", table)
	}
	return nil
}

// Query runs a query and returns the driver rows
func (c *CH) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "clickhouse query")
	}
	return r, nil
}

// Exec runs a statement without a result set, e.g. DDL
func (c *CH) Exec(ctx context.Context, sql string, args ...any) error {
	if err := c.conn.Exec(ctx, sql, args...); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "clickhouse exec")
	}
	return nil
}

// Ping checks the server is reachable
func (c *CH) Ping(ctx context.Context) error { return c.conn.Ping(ctx) }

// Close closes resources
func (c *CH) Close() error { return c.conn.Close() }
