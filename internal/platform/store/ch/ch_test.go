package ch

import (
	"context"
	"errors"
	"testing"

	perr "umbra/internal/platform/errors"
	"umbra/internal/platform/testkit"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

type fakeBatch struct {
	driver.Batch
	rows      [][]any
	appendErr error
	sent      bool
	aborted   bool
}

func (b *fakeBatch) Append(v ...any) error {
	if b.appendErr != nil {
		return b.appendErr
	}
	b.rows = append(b.rows, v)
	return nil
}
func (b *fakeBatch) Send() error  { b.sent = true; return nil }
func (b *fakeBatch) Abort() error { b.aborted = true; return nil }

type fakeConn struct {
	driver.Conn
	batch   *fakeBatch
	query   string
	pingErr error
	closed  bool
}

func (c *fakeConn) PrepareBatch(_ context.Context, q string, _ ...driver.PrepareBatchOption) (driver.Batch, error) {
	c.query = q
	return c.batch, nil
}
func (c *fakeConn) Exec(_ context.Context, q string, _ ...any) error {
	c.query = q
	return nil
}
func (c *fakeConn) Ping(context.Context) error { return c.pingErr }
func (c *fakeConn) Close() error               { c.closed = true; return nil }

func TestInsert_BatchesRows(t *testing.T) {
	fc := &fakeConn{batch: &fakeBatch{}}
	c := New(fc)
	err := c.Insert(context.Background(), "audit_shots", [][]any{{uint32(1), "partial1"}, {uint32(2), "beads1"}})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if fc.query != "INSERT INTO audit_shots" {
		t.Fatalf("query = %q", fc.query)
	}
	if len(fc.batch.rows) != 2 || !fc.batch.sent {
		t.Fatalf("batch not sent: %+v", fc.batch)
	}
}

func TestInsert_EmptyIsNoop(t *testing.T) {
	fc := &fakeConn{}
	if err := New(fc).Insert(context.Background(), "t", nil); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if fc.query != "" {
		t.Fatalf("no batch expected")
	}
}

func TestInsert_AppendErrorAborts(t *testing.T) {
	fc := &fakeConn{batch: &fakeBatch{appendErr: errors.New("type mismatch")}}
	err := New(fc).Insert(context.Background(), "t", [][]any{{1}})
	if !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("want db error, got %v", err)
	}
	if !fc.batch.aborted || fc.batch.sent {
		t.Fatalf("batch should be aborted, not sent")
	}
}

func TestExec(t *testing.T) {
	fc := &fakeConn{}
	if err := New(fc).Exec(context.Background(), "CREATE TABLE IF NOT EXISTS t (x UInt8) ENGINE = Memory"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if fc.query == "" {
		t.Fatalf("statement not forwarded")
	}
}

func TestOpen(t *testing.T) {
	testkit.Serial(t)

	var seen *clickhouse.Options
	fc := &fakeConn{}
	testkit.Swap(t, &openConn, func(opt *clickhouse.Options) (driver.Conn, error) {
		seen = opt
		return fc, nil
	})
	c, err := Open(context.Background(), Config{URL: "clickhouse://u:p@localhost:9000/umbra", Role: "shoot", Tag: "test"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if seen.Auth.Database != "umbra" {
		t.Fatalf("database = %q", seen.Auth.Database)
	}
	if len(seen.ClientInfo.Products) == 0 || seen.ClientInfo.Products[0].Name != "umbra" {
		t.Fatalf("client info not set: %+v", seen.ClientInfo)
	}
	if err := c.Close(); err != nil || !fc.closed {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpen_PingFailureCloses(t *testing.T) {
	testkit.Serial(t)

	fc := &fakeConn{pingErr: errors.New("connection refused")}
	testkit.Swap(t, &openConn, func(*clickhouse.Options) (driver.Conn, error) { return fc, nil })

	_, err := Open(context.Background(), Config{URL: "clickhouse://localhost:9000"})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
	if !fc.closed {
		t.Fatalf("conn should be closed after failed ping")
	}
}

func TestOpen_BadConfig(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("empty url: %v", err)
	}
	if _, err := Open(context.Background(), Config{URL: "clickhouse://[::1"}); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("bad dsn: %v", err)
	}
}

func TestBuildClientInfo(t *testing.T) {
	info := BuildClientInfo("shoot", "")
	got := map[string]string{}
	for _, p := range info.Products {
		got[p.Name] = p.Version
	}
	if got["role"] != "shoot" || got["umbra"] != "-" || got["go"] == "" {
		t.Fatalf("products = %v", got)
	}
}
