package service

import (
	"context"
	"os"
	"path/filepath"

	perr "umbra/internal/platform/errors"
	"umbra/internal/services/audit/domain"
	shoot "umbra/internal/services/shooter/domain"
)

// CSVSink writes the whole log to one file per run, replacing it atomically on every write
type CSVSink struct {
	dir string
}

// NewCSV writes into dir, created on first use
func NewCSV(dir string) *CSVSink {
	if dir == "" {
		dir = "."
	}
	return &CSVSink{dir: dir}
}

// Path is where run's log lands
func (s *CSVSink) Path(run shoot.RunInfo) string {
	return filepath.Join(s.dir, domain.FileName(run))
}

// Flush implements domain.Sink
func (s *CSVSink) Flush(_ context.Context, run shoot.RunInfo, recs []shoot.Record) error {
	return s.write(run, recs)
}

// Final implements domain.Sink
func (s *CSVSink) Final(_ context.Context, run shoot.RunInfo, recs []shoot.Record) error {
	return s.write(run, recs)
}

// write goes through a temp file in the same directory so readers never see a torn log
func (s *CSVSink) write(run shoot.RunInfo, recs []shoot.Record) (err error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "audit dir %s", s.dir)
	}
	tmp, err := os.CreateTemp(s.dir, ".umbra-*.csv.tmp")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "audit temp file")
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = domain.WriteCSV(tmp, recs); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "audit write")
	}
	if err = tmp.Sync(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "audit sync")
	}
	if err = tmp.Close(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "audit close")
	}
	if err = os.Rename(tmp.Name(), s.Path(run)); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "audit rename")
	}
	return nil
}

// ReadFile loads a log written by CSVSink; the run id and start come from the file name when it has the usual shape
func ReadFile(path string) (shoot.RunInfo, []shoot.Record, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return shoot.RunInfo{}, nil, perr.NotFoundf("audit log %s not found", path)
	}
	if err != nil {
		return shoot.RunInfo{}, nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	recs, err := domain.ReadCSV(f)
	if err != nil {
		return shoot.RunInfo{}, nil, perr.WithOp(err, filepath.Base(path))
	}
	run, _ := domain.ParseFileName(path)
	return run, recs, nil
}
