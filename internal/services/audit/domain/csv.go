package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"umbra/internal/core/plan"
	perr "umbra/internal/platform/errors"
	shoot "umbra/internal/services/shooter/domain"
)

// Header is the first line of every audit CSV
var Header = []string{
	"seq", "phase", "start", "stop", "exposure", "iso",
	"actual_start", "actual_stop", "done", "drift", "status", "error",
}

// TimeLayout keeps microseconds, the resolution of the contacts
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

const nameLayout = "20060102T150405Z"

// FileName is umbra_<runid>_<utc start>.csv
func FileName(run shoot.RunInfo) string {
	return "umbra_" + run.ID + "_" + run.Started.UTC().Format(nameLayout) + ".csv"
}

// ParseFileName recovers the run id and start from a FileName result
func ParseFileName(name string) (shoot.RunInfo, bool) {
	base := name
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	base, ok := strings.CutSuffix(base, ".csv")
	if !ok {
		return shoot.RunInfo{}, false
	}
	base, ok = strings.CutPrefix(base, "umbra_")
	if !ok {
		return shoot.RunInfo{}, false
	}
	i := strings.LastIndexByte(base, '_')
	if i <= 0 {
		return shoot.RunInfo{}, false
	}
	started, err := time.Parse(nameLayout, base[i+1:])
	if err != nil {
		return shoot.RunInfo{}, false
	}
	return shoot.RunInfo{ID: base[:i], Started: started}, true
}

// WriteCSV writes the header and one line per record
func WriteCSV(w io.Writer, recs []shoot.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write(encode(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func encode(r shoot.Record) []string {
	return []string{
		strconv.Itoa(r.Seq),
		string(r.Phase),
		formatTime(r.Start),
		formatTime(r.Stop),
		strconv.FormatFloat(r.Exposure, 'g', -1, 64),
		strconv.FormatFloat(r.ISO, 'g', -1, 64),
		formatTime(r.ActualStart),
		formatTime(r.ActualStop),
		strconv.FormatBool(r.Done),
		strconv.FormatFloat(r.Drift, 'f', 6, 64),
		string(r.Status),
		r.Err,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// ReadCSV parses a log written by WriteCSV
// errors carry the field as "line N.column"
func ReadCSV(r io.Reader) ([]shoot.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, perr.Validationf("header", "empty audit log")
	}
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeValidation, "audit header")
	}
	for i, h := range Header {
		if strings.TrimSpace(head[i]) != h {
			return nil, perr.Validationf("header", "column %d is %q, want %q", i+1, head[i], h)
		}
	}

	var out []shoot.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "audit line %d", line)
		}
		rec, err := decode(row)
		if err != nil {
			return nil, perr.WithField(err, fmt.Sprintf("line %d.%s", line, fieldOf(err)))
		}
		out = append(out, rec)
	}
}

func fieldOf(err error) string {
	if e, ok := perr.As(err); ok {
		return e.Field()
	}
	return ""
}

func decode(row []string) (shoot.Record, error) {
	var (
		r   shoot.Record
		err error
	)
	if r.Seq, err = strconv.Atoi(row[0]); err != nil {
		return r, perr.Validationf("seq", "invalid seq %q", row[0])
	}
	r.Phase = plan.Phase(row[1])
	if !r.Phase.Valid() {
		return r, perr.Validationf("phase", "unknown phase %q", row[1])
	}
	times := []struct {
		dst  *time.Time
		name string
		raw  string
	}{
		{&r.Start, "start", row[2]},
		{&r.Stop, "stop", row[3]},
		{&r.ActualStart, "actual_start", row[6]},
		{&r.ActualStop, "actual_stop", row[7]},
	}
	for _, t := range times {
		if t.raw == "" {
			continue
		}
		if *t.dst, err = time.Parse(time.RFC3339Nano, t.raw); err != nil {
			return r, perr.Validationf(t.name, "invalid timestamp %q", t.raw)
		}
		*t.dst = t.dst.UTC()
	}
	if r.Exposure, err = strconv.ParseFloat(row[4], 64); err != nil {
		return r, perr.Validationf("exposure", "invalid exposure %q", row[4])
	}
	if r.ISO, err = strconv.ParseFloat(row[5], 64); err != nil {
		return r, perr.Validationf("iso", "invalid iso %q", row[5])
	}
	if r.Done, err = strconv.ParseBool(row[8]); err != nil {
		return r, perr.Validationf("done", "invalid done flag %q", row[8])
	}
	if r.Drift, err = strconv.ParseFloat(row[9], 64); err != nil {
		return r, perr.Validationf("drift", "invalid drift %q", row[9])
	}
	r.Status = shoot.Status(row[10])
	switch r.Status {
	case shoot.StatusDone, shoot.StatusSkipped, shoot.StatusFailed:
	default:
		return r, perr.Validationf("status", "unknown status %q", row[10])
	}
	r.Err = row[11]
	return r, nil
}
