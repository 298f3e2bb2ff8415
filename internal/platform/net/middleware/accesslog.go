// Package middleware holds the http middlewares shared by every module
package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"umbra/internal/platform/logger"
	pnet "umbra/internal/platform/net"

	"github.com/rs/zerolog"
)

// AccessLogOptions configures AccessLogZerolog
type AccessLogOptions struct {
	// Slow logs requests at or above this duration at warn, zero never does
	Slow time.Duration
}

type statusRecorder struct {
	http.ResponseWriter
	code    int
	written int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.written += int64(n)
	return n, err
}

// Hijack is needed by the websocket feed
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("accesslog: hijack not supported")
	}
	s.code = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// AccessLogZerolog writes one "request done" line per request.
// The request id is put on the context logger before next runs.
func AccessLogZerolog(opt AccessLogOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithRequest(r.Context(), pnet.RequestID(r.Context()))
			r = r.WithContext(ctx)

			rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
			began := time.Now()
			next.ServeHTTP(rec, r)
			took := time.Since(began)

			lvl := zerolog.InfoLevel
			if opt.Slow > 0 && took >= opt.Slow {
				lvl = zerolog.WarnLevel
			}
			logger.C(ctx).WithLevel(lvl).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.code).
				Int64("bytes", rec.written).
				Dur("elapsed", took).
				Msg("request done")
		})
	}
}
