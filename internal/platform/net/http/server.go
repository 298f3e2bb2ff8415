// Package http wraps chi and net/http for the status API
package http

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"time"

	"umbra/internal/platform/config"
	"umbra/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// Server pairs a chi mux with a stdlib http.Server
type Server struct {
	addr  string
	grace time.Duration
	mux   *chi.Mux
	srv   *stdhttp.Server
}

// NewServer reads ADDR (default :4600) and SHUTDOWN_GRACE (default 5s) from cfg
func NewServer(cfg config.Conf) *Server {
	m := chi.NewRouter()
	s := &Server{
		addr:  cfg.MayString("ADDR", ":4600"),
		grace: cfg.MayDuration("SHUTDOWN_GRACE", 5*time.Second),
		mux:   m,
	}
	s.srv = &stdhttp.Server{
		Addr:              s.addr,
		Handler:           m,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router exposes the mux for mounting
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Addr is the configured listen address
func (s *Server) Addr() string { return s.addr }

// Run listens and serves until ctx is cancelled, then drains within the grace period
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := logger.Named("http")
	log.Info().Str("addr", ln.Addr().String()).Msg("http listening")

	stop := context.AfterFunc(ctx, func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.grace)
		defer cancel()
		if err := s.srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
	})
	defer stop()

	if err := s.srv.Serve(ln); !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}
