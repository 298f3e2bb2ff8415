package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"umbra/internal/platform/net/middleware"
)

// StackOptions tunes the server wide middleware
type StackOptions struct {
	// Origins allowed by CORS, empty allows none cross origin
	Origins []string
	// Slow marks requests at or above this duration as warnings in the access log
	Slow time.Duration
}

// CommonStack is applied to every route, long lived ones (websocket feed) included
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		// tracing / correlation
		middleware.RequestID(),
		middleware.RealIP(),

		// safety
		middleware.Recover,

		// observability, also puts the request id on the context logger
		middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: o.Slow}),

		middleware.CORS(middleware.CORSOptions{
			AllowedOrigins: o.Origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		}),
	}
}

// APIStack is for short JSON request/response routes
func APIStack(timeout time.Duration) []func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return []func(http.Handler) http.Handler{
		middleware.NoCache(),
		middleware.StripSlashes(),
		middleware.AllowContentType("application/json"),
		middleware.Compress(flate.BestSpeed),
		middleware.Timeout(timeout),
	}
}
