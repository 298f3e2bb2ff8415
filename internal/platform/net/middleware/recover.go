package middleware

import (
	"net/http"
	"runtime/debug"

	perr "umbra/internal/platform/errors"
	"umbra/internal/platform/logger"
	pnet "umbra/internal/platform/net"
	phttp "umbra/internal/platform/net/http"
)

// Recover turns a handler panic into the standard 500 envelope and logs the stack
// http.ErrAbortHandler is re-panicked so net/http can drop the connection quietly
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}

			log := logger.C(r.Context())
			log.Error().
				Str("request_id", pnet.RequestID(r.Context())).
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")

			phttp.Handle(func(*http.Request) phttp.Response {
				return phttp.Error(perr.PanicErrf("internal error"))
			})(w, r)
		}()
		next.ServeHTTP(w, r)
	})
}
