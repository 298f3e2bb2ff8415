package middleware

import (
	"net/http"
	"time"

	pstrings "umbra/internal/platform/strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// Middleware is the plain net/http middleware shape, chi types stay in this package
type Middleware = func(http.Handler) http.Handler

func RequestID() Middleware    { return chimw.RequestID }
func RealIP() Middleware       { return chimw.RealIP }
func NoCache() Middleware      { return chimw.NoCache }
func StripSlashes() Middleware { return chimw.StripSlashes }

// Timeout cancels the request context after d and answers 504 if nothing was written
func Timeout(d time.Duration) Middleware { return chimw.Timeout(d) }

// Compress gzips/deflates responses at the given flate level
func Compress(level int) Middleware { return chimw.NewCompressor(level).Handler }

// AllowContentType answers 415 to bodies of any other type
func AllowContentType(types ...string) Middleware { return chimw.AllowContentType(types...) }

// CORSOptions picks the go-chi/cors knobs the status API needs
type CORSOptions struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsHeaders = []string{"Accept", "Content-Type", "X-Request-ID"}
)

func CORS(o CORSOptions) Middleware {
	return chicors.Handler(chicors.Options{
		AllowedOrigins: o.AllowedOrigins,
		AllowedMethods: pstrings.IfEmpty(o.AllowedMethods, corsMethods),
		AllowedHeaders: pstrings.IfEmpty(o.AllowedHeaders, corsHeaders),
		MaxAge:         o.MaxAge,
	})
}
