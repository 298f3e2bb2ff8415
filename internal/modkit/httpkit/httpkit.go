// Package httpkit is what service packages import for routing and handlers,
// it keeps internal/platform/net/http out of their import lists
package httpkit

import (
	"net/http"

	phttp "umbra/internal/platform/net/http"
	"umbra/internal/platform/net/http/bind"
)

type (
	Envelope = phttp.Envelope // named in the swagger annotations
	Handler  = phttp.Handler
	Router   = phttp.Router
)

// Call wraps fn in the envelope. fn may return a phttp.Response to pick the
// status itself, any other value is sent as 200 data.
func Call(fn func(*http.Request) (any, error)) Handler {
	return phttp.Handle(func(r *http.Request) phttp.Response {
		out, err := fn(r)
		if err != nil {
			return phttp.Error(err)
		}
		if resp, ok := out.(phttp.Response); ok {
			return resp
		}
		return phttp.OK(out)
	})
}

// JSON decodes and validates a T from the body before calling fn
func JSON[T any](fn func(*http.Request, T) (any, error)) Handler {
	return Call(func(r *http.Request) (any, error) {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			return nil, err
		}
		return fn(r, in)
	})
}

func Get(r Router, path string, h func(*http.Request) (any, error)) { r.Get(path, Call(h)) }

func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Post(path, JSON(h))
}
