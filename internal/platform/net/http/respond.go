package http

import (
	"encoding/json"
	stdhttp "net/http"

	perr "umbra/internal/platform/errors"
	pnet "umbra/internal/platform/net"
)

// Envelope wraps every body the status API writes
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	Field      string         `json:"field,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// JSON encodes v with the given status, encode errors are dropped since the header is already out
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Response is what return-style handlers hand back to Handle.
// A Body that is an error replaces Status with the mapped one.
type Response struct {
	Status int
	Body   any
	Header stdhttp.Header
}

func OK(data any) Response     { return Response{Status: stdhttp.StatusOK, Body: data} }
func NoContent() Response      { return Response{Status: stdhttp.StatusNoContent} }
func Error(err error) Response { return Response{Body: err} }

// Handle turns a Response-returning func into a net/http handler
func Handle(h func(*stdhttp.Request) Response) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		resp := h(r)
		for k, vs := range resp.Header {
			w.Header()[k] = append(w.Header()[k], vs...)
		}
		if resp.Status == stdhttp.StatusNoContent {
			w.WriteHeader(stdhttp.StatusNoContent)
			return
		}
		env := envelope(resp)
		env.RequestID = pnet.RequestID(r.Context())
		JSON(w, env.StatusCode, env)
	}
}

func envelope(resp Response) Envelope {
	var env Envelope
	if err, ok := resp.Body.(error); ok && err != nil {
		w := perr.WireFrom(err)
		env.StatusCode = perr.HTTPStatus(err)
		env.Code, env.Error, env.Field = w.Code, w.Message, w.Field
	} else {
		env.StatusCode = resp.Status
		env.Data = resp.Body
	}
	if env.StatusCode == 0 {
		env.StatusCode = stdhttp.StatusOK
	}
	env.Status = stdhttp.StatusText(env.StatusCode)
	return env
}
