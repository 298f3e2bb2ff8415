package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCodeMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeInvalidArgument, http.StatusUnprocessableEntity},
		{ErrorCodeDuplicateKey, http.StatusConflict},
		{ErrorCodeValidation, http.StatusBadRequest},
		{ErrorCodeJSON, http.StatusBadRequest},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable},
		{ErrorCodeDevice, http.StatusServiceUnavailable},
		{ErrorCodeTimeout, http.StatusGatewayTimeout},
		{ErrorCodeCanceled, 499},
		{ErrorCodeDB, http.StatusInternalServerError},
		{ErrorCodePanic, http.StatusInternalServerError},
		{ErrorCodeUnknown, http.StatusInternalServerError},
		{9999, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatusCode(c.code); got != c.want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestCodeString(t *testing.T) {
	if ErrorCodeDevice.String() != "device" {
		t.Fatalf("got %q", ErrorCodeDevice.String())
	}
	if ErrorCode(999).String() != "code(999)" {
		t.Fatalf("got %q", ErrorCode(999).String())
	}
}

func TestErrorTypeAndMethods(t *testing.T) {
	var e *Error
	if e.Error() != "<nil>" {
		t.Fatalf("nil *Error render = %q, want <nil>", e.Error())
	}

	e1 := New(ErrorCodeValidation, "bad stuff")
	if CodeOf(e1) != ErrorCodeValidation {
		t.Fatalf("CodeOf(New) = %v", CodeOf(e1))
	}
	e2 := Newf(ErrorCodeJSON, "bad json %d", 12)
	if got := e2.Error(); got != "bad json 12" {
		t.Fatalf("Newf().Error = %q", got)
	}

	src := stderrs.New("root")
	e3 := Wrap(src, ErrorCodeDevice, "capture failed")
	if u := stderrs.Unwrap(e3); u == nil || u.Error() != "root" {
		t.Fatalf("Wrap did not keep orig")
	}
	e4 := Wrapf(src, ErrorCodeDevice, "iso %d", 400)
	if want := "iso 400: root"; e4.Error() != want {
		t.Fatalf("Wrapf().Error = %q, want %q", e4.Error(), want)
	}

	if got, ok := As(e4); !ok || got.Code() != ErrorCodeDevice {
		t.Fatalf("As() failed for our error")
	}
	if _, ok := As(src); ok {
		t.Fatalf("As() true for foreign error")
	}

	e5 := WithField(Validationf("c2", "must be after c1"), "contacts.c2")
	e6 := WithOp(e5, "load plan")
	got, _ := As(e6)
	if got.Field() != "contacts.c2" || got.Op() != "load plan" {
		t.Fatalf("field/op not applied: %q %q", got.Field(), got.Op())
	}
	if e6.Error() != "load plan: must be after c1" {
		t.Fatalf("op prefix missing: %q", e6.Error())
	}
	orig, _ := As(e5)
	if orig.Op() != "" {
		t.Fatalf("WithOp must copy, original mutated")
	}
	if WithField(src, "x") != src || WithOp(src, "x") != src {
		t.Fatalf("foreign errors must pass through unchanged")
	}
}

func TestCodeOfContextErrors(t *testing.T) {
	if CodeOf(context.Canceled) != ErrorCodeCanceled {
		t.Fatalf("canceled not mapped")
	}
	if CodeOf(fmt.Errorf("wait: %w", context.DeadlineExceeded)) != ErrorCodeTimeout {
		t.Fatalf("deadline not mapped")
	}
	if CodeOf(stderrs.New("x")) != ErrorCodeUnknown {
		t.Fatalf("foreign error should be unknown")
	}
}

func TestWireAndHTTP(t *testing.T) {
	if (WireFrom(nil) != Wire{}) {
		t.Fatalf("nil wire should be zero")
	}
	w := WireFrom(Validationf("overhead", "must be positive"))
	if w.Code != ErrorCodeValidation || w.Field != "overhead" || w.Message != "must be positive" {
		t.Fatalf("unexpected wire %+v", w)
	}
	w = WireFrom(stderrs.New("plain"))
	if w.Code != ErrorCodeUnknown || w.Message != "plain" {
		t.Fatalf("unexpected wire %+v", w)
	}
	if status := HTTPStatus(NotFoundf("run %s", "abc")); status != http.StatusNotFound {
		t.Fatalf("status = %d", status)
	}
}

func TestRoot(t *testing.T) {
	src := stderrs.New("socket closed")
	err := Wrap(fmt.Errorf("mid: %w", src), ErrorCodeUnavailable, "indi")
	if Root(err) != src {
		t.Fatalf("Root did not reach the cause")
	}
	if Root(nil) != nil {
		t.Fatalf("Root(nil) should be nil")
	}
}
