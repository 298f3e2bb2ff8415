// Package bind decodes request bodies and validates them, plan files included, with
// go-playground/validator and english messages keyed by json field names
package bind

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"umbra/internal/platform/config"
	perr "umbra/internal/platform/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
)

type validation struct {
	v     *validator.Validate
	trans ut.Translator
}

var get = sync.OnceValue(func() *validation {
	loc := en.New()
	trans, _ := ut.New(loc, loc).GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	_ = entrans.RegisterDefaultTranslations(v, trans)

	_ = v.RegisterValidation("seconds", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		f, err := config.ParseFloat(s)
		return err == nil && f > 0
	})

	for tag, text := range map[string]string{
		"min":     "{0} must be at least {1}",
		"max":     "{0} must be at most {1}",
		"seconds": "{0} must be a positive number of seconds like 0.5 or 1/4000",
	} {
		_ = v.RegisterTranslation(tag, trans,
			func(t ut.Translator) error { return t.Add(tag, text, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T(tag, fe.Field(), fe.Param())
				return msg
			})
	}
	return &validation{v: v, trans: trans}
})

// jsonName reports fields by their json key, falling back to the Go name
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// Options tune ParseJSON
type Options struct {
	// MaxBytes caps the body, default 1 MiB
	MaxBytes int64
	// AllowUnknown accepts fields T does not declare
	AllowUnknown bool
	// AllowEmpty returns the zero T for an empty body on any method
	AllowEmpty bool
}

// ParseJSON decodes one JSON document into T and validates it
// an empty body is fine on GET and HEAD, an error elsewhere unless AllowEmpty
func ParseJSON[T any](r *http.Request, opts ...Options) (T, error) {
	var (
		o    Options
		zero T
	)
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = 1 << 20
	}
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, o.MaxBytes))
	if !o.AllowUnknown {
		dec.DisallowUnknownFields()
	}

	var dst T
	err := dec.Decode(&dst)
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		if o.AllowEmpty || r.Method == http.MethodGet || r.Method == http.MethodHead {
			return zero, nil
		}
		return zero, perr.JSONErrf("empty body")
	case errors.As(err, &tooBig):
		return zero, perr.JSONErrf("body exceeds %d bytes", tooBig.Limit)
	case err != nil:
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	case dec.More():
		return zero, perr.JSONErrf("unexpected trailing data")
	}

	if err := Struct(dst); err != nil {
		return zero, err
	}
	return dst, nil
}

// Struct validates v; the first failing field becomes a perr validation error named by
// its json key, e.g. "exposures[2]"
func Struct(v any) error {
	err := get().v.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return perr.Wrap(err, perr.ErrorCodeValidation, "validation")
	}
	fe := verrs[0]
	return perr.Validationf(fe.Field(), "%s", fe.Translate(get().trans))
}
