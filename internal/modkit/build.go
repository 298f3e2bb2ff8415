package modkit

import (
	"net/http"
	"slices"
)

// Built is what a module reads back from its options
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	Ports  any
}

// Option edits a Built while Build runs
type Option func(*Built)

func WithName(name string) Option     { return func(b *Built) { b.Name = name } }
func WithPrefix(prefix string) Option { return func(b *Built) { b.Prefix = prefix } }

// WithMiddlewares appends per module middleware, repeated calls accumulate
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Built) { b.Mw = append(b.Mw, mw...) }
}

// WithPorts hands a module the ports of a module it depends on.
// The importing module asserts the concrete type.
func WithPorts[T any](p T) Option { return func(b *Built) { b.Ports = p } }

// Build applies opts in order, so later ones win
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		o(&b)
	}
	b.Mw = slices.Clone(b.Mw)
	return b
}
