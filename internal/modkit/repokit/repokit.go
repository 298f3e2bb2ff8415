// Package repokit is the glue between the sql store and the per service repos
package repokit

import (
	"context"
	"fmt"

	"umbra/internal/platform/store"
)

type (
	// Queryer is what a repo is bound to, the pool or an open tx
	Queryer    = store.RowQuerier
	TxRunner   = store.TxRunner
	Rows       = store.Rows
	Row        = store.Row
	CommandTag = store.CommandTag
)

// WithTx runs fn in one transaction on tx
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	return tx.Tx(ctx, fn)
}

// Binder builds a domain repo on top of a Queryer
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a plain constructor to Binder
type BindFunc[T any] func(Queryer) T

func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// RequireQueryer panics on a nil q, a wiring bug
func RequireQueryer(q Queryer) Queryer {
	if q == nil {
		panic("repokit: nil Queryer")
	}
	return q
}

// MustBind binds b to a non nil q
func MustBind[T any](b Binder[T], q Queryer) T { return b.Bind(RequireQueryer(q)) }

// BeginHook runs first inside every transaction, e.g. to create the schema
type BeginHook func(ctx context.Context, q Queryer) error

type hooked struct {
	TxRunner
	hooks []BeginHook
}

// WithBeginHooks returns inner with hooks run at the start of each Tx
// plain Exec/Query calls outside a tx do not trigger them
func WithBeginHooks(inner TxRunner, hooks ...BeginHook) TxRunner {
	return hooked{TxRunner: inner, hooks: hooks}
}

func (h hooked) Tx(ctx context.Context, fn func(q Queryer) error) error {
	return h.TxRunner.Tx(ctx, func(q Queryer) error {
		for _, hook := range h.hooks {
			if err := hook(ctx, q); err != nil {
				return err
			}
		}
		return fn(q)
	})
}

// MustGuard panics when a configured backend does not answer, main calls it at boot
func MustGuard(ctx context.Context, st interface{ Guard(context.Context) error }) {
	if err := st.Guard(ctx); err != nil {
		panic(fmt.Errorf("dependency guard failed: %w", err))
	}
}
