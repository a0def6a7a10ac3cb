// Package txn describes the unit-of-work boundary shared by stores and the
// services that mutate them.
//
// A Runner executes fn so that every store call made with the context passed
// to fn participates in the same transaction. Nested calls join the outer
// transaction. Stores that cannot provide transactions are paired with Nop,
// and services fall back to ordering writes so that a crash leaves the
// system retryable rather than half-applied.
package txn

import "context"

// Runner runs fn inside a single transaction.
// If fn returns an error the transaction is rolled back and the error is returned as is.
type Runner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, fn func(ctx context.Context) error) error

func (f RunnerFunc) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// Nop runs fn directly without any transactional guarantees.
type Nop struct{}

func (Nop) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// IsTransactional reports whether r provides real transactions.
func IsTransactional(r Runner) bool {
	if r == nil {
		return false
	}
	_, nop := r.(Nop)
	return !nop
}
