package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// Transactor implements txn.Runner on top of a pgx pool.
// The transaction travels in the context so that every store built on Conn
// joins it without explicit plumbing.
type Transactor struct {
	pool *pgxpool.Pool
}

// NewTransactor returns a txn.Runner backed by pool.
func NewTransactor(pool *pgxpool.Pool) *Transactor {
	if pool == nil {
		panic("pg: pool is required")
	}
	return &Transactor{pool: pool}
}

// WithinTx runs fn in a transaction, joining an outer one when present.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	err := pgx.BeginFunc(ctx, t.pool, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil && IsTxClosedError(err) {
		return errors.Join(ErrTxClosed, err)
	}
	return err
}

// Conn returns the transaction carried by ctx, or the pool itself.
func Conn(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// ErrTxClosed is returned when a transaction was used after commit or rollback.
var ErrTxClosed = errors.New("transaction already closed")

// IsTxClosedError detects attempts to use closed transactions.
func IsTxClosedError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrTxClosed)
}

// Savepoint runs fn inside a savepoint when ctx carries a transaction, so
// that a constraint violation raised by fn leaves the outer transaction
// usable. Without a transaction fn runs on the pool.
func Savepoint(ctx context.Context, pool *pgxpool.Pool, fn func(q Querier) error) error {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok {
		return fn(pool)
	}
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(sp); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}
