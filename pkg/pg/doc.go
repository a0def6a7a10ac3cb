// Package pg provides the PostgreSQL plumbing shared by every store in the
// service: a retrying pgxpool connector, goose migrations read from an
// embedded filesystem, a context-carried transaction runner and helpers that
// classify pgx errors.
//
// Stores obtain their connection with Conn(ctx, pool). Inside
// Transactor.WithinTx the context carries a pgx.Tx and Conn returns it, so
// the event ledger, account tracker and commission store all commit or roll
// back together.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations.FS, cfg, log); err != nil {
//		return err
//	}
//
//	tx := pg.NewTransactor(pool)
//	err = tx.WithinTx(ctx, func(ctx context.Context) error {
//		_, err := pg.Conn(ctx, pool).Exec(ctx, "UPDATE accounts SET ...")
//		return err
//	})
//
// Unique constraints are the concurrency guards of the system, so
// IsUniqueViolation lets callers tell which constraint fired.
package pg
