package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/photovault/photovault/pkg/pg"
)

// PGStore is the PostgreSQL Store. It joins a transaction carried in ctx.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Store over the accounts table. Updates are
// conditional on the version column.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const accountColumns = `id, user_id, photographer_id, status, last_payment_failure_at, grace_cause,
	last_payment_at, cancel_at_period_end, provider_customer_id, provider_subscription_id,
	version, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, acc Account) error {
	_, err := pg.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		acc.ID, acc.UserID, acc.PhotographerID, acc.Status, acc.LastPaymentFailureAt, acc.GraceCause,
		acc.LastPaymentAt, acc.CancelAtPeriodEnd, acc.ProviderCustomerID, acc.ProviderSubscriptionID,
		acc.Version, acc.CreatedAt, acc.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case pg.IsDuplicateKeyError(err):
		return ErrAlreadyExists
	default:
		return fmt.Errorf("insert account: %w", err)
	}
}

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (s *PGStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*Account, error) {
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID)
}

func (s *PGStore) GetByProviderRef(ctx context.Context, subscriptionID, customerID string) (*Account, error) {
	if subscriptionID != "" {
		acc, err := s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE provider_subscription_id = $1`, subscriptionID)
		if !errors.Is(err, ErrNotFound) || customerID == "" {
			return acc, err
		}
	}
	if customerID == "" {
		return nil, ErrNotFound
	}
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE provider_customer_id = $1 LIMIT 1`, customerID)
}

func (s *PGStore) Update(ctx context.Context, acc Account) error {
	tag, err := pg.Conn(ctx, s.pool).Exec(ctx, `
		UPDATE accounts SET
			status = $3, last_payment_failure_at = $4, grace_cause = $5, last_payment_at = $6,
			cancel_at_period_end = $7, provider_customer_id = $8, provider_subscription_id = $9,
			photographer_id = $10, updated_at = $11, version = version + 1
		WHERE id = $1 AND version = $2`,
		acc.ID, acc.Version, acc.Status, acc.LastPaymentFailureAt, acc.GraceCause, acc.LastPaymentAt,
		acc.CancelAtPeriodEnd, acc.ProviderCustomerID, acc.ProviderSubscriptionID,
		acc.PhotographerID, acc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := pg.Conn(ctx, s.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, acc.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (s *PGStore) ListGraceStartedBefore(ctx context.Context, cutoff time.Time, limit int) ([]Account, error) {
	rows, err := pg.Conn(ctx, s.pool).Query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE status = 'grace_period' AND last_payment_failure_at <= $1
		ORDER BY last_payment_failure_at
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("select grace accounts: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

func (s *PGStore) getOne(ctx context.Context, query string, arg any) (*Account, error) {
	acc, err := scanAccount(pg.Conn(ctx, s.pool).QueryRow(ctx, query, arg))
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select account: %w", err)
	}
	return acc, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.UserID, &a.PhotographerID, &a.Status, &a.LastPaymentFailureAt, &a.GraceCause,
		&a.LastPaymentAt, &a.CancelAtPeriodEnd, &a.ProviderCustomerID, &a.ProviderSubscriptionID,
		&a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
