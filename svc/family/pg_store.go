package family

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

// PGStore is the PostgreSQL Store. The partial unique index
// family_members_one_payer_idx backs MarkPayer.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Store over the family_members table.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const memberColumns = `id, account_id, secondary_user_id, status, is_billing_payer,
	provider_customer_id, became_payer_at, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, m Member) error {
	err := pg.Savepoint(ctx, s.pool, func(q pg.Querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO family_members (`+memberColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			m.ID, m.AccountID, m.SecondaryUserID, m.Status, m.IsBillingPayer,
			m.ProviderCustomerID, m.BecamePayerAt, m.CreatedAt, m.UpdatedAt,
		)
		return err
	})
	switch {
	case err == nil:
		return nil
	case pg.IsUniqueViolation(err, "family_members_account_user_key"):
		return ErrAlreadyMember
	case pg.IsUniqueViolation(err, "family_members_one_payer_idx"):
		return ErrPayerExists
	default:
		return fmt.Errorf("insert family member: %w", err)
	}
}

func (s *PGStore) Get(ctx context.Context, accountID, userID uuid.UUID) (*Member, error) {
	return s.getOne(ctx, `SELECT `+memberColumns+` FROM family_members
		WHERE account_id = $1 AND secondary_user_id = $2`, accountID, userID)
}

func (s *PGStore) GetByID(ctx context.Context, id uuid.UUID) (*Member, error) {
	return s.getOne(ctx, `SELECT `+memberColumns+` FROM family_members WHERE id = $1`, id)
}

func (s *PGStore) CurrentPayer(ctx context.Context, accountID uuid.UUID) (*Member, error) {
	return s.getOne(ctx, `SELECT `+memberColumns+` FROM family_members
		WHERE account_id = $1 AND is_billing_payer`, accountID)
}

func (s *PGStore) SetStatus(ctx context.Context, id uuid.UUID, status MemberStatus, at time.Time) error {
	return s.exec(ctx, `UPDATE family_members SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
}

func (s *PGStore) SetCustomerID(ctx context.Context, id uuid.UUID, customerID string, at time.Time) error {
	return s.exec(ctx, `UPDATE family_members SET provider_customer_id = $2, updated_at = $3 WHERE id = $1`, id, customerID, at)
}

func (s *PGStore) MarkPayer(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := pg.Savepoint(ctx, s.pool, func(q pg.Querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE family_members
			SET is_billing_payer = TRUE, became_payer_at = $2, updated_at = $2
			WHERE id = $1`, id, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case pg.IsUniqueViolation(err, "family_members_one_payer_idx"):
		return ErrPayerExists
	case errors.Is(err, ErrNotFound):
		return err
	default:
		return fmt.Errorf("mark billing payer: %w", err)
	}
}

func (s *PGStore) ListAccepted(ctx context.Context, userID uuid.UUID) ([]Member, error) {
	rows, err := pg.Conn(ctx, s.pool).Query(ctx, `SELECT `+memberColumns+` FROM family_members
		WHERE secondary_user_id = $1 AND status = 'accepted'
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("select memberships: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return out, nil
}

func (s *PGStore) getOne(ctx context.Context, query string, args ...any) (*Member, error) {
	m, err := scanMember(pg.Conn(ctx, s.pool).QueryRow(ctx, query, args...))
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select family member: %w", err)
	}
	return m, nil
}

func (s *PGStore) exec(ctx context.Context, query string, args ...any) error {
	tag, err := pg.Conn(ctx, s.pool).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update family member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.AccountID, &m.SecondaryUserID, &m.Status, &m.IsBillingPayer,
		&m.ProviderCustomerID, &m.BecamePayerAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
