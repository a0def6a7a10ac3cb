package commission

import (
	"context"
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

// NewPGStore returns a Store backed by the commissions table.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const recordColumns = `id, account_id, photographer_id, gallery_id, source_payment_id, source_event_id,
	total_paid_cents, photovault_commission_cents, amount_cents, currency, rate_version, status,
	payment_date, scheduled_payout_date, COALESCE(stripe_transfer_id, ''), paid_out_at, created_at`

func (s *PGStore) Create(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	err := pg.Savepoint(ctx, s.pool, func(q pg.Querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO commissions (id, account_id, photographer_id, gallery_id, source_payment_id, source_event_id,
				total_paid_cents, photovault_commission_cents, amount_cents, currency, rate_version, status,
				payment_date, scheduled_payout_date, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			rec.ID, rec.AccountID, rec.PhotographerID, rec.GalleryID, rec.SourcePaymentID, rec.SourceEventID,
			rec.TotalPaidCents, rec.PlatformCents, rec.AmountCents, rec.Currency, rec.RateVersion, rec.Status,
			rec.PaymentDate, rec.ScheduledPayoutDate, rec.CreatedAt,
		)
		return err
	})
	switch {
	case err == nil:
		return nil
	case pg.IsUniqueViolation(err, "commissions_source_payment_key"):
		return ErrDuplicatePayment
	case pg.IsCheckViolationError(err):
		return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	default:
		return fmt.Errorf("insert commission: %w", err)
	}
}

func (s *PGStore) GetBySourcePayment(ctx context.Context, paymentID string) (*Record, error) {
	row := pg.Conn(ctx, s.pool).QueryRow(ctx,
		`SELECT `+recordColumns+` FROM commissions WHERE source_payment_id = $1`, paymentID)
	rec, err := scanRecord(row)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select commission: %w", err)
	}
	return rec, nil
}

func (s *PGStore) ListDue(ctx context.Context, now time.Time, limit int) ([]Record, error) {
	rows, err := pg.Conn(ctx, s.pool).Query(ctx, `
		SELECT `+recordColumns+` FROM commissions
		WHERE status = 'pending' AND scheduled_payout_date <= $1
		ORDER BY scheduled_payout_date
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("select due commissions: %w", err)
	}
	return collectRecords(rows)
}

func (s *PGStore) MarkPaid(ctx context.Context, id uuid.UUID, transferID string, paidAt time.Time) error {
	tag, err := pg.Conn(ctx, s.pool).Exec(ctx, `
		UPDATE commissions SET status = 'paid', stripe_transfer_id = NULLIF($2, ''), paid_out_at = $3
		WHERE id = $1 AND status = 'pending'`, id, transferID, paidAt)
	if err != nil {
		return fmt.Errorf("update commission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := pg.Conn(ctx, s.pool).QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM commissions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check commission: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrAlreadyPaid
	}
	return nil
}

func (s *PGStore) ListByPhotographer(ctx context.Context, photographerID uuid.UUID) ([]Record, error) {
	rows, err := pg.Conn(ctx, s.pool).Query(ctx, `
		SELECT `+recordColumns+` FROM commissions
		WHERE photographer_id = $1
		ORDER BY payment_date DESC`, photographerID)
	if err != nil {
		return nil, fmt.Errorf("select photographer commissions: %w", err)
	}
	return collectRecords(rows)
}

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.AccountID, &r.PhotographerID, &r.GalleryID, &r.SourcePaymentID, &r.SourceEventID,
		&r.TotalPaidCents, &r.PlatformCents, &r.AmountCents, &r.Currency, &r.RateVersion, &r.Status,
		&r.PaymentDate, &r.ScheduledPayoutDate, &r.TransferID, &r.PaidOutAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commission: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commissions: %w", err)
	}
	return out, nil
}
