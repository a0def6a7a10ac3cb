package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/photovault/photovault/pkg/pg"
)

// PG reads users and photographers from PostgreSQL.
type PG struct {
	pool *pgxpool.Pool
}

// NewPG reads the users and photographers tables.
func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

func (d *PG) User(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := pg.Conn(ctx, d.pool).QueryRow(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

func (d *PG) Photographer(ctx context.Context, id uuid.UUID) (*Photographer, error) {
	var p Photographer
	err := pg.Conn(ctx, d.pool).QueryRow(ctx,
		`SELECT id, name, email, stripe_connect_account_id, created_at FROM photographers WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Email, &p.StripeConnectAccountID, &p.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, ErrPhotographerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select photographer: %w", err)
	}
	return &p, nil
}

func (d *PG) PayoutDestination(ctx context.Context, photographerID uuid.UUID) (string, error) {
	p, err := d.Photographer(ctx, photographerID)
	if err != nil {
		return "", err
	}
	return p.StripeConnectAccountID, nil
}
