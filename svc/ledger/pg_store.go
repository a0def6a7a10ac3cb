package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/photovault/photovault/pkg/pg"
)

// PGStore relies on the primary key of processed_events for uniqueness.
// ON CONFLICT keeps a surrounding transaction usable after a duplicate;
// a concurrent insert of the same id blocks until the first transaction
// finishes and then reports inserted=false.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Store over the processed_events table.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Insert(ctx context.Context, ev ProcessedEvent) (bool, error) {
	tag, err := pg.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO processed_events (event_id, event_type, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING`, ev.EventID, ev.EventType, ev.ProcessedAt)
	if err != nil {
		return false, fmt.Errorf("insert processed event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) Exists(ctx context.Context, eventID string) (bool, error) {
	var ok bool
	err := pg.Conn(ctx, s.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_id = $1)`, eventID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("select processed event: %w", err)
	}
	return ok, nil
}
