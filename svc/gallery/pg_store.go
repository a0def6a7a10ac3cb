package gallery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/photovault/photovault/pkg/pg"
)

// PGStore is the PostgreSQL Store. It joins a transaction carried in ctx.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Store over the galleries, photos and
// gallery_incorporations tables.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) CreateGallery(ctx context.Context, g Gallery) error {
	_, err := pg.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO galleries (id, account_id, photographer_id, title, family_shared, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.AccountID, g.PhotographerID, g.Title, g.FamilyShared, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert gallery: %w", err)
	}
	return nil
}

func (s *PGStore) GetGallery(ctx context.Context, id uuid.UUID) (*Gallery, error) {
	return s.getOne(ctx, `SELECT `+galleryColumns+` FROM galleries WHERE id = $1`, id)
}

func (s *PGStore) FirstGallery(ctx context.Context, accountID, photographerID uuid.UUID) (*Gallery, error) {
	return s.getOne(ctx, `SELECT `+galleryColumns+` FROM galleries
		WHERE account_id = $1 AND photographer_id = $2
		ORDER BY created_at, id LIMIT 1`, accountID, photographerID)
}

const galleryColumns = `id, account_id, photographer_id, title, family_shared, created_at`

func (s *PGStore) getOne(ctx context.Context, query string, args ...any) (*Gallery, error) {
	var g Gallery
	err := pg.Conn(ctx, s.pool).QueryRow(ctx, query, args...).
		Scan(&g.ID, &g.AccountID, &g.PhotographerID, &g.Title, &g.FamilyShared, &g.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select gallery: %w", err)
	}
	return &g, nil
}

func (s *PGStore) CountGalleries(ctx context.Context, accountID uuid.UUID) (int, error) {
	var n int
	if err := pg.Conn(ctx, s.pool).QueryRow(ctx,
		`SELECT count(*) FROM galleries WHERE account_id = $1`, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count galleries: %w", err)
	}
	return n, nil
}

func (s *PGStore) ListPhotos(ctx context.Context, galleryID uuid.UUID) ([]Photo, error) {
	rows, err := pg.Conn(ctx, s.pool).Query(ctx, `
		SELECT id, gallery_id, storage_key, filename, size_bytes, position, created_at
		FROM photos WHERE gallery_id = $1 ORDER BY position`, galleryID)
	if err != nil {
		return nil, fmt.Errorf("select photos: %w", err)
	}
	photos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Photo, error) {
		var p Photo
		err := row.Scan(&p.ID, &p.GalleryID, &p.StorageKey, &p.Filename, &p.SizeBytes, &p.Position, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan photos: %w", err)
	}
	return photos, nil
}

// CreatePhotos bulk copies metadata rows with COPY.
func (s *PGStore) CreatePhotos(ctx context.Context, photos []Photo) error {
	if len(photos) == 0 {
		return nil
	}
	rows := make([][]any, len(photos))
	for i, p := range photos {
		rows[i] = []any{p.ID, p.GalleryID, p.StorageKey, p.Filename, p.SizeBytes, p.Position, p.CreatedAt}
	}
	copier, ok := pg.Conn(ctx, s.pool).(interface {
		CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	})
	if !ok {
		return fmt.Errorf("insert photos: connection does not support COPY")
	}
	_, err := copier.CopyFrom(ctx, pgx.Identifier{"photos"},
		[]string{"id", "gallery_id", "storage_key", "filename", "size_bytes", "position", "created_at"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("insert photos: %w", err)
	}
	return nil
}

func (s *PGStore) GetIncorporation(ctx context.Context, sourceGalleryID, destinationAccountID uuid.UUID) (*Incorporation, error) {
	var inc Incorporation
	err := pg.Conn(ctx, s.pool).QueryRow(ctx, `
		SELECT id, source_gallery_id, destination_gallery_id, destination_account_id, incorporated_by, created_at
		FROM gallery_incorporations
		WHERE source_gallery_id = $1 AND destination_account_id = $2`, sourceGalleryID, destinationAccountID,
	).Scan(&inc.ID, &inc.SourceGalleryID, &inc.DestinationGalleryID, &inc.DestinationAccountID, &inc.IncorporatedBy, &inc.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select incorporation: %w", err)
	}
	return &inc, nil
}

func (s *PGStore) CreateIncorporation(ctx context.Context, inc Incorporation) error {
	_, err := pg.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO gallery_incorporations
			(id, source_gallery_id, destination_gallery_id, destination_account_id, incorporated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		inc.ID, inc.SourceGalleryID, inc.DestinationGalleryID, inc.DestinationAccountID, inc.IncorporatedBy, inc.CreatedAt)
	switch {
	case err == nil:
		return nil
	case pg.IsUniqueViolation(err, "gallery_incorporations_source_destination_key"):
		return ErrAlreadyIncorporated
	default:
		return fmt.Errorf("insert incorporation: %w", err)
	}
}
