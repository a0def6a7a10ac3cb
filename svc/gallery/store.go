package gallery

import (
	"context"

	"github.com/google/uuid"
)

// Store persists galleries. CreateIncorporation must be guarded by a unique
// key on (source_gallery_id, destination_account_id) and return
// ErrAlreadyIncorporated when it fires.
type Store interface {
	CreateGallery(ctx context.Context, g Gallery) error
	GetGallery(ctx context.Context, id uuid.UUID) (*Gallery, error)
	CountGalleries(ctx context.Context, accountID uuid.UUID) (int, error)
	// FirstGallery returns the oldest gallery of accountID delivered by
	// photographerID, the one recurring commission is attributed to.
	FirstGallery(ctx context.Context, accountID, photographerID uuid.UUID) (*Gallery, error)
	ListPhotos(ctx context.Context, galleryID uuid.UUID) ([]Photo, error)
	CreatePhotos(ctx context.Context, photos []Photo) error
	GetIncorporation(ctx context.Context, sourceGalleryID, destinationAccountID uuid.UUID) (*Incorporation, error)
	CreateIncorporation(ctx context.Context, inc Incorporation) error
}
