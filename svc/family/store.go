package family

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists members. MarkPayer must be guarded by a uniqueness
// constraint on (account_id) among payer rows and return ErrPayerExists
// when it fires.
type Store interface {
	Create(ctx context.Context, m Member) error
	Get(ctx context.Context, accountID, userID uuid.UUID) (*Member, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)
	// CurrentPayer returns ErrNotFound when the primary holder pays.
	CurrentPayer(ctx context.Context, accountID uuid.UUID) (*Member, error)
	SetStatus(ctx context.Context, id uuid.UUID, status MemberStatus, at time.Time) error
	SetCustomerID(ctx context.Context, id uuid.UUID, customerID string, at time.Time) error
	MarkPayer(ctx context.Context, id uuid.UUID, at time.Time) error
	// ListAccepted returns the accepted memberships of a user.
	ListAccepted(ctx context.Context, userID uuid.UUID) ([]Member, error)
}

// GalleryCounter reports how many galleries an account holds.
type GalleryCounter interface {
	CountGalleries(ctx context.Context, accountID uuid.UUID) (int, error)
}

// Notifier is told when billing moved to a new payer.
type Notifier interface {
	TakeoverCompleted(ctx context.Context, n TakeoverNotice) error
}

type TakeoverNotice struct {
	AccountID      uuid.UUID
	PrimaryUserID  uuid.UUID
	NewPayerUserID uuid.UUID
	TakeoverType   TakeoverType
}
