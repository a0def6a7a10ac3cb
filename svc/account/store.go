package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists accounts.
type Store interface {
	Create(ctx context.Context, acc Account) error
	Get(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Account, error)
	// GetByProviderRef matches the subscription id first, then the customer id.
	GetByProviderRef(ctx context.Context, subscriptionID, customerID string) (*Account, error)
	// Update writes acc if the stored version still equals acc.Version and
	// bumps the version; otherwise it returns ErrVersionConflict.
	Update(ctx context.Context, acc Account) error
	// ListGraceStartedBefore lists grace accounts whose failure stamp is at or before cutoff.
	ListGraceStartedBefore(ctx context.Context, cutoff time.Time, limit int) ([]Account, error)
}

// StatusCache is a read-through cache for EffectiveStatus.
type StatusCache interface {
	Get(ctx context.Context, key string) (Status, error)
	Set(ctx context.Context, key string, status Status) error
	Delete(ctx context.Context, key string) error
}

// Notifier is told about transitions the account holder should hear about.
type Notifier interface {
	GraceStarted(ctx context.Context, acc Account) error
	Suspended(ctx context.Context, acc Account) error
	Reactivated(ctx context.Context, acc Account) error
}
