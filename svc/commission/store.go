package commission

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists commission records. Implementations enforce uniqueness of
// SourcePaymentID and return ErrDuplicatePayment on conflict.
type Store interface {
	Create(ctx context.Context, rec Record) error
	GetBySourcePayment(ctx context.Context, paymentID string) (*Record, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]Record, error)
	// MarkPaid flips a pending record to paid. A record that is no longer
	// pending yields ErrAlreadyPaid.
	MarkPaid(ctx context.Context, id uuid.UUID, transferID string, paidAt time.Time) error
	ListByPhotographer(ctx context.Context, photographerID uuid.UUID) ([]Record, error)
}
