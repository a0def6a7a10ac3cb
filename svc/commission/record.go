package commission

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Record is the photographer's earned share of one client payment.
// The split and the payout date are fixed at creation.
type Record struct {
	ID                  uuid.UUID  `json:"id"`
	AccountID           uuid.UUID  `json:"account_id"`
	PhotographerID      uuid.UUID  `json:"photographer_id"`
	GalleryID           *uuid.UUID `json:"gallery_id,omitempty"`
	SourcePaymentID     string     `json:"source_payment_id"`
	SourceEventID       string     `json:"source_event_id"`
	TotalPaidCents      int64      `json:"total_paid_cents"`
	PlatformCents       int64      `json:"photovault_commission_cents"`
	AmountCents         int64      `json:"amount_cents"`
	Currency            string     `json:"currency"`
	RateVersion         string     `json:"rate_version"`
	Status              Status     `json:"status"`
	PaymentDate         time.Time  `json:"payment_date"`
	ScheduledPayoutDate time.Time  `json:"scheduled_payout_date"`
	TransferID          string     `json:"stripe_transfer_id,omitempty"`
	PaidOutAt           *time.Time `json:"paid_out_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

func (r Record) Split() Split {
	return Split{TotalCents: r.TotalPaidCents, PhotographerCents: r.AmountCents, PlatformCents: r.PlatformCents}
}

// Validate rejects records that must never be persisted.
func (r Record) Validate() error {
	if !r.Split().Valid() {
		return fmt.Errorf("%w: total=%d photographer=%d platform=%d",
			ErrInvariantViolation, r.TotalPaidCents, r.AmountCents, r.PlatformCents)
	}
	if r.PhotographerID == uuid.Nil || r.SourcePaymentID == "" {
		return fmt.Errorf("%w: photographer and source payment are required", ErrInvalidPayment)
	}
	return nil
}

// Payment describes a completed client payment.
type Payment struct {
	AccountID      uuid.UUID
	PhotographerID uuid.UUID
	GalleryID      *uuid.UUID
	PaymentID      string
	EventID        string
	AmountCents    int64
	Currency       string
	PaidAt         time.Time
}

// Totals summarises a photographer's commissions in minor units.
type Totals struct {
	PendingCents int64 `json:"pending_cents"`
	PaidCents    int64 `json:"paid_cents"`
	Count        int   `json:"count"`
}

// Report is the reporting feed for one photographer.
type Report struct {
	PhotographerID uuid.UUID `json:"photographer_id"`
	Records        []Record  `json:"records"`
	Totals         Totals    `json:"totals"`
}
