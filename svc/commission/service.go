// Package commission computes the photographer/platform split of client
// payments, schedules the photographer payout and executes it when due.
package commission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/photovault/photovault/pkg/logger"
)

// Service records commissions and serves the reporting feed.
type Service interface {
	// Record stores the commission for a payment. Repeated calls for the same
	// payment return the existing record and created=false.
	Record(ctx context.Context, p Payment) (rec *Record, created bool, err error)
	Report(ctx context.Context, photographerID uuid.UUID) (*Report, error)
}

// ServiceOption configures the commission service.
type ServiceOption func(*service)

// WithLogger sets the service logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now, which stamps records and drives payout dates.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

type service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewService returns the commission Service. It panics on a nil store.
func NewService(store Store, opts ...ServiceOption) Service {
	if store == nil {
		panic("commission: Store is required")
	}
	s := &service{store: store, log: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Record(ctx context.Context, p Payment) (*Record, bool, error) {
	if p.PaymentID == "" || p.PhotographerID == uuid.Nil {
		return nil, false, fmt.Errorf("%w: payment id and photographer are required", ErrInvalidPayment)
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = s.now()
	}

	if existing, err := s.store.GetBySourcePayment(ctx, p.PaymentID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("lookup commission: %w", err)
	}

	split := NewSplit(p.AmountCents)
	rec := Record{
		ID:                  uuid.New(),
		AccountID:           p.AccountID,
		PhotographerID:      p.PhotographerID,
		GalleryID:           p.GalleryID,
		SourcePaymentID:     p.PaymentID,
		SourceEventID:       p.EventID,
		TotalPaidCents:      split.TotalCents,
		PlatformCents:       split.PlatformCents,
		AmountCents:         split.PhotographerCents,
		Currency:            strings.ToLower(p.Currency),
		RateVersion:         RateVersion,
		Status:              StatusPending,
		PaymentDate:         p.PaidAt,
		ScheduledPayoutDate: PayoutDate(p.PaidAt),
		CreatedAt:           s.now(),
	}
	if err := rec.Validate(); err != nil {
		return nil, false, err
	}

	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicatePayment) {
			existing, getErr := s.store.GetBySourcePayment(ctx, p.PaymentID)
			if getErr != nil {
				return nil, false, fmt.Errorf("reload commission: %w", getErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create commission: %w", err)
	}

	s.log.InfoContext(ctx, "commission recorded",
		logger.CommissionID(rec.ID),
		logger.AccountID(rec.AccountID),
		logger.PhotographerID(rec.PhotographerID),
		logger.AmountCents(rec.AmountCents),
		slog.Time("scheduled_payout_date", rec.ScheduledPayoutDate),
	)
	return &rec, true, nil
}

func (s *service) Report(ctx context.Context, photographerID uuid.UUID) (*Report, error) {
	records, err := s.store.ListByPhotographer(ctx, photographerID)
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	rep := &Report{PhotographerID: photographerID, Records: records}
	for _, r := range records {
		rep.Totals.Count++
		switch r.Status {
		case StatusPaid:
			rep.Totals.PaidCents += r.AmountCents
		default:
			rep.Totals.PendingCents += r.AmountCents
		}
	}
	if rep.Records == nil {
		rep.Records = []Record{}
	}
	return rep, nil
}
