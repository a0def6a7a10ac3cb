// Package billing turns verified provider notifications into account,
// commission and takeover effects, exactly once per notification.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/photovault/photovault/pkg/logger"
	"github.com/photovault/photovault/svc/account"
	"github.com/photovault/photovault/svc/commission"
	"github.com/photovault/photovault/svc/family"
	"github.com/photovault/photovault/svc/gallery"
	"github.com/photovault/photovault/svc/ledger"
	"github.com/photovault/photovault/svc/payment"
)

// Result describes what happened to one delivery.
type Result string

const (
	ResultApplied   Result = "applied"
	ResultDuplicate Result = "duplicate"
	ResultIgnored   Result = "ignored"
)

type Ledger interface {
	Apply(ctx context.Context, eventID, eventType string, handler ledger.Handler) (bool, error)
}

type Accounts interface {
	Resolve(ctx context.Context, accountID uuid.UUID, subscriptionID, customerID string) (*account.Account, error)
	PaymentSucceeded(ctx context.Context, id uuid.UUID, at time.Time) (account.Transition, error)
	PaymentFailed(ctx context.Context, id uuid.UUID, at time.Time) (account.Transition, error)
	CancelScheduled(ctx context.Context, id uuid.UUID, at time.Time) (account.Transition, error)
	CancelReverted(ctx context.Context, id uuid.UUID, at time.Time) (account.Transition, error)
	SubscriptionEnded(ctx context.Context, id uuid.UUID, at time.Time) (account.Transition, error)
}

type Commissions interface {
	Record(ctx context.Context, p commission.Payment) (*commission.Record, bool, error)
}

type Takeovers interface {
	Complete(ctx context.Context, c family.Completion) error
}

// Galleries resolves the gallery a recurring payment is attributed to.
type Galleries interface {
	FirstGallery(ctx context.Context, accountID, photographerID uuid.UUID) (*gallery.Gallery, error)
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the processor logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// Processor is the webhook entry point.
type Processor struct {
	ledger      Ledger
	accounts    Accounts
	commissions Commissions
	takeovers   Takeovers
	galleries   Galleries
	providers   map[string]payment.Provider
	log         *slog.Logger
}

// NewProcessor indexes providers by name. It panics when any service is nil.
func NewProcessor(lg Ledger, accounts Accounts, commissions Commissions, takeovers Takeovers, providers []payment.Provider, opts ...Option) *Processor {
	if lg == nil || accounts == nil || commissions == nil || takeovers == nil {
		panic("billing: ledger, accounts, commissions and takeovers are required")
	}
	p := &Processor{
		ledger:      lg,
		accounts:    accounts,
		commissions: commissions,
		takeovers:   takeovers,
		providers:   make(map[string]payment.Provider, len(providers)),
		log:         slog.Default(),
	}
	for _, pr := range providers {
		p.providers[pr.Name()] = pr
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithGalleries attributes commission records to the account's first
// gallery by the referring photographer. Without it the reference stays empty.
func WithGalleries(g Galleries) Option {
	return func(p *Processor) { p.galleries = g }
}

// HandleWebhook verifies and applies one delivery. A returned error means
// the delivery must not be acknowledged so that the sender retries it.
func (p *Processor) HandleWebhook(ctx context.Context, provider string, payload []byte, header http.Header) (Result, error) {
	pr, ok := p.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if len(payload) == 0 {
		return "", ErrEmptyPayload
	}

	ev, err := pr.ParseWebhook(ctx, payload, header)
	if err != nil {
		return "", err
	}
	log := p.log.With(logger.Provider(provider), logger.EventID(ev.ID), logger.EventType(string(ev.Type)))

	if ev.Type == payment.EventIgnored {
		log.DebugContext(ctx, "provider event ignored", slog.String("provider_type", ev.ProviderType))
		return ResultIgnored, nil
	}

	applied, err := p.ledger.Apply(ctx, ev.ID, string(ev.Type), func(ctx context.Context) error {
		return p.dispatch(ctx, log, ev)
	})
	if err != nil {
		return "", err
	}
	if !applied {
		return ResultDuplicate, nil
	}
	return ResultApplied, nil
}

func (p *Processor) dispatch(ctx context.Context, log *slog.Logger, ev *payment.Event) error {
	acc, err := p.accounts.Resolve(ctx, ev.AccountID, ev.SubscriptionID, ev.CustomerID)
	if errors.Is(err, account.ErrNotFound) {
		log.WarnContext(ctx, "event for unknown account",
			slog.String("subscription_id", ev.SubscriptionID),
			slog.String("customer_id", ev.CustomerID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve account: %w", err)
	}
	log = log.With(logger.AccountID(acc.ID))

	if ev.IsTakeover() && ev.ConfirmsPayment() {
		accepted, err := p.completeTakeover(ctx, log, acc.ID, ev)
		if err != nil || !accepted {
			return err
		}
	}

	switch ev.Type {
	case payment.EventPaymentSucceeded:
		if _, err := p.accounts.PaymentSucceeded(ctx, acc.ID, ev.OccurredAt); err != nil {
			return err
		}
		return p.recordCommission(ctx, log, acc, ev)

	case payment.EventCheckoutCompleted:
		if ev.IsTakeover() && !ev.Paid {
			log.InfoContext(ctx, "takeover checkout awaiting payment", slog.String("subscription_id", ev.SubscriptionID))
		}
		return nil
	}

	// Status events about a subscription the account no longer uses are
	// leftovers of a takeover.
	if ev.SubscriptionID != "" && acc.ProviderSubscriptionID != "" && ev.SubscriptionID != acc.ProviderSubscriptionID {
		log.InfoContext(ctx, "event for replaced subscription ignored", slog.String("subscription_id", ev.SubscriptionID))
		return nil
	}

	switch ev.Type {
	case payment.EventPaymentFailed:
		_, err = p.accounts.PaymentFailed(ctx, acc.ID, ev.OccurredAt)
	case payment.EventSubscriptionUpdated:
		if ev.CancelAtPeriodEnd {
			_, err = p.accounts.CancelScheduled(ctx, acc.ID, ev.OccurredAt)
		} else {
			_, err = p.accounts.CancelReverted(ctx, acc.ID, ev.OccurredAt)
		}
	case payment.EventSubscriptionCancelled:
		_, err = p.accounts.SubscriptionEnded(ctx, acc.ID, ev.OccurredAt)
	}
	return err
}

// completeTakeover reports false when the takeover was rejected; the
// rejection is final and the rest of the event is skipped.
func (p *Processor) completeTakeover(ctx context.Context, log *slog.Logger, accountID uuid.UUID, ev *payment.Event) (bool, error) {
	memberID, err := uuid.Parse(ev.Metadata[payment.MetaSecondaryID])
	if err != nil {
		log.WarnContext(ctx, "takeover metadata without valid member id", logger.Error(err))
		return false, nil
	}
	err = p.takeovers.Complete(ctx, family.Completion{
		AccountID:      accountID,
		MemberID:       memberID,
		CustomerID:     ev.CustomerID,
		SubscriptionID: ev.SubscriptionID,
		TakeoverType:   family.TakeoverType(ev.Metadata[payment.MetaTakeoverType]),
		PaidAt:         ev.OccurredAt,
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, family.ErrAlreadyTakenOver), errors.Is(err, family.ErrNotEligible), errors.Is(err, family.ErrNotFound):
		log.WarnContext(ctx, "takeover rejected", logger.Error(err))
		return false, nil
	default:
		return false, fmt.Errorf("complete takeover: %w", err)
	}
}

func (p *Processor) recordCommission(ctx context.Context, log *slog.Logger, acc *account.Account, ev *payment.Event) error {
	if !ev.Recurring || acc.PhotographerID == nil {
		return nil
	}
	paymentID := ev.PaymentID
	if paymentID == "" {
		paymentID = ev.ID
	}
	rec, created, err := p.commissions.Record(ctx, commission.Payment{
		AccountID:      acc.ID,
		PhotographerID: *acc.PhotographerID,
		GalleryID:      p.commissionGallery(ctx, log, acc),
		PaymentID:      paymentID,
		EventID:        ev.ID,
		AmountCents:    ev.AmountCents,
		Currency:       ev.Currency,
		PaidAt:         ev.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("record commission: %w", err)
	}
	if created {
		log.InfoContext(ctx, "commission recorded",
			logger.CommissionID(rec.ID),
			logger.AmountCents(rec.AmountCents),
			slog.Time("scheduled_payout_date", rec.ScheduledPayoutDate))
	}
	return nil
}

// commissionGallery is best effort: a missing gallery leaves the reference
// empty rather than failing the payment.
func (p *Processor) commissionGallery(ctx context.Context, log *slog.Logger, acc *account.Account) *uuid.UUID {
	if p.galleries == nil {
		return nil
	}
	g, err := p.galleries.FirstGallery(ctx, acc.ID, *acc.PhotographerID)
	if err != nil {
		if !errors.Is(err, gallery.ErrNotFound) {
			log.WarnContext(ctx, "resolve commission gallery", logger.Error(err))
		}
		return nil
	}
	return &g.ID
}
