package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/photovault/photovault/pkg/logger"
)

const maxUpdateAttempts = 3

// Service is the subscription state tracker.
type Service interface {
	Create(ctx context.Context, acc Account) (*Account, error)
	Get(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Account, error)
	// Resolve finds the account a notification refers to.
	Resolve(ctx context.Context, accountID uuid.UUID, subscriptionID, customerID string) (*Account, error)

	PaymentSucceeded(ctx context.Context, id uuid.UUID, at time.Time) (Transition, error)
	PaymentFailed(ctx context.Context, id uuid.UUID, at time.Time) (Transition, error)
	CancelScheduled(ctx context.Context, id uuid.UUID, at time.Time) (Transition, error)
	CancelReverted(ctx context.Context, id uuid.UUID, at time.Time) (Transition, error)
	// SubscriptionEnded handles the provider ending the subscription. It
	// applies whether or not a cancellation was scheduled first.
	SubscriptionEnded(ctx context.Context, id uuid.UUID, at time.Time) (Transition, error)
	// SwitchBilling points the account at a new payer's customer and
	// subscription and returns the subscription it replaced.
	SwitchBilling(ctx context.Context, id uuid.UUID, customerID, subscriptionID string) (previousSubscriptionID string, err error)

	// Sweep suspends every grace account whose grace window has run out.
	Sweep(ctx context.Context, now time.Time) (int, error)
	// EffectiveStatus is the status used for access control. A grace
	// account past its window reads as suspended even before Sweep runs.
	EffectiveStatus(ctx context.Context, id uuid.UUID) (Status, error)
}

// ServiceOption configures the account service.
type ServiceOption func(*service)

// WithLogger sets the service logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now for transition stamps and grace checks.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStatusCache enables read-through caching of EffectiveStatus.
func WithStatusCache(c StatusCache) ServiceOption {
	return func(s *service) { s.cache = c }
}

// WithNotifier is told about every status change.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *service) { s.notifier = n }
}

// WithSweepBatch limits how many grace accounts one Sweep inspects.
func WithSweepBatch(n int) ServiceOption {
	return func(s *service) {
		if n > 0 {
			s.sweepBatch = n
		}
	}
}

type service struct {
	store      Store
	cache      StatusCache
	notifier   Notifier
	log        *slog.Logger
	now        func() time.Time
	sweepBatch int
}

// NewService returns the account Service. It panics on a nil store.
func NewService(store Store, opts ...ServiceOption) Service {
	if store == nil {
		panic("account: Store is required")
	}
	s := &service{store: store, log: slog.Default(), now: time.Now, sweepBatch: 500}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, acc Account) (*Account, error) {
	if acc.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidAccount)
	}
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	if acc.Status == "" {
		acc.Status = StatusActive
	}
	if !acc.Status.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidAccount, acc.Status)
	}
	now := s.now()
	acc.Version = 1
	acc.CreatedAt, acc.UpdatedAt = now, now
	if err := s.store.Create(ctx, acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.store.Get(ctx, id)
}

func (s *service) GetByUserID(ctx context.Context, userID uuid.UUID) (*Account, error) {
	return s.store.GetByUserID(ctx, userID)
}

func (s *service) Resolve(ctx context.Context, accountID uuid.UUID, subscriptionID, customerID string) (*Account, error) {
	if accountID != uuid.Nil {
		return s.store.Get(ctx, accountID)
	}
	if subscriptionID == "" && customerID == "" {
		return nil, ErrNotFound
	}
	return s.store.GetByProviderRef(ctx, subscriptionID, customerID)
}

func (s *service) PaymentSucceeded(ctx context.Context, id uuid.UUID, at time.Time) (Transition, error) {
	return s.mutate(ctx, id, func(acc *Account) (Trigger, bool) {
		if acc.LastPaymentFailureAt != nil && at.Before(*acc.LastPaymentFailureAt) {
			return "", false
		}
		if acc.LastPaymentAt != nil && !at.After(*acc.LastPaymentAt) && !acc.IsDelinquent() {
			return "", false
		}
		return TriggerPaymentSucceeded, true
	}, func(acc *Account) {
		acc.LastPaymentAt = timePtr(at)
		acc.LastPaymentFailureAt = nil
		acc.GraceCause = GraceNone
	})
}

func (s *service) PaymentFailed(ctx context.Context, id uuid.UUID, at time.Time) (Transition, error) {
	return s.mutate(ctx, id, func(acc *Account) (Trigger, bool) {
		if acc.LastPaymentAt != nil && at.Before(*acc.LastPaymentAt) {
			return "", false
		}
		if acc.Status == StatusGracePeriod && acc.GraceCause == GracePaymentFailed {
			return "", false
		}
		return TriggerPaymentFailed, true
	}, func(acc *Account) {
		if acc.Status == StatusSuspended {
			return
		}
		acc.GraceCause = GracePaymentFailed
		if acc.LastPaymentFailureAt == nil || at.Before(*acc.LastPaymentFailureAt) {
			acc.LastPaymentFailureAt = timePtr(at)
		}
	})
}

func (s *service) CancelScheduled(ctx context.Context, id uuid.UUID, at time.Time) (Transition, error) {
	return s.mutate(ctx, id, func(acc *Account) (Trigger, bool) {
		if acc.CancelAtPeriodEnd {
			return "", false
		}
		return TriggerCancelScheduled, true
	}, func(acc *Account) {
		acc.CancelAtPeriodEnd = true
		if acc.Status == StatusActive {
			acc.GraceCause = GraceCancelScheduled
			acc.LastPaymentFailureAt = timePtr(at)
		}
	})
}

func (s *service) CancelReverted(ctx context.Context, id uuid.UUID, _ time.Time) (Transition, error) {
	return s.mutate(ctx, id, func(acc *Account) (Trigger, bool) {
		if !acc.CancelAtPeriodEnd {
			return "", false
		}
		return TriggerCancelReverted, true
	}, func(acc *Account) {
		acc.CancelAtPeriodEnd = false
		if acc.GraceCause == GraceCancelScheduled {
			acc.GraceCause = GraceNone
			acc.LastPaymentFailureAt = nil
		}
	})
}

func (s *service) SubscriptionEnded(ctx context.Context, id uuid.UUID, at time.Time) (Transition, error) {
	return s.mutate(ctx, id, func(acc *Account) (Trigger, bool) {
		if acc.Status == StatusSuspended || acc.GraceCause == GraceSubscriptionEnded {
			return "", false
		}
		return TriggerSubscriptionEnded, true
	}, func(acc *Account) {
		acc.CancelAtPeriodEnd = false
		acc.GraceCause = GraceSubscriptionEnded
		if acc.LastPaymentFailureAt == nil || at.Before(*acc.LastPaymentFailureAt) {
			acc.LastPaymentFailureAt = timePtr(at)
		}
	})
}

func (s *service) SwitchBilling(ctx context.Context, id uuid.UUID, customerID, subscriptionID string) (string, error) {
	var previous string
	for range maxUpdateAttempts {
		acc, err := s.store.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if acc.ProviderCustomerID == customerID && acc.ProviderSubscriptionID == subscriptionID {
			return "", nil
		}
		previous = acc.ProviderSubscriptionID
		if previous == subscriptionID {
			previous = ""
		}
		acc.ProviderCustomerID = customerID
		if subscriptionID != "" {
			acc.ProviderSubscriptionID = subscriptionID
		}
		acc.CancelAtPeriodEnd = false
		acc.UpdatedAt = s.now()
		err = s.store.Update(ctx, *acc)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return "", err
		}
		s.invalidate(ctx, id)
		return previous, nil
	}
	return "", ErrVersionConflict
}

// mutate runs an optimistic read-modify-write. decide returns the trigger
// to fire or false when the input is stale or redundant; apply updates the
// non-status fields.
func (s *service) mutate(ctx context.Context, id uuid.UUID, decide func(*Account) (Trigger, bool), apply func(*Account)) (Transition, error) {
	for range maxUpdateAttempts {
		acc, err := s.store.Get(ctx, id)
		if err != nil {
			return Transition{}, err
		}
		tr := Transition{AccountID: id, From: acc.Status, To: acc.Status}

		trigger, ok := decide(acc)
		if !ok {
			return tr, nil
		}

		now := s.now()
		to, err := next(ctx, acc, trigger, now)
		if err != nil {
			return tr, err
		}
		apply(acc)
		acc.Status = to
		acc.UpdatedAt = now
		tr.To = to

		err = s.store.Update(ctx, *acc)
		if errors.Is(err, ErrVersionConflict) {
			s.log.DebugContext(ctx, "account version conflict, retrying", logger.AccountID(id))
			continue
		}
		if err != nil {
			return Transition{AccountID: id, From: tr.From, To: tr.From}, errors.Join(ErrFailedToTransition, err)
		}

		s.afterTransition(ctx, *acc, tr, trigger)
		return tr, nil
	}
	return Transition{}, ErrVersionConflict
}

func (s *service) afterTransition(ctx context.Context, acc Account, tr Transition, trigger Trigger) {
	s.invalidate(ctx, acc.ID)
	if !tr.Changed() {
		return
	}

	s.log.InfoContext(ctx, "account status changed",
		logger.AccountID(acc.ID),
		logger.Transition(tr.From, tr.To),
		slog.String("trigger", string(trigger)),
	)

	if s.notifier == nil {
		return
	}
	var err error
	switch tr.To {
	case StatusGracePeriod:
		err = s.notifier.GraceStarted(ctx, acc)
	case StatusSuspended:
		err = s.notifier.Suspended(ctx, acc)
	case StatusActive:
		err = s.notifier.Reactivated(ctx, acc)
	}
	if err != nil {
		s.log.WarnContext(ctx, "account notification failed", logger.AccountID(acc.ID), logger.Error(err))
	}
}

func (s *service) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.AddDate(0, 0, -GraceDays)
	candidates, err := s.store.ListGraceStartedBefore(ctx, cutoff, s.sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("list grace accounts: %w", err)
	}

	suspended := 0
	var errs []error
	for _, c := range candidates {
		tr, err := s.mutate(ctx, c.ID, func(acc *Account) (Trigger, bool) {
			if acc.Status != StatusGracePeriod || acc.LastPaymentFailureAt == nil {
				return "", false
			}
			return TriggerGraceExpired, ShouldSuspend(*acc.LastPaymentFailureAt, now)
		}, func(*Account) {})
		if err != nil {
			errs = append(errs, fmt.Errorf("account %s: %w", c.ID, err))
			continue
		}
		if tr.Changed() {
			suspended++
		}
	}

	s.log.InfoContext(ctx, "grace sweep finished",
		logger.Count("candidates", len(candidates)),
		logger.Count("suspended", suspended),
		logger.Count("failed", len(errs)),
	)
	return suspended, errors.Join(errs...)
}

func (s *service) EffectiveStatus(ctx context.Context, id uuid.UUID) (Status, error) {
	key := id.String()
	if s.cache != nil {
		if st, err := s.cache.Get(ctx, key); err == nil && st.Valid() {
			return st, nil
		}
	}

	acc, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	st := acc.Status
	if st == StatusGracePeriod && acc.LastPaymentFailureAt != nil && ShouldSuspend(*acc.LastPaymentFailureAt, s.now()) {
		st = StatusSuspended
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, st); err != nil {
			s.log.WarnContext(ctx, "cache account status", logger.AccountID(id), logger.Error(err))
		}
	}
	return st, nil
}

func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id.String()); err != nil {
		s.log.WarnContext(ctx, "invalidate account status", logger.AccountID(id), logger.Error(err))
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
