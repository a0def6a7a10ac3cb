package family

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/photovault/photovault/pkg/logger"
	"github.com/photovault/photovault/pkg/txn"
	"github.com/photovault/photovault/svc/account"
	"github.com/photovault/photovault/svc/directory"
	"github.com/photovault/photovault/svc/payment"
)

// Accounts is the part of the account tracker a takeover touches.
type Accounts interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
	SwitchBilling(ctx context.Context, id uuid.UUID, customerID, subscriptionID string) (string, error)
}

// Users resolves display names and emails.
type Users interface {
	User(ctx context.Context, id uuid.UUID) (*directory.User, error)
}

// Service manages family members and billing takeover.
type Service interface {
	Invite(ctx context.Context, accountID, userID uuid.UUID) (*Member, error)
	Accept(ctx context.Context, accountID, userID uuid.UUID) (*Member, error)
	Revoke(ctx context.Context, accountID, userID uuid.UUID) error
	Memberships(ctx context.Context, userID uuid.UUID) ([]Member, error)
	// Member returns the membership of userID in accountID in any status.
	Member(ctx context.Context, accountID, userID uuid.UUID) (*Member, error)

	// Eligibility is the read-only takeover quote.
	Eligibility(ctx context.Context, accountID, userID uuid.UUID) (*Eligibility, error)
	// Start creates a tagged checkout for the caller. No membership state
	// changes until the payment is confirmed through Complete.
	Start(ctx context.Context, req StartRequest) (*payment.CheckoutLink, error)
	// Complete flips the payer flag after a confirmed payment. It is safe
	// to call more than once for the same completion.
	Complete(ctx context.Context, c Completion) error
}

// ServiceOption configures the family service.
type ServiceOption func(*service)

// WithLogger sets the service logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now for membership and payer stamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTxRunner scopes Complete in one transaction. The default is txn.Nop.
func WithTxRunner(r txn.Runner) ServiceOption {
	return func(s *service) {
		if r != nil {
			s.txn = r
		}
	}
}

// WithNotifier receives a notice after each completed takeover.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *service) { s.notifier = n }
}

type service struct {
	store     Store
	accounts  Accounts
	provider  payment.Provider
	users     Users
	galleries GalleryCounter
	notifier  Notifier
	txn       txn.Runner
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
}

// NewService returns the family Service. It panics when store, accounts,
// provider, users or galleries is nil.
func NewService(store Store, accounts Accounts, provider payment.Provider, users Users, galleries GalleryCounter, cfg Config, opts ...ServiceOption) Service {
	if store == nil || accounts == nil || provider == nil || users == nil || galleries == nil {
		panic("family: store, accounts, provider, users and gallery counter are required")
	}
	s := &service{
		store:     store,
		accounts:  accounts,
		provider:  provider,
		users:     users,
		galleries: galleries,
		txn:       txn.Nop{},
		cfg:       cfg,
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Invite(ctx context.Context, accountID, userID uuid.UUID) (*Member, error) {
	if accountID == uuid.Nil || userID == uuid.Nil {
		return nil, ErrInvalidRequest
	}
	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc.UserID == userID {
		return nil, &NotEligibleError{Reason: ReasonOwnAccount}
	}
	now := s.now()
	m := Member{
		ID:              uuid.New(),
		AccountID:       accountID,
		SecondaryUserID: userID,
		Status:          MemberPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *service) Accept(ctx context.Context, accountID, userID uuid.UUID) (*Member, error) {
	m, err := s.store.Get(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	switch m.Status {
	case MemberAccepted:
		return m, nil
	case MemberRevoked:
		return nil, fmt.Errorf("%w: membership was revoked", ErrInvalidStatus)
	}
	now := s.now()
	if err := s.store.SetStatus(ctx, m.ID, MemberAccepted, now); err != nil {
		return nil, err
	}
	m.Status, m.UpdatedAt = MemberAccepted, now
	return m, nil
}

func (s *service) Revoke(ctx context.Context, accountID, userID uuid.UUID) error {
	m, err := s.store.Get(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if m.IsBillingPayer {
		return fmt.Errorf("%w: the billing payer cannot be revoked", ErrInvalidStatus)
	}
	if m.Status == MemberRevoked {
		return nil
	}
	return s.store.SetStatus(ctx, m.ID, MemberRevoked, s.now())
}

func (s *service) Memberships(ctx context.Context, userID uuid.UUID) ([]Member, error) {
	return s.store.ListAccepted(ctx, userID)
}

func (s *service) Member(ctx context.Context, accountID, userID uuid.UUID) (*Member, error) {
	return s.store.Get(ctx, accountID, userID)
}

// quote is an eligibility answer plus the records it was derived from.
type quote struct {
	Eligibility
	account *account.Account
	member  *Member
	payer   *Member
}

func (s *service) evaluate(ctx context.Context, accountID, userID uuid.UUID) (*quote, error) {
	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	q := &quote{account: acc}
	q.AccountStatus = string(acc.Status)
	q.TakeoverType = TakeoverVoluntary
	if acc.IsDelinquent() {
		q.TakeoverType = TakeoverDelinquent
	}
	if acc.LastPaymentFailureAt != nil && acc.IsDelinquent() {
		q.MonthsOverdue = account.MonthsOverdue(*acc.LastPaymentFailureAt, s.now())
	}
	if q.GalleryCount, err = s.galleries.CountGalleries(ctx, accountID); err != nil {
		return nil, fmt.Errorf("count galleries: %w", err)
	}

	if acc.UserID == userID {
		q.Reason = ReasonOwnAccount
		return q, nil
	}

	m, err := s.store.Get(ctx, accountID, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		q.Reason = ReasonNotMember
		return q, nil
	case err != nil:
		return nil, err
	}
	q.member = m
	if m.Status != MemberAccepted {
		q.Reason = ReasonNotAccepted
		return q, nil
	}

	payer, err := s.store.CurrentPayer(ctx, accountID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	case payer.ID == m.ID:
		q.Reason = ReasonAlreadyPayer
		return q, nil
	default:
		q.payer = payer
		q.Reason = ReasonAlreadyTaken
		q.CurrentPayerName = s.displayName(ctx, payer.SecondaryUserID)
		return q, nil
	}

	q.Eligible = true
	return q, nil
}

func (s *service) Eligibility(ctx context.Context, accountID, userID uuid.UUID) (*Eligibility, error) {
	if accountID == uuid.Nil || userID == uuid.Nil {
		return nil, ErrInvalidRequest
	}
	q, err := s.evaluate(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	return &q.Eligibility, nil
}

func (s *service) Start(ctx context.Context, req StartRequest) (*payment.CheckoutLink, error) {
	if req.AccountID == uuid.Nil || req.UserID == uuid.Nil {
		return nil, ErrInvalidRequest
	}
	q, err := s.evaluate(ctx, req.AccountID, req.UserID)
	if err != nil {
		return nil, err
	}
	if !q.Eligible {
		if q.payer != nil {
			return nil, &AlreadyTakenOverError{AccountID: req.AccountID, PayerUserID: q.payer.SecondaryUserID, PayerName: q.CurrentPayerName}
		}
		return nil, &NotEligibleError{Reason: q.Reason}
	}

	user, err := s.users.User(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load payer: %w", err)
	}
	customerID, err := s.provider.EnsureCustomer(ctx, payment.CustomerRequest{
		UserID:     user.ID,
		Email:      user.Email,
		Name:       user.Name,
		ExistingID: q.member.ProviderCustomerID,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure customer: %w", err)
	}
	if customerID != q.member.ProviderCustomerID {
		if err := s.store.SetCustomerID(ctx, q.member.ID, customerID, s.now()); err != nil {
			return nil, err
		}
	}

	link, err := s.provider.CreateCheckoutLink(ctx, payment.CheckoutRequest{
		CustomerID: customerID,
		PriceID:    s.cfg.PriceID,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		Metadata: map[string]string{
			payment.MetaAccountID:         req.AccountID.String(),
			payment.MetaSecondaryID:       q.member.ID.String(),
			payment.MetaTakeoverType:      string(q.TakeoverType),
			payment.MetaPreviousPrimaryID: q.account.UserID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}

	s.log.InfoContext(ctx, "takeover checkout created",
		logger.AccountID(req.AccountID),
		logger.UserID(req.UserID),
		slog.String("takeover_type", string(q.TakeoverType)),
		slog.String("session_id", link.SessionID),
	)
	return link, nil
}

func (s *service) Complete(ctx context.Context, c Completion) error {
	if c.AccountID == uuid.Nil || c.MemberID == uuid.Nil {
		return ErrInvalidRequest
	}
	if c.PaidAt.IsZero() {
		c.PaidAt = s.now()
	}
	log := s.log.With(logger.AccountID(c.AccountID), slog.String("member_id", c.MemberID.String()))

	// notice is sent when this call flipped the payer, or finished moving
	// billing for a payer flipped by an earlier attempt that failed later.
	var notice *TakeoverNotice
	err := s.txn.WithinTx(ctx, func(ctx context.Context) error {
		notice = nil
		m, err := s.store.GetByID(ctx, c.MemberID)
		if err != nil {
			return err
		}
		if m.AccountID != c.AccountID {
			return &NotEligibleError{Reason: ReasonNotMember}
		}
		acc, err := s.accounts.Get(ctx, c.AccountID)
		if err != nil {
			return err
		}
		pending := &TakeoverNotice{
			AccountID:      c.AccountID,
			PrimaryUserID:  acc.UserID,
			NewPayerUserID: m.SecondaryUserID,
			TakeoverType:   c.TakeoverType,
		}

		if !m.IsBillingPayer {
			if m.Status != MemberAccepted {
				return &NotEligibleError{Reason: ReasonNotAccepted}
			}
			if err := s.store.MarkPayer(ctx, m.ID, c.PaidAt); err != nil {
				if errors.Is(err, ErrPayerExists) {
					return &AlreadyTakenOverError{AccountID: c.AccountID}
				}
				return err
			}
			notice = pending
		}

		customerID := c.CustomerID
		if customerID == "" {
			customerID = m.ProviderCustomerID
		}
		if c.SubscriptionID == "" || acc.ProviderSubscriptionID == c.SubscriptionID {
			if customerID != "" && acc.ProviderCustomerID != customerID {
				if _, err := s.accounts.SwitchBilling(ctx, c.AccountID, customerID, c.SubscriptionID); err != nil {
					return err
				}
				notice = pending
			}
			return nil
		}

		// Stop the previous payer's subscription before pointing the
		// account at the new one; a failure here rolls back the flip.
		if prev := acc.ProviderSubscriptionID; prev != "" {
			if err := s.provider.CancelSubscription(ctx, prev); err != nil {
				return fmt.Errorf("cancel previous subscription: %w", err)
			}
			log.InfoContext(ctx, "previous subscription cancelled", slog.String("subscription_id", prev))
		}
		if _, err := s.accounts.SwitchBilling(ctx, c.AccountID, customerID, c.SubscriptionID); err != nil {
			return err
		}
		notice = pending
		return nil
	})
	if err != nil {
		notice = nil
	}

	if taken := (*AlreadyTakenOverError)(nil); errors.As(err, &taken) && taken.PayerUserID == uuid.Nil {
		err = s.takenOver(ctx, c.AccountID)
	}
	if errors.Is(err, ErrAlreadyTakenOver) || errors.Is(err, ErrNotEligible) {
		if c.SubscriptionID != "" {
			if cerr := s.provider.CancelSubscription(ctx, c.SubscriptionID); cerr != nil {
				log.ErrorContext(ctx, "cancel rejected takeover subscription", logger.Error(cerr))
				return fmt.Errorf("cancel rejected takeover subscription: %w", cerr)
			}
		}
		log.WarnContext(ctx, "takeover payment rejected", logger.Error(err))
		return err
	}
	if err != nil {
		return err
	}

	if notice != nil {
		log.InfoContext(ctx, "billing taken over", slog.String("takeover_type", string(c.TakeoverType)))
		if s.notifier != nil {
			if err := s.notifier.TakeoverCompleted(ctx, *notice); err != nil {
				log.WarnContext(ctx, "takeover notification failed", logger.Error(err))
			}
		}
	}
	return nil
}

func (s *service) takenOver(ctx context.Context, accountID uuid.UUID) error {
	e := &AlreadyTakenOverError{AccountID: accountID}
	if payer, err := s.store.CurrentPayer(ctx, accountID); err == nil {
		e.PayerUserID = payer.SecondaryUserID
		e.PayerName = s.displayName(ctx, payer.SecondaryUserID)
	}
	return e
}

func (s *service) displayName(ctx context.Context, userID uuid.UUID) string {
	u, err := s.users.User(ctx, userID)
	if err != nil {
		s.log.WarnContext(ctx, "resolve member name", logger.UserID(userID), logger.Error(err))
		return ""
	}
	return u.Name
}
