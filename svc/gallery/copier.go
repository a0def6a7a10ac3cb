package gallery

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
	"github.com/photovault/photovault/svc/family"
)

// Reasons reported on failed items.
const (
	ReasonNotFound  = "gallery_not_found"
	ReasonNotShared = "gallery_not_family_shared"
	ReasonCopyError = "copy_failed"
	ReasonRevoked   = "membership_revoked"
)

// Accounts resolves the caller's own account.
type Accounts interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*account.Account, error)
}

// Memberships lists the accounts a user is an accepted secondary of and
// reads one membership back for the in-transaction re-check.
type Memberships interface {
	Memberships(ctx context.Context, userID uuid.UUID) ([]family.Member, error)
	Member(ctx context.Context, accountID, userID uuid.UUID) (*family.Member, error)
}

// CopierOption configures a Copier.
type CopierOption func(*Copier)

// WithLogger sets the copier logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) CopierOption {
	return func(c *Copier) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock replaces time.Now for created_at stamps on copies.
func WithClock(now func() time.Time) CopierOption {
	return func(c *Copier) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTxRunner sets the runner that scopes each gallery copy.
func WithTxRunner(r txn.Runner) CopierOption {
	return func(c *Copier) {
		if r != nil {
			c.txn = r
		}
	}
}

// Copier incorporates family-shared galleries into the caller's account.
type Copier struct {
	store       Store
	accounts    Accounts
	memberships Memberships
	txn         txn.Runner
	log         *slog.Logger
	now         func() time.Time
}

// NewCopier panics when store, accounts or memberships is nil. Without
// WithTxRunner each copy runs without a transaction.
func NewCopier(store Store, accounts Accounts, memberships Memberships, opts ...CopierOption) *Copier {
	if store == nil || accounts == nil || memberships == nil {
		panic("gallery: store, accounts and memberships are required")
	}
	c := &Copier{
		store:       store,
		accounts:    accounts,
		memberships: memberships,
		txn:         txn.Nop{},
		log:         slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Incorporate copies galleryIDs into the caller's own account. Galleries
// already incorporated are reported, not copied again. A failure on one
// gallery does not stop the others; ErrNothingIncorporated is returned
// together with the result only when every attempted copy failed.
func (c *Copier) Incorporate(ctx context.Context, userID uuid.UUID, galleryIDs []uuid.UUID) (*Result, error) {
	ids := dedupe(galleryIDs)
	switch {
	case len(ids) == 0:
		return nil, ErrNoGalleries
	case len(ids) > MaxBatch:
		return nil, fmt.Errorf("%w: %d requested, at most %d", ErrTooManyGalleries, len(ids), MaxBatch)
	}

	own, err := c.accounts.GetByUserID(ctx, userID)
	if errors.Is(err, account.ErrNotFound) {
		return nil, ErrNoOwnAccount
	}
	if err != nil {
		return nil, err
	}

	members, err := c.memberships.Memberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	allowed := make(map[uuid.UUID]bool, len(members))
	for _, m := range members {
		allowed[m.AccountID] = true
	}

	res := &Result{DestinationAccountID: own.ID}
	var sources []*Gallery
	for _, id := range ids {
		g, err := c.store.GetGallery(ctx, id)
		switch {
		case errors.Is(err, ErrNotFound):
			res.add(Item{SourceGalleryID: id, Outcome: OutcomeFailed, Reason: ReasonNotFound})
			continue
		case err != nil:
			return nil, err
		}
		if !allowed[g.AccountID] || g.AccountID == own.ID {
			return nil, fmt.Errorf("%w: gallery %s", ErrNotEligible, id)
		}
		if !g.FamilyShared {
			res.add(Item{SourceGalleryID: id, Outcome: OutcomeFailed, Reason: ReasonNotShared})
			continue
		}
		sources = append(sources, g)
	}

	log := c.log.With(logger.UserID(userID), logger.AccountID(own.ID))
	for _, src := range sources {
		res.add(c.copyOne(ctx, userID, own, src))
	}

	log.InfoContext(ctx, "galleries incorporated",
		logger.Count("incorporated", res.Incorporated),
		logger.Count("already_incorporated", res.AlreadyIncorporated),
		logger.Count("failed", res.Failed),
	)

	if res.Incorporated == 0 && res.AlreadyIncorporated == 0 {
		return res, ErrNothingIncorporated
	}
	return res, nil
}

func (c *Copier) copyOne(ctx context.Context, userID uuid.UUID, own *account.Account, src *Gallery) Item {
	it := Item{SourceGalleryID: src.ID}

	if inc, err := c.store.GetIncorporation(ctx, src.ID, own.ID); err == nil {
		it.Outcome = OutcomeAlreadyIncorporated
		it.DestinationGalleryID = &inc.DestinationGalleryID
		return it
	} else if !errors.Is(err, ErrNotFound) {
		c.log.ErrorContext(ctx, "look up incorporation", logger.GalleryID(src.ID), logger.Error(errors.Join(ErrFailedToCopyGallery, err)))
		it.Outcome, it.Reason = OutcomeFailed, ReasonCopyError
		return it
	}

	now := c.now()
	dst := Gallery{
		ID:             uuid.New(),
		AccountID:      own.ID,
		PhotographerID: own.PhotographerID,
		Title:          src.Title,
		CreatedAt:      now,
	}
	var copied int

	err := c.txn.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := c.store.GetIncorporation(ctx, src.ID, own.ID); err == nil {
			return ErrAlreadyIncorporated
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := c.recheck(ctx, userID, src.ID); err != nil {
			return err
		}
		if err := c.store.CreateGallery(ctx, dst); err != nil {
			return err
		}

		photos, err := c.store.ListPhotos(ctx, src.ID)
		if err != nil {
			return err
		}
		for i := range photos {
			photos[i].ID = uuid.New()
			photos[i].GalleryID = dst.ID
			photos[i].CreatedAt = now
		}
		if err := c.store.CreatePhotos(ctx, photos); err != nil {
			return err
		}
		copied = len(photos)

		return c.store.CreateIncorporation(ctx, Incorporation{
			ID:                   uuid.New(),
			SourceGalleryID:      src.ID,
			DestinationGalleryID: dst.ID,
			DestinationAccountID: own.ID,
			IncorporatedBy:       userID,
			CreatedAt:            now,
		})
	})

	switch {
	case err == nil:
		it.Outcome = OutcomeIncorporated
		it.DestinationGalleryID = &dst.ID
		it.PhotoCount = copied
	case errors.Is(err, ErrNotFound):
		it.Outcome, it.Reason = OutcomeFailed, ReasonNotFound
	case errors.Is(err, ErrNotShared):
		it.Outcome, it.Reason = OutcomeFailed, ReasonNotShared
	case errors.Is(err, ErrMembershipRevoked):
		c.log.WarnContext(ctx, "membership revoked during incorporation", logger.GalleryID(src.ID), logger.UserID(userID))
		it.Outcome, it.Reason = OutcomeFailed, ReasonRevoked
	case errors.Is(err, ErrAlreadyIncorporated):
		it.Outcome = OutcomeAlreadyIncorporated
		if inc, lerr := c.store.GetIncorporation(ctx, src.ID, own.ID); lerr == nil {
			it.DestinationGalleryID = &inc.DestinationGalleryID
		}
	default:
		c.log.ErrorContext(ctx, "copy gallery", logger.GalleryID(src.ID), logger.Error(errors.Join(ErrFailedToCopyGallery, err)))
		it.Outcome, it.Reason = OutcomeFailed, ReasonCopyError
	}
	return it
}

// recheck validates the source gallery and the caller's membership again
// inside the copy transaction; either may have changed since selection.
func (c *Copier) recheck(ctx context.Context, userID, sourceID uuid.UUID) error {
	g, err := c.store.GetGallery(ctx, sourceID)
	if err != nil {
		return err
	}
	if !g.FamilyShared {
		return ErrNotShared
	}
	m, err := c.memberships.Member(ctx, g.AccountID, userID)
	if errors.Is(err, family.ErrNotFound) {
		return ErrMembershipRevoked
	}
	if err != nil {
		return err
	}
	if m.Status != family.MemberAccepted {
		return ErrMembershipRevoked
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
