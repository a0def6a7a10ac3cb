package commission

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/photovault/photovault/pkg/logger"
	"github.com/photovault/photovault/svc/payment"
)

// DestinationResolver returns the connected account that receives a
// photographer's payouts, or an empty string if none is configured.
type DestinationResolver interface {
	PayoutDestination(ctx context.Context, photographerID uuid.UUID) (string, error)
}

// RunSummary tallies one payout pass.
type RunSummary struct {
	Paid    int
	Skipped int
	Failed  int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithBatchSize caps how many due records one RunDue call claims. Non-positive values are ignored.
func WithBatchSize(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.batch = n
		}
	}
}

// WithConcurrency sets how many transfers run at once. Non-positive values are ignored.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRunnerLogger sets the payout logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// Runner pays out pending commissions whose scheduled date has passed.
type Runner struct {
	store       Store
	transferer  payment.Transferer
	dest        DestinationResolver
	log         *slog.Logger
	batch       int
	concurrency int
}

// NewRunner builds the payout runner. store, transferer and dest are required.
func NewRunner(store Store, transferer payment.Transferer, dest DestinationResolver, opts ...RunnerOption) *Runner {
	if store == nil || transferer == nil || dest == nil {
		panic("commission: store, transferer and destination resolver are required")
	}
	r := &Runner{
		store:       store,
		transferer:  transferer,
		dest:        dest,
		log:         slog.Default(),
		batch:       100,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunDue transfers every due record once. A failure on one record is
// logged and counted; the record stays pending for the next pass. The
// record id is the transfer idempotency key, so a record whose transfer
// succeeded but whose status update failed is not paid twice.
func (r *Runner) RunDue(ctx context.Context, now time.Time) (RunSummary, error) {
	due, err := r.store.ListDue(ctx, now, r.batch)
	if err != nil {
		return RunSummary{}, errors.Join(ErrFailedToTransfer, err)
	}

	var (
		mu  sync.Mutex
		sum RunSummary
	)
	count := func(field *int) {
		mu.Lock()
		*field++
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, rec := range due {
		g.Go(func() error {
			switch err := r.payOne(gctx, rec, now); {
			case err == nil:
				count(&sum.Paid)
			case errors.Is(err, ErrNoDestination):
				count(&sum.Skipped)
			default:
				count(&sum.Failed)
			}
			return nil
		})
	}
	_ = g.Wait()

	r.log.InfoContext(ctx, "commission payouts processed",
		logger.Count("paid", sum.Paid),
		logger.Count("skipped", sum.Skipped),
		logger.Count("failed", sum.Failed),
	)
	return sum, ctx.Err()
}

func (r *Runner) payOne(ctx context.Context, rec Record, now time.Time) error {
	log := r.log.With(logger.CommissionID(rec.ID), logger.PhotographerID(rec.PhotographerID))

	if rec.AmountCents == 0 {
		if err := r.store.MarkPaid(ctx, rec.ID, "", now); err != nil && !errors.Is(err, ErrAlreadyPaid) {
			log.ErrorContext(ctx, "mark zero commission paid", logger.Error(err))
			return err
		}
		return nil
	}

	dest, err := r.dest.PayoutDestination(ctx, rec.PhotographerID)
	if err != nil {
		log.ErrorContext(ctx, "resolve payout destination", logger.Error(err))
		return err
	}
	if dest == "" {
		log.WarnContext(ctx, "photographer has no payout destination")
		return ErrNoDestination
	}

	transferID, err := r.transferer.Transfer(ctx, payment.TransferRequest{
		AmountCents:    rec.AmountCents,
		Currency:       rec.Currency,
		Destination:    dest,
		IdempotencyKey: "commission-" + rec.ID.String(),
		Group:          rec.SourcePaymentID,
		Metadata: map[string]string{
			"commission_id": rec.ID.String(),
			"account_id":    rec.AccountID.String(),
		},
	})
	if err != nil {
		log.ErrorContext(ctx, "commission transfer failed", logger.Error(err))
		return errors.Join(ErrFailedToTransfer, err)
	}

	if err := r.store.MarkPaid(ctx, rec.ID, transferID, now); err != nil {
		if errors.Is(err, ErrAlreadyPaid) {
			return nil
		}
		log.ErrorContext(ctx, "mark commission paid", logger.Error(err), slog.String("transfer_id", transferID))
		return err
	}
	log.InfoContext(ctx, "commission paid", logger.AmountCents(rec.AmountCents), slog.String("transfer_id", transferID))
	return nil
}
