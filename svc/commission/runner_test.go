package commission_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photovault/photovault/svc/commission"
	"github.com/photovault/photovault/svc/payment/paymenttest"
)

type destinations map[uuid.UUID]string

func (d destinations) PayoutDestination(_ context.Context, id uuid.UUID) (string, error) {
	return d[id], nil
}

func TestRunner_RunDue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := commission.NewMemoryStore()
	svc := commission.NewService(store)

	withDest := newPayment("in_due", 800)
	noDest := newPayment("in_nodest", 800)
	notDue := newPayment("in_later", 800)
	notDue.PaidAt = paidAt.AddDate(0, 0, 10)

	for _, p := range []commission.Payment{withDest, noDest, notDue} {
		_, _, err := svc.Record(ctx, p)
		require.NoError(t, err)
	}

	fake := paymenttest.New()
	dest := destinations{withDest.PhotographerID: "acct_1", notDue.PhotographerID: "acct_2"}
	runner := commission.NewRunner(store, fake, dest, commission.WithConcurrency(2))

	now := commission.PayoutDate(paidAt)
	sum, err := runner.RunDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, commission.RunSummary{Paid: 1, Skipped: 1}, sum)
	require.Equal(t, 1, fake.TransferCount())
	assert.Equal(t, int64(400), fake.Transfers[0].AmountCents)
	assert.Equal(t, "acct_1", fake.Transfers[0].Destination)

	paid, err := store.GetBySourcePayment(ctx, "in_due")
	require.NoError(t, err)
	assert.Equal(t, commission.StatusPaid, paid.Status)
	assert.NotEmpty(t, paid.TransferID)
	require.NotNil(t, paid.PaidOutAt)

	sum, err = runner.RunDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, commission.RunSummary{Skipped: 1}, sum)
	assert.Equal(t, 1, fake.TransferCount())

	later, err := store.GetBySourcePayment(ctx, "in_later")
	require.NoError(t, err)
	assert.Equal(t, commission.StatusPending, later.Status)
}

func TestRunner_TransferFailureLeavesPending(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := commission.NewMemoryStore()
	p := newPayment("in_fail", 800)
	_, _, err := commission.NewService(store).Record(ctx, p)
	require.NoError(t, err)

	fake := paymenttest.New()
	fake.TransferErr = errors.New("stripe down")
	runner := commission.NewRunner(store, fake, destinations{p.PhotographerID: "acct_1"})

	sum, err := runner.RunDue(ctx, paidAt.Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)

	rec, err := store.GetBySourcePayment(ctx, "in_fail")
	require.NoError(t, err)
	assert.Equal(t, commission.StatusPending, rec.Status)

	fake.TransferErr = nil
	sum, err = runner.RunDue(ctx, paidAt.Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Paid)
}

func TestMemoryStore_MarkPaidTwice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := commission.NewMemoryStore()
	rec, _, err := commission.NewService(store).Record(ctx, newPayment("in_twice", 800))
	require.NoError(t, err)

	require.NoError(t, store.MarkPaid(ctx, rec.ID, "tr_1", paidAt))
	require.ErrorIs(t, store.MarkPaid(ctx, rec.ID, "tr_2", paidAt), commission.ErrAlreadyPaid)
	require.ErrorIs(t, store.MarkPaid(ctx, uuid.New(), "tr_3", paidAt), commission.ErrNotFound)
}
