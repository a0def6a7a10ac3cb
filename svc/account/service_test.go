package account_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photovault/photovault/pkg/redis"
	"github.com/photovault/photovault/svc/account"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]account.Status
	sets int
}

func newMapCache() *mapCache { return &mapCache{data: map[string]account.Status{}} }

func (c *mapCache) Get(_ context.Context, key string) (account.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.data[key]
	if !ok {
		return "", redis.ErrCacheMiss
	}
	return st, nil
}

func (c *mapCache) Set(_ context.Context, key string, st account.Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = st
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) add(kind string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, kind)
	return nil
}

func (n *recordingNotifier) GraceStarted(context.Context, account.Account) error {
	return n.add("grace")
}
func (n *recordingNotifier) Suspended(context.Context, account.Account) error {
	return n.add("suspended")
}
func (n *recordingNotifier) Reactivated(context.Context, account.Account) error {
	return n.add("active")
}

func setup(t *testing.T, opts ...account.ServiceOption) (account.Service, *account.Account, *fixedClock) {
	t.Helper()
	clock := &fixedClock{now: t0}
	opts = append([]account.ServiceOption{account.WithClock(clock.Now)}, opts...)
	svc := account.NewService(account.NewMemoryStore(), opts...)
	acc, err := svc.Create(context.Background(), account.Account{UserID: uuid.New(), ProviderSubscriptionID: "sub_1", ProviderCustomerID: "cus_1"})
	require.NoError(t, err)
	return svc, acc, clock
}

func TestService_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	notifier := &recordingNotifier{}
	svc, acc, clock := setup(t, account.WithNotifier(notifier))

	tr, err := svc.PaymentFailed(ctx, acc.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, account.StatusActive, tr.From)
	assert.Equal(t, account.StatusGracePeriod, tr.To)

	got, err := svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastPaymentFailureAt)
	assert.Equal(t, t0, *got.LastPaymentFailureAt)
	assert.Equal(t, account.GracePaymentFailed, got.GraceCause)

	clock.Set(t0.AddDate(0, 0, 90))
	n, err := svc.Sweep(ctx, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err = svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatusSuspended, got.Status)

	tr, err = svc.PaymentSucceeded(ctx, acc.ID, t0.AddDate(0, 0, 200))
	require.NoError(t, err)
	assert.Equal(t, account.StatusSuspended, tr.From)
	assert.Equal(t, account.StatusActive, tr.To)

	got, err = svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastPaymentFailureAt)
	assert.Equal(t, account.GraceNone, got.GraceCause)
	assert.Equal(t, []string{"grace", "suspended", "active"}, notifier.events)
}

func TestService_GraceRecovery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, acc, _ := setup(t)

	_, err := svc.PaymentFailed(ctx, acc.ID, t0)
	require.NoError(t, err)

	tr, err := svc.PaymentSucceeded(ctx, acc.ID, t0.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, account.StatusGracePeriod, tr.From)
	assert.Equal(t, account.StatusActive, tr.To)
}

func TestService_SweepBeforeBoundary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, acc, _ := setup(t)

	_, err := svc.PaymentFailed(ctx, acc.ID, t0)
	require.NoError(t, err)

	n, err := svc.Sweep(ctx, t0.Add(90*24*time.Hour-time.Second))
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatusGracePeriod, got.Status)
}

func TestService_StaleFailureIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, acc, _ := setup(t)

	_, err := svc.PaymentSucceeded(ctx, acc.ID, t0.Add(time.Hour))
	require.NoError(t, err)

	tr, err := svc.PaymentFailed(ctx, acc.ID, t0)
	require.NoError(t, err)
	assert.False(t, tr.Changed())

	got, err := svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatusActive, got.Status)
	assert.Nil(t, got.LastPaymentFailureAt)
}

func TestService_StaleSuccessIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, acc, _ := setup(t)

	_, err := svc.PaymentFailed(ctx, acc.ID, t0)
	require.NoError(t, err)

	tr, err := svc.PaymentSucceeded(ctx, acc.ID, t0.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, tr.Changed())
	assert.Equal(t, account.StatusGracePeriod, tr.To)
}

func TestService_RepeatedFailureKeepsFirstStamp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, acc, _ := setup(t)

	_, err := svc.PaymentFailed(ctx, acc.ID, t0)
	require.NoError(t, err)
	tr, err := svc.PaymentFailed(ctx, acc.ID, t0.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.False(t, tr.Changed())

	got, err := svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, t0, *got.LastPaymentFailureAt)
}

func TestService_CancelScheduledAndReverted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, acc, _ := setup(t)

	tr, err := svc.CancelScheduled(ctx, acc.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, account.StatusGracePeriod, tr.To)

	got, err := svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, got.CancelAtPeriodEnd)
	assert.Equal(t, account.GraceCancelScheduled, got.GraceCause)

	again, err := svc.CancelScheduled(ctx, acc.ID, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, again.Changed())

	tr, err = svc.CancelReverted(ctx, acc.ID, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, account.StatusActive, tr.To)

	got, err = svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, got.CancelAtPeriodEnd)
	assert.Nil(t, got.LastPaymentFailureAt)
}

func TestService_CancelRevertedKeepsPaymentGrace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, acc, _ := setup(t)

	_, err := svc.PaymentFailed(ctx, acc.ID, t0)
	require.NoError(t, err)
	_, err = svc.CancelScheduled(ctx, acc.ID, t0.Add(time.Hour))
	require.NoError(t, err)

	tr, err := svc.CancelReverted(ctx, acc.ID, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, account.StatusGracePeriod, tr.To)

	got, err := svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, got.CancelAtPeriodEnd)
	assert.Equal(t, account.GracePaymentFailed, got.GraceCause)
}

func TestService_SubscriptionEnded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		prepare   func(ctx context.Context, svc account.Service, id uuid.UUID) error
		wantStamp time.Time
	}{
		{
			name:      "from active",
			prepare:   func(context.Context, account.Service, uuid.UUID) error { return nil },
			wantStamp: t0.Add(3 * time.Hour),
		},
		{
			name: "after scheduled cancel was paid through",
			prepare: func(ctx context.Context, svc account.Service, id uuid.UUID) error {
				if _, err := svc.CancelScheduled(ctx, id, t0); err != nil {
					return err
				}
				_, err := svc.PaymentSucceeded(ctx, id, t0.Add(time.Hour))
				return err
			},
			wantStamp: t0.Add(3 * time.Hour),
		},
		{
			name: "during payment grace keeps first stamp",
			prepare: func(ctx context.Context, svc account.Service, id uuid.UUID) error {
				_, err := svc.PaymentFailed(ctx, id, t0)
				return err
			},
			wantStamp: t0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			svc, acc, _ := setup(t)
			require.NoError(t, tt.prepare(ctx, svc, acc.ID))

			_, err := svc.SubscriptionEnded(ctx, acc.ID, t0.Add(3*time.Hour))
			require.NoError(t, err)

			got, err := svc.Get(ctx, acc.ID)
			require.NoError(t, err)
			assert.Equal(t, account.StatusGracePeriod, got.Status)
			assert.Equal(t, account.GraceSubscriptionEnded, got.GraceCause)
			assert.False(t, got.CancelAtPeriodEnd)
			require.NotNil(t, got.LastPaymentFailureAt)
			assert.Equal(t, tt.wantStamp, *got.LastPaymentFailureAt)

			again, err := svc.SubscriptionEnded(ctx, acc.ID, t0.Add(4*time.Hour))
			require.NoError(t, err)
			assert.False(t, again.Changed())
		})
	}
}

func TestService_SubscriptionEndedIsNotReverted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, acc, _ := setup(t)

	_, err := svc.CancelScheduled(ctx, acc.ID, t0)
	require.NoError(t, err)
	_, err = svc.SubscriptionEnded(ctx, acc.ID, t0.Add(time.Hour))
	require.NoError(t, err)

	tr, err := svc.CancelReverted(ctx, acc.ID, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, account.StatusGracePeriod, tr.To)

	tr, err = svc.PaymentSucceeded(ctx, acc.ID, t0.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, account.StatusActive, tr.To)
}

// conflictingStore bumps the stored version before the first n updates.
type conflictingStore struct {
	*account.MemoryStore
	remaining atomic.Int32
}

func (s *conflictingStore) Update(ctx context.Context, acc account.Account) error {
	if s.remaining.Add(-1) >= 0 {
		cur, err := s.MemoryStore.Get(ctx, acc.ID)
		if err != nil {
			return err
		}
		if err := s.MemoryStore.Update(ctx, *cur); err != nil {
			return err
		}
	}
	return s.MemoryStore.Update(ctx, acc)
}

func TestService_VersionConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name      string
		conflicts int32
		wantErr   error
	}{
		{"retried", 2, nil},
		{"gives up", 3, account.ErrVersionConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := &conflictingStore{MemoryStore: account.NewMemoryStore()}
			svc := account.NewService(store, account.WithClock(func() time.Time { return t0 }))
			acc, err := svc.Create(ctx, account.Account{UserID: uuid.New()})
			require.NoError(t, err)

			store.remaining.Store(tt.conflicts)
			_, err = svc.PaymentFailed(ctx, acc.ID, t0)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			got, err := svc.Get(ctx, acc.ID)
			require.NoError(t, err)
			assert.Equal(t, account.StatusGracePeriod, got.Status)
		})
	}
}

func TestService_ConcurrentSuccessAndFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, acc, _ := setup(t)

	_, err := svc.PaymentFailed(ctx, acc.ID, t0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = svc.PaymentSucceeded(ctx, acc.ID, t0.Add(2*time.Hour))
	}()
	go func() {
		defer wg.Done()
		_, _ = svc.PaymentFailed(ctx, acc.ID, t0.Add(time.Hour))
	}()
	wg.Wait()

	got, err := svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatusActive, got.Status)
}

func TestService_EffectiveStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cache := newMapCache()
	svc, acc, clock := setup(t, account.WithStatusCache(cache))

	st, err := svc.EffectiveStatus(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatusActive, st)
	assert.Equal(t, 1, cache.sets)

	st, err = svc.EffectiveStatus(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatusActive, st)
	assert.Equal(t, 1, cache.sets, "second read served from cache")

	_, err = svc.PaymentFailed(ctx, acc.ID, t0)
	require.NoError(t, err)

	st, err = svc.EffectiveStatus(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatusGracePeriod, st, "transition invalidates cache")

	require.NoError(t, cache.Delete(ctx, acc.ID.String()))
	clock.Set(t0.AddDate(0, 0, 90))
	st, err = svc.EffectiveStatus(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatusSuspended, st, "expired grace reads as suspended before sweep")
}

func TestService_Resolve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, acc, _ := setup(t)

	byID, err := svc.Resolve(ctx, acc.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, byID.ID)

	bySub, err := svc.Resolve(ctx, uuid.Nil, "sub_1", "")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, bySub.ID)

	byCus, err := svc.Resolve(ctx, uuid.Nil, "sub_unknown", "cus_1")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, byCus.ID)

	_, err = svc.Resolve(ctx, uuid.Nil, "", "")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestService_SwitchBilling(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, acc, _ := setup(t)

	prev, err := svc.SwitchBilling(ctx, acc.ID, "cus_2", "sub_2")
	require.NoError(t, err)
	assert.Equal(t, "sub_1", prev)

	prev, err = svc.SwitchBilling(ctx, acc.ID, "cus_2", "sub_2")
	require.NoError(t, err)
	assert.Empty(t, prev)

	got, err := svc.Resolve(ctx, uuid.Nil, "sub_2", "")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
}

func TestService_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := account.NewService(account.NewMemoryStore())

	_, err := svc.Create(ctx, account.Account{})
	assert.ErrorIs(t, err, account.ErrInvalidAccount)

	user := uuid.New()
	_, err = svc.Create(ctx, account.Account{UserID: user})
	require.NoError(t, err)
	_, err = svc.Create(ctx, account.Account{UserID: user})
	assert.True(t, errors.Is(err, account.ErrAlreadyExists))
}

func TestNewService_PanicsWithoutStore(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { account.NewService(nil) })
}
