package ledger_test

import (
	"context"
	"errors"
	"maps"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photovault/photovault/pkg/txn"
	"github.com/photovault/photovault/svc/ledger"
)

// txStore emulates a transactional store: one global lock per transaction
// and rollback of inserts when fn fails.
type txStore struct {
	mu     sync.Mutex
	events map[string]ledger.ProcessedEvent
}

func newTxStore() *txStore { return &txStore{events: map[string]ledger.ProcessedEvent{}} }

func (s *txStore) Insert(_ context.Context, ev ledger.ProcessedEvent) (bool, error) {
	if _, ok := s.events[ev.EventID]; ok {
		return false, nil
	}
	s.events[ev.EventID] = ev
	return true, nil
}

func (s *txStore) Exists(_ context.Context, id string) (bool, error) {
	_, ok := s.events[id]
	return ok, nil
}

func (s *txStore) runner() txn.Runner {
	return txn.RunnerFunc(func(ctx context.Context, fn func(context.Context) error) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		snapshot := maps.Clone(s.events)
		if err := fn(ctx); err != nil {
			s.events = snapshot
			return err
		}
		return nil
	})
}

func TestApply_Validation(t *testing.T) {
	t.Parallel()

	l := ledger.New(ledger.NewMemoryStore(), nil)
	noop := func(context.Context) error { return nil }

	_, err := l.Apply(context.Background(), "", "invoice.paid", noop)
	require.ErrorIs(t, err, ledger.ErrInvalidEvent)
	_, err = l.Apply(context.Background(), "evt_1", "", noop)
	require.ErrorIs(t, err, ledger.ErrInvalidEvent)
	_, err = l.Apply(context.Background(), "evt_1", "invoice.paid", nil)
	require.ErrorIs(t, err, ledger.ErrInvalidEvent)
}

func TestApply_Modes(t *testing.T) {
	t.Parallel()

	modes := map[string]func() (*ledger.Ledger, func(string) bool){
		"insert after success": func() (*ledger.Ledger, func(string) bool) {
			store := ledger.NewMemoryStore()
			return ledger.New(store, txn.Nop{}), func(id string) bool {
				ok, _ := store.Exists(context.Background(), id)
				return ok
			}
		},
		"transactional": func() (*ledger.Ledger, func(string) bool) {
			store := newTxStore()
			return ledger.New(store, store.runner()), func(id string) bool {
				store.mu.Lock()
				defer store.mu.Unlock()
				_, ok := store.events[id]
				return ok
			}
		},
	}

	for name, build := range modes {
		t.Run(name+"/duplicate runs handler once", func(t *testing.T) {
			t.Parallel()
			l, _ := build()
			var calls atomic.Int32
			h := func(context.Context) error { calls.Add(1); return nil }

			applied, err := l.Apply(context.Background(), "evt_dup", "invoice.paid", h)
			require.NoError(t, err)
			assert.True(t, applied)

			applied, err = l.Apply(context.Background(), "evt_dup", "invoice.paid", h)
			require.NoError(t, err)
			assert.False(t, applied)
			assert.Equal(t, int32(1), calls.Load())
		})

		t.Run(name+"/failed handler is retried", func(t *testing.T) {
			t.Parallel()
			l, recorded := build()
			boom := errors.New("db down")

			applied, err := l.Apply(context.Background(), "evt_retry", "invoice.paid", func(context.Context) error { return boom })
			require.ErrorIs(t, err, ledger.ErrHandlerFailed)
			require.ErrorIs(t, err, boom)
			assert.False(t, applied)
			assert.False(t, recorded("evt_retry"))

			applied, err = l.Apply(context.Background(), "evt_retry", "invoice.paid", func(context.Context) error { return nil })
			require.NoError(t, err)
			assert.True(t, applied)
			assert.True(t, recorded("evt_retry"))
		})

		t.Run(name+"/concurrent deliveries apply once", func(t *testing.T) {
			t.Parallel()
			l, _ := build()
			var calls atomic.Int32
			h := func(context.Context) error { calls.Add(1); return nil }

			var wg sync.WaitGroup
			for range 50 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := l.Apply(context.Background(), "evt_race", "invoice.paid", h)
					if err != nil {
						assert.ErrorIs(t, err, ledger.ErrEventInFlight)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestApply_InFlight(t *testing.T) {
	t.Parallel()

	l := ledger.New(ledger.NewMemoryStore(), nil)
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = l.Apply(context.Background(), "evt_slow", "invoice.paid", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	_, err := l.Apply(context.Background(), "evt_slow", "invoice.paid", func(context.Context) error { return nil })
	require.ErrorIs(t, err, ledger.ErrEventInFlight)
	close(release)
}
