// Package ledger records which billing provider notifications have been
// applied so that at-least-once delivery produces exactly-once effects.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/photovault/photovault/pkg/logger"
	"github.com/photovault/photovault/pkg/txn"
)

// ProcessedEvent marks a notification whose effects have been applied.
type ProcessedEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Store persists processed events. Insert reports inserted=false when the
// event id already exists; uniqueness is enforced by the store itself.
type Store interface {
	Insert(ctx context.Context, ev ProcessedEvent) (inserted bool, err error)
	Exists(ctx context.Context, eventID string) (bool, error)
}

// Handler applies the effects of one notification.
type Handler func(ctx context.Context) error

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the ledger logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(lg *Ledger) {
		if l != nil {
			lg.log = l
		}
	}
}

// WithClock replaces time.Now for processed_at stamps.
func WithClock(now func() time.Time) Option {
	return func(lg *Ledger) {
		if now != nil {
			lg.now = now
		}
	}
}

// Ledger guards handlers with the processed event table.
//
// With a transactional runner the marker insert and the handler share one
// transaction, so a duplicate insert means the effects are already
// committed. Without one the marker is written only after the handler
// succeeds and concurrent deliveries of the same id are rejected with
// ErrEventInFlight while the first is running.
type Ledger struct {
	store    Store
	runner   txn.Runner
	inflight *claims
	log      *slog.Logger
	now      func() time.Time
}

// New returns a Ledger. runner scopes each Apply; nil means txn.Nop, for
// stores without transactions.
func New(store Store, runner txn.Runner, opts ...Option) *Ledger {
	if store == nil {
		panic("ledger: Store is required")
	}
	if runner == nil {
		runner = txn.Nop{}
	}
	l := &Ledger{
		store:    store,
		runner:   runner,
		inflight: newClaims(),
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Apply runs handler at most once per eventID. applied is false when the
// event had already been processed; that case is a success.
func (l *Ledger) Apply(ctx context.Context, eventID, eventType string, handler Handler) (applied bool, err error) {
	if eventID == "" || eventType == "" {
		return false, fmt.Errorf("%w: event id and type are required", ErrInvalidEvent)
	}
	if handler == nil {
		return false, fmt.Errorf("%w: handler is required", ErrInvalidEvent)
	}

	log := l.log.With(logger.EventID(eventID), logger.EventType(eventType))
	marker := ProcessedEvent{EventID: eventID, EventType: eventType}

	if txn.IsTransactional(l.runner) {
		err = l.runner.WithinTx(ctx, func(ctx context.Context) error {
			marker.ProcessedAt = l.now()
			inserted, err := l.store.Insert(ctx, marker)
			if err != nil {
				return errors.Join(ErrStoreFailure, err)
			}
			if !inserted {
				return nil
			}
			if err := handler(ctx); err != nil {
				return errors.Join(ErrHandlerFailed, err)
			}
			applied = true
			return nil
		})
		if err != nil {
			applied = false
			log.ErrorContext(ctx, "event not applied", logger.Error(err))
			return false, err
		}
		if !applied {
			log.InfoContext(ctx, "duplicate event skipped")
		}
		return applied, nil
	}

	if !l.inflight.acquire(eventID) {
		return false, ErrEventInFlight
	}
	defer l.inflight.release(eventID)

	done, err := l.store.Exists(ctx, eventID)
	if err != nil {
		return false, errors.Join(ErrStoreFailure, err)
	}
	if done {
		log.InfoContext(ctx, "duplicate event skipped")
		return false, nil
	}

	if err := handler(ctx); err != nil {
		log.ErrorContext(ctx, "event handler failed", logger.Error(err))
		return false, errors.Join(ErrHandlerFailed, err)
	}

	marker.ProcessedAt = l.now()
	inserted, err := l.store.Insert(ctx, marker)
	if err != nil {
		log.ErrorContext(ctx, "event applied but not recorded", logger.Error(err))
		return false, errors.Join(ErrStoreFailure, err)
	}
	return inserted, nil
}
