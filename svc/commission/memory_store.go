package commission

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a Store for tests and single-process runs.
type MemoryStore struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]*Record
	byPayment map[string]uuid.UUID
}

// NewMemoryStore returns an empty in-process Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:      make(map[uuid.UUID]*Record),
		byPayment: make(map[string]uuid.UUID),
	}
}

func (m *MemoryStore) Create(_ context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byPayment[rec.SourcePaymentID]; ok {
		return ErrDuplicatePayment
	}
	r := rec
	m.byID[rec.ID] = &r
	m.byPayment[rec.SourcePaymentID] = rec.ID
	return nil
}

func (m *MemoryStore) GetBySourcePayment(_ context.Context, paymentID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPayment[paymentID]
	if !ok {
		return nil, ErrNotFound
	}
	r := *m.byID[id]
	return &r, nil
}

func (m *MemoryStore) ListDue(_ context.Context, now time.Time, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, r := range m.byID {
		if r.Status == StatusPending && !r.ScheduledPayoutDate.After(now) {
			out = append(out, *r)
		}
	}
	slices.SortFunc(out, func(a, b Record) int { return a.ScheduledPayoutDate.Compare(b.ScheduledPayoutDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) MarkPaid(_ context.Context, id uuid.UUID, transferID string, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != StatusPending {
		return ErrAlreadyPaid
	}
	r.Status = StatusPaid
	r.TransferID = transferID
	t := paidAt
	r.PaidOutAt = &t
	return nil
}

func (m *MemoryStore) ListByPhotographer(_ context.Context, photographerID uuid.UUID) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, r := range m.byID {
		if r.PhotographerID == photographerID {
			out = append(out, *r)
		}
	}
	slices.SortFunc(out, func(a, b Record) int { return b.PaymentDate.Compare(a.PaymentDate) })
	return out, nil
}
