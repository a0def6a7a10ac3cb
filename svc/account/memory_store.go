package account

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a Store for tests and single-process runs. It enforces the
// one-account-per-user constraint and versioned updates the way the
// database does.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Account
	byUser map[uuid.UUID]uuid.UUID
}

// NewMemoryStore returns an empty in-process Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[uuid.UUID]*Account),
		byUser: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *MemoryStore) Create(_ context.Context, acc Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[acc.ID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := m.byUser[acc.UserID]; ok {
		return ErrAlreadyExists
	}
	if acc.Version == 0 {
		acc.Version = 1
	}
	a := acc
	m.byID[acc.ID] = &a
	m.byUser[acc.UserID] = acc.ID
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*Account, error) {
	m.mu.RLock()
	id, ok := m.byUser[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.Get(ctx, id)
}

func (m *MemoryStore) GetByProviderRef(_ context.Context, subscriptionID, customerID string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if subscriptionID != "" {
		for _, a := range m.byID {
			if a.ProviderSubscriptionID == subscriptionID {
				cp := *a
				return &cp, nil
			}
		}
	}
	if customerID != "" {
		for _, a := range m.byID {
			if a.ProviderCustomerID == customerID {
				cp := *a
				return &cp, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Update(_ context.Context, acc Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[acc.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != acc.Version {
		return ErrVersionConflict
	}
	acc.Version++
	acc.UserID = cur.UserID
	acc.CreatedAt = cur.CreatedAt
	*cur = acc
	return nil
}

func (m *MemoryStore) ListGraceStartedBefore(_ context.Context, cutoff time.Time, limit int) ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Account
	for _, a := range m.byID {
		if a.Status == StatusGracePeriod && a.LastPaymentFailureAt != nil && !a.LastPaymentFailureAt.After(cutoff) {
			out = append(out, *a)
		}
	}
	slices.SortFunc(out, func(a, b Account) int { return a.LastPaymentFailureAt.Compare(*b.LastPaymentFailureAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
