package family

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memberKey struct {
	account uuid.UUID
	user    uuid.UUID
}

// MemoryStore is a Store for tests and single-process runs. It emulates
// the (account_id, secondary_user_id) unique key and the one-payer index.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Member
	byKey  map[memberKey]uuid.UUID
	payers map[uuid.UUID]uuid.UUID
}

// NewMemoryStore returns an empty in-process Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[uuid.UUID]*Member),
		byKey:  make(map[memberKey]uuid.UUID),
		payers: make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *MemoryStore) Create(_ context.Context, m Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{m.AccountID, m.SecondaryUserID}
	if _, ok := s.byKey[key]; ok {
		return ErrAlreadyMember
	}
	if m.IsBillingPayer {
		if _, ok := s.payers[m.AccountID]; ok {
			return ErrPayerExists
		}
		s.payers[m.AccountID] = m.ID
	}
	cp := m
	s.byID[m.ID] = &cp
	s.byKey[key] = m.ID
	return nil
}

func (s *MemoryStore) Get(_ context.Context, accountID, userID uuid.UUID) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[memberKey{accountID, userID}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) CurrentPayer(ctx context.Context, accountID uuid.UUID) (*Member, error) {
	s.mu.RLock()
	id, ok := s.payers[accountID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *MemoryStore) SetStatus(_ context.Context, id uuid.UUID, status MemberStatus, at time.Time) error {
	return s.update(id, func(m *Member) {
		m.Status = status
		m.UpdatedAt = at
	})
}

func (s *MemoryStore) SetCustomerID(_ context.Context, id uuid.UUID, customerID string, at time.Time) error {
	return s.update(id, func(m *Member) {
		m.ProviderCustomerID = customerID
		m.UpdatedAt = at
	})
}

func (s *MemoryStore) MarkPayer(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if m.IsBillingPayer {
		return nil
	}
	if _, taken := s.payers[m.AccountID]; taken {
		return ErrPayerExists
	}
	s.payers[m.AccountID] = id
	m.IsBillingPayer = true
	t := at
	m.BecamePayerAt = &t
	m.UpdatedAt = at
	return nil
}

func (s *MemoryStore) ListAccepted(_ context.Context, userID uuid.UUID) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Member
	for _, m := range s.byID {
		if m.SecondaryUserID == userID && m.Status == MemberAccepted {
			out = append(out, *m)
		}
	}
	slices.SortFunc(out, func(a, b Member) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *MemoryStore) update(id uuid.UUID, fn func(*Member)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(m)
	return nil
}
