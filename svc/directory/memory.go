package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Directory seeded with Put calls.
type Memory struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]User
	photographers map[uuid.UUID]Photographer
}

// NewMemory returns an empty directory for tests and local runs.
func NewMemory() *Memory {
	return &Memory{
		users:         make(map[uuid.UUID]User),
		photographers: make(map[uuid.UUID]Photographer),
	}
}

func (m *Memory) PutUser(u User) {
	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()
}

func (m *Memory) PutPhotographer(p Photographer) {
	m.mu.Lock()
	m.photographers[p.ID] = p
	m.mu.Unlock()
}

func (m *Memory) User(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *Memory) Photographer(_ context.Context, id uuid.UUID) (*Photographer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.photographers[id]
	if !ok {
		return nil, ErrPhotographerNotFound
	}
	return &p, nil
}

func (m *Memory) PayoutDestination(ctx context.Context, photographerID uuid.UUID) (string, error) {
	p, err := m.Photographer(ctx, photographerID)
	if err != nil {
		return "", err
	}
	return p.StripeConnectAccountID, nil
}
