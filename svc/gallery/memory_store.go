package gallery

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

type incKey struct {
	source      uuid.UUID
	destAccount uuid.UUID
}

// MemoryStore is a Store for tests and single-process runs. WithinTx
// serialises callers so that the check and the insert of one copy cannot
// interleave with another; it does not roll back.
type MemoryStore struct {
	txMu sync.Mutex

	mu            sync.RWMutex
	galleries     map[uuid.UUID]Gallery
	photos        map[uuid.UUID][]Photo
	incorporation map[incKey]Incorporation
}

// NewMemoryStore returns an empty in-process Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		galleries:     make(map[uuid.UUID]Gallery),
		photos:        make(map[uuid.UUID][]Photo),
		incorporation: make(map[incKey]Incorporation),
	}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

func (s *MemoryStore) CreateGallery(_ context.Context, g Gallery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.galleries[g.ID] = g
	return nil
}

func (s *MemoryStore) GetGallery(_ context.Context, id uuid.UUID) (*Gallery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.galleries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (s *MemoryStore) CountGalleries(_ context.Context, accountID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, g := range s.galleries {
		if g.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) FirstGallery(_ context.Context, accountID, photographerID uuid.UUID) (*Gallery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var first *Gallery
	for _, g := range s.galleries {
		if g.AccountID != accountID || g.PhotographerID == nil || *g.PhotographerID != photographerID {
			continue
		}
		if first == nil || g.CreatedAt.Before(first.CreatedAt) {
			first = &g
		}
	}
	if first == nil {
		return nil, ErrNotFound
	}
	return first, nil
}

func (s *MemoryStore) ListPhotos(_ context.Context, galleryID uuid.UUID) ([]Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.photos[galleryID])
	slices.SortFunc(out, func(a, b Photo) int { return a.Position - b.Position })
	return out, nil
}

func (s *MemoryStore) CreatePhotos(_ context.Context, photos []Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range photos {
		s.photos[p.GalleryID] = append(s.photos[p.GalleryID], p)
	}
	return nil
}

func (s *MemoryStore) GetIncorporation(_ context.Context, sourceGalleryID, destinationAccountID uuid.UUID) (*Incorporation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.incorporation[incKey{sourceGalleryID, destinationAccountID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &inc, nil
}

func (s *MemoryStore) CreateIncorporation(_ context.Context, inc Incorporation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := incKey{inc.SourceGalleryID, inc.DestinationAccountID}
	if _, ok := s.incorporation[key]; ok {
		return ErrAlreadyIncorporated
	}
	s.incorporation[key] = inc
	return nil
}
