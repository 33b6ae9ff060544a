package persist

import (
	"context"
	"slices"
	"sync"

	"github.com/l1jgo/eventcopy/internal/world"
)

// CopyStore is a durable backend for saved copy lists.
type CopyStore interface {
	// SaveCopies replaces the list of mapID. An empty list deletes it.
	SaveCopies(ctx context.Context, mapID int32, list []world.CopyParams) error
	// LoadAll returns every saved list.
	LoadAll(ctx context.Context) (map[int32][]world.CopyParams, error)
	Close() error
}

// MemStore keeps saved lists in process memory. Nothing survives a restart.
type MemStore struct {
	mu    sync.Mutex
	lists map[int32][]world.CopyParams
	saves int
}

func NewMemStore() *MemStore {
	return &MemStore{lists: make(map[int32][]world.CopyParams)}
}

func (s *MemStore) SaveCopies(_ context.Context, mapID int32, list []world.CopyParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if len(list) == 0 {
		delete(s.lists, mapID)
		return nil
	}
	s.lists[mapID] = slices.Clone(list)
	return nil
}

func (s *MemStore) LoadAll(_ context.Context) (map[int32][]world.CopyParams, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int32][]world.CopyParams, len(s.lists))
	for id, list := range s.lists {
		out[id] = slices.Clone(list)
	}
	return out, nil
}

// Saves returns how many SaveCopies calls were made.
func (s *MemStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *MemStore) Close() error { return nil }
