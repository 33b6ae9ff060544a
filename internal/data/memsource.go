package data

import (
	"context"
	"fmt"
	"sync"
)

// MemSource serves maps from memory. Individual maps can be held so that
// their fetch blocks until released, which lets callers control when a load
// completes.
type MemSource struct {
	mu      sync.Mutex
	maps    map[int32]*MapData
	gates   map[int32]chan struct{}
	fetches map[int32]int
}

func NewMemSource(maps ...*MapData) *MemSource {
	s := &MemSource{
		maps:    make(map[int32]*MapData, len(maps)),
		gates:   make(map[int32]chan struct{}),
		fetches: make(map[int32]int),
	}
	for _, m := range maps {
		s.maps[m.MapID] = m
	}
	return s
}

func (s *MemSource) Put(m *MapData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maps[m.MapID] = m
}

// Hold makes fetches of mapID block until Release.
func (s *MemSource) Hold(mapID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.gates[mapID]; !ok {
		s.gates[mapID] = make(chan struct{})
	}
}

func (s *MemSource) Release(mapID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.gates[mapID]; ok {
		close(g)
		delete(s.gates, mapID)
	}
}

// Fetches returns how many times mapID was fetched.
func (s *MemSource) Fetches(mapID int32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[mapID]
}

func (s *MemSource) Fetch(ctx context.Context, mapID int32) (*MapData, error) {
	s.mu.Lock()
	s.fetches[mapID]++
	gate := s.gates[mapID]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.maps[mapID]
	if !ok {
		return nil, fmt.Errorf("map %d: %w", mapID, ErrMapNotFound)
	}
	return m, nil
}
