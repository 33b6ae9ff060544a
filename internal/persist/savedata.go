package persist

import (
	"slices"

	"github.com/l1jgo/eventcopy/internal/world"
)

// SaveData holds the saved copy list of every map, keyed by map id. It is
// the only state that crosses map boundaries. Each map exit replaces the
// list of the departing map. Accessed only from the game loop goroutine.
type SaveData struct {
	lists map[int32][]world.CopyParams
	dirty map[int32]struct{}
}

func NewSaveData() *SaveData {
	return &SaveData{
		lists: make(map[int32][]world.CopyParams),
		dirty: make(map[int32]struct{}),
	}
}

// Save replaces the list of mapID. An empty list removes the entry.
func (s *SaveData) Save(mapID int32, list []world.CopyParams) {
	if len(list) == 0 {
		delete(s.lists, mapID)
	} else {
		s.lists[mapID] = slices.Clone(list)
	}
	s.dirty[mapID] = struct{}{}
}

// Load returns a copy of the list saved for mapID.
func (s *SaveData) Load(mapID int32) ([]world.CopyParams, bool) {
	list, ok := s.lists[mapID]
	if !ok {
		return nil, false
	}
	return slices.Clone(list), true
}

// Maps returns the ids of maps with a saved list, ascending.
func (s *SaveData) Maps() []int32 {
	ids := make([]int32, 0, len(s.lists))
	for id := range s.lists {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Dirty returns the ids changed since they were last marked clean, ascending.
func (s *SaveData) Dirty() []int32 {
	ids := make([]int32, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *SaveData) MarkClean(mapID int32) {
	delete(s.dirty, mapID)
}

// Restore replaces everything with lists loaded from a backend.
func (s *SaveData) Restore(all map[int32][]world.CopyParams) {
	s.lists = make(map[int32][]world.CopyParams, len(all))
	s.dirty = make(map[int32]struct{})
	for id, list := range all {
		if len(list) > 0 {
			s.lists[id] = slices.Clone(list)
		}
	}
}
