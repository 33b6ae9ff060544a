package world

import "fmt"

// Transfer is a pending move to another map.
type Transfer struct {
	MapID  int32
	Reload bool // re-enter even when MapID is the current map
}

// State is the in-memory game state: the map in play and a pending transfer.
// Accessed only from the game loop goroutine, no locks needed.
type State struct {
	active   *MapState
	transfer *Transfer
}

func NewState() *State {
	return &State{}
}

// Active returns the map in play, or nil between teardown and setup.
func (s *State) Active() *MapState { return s.active }

// ActiveMapID returns the id of the map in play, 0 when there is none.
func (s *State) ActiveMapID() int32 {
	if s.active == nil {
		return 0
	}
	return s.active.ID()
}

// SetActive installs m as the map in play. Passing nil leaves no active map.
func (s *State) SetActive(m *MapState) {
	s.active = m
}

// RequestTransfer schedules a move to mapID, applied by the transfer system
// at the start of the next tick. A later request replaces an earlier one.
func (s *State) RequestTransfer(mapID int32, reload bool) error {
	if mapID <= 0 {
		return fmt.Errorf("invalid map id %d", mapID)
	}
	s.transfer = &Transfer{MapID: mapID, Reload: reload}
	return nil
}

func (s *State) PendingTransfer() (Transfer, bool) {
	if s.transfer == nil {
		return Transfer{}, false
	}
	return *s.transfer, true
}

func (s *State) ClearTransfer() {
	s.transfer = nil
}

// EnqueueCopy appends a copy request to the active map's queue. It only
// records the request; materialization happens on later ticks.
func (s *State) EnqueueCopy(p CopyParams) error {
	if s.active == nil {
		return ErrNoActiveMap
	}
	if p.SrcEventID <= 0 {
		return fmt.Errorf("invalid source event id %d", p.SrcEventID)
	}
	if err := s.active.CheckDesID(p.DesID); err != nil {
		return err
	}
	s.active.Queue().Push(p)
	return nil
}

// Erase erases an event of the active map.
func (s *State) Erase(id int32) (Event, error) {
	if s.active == nil {
		return nil, ErrNoActiveMap
	}
	return s.active.Erase(id)
}

// Move moves an event of the active map.
func (s *State) Move(id, x, y int32) error {
	if s.active == nil {
		return ErrNoActiveMap
	}
	return s.active.Move(id, x, y)
}
