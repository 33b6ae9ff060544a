package world

import (
	"errors"
	"fmt"

	"github.com/l1jgo/eventcopy/internal/core/ecs"
	"github.com/l1jgo/eventcopy/internal/data"
)

var (
	// ErrEventNotFound is returned when a copy request names an event id
	// that does not exist in the loaded source map.
	ErrEventNotFound = errors.New("event definition not found")
	// ErrNoSuchEvent is returned when no live event occupies an id.
	ErrNoSuchEvent = errors.New("no such event")
	// ErrNoActiveMap is returned for requests made while no map is in play.
	ErrNoActiveMap = errors.New("no active map")
	// ErrEventIDRange is returned for ids above the map's MaxEventID.
	ErrEventIDRange = errors.New("event id out of range")
)

// ReusePolicy decides which id a copy drawn from the pool ends up with.
type ReusePolicy uint8

const (
	// ReuseKeepID keeps the id the pooled copy had before it was erased; the
	// id resolved for the new request is discarded.
	ReuseKeepID ReusePolicy = iota
	// ReuseAdoptID moves the pooled copy to the id resolved for the request.
	ReuseAdoptID
)

func ParseReusePolicy(s string) (ReusePolicy, error) {
	switch s {
	case "keep", "":
		return ReuseKeepID, nil
	case "adopt":
		return ReuseAdoptID, nil
	}
	return ReuseKeepID, fmt.Errorf("unknown reuse policy %q", s)
}

type MapOptions struct {
	MinCopyID  int32 // auto-assigned ids are always above this
	MaxEventID int32 // no copy is placed above this; 0 or above data.MaxEventID means data.MaxEventID
	Reuse      ReusePolicy
}

// Materialized describes the outcome of one copy.
type Materialized struct {
	Event   *CopiedEvent
	Reused  bool  // drawn from the pool
	Evicted Event // previous live occupant of the id, if any
}

// MapState is everything owned by the map currently in play: the event
// index, the copy queue, the retired-copy pool and the per-tick output
// queues. It is built on map entry and dropped on exit; only the saved copy
// parameters outlive it.
//
// Accessed only from the game loop goroutine.
type MapState struct {
	data    *data.MapData
	opts    MapOptions
	events  *ecs.Index[Event]
	pool    *ecs.Pool[*CopiedEvent]
	queue   CopyQueue
	spawned []Event
	retired []Event
}

// NewMapState sets up a map from its container, placing its native events.
func NewMapState(md *data.MapData, opts MapOptions) *MapState {
	if opts.MaxEventID <= 0 || opts.MaxEventID > data.MaxEventID {
		opts.MaxEventID = data.MaxEventID
	}
	m := &MapState{
		data:   md,
		opts:   opts,
		events: ecs.NewIndex[Event](md.Count() + 8),
		pool:   ecs.NewPool[*CopiedEvent](8),
	}
	for _, def := range md.Events() {
		ev := newNativeEvent(def)
		m.events.Set(def.ID, ev)
		m.spawned = append(m.spawned, ev)
	}
	return m
}

func (m *MapState) ID() int32           { return m.data.MapID }
func (m *MapState) Data() *data.MapData { return m.data }
func (m *MapState) Queue() *CopyQueue   { return &m.queue }

// Len is the length of the event index: the highest id ever assigned + 1.
func (m *MapState) Len() int { return m.events.Len() }

// Count is the number of occupied ids, erased events included.
func (m *MapState) Count() int { return m.events.Count() }

// MaxEventID is the highest id a copy may occupy.
func (m *MapState) MaxEventID() int32 { return m.opts.MaxEventID }

// CheckDesID validates a requested destination id; 0 asks for auto-assignment.
func (m *MapState) CheckDesID(id int32) error {
	if id < 0 || id > m.opts.MaxEventID {
		return fmt.Errorf("destination id %d: %w (max %d)", id, ErrEventIDRange, m.opts.MaxEventID)
	}
	return nil
}

// PoolLen is the number of retired copies waiting for reuse.
func (m *MapState) PoolLen() int { return m.pool.Len() }

// Event resolves an id to the event occupying it.
func (m *MapState) Event(id int32) (Event, bool) {
	return m.events.Get(id)
}

// EachEvent visits events in id order.
func (m *MapState) EachEvent(fn func(Event) bool) {
	m.events.Each(func(_ int32, ev Event) bool { return fn(ev) })
}

// ResolveID returns the id a request with desID would be placed at, ignoring
// pool reuse. desID 0 picks max(index length, MinCopyID+1).
func (m *MapState) ResolveID(desID int32) int32 {
	if desID != 0 {
		return desID
	}
	id := int32(m.events.Len())
	if floor := m.opts.MinCopyID + 1; id < floor {
		id = floor
	}
	return id
}

// Materialize turns a request into a live copied event using the loaded
// source map. A retired copy is reused when available. An occupied target id
// is taken over silently; the previous occupant is returned in Evicted.
func (m *MapState) Materialize(src *data.MapData, p CopyParams) (Materialized, error) {
	def := src.Event(p.SrcEventID)
	if def == nil {
		return Materialized{}, fmt.Errorf("map %d event %d: %w", src.MapID, p.SrcEventID, ErrEventNotFound)
	}
	if err := m.CheckDesID(p.DesID); err != nil {
		return Materialized{}, err
	}

	id := m.ResolveID(p.DesID)
	keep := m.pool.Len() > 0 && m.opts.Reuse == ReuseKeepID
	if !keep && id > m.opts.MaxEventID {
		return Materialized{}, fmt.Errorf("no free event id at or below %d: %w", m.opts.MaxEventID, ErrEventIDRange)
	}
	var res Materialized
	c, ok := m.pool.Pop()
	if ok {
		res.Reused = true
		switch m.opts.Reuse {
		case ReuseKeepID:
			id = c.id
		case ReuseAdoptID:
			if cur, ok := m.events.Get(c.id); ok && cur == Event(c) {
				m.events.Remove(c.id)
			}
		}
	} else {
		c = &CopiedEvent{}
	}

	c.reset(m.ID(), id, def, p)
	if prev, replaced := m.events.Set(id, c); replaced && prev != Event(c) {
		res.Evicted = prev
	}
	m.spawned = append(m.spawned, c)
	res.Event = c
	return res, nil
}

// Erase hides an event. Copies are retired into the pool; native events only
// stay hidden until the map is set up again. Erasing twice is a no-op.
func (m *MapState) Erase(id int32) (Event, error) {
	ev, ok := m.events.Get(id)
	if !ok {
		return nil, fmt.Errorf("event %d: %w", id, ErrNoSuchEvent)
	}
	if ev.Erased() {
		return ev, nil
	}
	switch e := ev.(type) {
	case *CopiedEvent:
		e.erased = true
		m.pool.Push(e)
	case *NativeEvent:
		e.erased = true
	}
	m.retired = append(m.retired, ev)
	return ev, nil
}

// Move sets the live position of an event.
func (m *MapState) Move(id, x, y int32) error {
	ev, ok := m.events.Get(id)
	if !ok || ev.Erased() {
		return fmt.Errorf("event %d: %w", id, ErrNoSuchEvent)
	}
	ev.SetPos(x, y)
	return nil
}

// Snapshot returns the save parameters of every live, non-erased copy in id
// order, positions taken from the live events.
func (m *MapState) Snapshot() []CopyParams {
	var out []CopyParams
	m.events.Each(func(_ int32, ev Event) bool {
		if c, ok := ev.(*CopiedEvent); ok && !c.erased {
			out = append(out, c.SaveParams())
		}
		return true
	})
	return out
}

// Spawned returns the events that appeared since the last ClearOutput.
func (m *MapState) Spawned() []Event { return m.spawned }

// Retired returns the events erased since the last ClearOutput.
func (m *MapState) Retired() []Event { return m.retired }

// ClearOutput empties the per-tick output queues.
func (m *MapState) ClearOutput() {
	m.spawned = m.spawned[:0]
	m.retired = m.retired[:0]
}

// Teardown drops everything the map owns. The state must not be used after.
func (m *MapState) Teardown() {
	m.pool.Clear()
	m.queue = CopyQueue{}
	m.spawned = nil
	m.retired = nil
}
