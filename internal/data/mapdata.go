package data

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMapNotFound is returned when a map container file does not exist.
	ErrMapNotFound = errors.New("map not found")
	// ErrLoadSuperseded marks a load whose result was dropped because another
	// map took the single in-flight slot before it completed.
	ErrLoadSuperseded = errors.New("map load superseded")
)

// MaxEventID is the largest event id a map definition or a copy may use.
// Event ids index dense tables, so the ceiling bounds their size.
const MaxEventID int32 = 65535

// EventImage is the character graphic of an event page.
type EventImage struct {
	CharacterName  string `yaml:"character_name"`
	CharacterIndex int    `yaml:"character_index"`
	Direction      int    `yaml:"direction"`
	Pattern        int    `yaml:"pattern"`
	TileID         int    `yaml:"tile_id"`
}

// EventPage is one conditional page of an event definition.
type EventPage struct {
	Trigger  int        `yaml:"trigger"`  // 0=action, 1=player touch, 2=event touch, 3=autorun, 4=parallel
	Priority int        `yaml:"priority"` // 0=below, 1=same as characters, 2=above
	Through  bool       `yaml:"through"`
	Image    EventImage `yaml:"image"`
	Script   string     `yaml:"script,omitempty"`
}

// EventData is the read-only definition of a placed event inside a map file.
type EventData struct {
	ID    int32       `yaml:"id"`
	Name  string      `yaml:"name"`
	Note  string      `yaml:"note,omitempty"`
	X     int32       `yaml:"x"`
	Y     int32       `yaml:"y"`
	Pages []EventPage `yaml:"pages"`
}

// Sprite returns the character graphic of the first page, or "" if none.
func (e *EventData) Sprite() string {
	if len(e.Pages) == 0 {
		return ""
	}
	return e.Pages[0].Image.CharacterName
}

type mapFile struct {
	MapID  int32        `yaml:"map_id"`
	Name   string       `yaml:"name"`
	Width  int32        `yaml:"width"`
	Height int32        `yaml:"height"`
	Events []*EventData `yaml:"events"`
}

// MapData is a loaded map container: its metadata and the event definitions
// indexed by event id. Shared read-only once loaded.
type MapData struct {
	MapID  int32
	Name   string
	Width  int32
	Height int32
	events []*EventData // events[id]; nil holes for unused ids
}

// DecodeMap parses a YAML map container. JSON input is accepted as well since
// it is a YAML subset.
func DecodeMap(raw []byte) (*MapData, error) {
	var f mapFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	return NewMapData(f.MapID, f.Name, f.Width, f.Height, f.Events)
}

// NewMapData builds a MapData from a list of definitions. Ids must be
// positive and unique.
func NewMapData(mapID int32, name string, width, height int32, events []*EventData) (*MapData, error) {
	m := &MapData{MapID: mapID, Name: name, Width: width, Height: height}
	var maxID int32
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if ev.ID <= 0 || ev.ID > MaxEventID {
			return nil, fmt.Errorf("map %d: event %q has invalid id %d (1-%d)", mapID, ev.Name, ev.ID, MaxEventID)
		}
		if ev.ID > maxID {
			maxID = ev.ID
		}
	}
	m.events = make([]*EventData, maxID+1)
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if m.events[ev.ID] != nil {
			return nil, fmt.Errorf("map %d: duplicate event id %d", mapID, ev.ID)
		}
		m.events[ev.ID] = ev
	}
	return m, nil
}

// Event returns the definition with the given id, or nil if not found.
func (m *MapData) Event(id int32) *EventData {
	if id <= 0 || int(id) >= len(m.events) {
		return nil
	}
	return m.events[id]
}

// Events returns the definitions in id order, skipping unused ids.
func (m *MapData) Events() []*EventData {
	out := make([]*EventData, 0, len(m.events))
	for _, ev := range m.events {
		if ev != nil {
			out = append(out, ev)
		}
	}
	return out
}

// Count returns the number of event definitions.
func (m *MapData) Count() int {
	n := 0
	for _, ev := range m.events {
		if ev != nil {
			n++
		}
	}
	return n
}
