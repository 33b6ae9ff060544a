package world

import "github.com/l1jgo/eventcopy/internal/data"

// Kind tells native events from copied ones.
type Kind uint8

const (
	KindNative Kind = iota // authored in the active map's own file
	KindCopy               // materialized from another map at runtime
)

func (k Kind) String() string {
	if k == KindCopy {
		return "copy"
	}
	return "native"
}

// Event is a placed event in the active map. Native and copied events share
// one id space and are handled through this interface by the registry, the
// presenter and the persistence snapshot.
type Event interface {
	ID() int32
	Kind() Kind
	Pos() (x, y int32)
	SetPos(x, y int32)
	Definition() *data.EventData
	Erased() bool
}

// placed holds the state common to every event kind.
type placed struct {
	id     int32
	x, y   int32
	def    *data.EventData
	erased bool
}

func (p *placed) ID() int32                   { return p.id }
func (p *placed) Pos() (int32, int32)         { return p.x, p.y }
func (p *placed) SetPos(x, y int32)           { p.x, p.y = x, y }
func (p *placed) Definition() *data.EventData { return p.def }
func (p *placed) Erased() bool                { return p.erased }

// NativeEvent is an event authored in the active map itself.
type NativeEvent struct {
	placed
}

func newNativeEvent(def *data.EventData) *NativeEvent {
	return &NativeEvent{placed{id: def.ID, x: def.X, y: def.Y, def: def}}
}

func (*NativeEvent) Kind() Kind { return KindNative }

// CopyParams is a copy request: which event of which map to duplicate, where
// to put it and under which id. DesID 0 asks for an automatically assigned id.
// It is also the unit saved per map for reconstruction on re-entry.
type CopyParams struct {
	SrcMapID   int32 `json:"src_map_id" yaml:"src_map_id"`
	SrcEventID int32 `json:"src_event_id" yaml:"src_event_id"`
	X          int32 `json:"x" yaml:"x"`
	Y          int32 `json:"y" yaml:"y"`
	DesID      int32 `json:"des_id" yaml:"des_id"`
}

// CopiedEvent is an event whose definition was taken, by reference, from
// another map. Erased copies are kept in the map's pool and re-initialized
// in place for later requests.
type CopiedEvent struct {
	placed
	mapID  int32
	params CopyParams
}

func (*CopiedEvent) Kind() Kind { return KindCopy }

// MapID is the map the copy lives in (not the source map).
func (c *CopiedEvent) MapID() int32 { return c.mapID }

// Params returns the request that produced the copy.
func (c *CopiedEvent) Params() CopyParams { return c.params }

// SaveParams returns the request with the position replaced by the live
// position, the form persisted on map exit.
func (c *CopiedEvent) SaveParams() CopyParams {
	p := c.params
	p.X, p.Y = c.x, c.y
	return p
}

// reset (re)initializes the copy in place.
func (c *CopiedEvent) reset(mapID, id int32, def *data.EventData, p CopyParams) {
	c.mapID = mapID
	c.params = p
	c.placed = placed{id: id, x: p.X, y: p.Y, def: def}
}
