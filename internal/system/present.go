package system

import (
	"time"

	coresys "github.com/l1jgo/eventcopy/internal/core/system"
	"github.com/l1jgo/eventcopy/internal/world"
	"go.uber.org/zap"
)

// Presenter is the rendering side of the game. It is told about every event
// that appears or is erased in the active map and is reset when the map
// changes.
type Presenter interface {
	Reset(mapID int32)
	Spawn(ev world.Event)
	Retire(ev world.Event)
}

// PresentSystem hands the active map's per-tick output to the presenter.
// Phase 4 (Output).
type PresentSystem struct {
	world     *world.State
	presenter Presenter
	shown     *world.MapState
}

func NewPresentSystem(ws *world.State, p Presenter) *PresentSystem {
	return &PresentSystem{world: ws, presenter: p}
}

func (s *PresentSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *PresentSystem) Update(_ time.Duration) {
	m := s.world.Active()
	if m != s.shown {
		s.shown = m
		var id int32
		if m != nil {
			id = m.ID()
		}
		s.presenter.Reset(id)
	}
	if m == nil {
		return
	}
	for _, ev := range m.Spawned() {
		s.presenter.Spawn(ev)
	}
	for _, ev := range m.Retired() {
		s.presenter.Retire(ev)
	}
}

// LogPresenter is a headless presenter that tracks which event is shown
// under each id and logs changes. Showing a new event under an id that is
// already shown removes the old one first.
type LogPresenter struct {
	mapID    int32
	shown    map[int32]world.Event
	replaced int
	log      *zap.Logger
}

func NewLogPresenter(log *zap.Logger) *LogPresenter {
	return &LogPresenter{shown: make(map[int32]world.Event), log: log}
}

func (p *LogPresenter) Reset(mapID int32) {
	p.mapID = mapID
	clear(p.shown)
}

func (p *LogPresenter) Spawn(ev world.Event) {
	id := ev.ID()
	if prev, ok := p.shown[id]; ok && prev != ev {
		p.replaced++
		p.log.Debug("移除同編號的舊事件", zap.Int32("map_id", p.mapID), zap.Int32("event_id", id))
	}
	p.shown[id] = ev
	if ev.Kind() == world.KindCopy {
		x, y := ev.Pos()
		p.log.Debug("顯示事件",
			zap.Int32("map_id", p.mapID),
			zap.Int32("event_id", id),
			zap.String("sprite", ev.Definition().Sprite()),
			zap.Int32("x", x), zap.Int32("y", y))
	}
}

func (p *LogPresenter) Retire(ev world.Event) {
	if cur, ok := p.shown[ev.ID()]; ok && cur == ev {
		delete(p.shown, ev.ID())
	}
}

// Shown returns the event shown under id.
func (p *LogPresenter) Shown(id int32) (world.Event, bool) {
	ev, ok := p.shown[id]
	return ev, ok
}

// Count returns the number of shown events.
func (p *LogPresenter) Count() int { return len(p.shown) }

// Replaced returns how many shown events were replaced by another under the
// same id.
func (p *LogPresenter) Replaced() int { return p.replaced }
