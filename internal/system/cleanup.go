package system

import (
	"time"

	"github.com/l1jgo/eventcopy/internal/core/event"
	coresys "github.com/l1jgo/eventcopy/internal/core/system"
	"github.com/l1jgo/eventcopy/internal/world"
)

// CleanupSystem clears the active map's per-tick output queues at tick end,
// whether or not anything consumed them, so no event is announced twice.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	world *world.State
	bus   *event.Bus
}

func NewCleanupSystem(ws *world.State, bus *event.Bus) *CleanupSystem {
	return &CleanupSystem{world: ws, bus: bus}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	m := s.world.Active()
	if m == nil {
		return
	}
	for _, ev := range m.Retired() {
		if ev.Kind() == world.KindCopy {
			event.Emit(s.bus, event.CopyErased{MapID: m.ID(), EventID: ev.ID()})
		}
	}
	m.ClearOutput()
}
