package system

import (
	"time"

	"github.com/l1jgo/eventcopy/internal/core/event"
	coresys "github.com/l1jgo/eventcopy/internal/core/system"
	"github.com/l1jgo/eventcopy/internal/data"
	"github.com/l1jgo/eventcopy/internal/world"
	"go.uber.org/zap"
)

// CopySystem drains the active map's copy queue. Only the head request is
// looked at: while its source map is still loading nothing behind it is
// processed, even requests whose source is already cached. A ready head is
// materialized and draining continues within the same tick.
// Phase 3 (Update).
type CopySystem struct {
	world     *world.State
	loader    data.MapLoader
	bus       *event.Bus
	log       *zap.Logger
	stallWarn int

	// head-of-line wait tracking
	waitMap    *world.MapState
	waitTicks  int
	waitWarned bool
}

func NewCopySystem(ws *world.State, loader data.MapLoader, stallWarnTicks int, bus *event.Bus, log *zap.Logger) *CopySystem {
	return &CopySystem{
		world:     ws,
		loader:    loader,
		bus:       bus,
		log:       log,
		stallWarn: stallWarnTicks,
	}
}

func (s *CopySystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *CopySystem) Update(_ time.Duration) {
	m := s.world.Active()
	if m == nil {
		s.resetWait(nil)
		return
	}
	if m != s.waitMap {
		s.resetWait(m)
	}

	q := m.Queue()
	for {
		p, ok := q.Head()
		if !ok {
			s.resetWait(m)
			return
		}

		src, ready, err := s.loader.Get(p.SrcMapID)
		if err != nil {
			q.Pop()
			s.resetWait(m)
			s.fail(m, p, err)
			s.log.Error("複製事件失敗：來源地圖無法載入",
				zap.Int32("map_id", m.ID()),
				zap.Int32("src_map_id", p.SrcMapID),
				zap.Int32("src_event_id", p.SrcEventID),
				zap.Error(err))
			continue
		}
		if !ready {
			s.wait(m, p)
			return
		}

		q.Pop()
		s.resetWait(m)
		s.materialize(m, src, p)
	}
}

func (s *CopySystem) materialize(m *world.MapState, src *data.MapData, p world.CopyParams) {
	res, err := m.Materialize(src, p)
	if err != nil {
		s.fail(m, p, err)
		s.log.Warn("複製事件失敗，已略過",
			zap.Int32("map_id", m.ID()),
			zap.Int32("src_map_id", src.MapID),
			zap.Int32("src_event_id", p.SrcEventID),
			zap.Error(err))
		return
	}

	if res.Evicted != nil {
		s.log.Debug("事件編號已被占用，覆蓋原事件",
			zap.Int32("event_id", res.Event.ID()),
			zap.Stringer("evicted_kind", res.Evicted.Kind()))
	}
	event.Emit(s.bus, event.CopyMaterialized{
		MapID:      m.ID(),
		EventID:    res.Event.ID(),
		SrcMapID:   src.MapID,
		SrcEventID: p.SrcEventID,
		Reused:     res.Reused,
		Evicted:    res.Evicted != nil,
	})
	s.log.Debug("事件複製完成",
		zap.Int32("event_id", res.Event.ID()),
		zap.Int32("src_map_id", src.MapID),
		zap.Int32("src_event_id", p.SrcEventID),
		zap.Bool("reused", res.Reused))
}

func (s *CopySystem) fail(m *world.MapState, p world.CopyParams, err error) {
	event.Emit(s.bus, event.CopyFailed{
		MapID:      m.ID(),
		SrcMapID:   p.SrcMapID,
		SrcEventID: p.SrcEventID,
		Err:        err,
	})
}

// wait counts ticks the head has been blocked and reports a stall once.
func (s *CopySystem) wait(m *world.MapState, p world.CopyParams) {
	s.waitTicks++
	if s.waitWarned || s.stallWarn <= 0 || s.waitTicks <= s.stallWarn {
		return
	}
	s.waitWarned = true
	s.log.Warn("複製佇列等待來源地圖過久",
		zap.Int32("map_id", m.ID()),
		zap.Int32("src_map_id", p.SrcMapID),
		zap.Int("ticks", s.waitTicks),
		zap.Int("queued", m.Queue().Len()))
	event.Emit(s.bus, event.LoadStalled{MapID: m.ID(), SrcMapID: p.SrcMapID, Ticks: s.waitTicks})
}

func (s *CopySystem) resetWait(m *world.MapState) {
	s.waitMap = m
	s.waitTicks = 0
	s.waitWarned = false
}

// WaitTicks returns how many ticks the current head has been blocked.
func (s *CopySystem) WaitTicks() int { return s.waitTicks }
