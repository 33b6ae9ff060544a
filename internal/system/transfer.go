package system

import (
	"time"

	"github.com/l1jgo/eventcopy/internal/core/event"
	coresys "github.com/l1jgo/eventcopy/internal/core/system"
	"github.com/l1jgo/eventcopy/internal/data"
	"github.com/l1jgo/eventcopy/internal/persist"
	"github.com/l1jgo/eventcopy/internal/world"
	"go.uber.org/zap"
)

// TransferSystem applies pending map transfers. On exit it snapshots the
// departing map's live copies into the save data and tears the map down; on
// entry it builds the new map once its container is loaded and replays the
// saved copies into the new queue. Phase 2 (Transfer).
type TransferSystem struct {
	world  *world.State
	loader data.MapLoader
	saves  *persist.SaveData
	opts   world.MapOptions
	bus    *event.Bus
	log    *zap.Logger

	target *world.Transfer // waiting for the target container
	from   int32           // last departed map, fallback when entry fails
}

func NewTransferSystem(ws *world.State, loader data.MapLoader, saves *persist.SaveData, opts world.MapOptions, bus *event.Bus, log *zap.Logger) *TransferSystem {
	return &TransferSystem{
		world:  ws,
		loader: loader,
		saves:  saves,
		opts:   opts,
		bus:    bus,
		log:    log,
	}
}

func (s *TransferSystem) Phase() coresys.Phase { return coresys.PhaseTransfer }

func (s *TransferSystem) Update(_ time.Duration) {
	if tr, ok := s.world.PendingTransfer(); ok {
		s.world.ClearTransfer()
		s.begin(tr)
	}
	if s.target == nil {
		return
	}

	md, ready, err := s.loader.Get(s.target.MapID)
	if err != nil {
		failed := s.target.MapID
		s.target = nil
		s.log.Error("地圖載入失敗，無法進入", zap.Int32("map_id", failed), zap.Error(err))
		if s.from != 0 && s.from != failed {
			s.log.Warn("返回原地圖", zap.Int32("map_id", s.from))
			_ = s.world.RequestTransfer(s.from, true)
		}
		return
	}
	if !ready {
		return
	}
	s.enter(md)
}

// Loading reports whether a transfer is waiting for its target container.
func (s *TransferSystem) Loading() bool { return s.target != nil }

func (s *TransferSystem) begin(tr world.Transfer) {
	if cur := s.world.Active(); cur != nil {
		if cur.ID() == tr.MapID && !tr.Reload {
			return
		}
		s.exit(cur)
	}
	s.target = &tr
	s.log.Debug("開始切換地圖", zap.Int32("map_id", tr.MapID), zap.Bool("reload", tr.Reload))
}

func (s *TransferSystem) exit(cur *world.MapState) {
	list := cur.Snapshot()
	s.saves.Save(cur.ID(), list)
	s.from = cur.ID()
	cur.Teardown()
	s.world.SetActive(nil)

	event.Emit(s.bus, event.MapExited{MapID: s.from, Saved: len(list)})
	s.log.Info("離開地圖", zap.Int32("map_id", s.from), zap.Int("saved_copies", len(list)))
}

func (s *TransferSystem) enter(md *data.MapData) {
	m := world.NewMapState(md, s.opts)
	list, _ := s.saves.Load(m.ID())
	for _, p := range list {
		m.Queue().Push(p)
	}
	s.world.SetActive(m)
	s.target = nil

	event.Emit(s.bus, event.MapEntered{MapID: m.ID(), Replayed: len(list)})
	s.log.Info("進入地圖",
		zap.Int32("map_id", m.ID()),
		zap.String("name", md.Name),
		zap.Int("events", md.Count()),
		zap.Int("replayed_copies", len(list)))
}
