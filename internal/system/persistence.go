package system

import (
	"context"
	"slices"
	"time"

	"github.com/l1jgo/eventcopy/internal/core/event"
	coresys "github.com/l1jgo/eventcopy/internal/core/system"
	"github.com/l1jgo/eventcopy/internal/persist"
	"github.com/l1jgo/eventcopy/internal/world"
	"go.uber.org/zap"
)

// Journal records copy lifecycle entries.
type Journal interface {
	Write(ctx context.Context, entries []persist.JournalEntry) error
}

// PersistenceSystem periodically writes changed copy lists to the durable
// store. The active map is checkpointed first so a crash loses at most one
// interval. Phase 5 (Persist).
type PersistenceSystem struct {
	world     *world.State
	bus       *event.Bus
	saves     *persist.SaveData
	store     persist.CopyStore
	journal   Journal // nil disables journaling
	pending   []persist.JournalEntry
	log       *zap.Logger
	tickCount int
	interval  int // flush every N ticks
}

func NewPersistenceSystem(ws *world.State, saves *persist.SaveData, store persist.CopyStore, journal Journal, bus *event.Bus, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	s := &PersistenceSystem{
		world:    ws,
		bus:      bus,
		saves:    saves,
		store:    store,
		journal:  journal,
		log:      log,
		interval: intervalTicks,
	}
	if journal != nil {
		event.Subscribe(bus, func(e event.CopyMaterialized) {
			s.pending = append(s.pending, persist.JournalEntry{
				Op: "copy", MapID: e.MapID, EventID: e.EventID,
				SrcMapID: e.SrcMapID, SrcEventID: e.SrcEventID, Reused: e.Reused,
			})
		})
		event.Subscribe(bus, func(e event.CopyErased) {
			s.pending = append(s.pending, persist.JournalEntry{Op: "erase", MapID: e.MapID, EventID: e.EventID})
		})
	}
	return s
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Flush()
}

// Stop delivers the events emitted during the final tick, so its copies and
// erases reach the journal, then flushes everything still pending.
func (s *PersistenceSystem) Stop() {
	if s.bus != nil {
		s.bus.SwapBuffers()
		s.bus.DispatchAll()
	}
	s.Flush()
}

// Flush checkpoints the active map and writes everything dirty immediately.
func (s *PersistenceSystem) Flush() {
	s.checkpoint()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	saved := 0
	for _, id := range s.saves.Dirty() {
		list, _ := s.saves.Load(id)
		if err := s.store.SaveCopies(ctx, id, list); err != nil {
			s.log.Error("儲存複製清單失敗", zap.Int32("map_id", id), zap.Error(err))
			continue
		}
		s.saves.MarkClean(id)
		saved++
	}
	if saved > 0 {
		s.log.Info("複製清單已存檔", zap.Int("maps", saved))
	}

	if s.journal != nil && len(s.pending) > 0 {
		if err := s.journal.Write(ctx, s.pending); err != nil {
			s.log.Error("寫入複製日誌失敗", zap.Int("entries", len(s.pending)), zap.Error(err))
			return
		}
		s.pending = s.pending[:0]
	}
}

// checkpoint saves the active map's live copies, followed by the requests
// still queued for it, when they differ from what is saved. Replayed copies
// wait in the queue until their source map loads and must not be dropped
// from the store meanwhile.
func (s *PersistenceSystem) checkpoint() {
	m := s.world.Active()
	if m == nil {
		return
	}
	snap := append(m.Snapshot(), m.Queue().Items()...)
	saved, _ := s.saves.Load(m.ID())
	if slices.Equal(saved, snap) {
		return
	}
	s.saves.Save(m.ID(), snap)
}

// PendingJournal returns the number of journal entries not yet written.
func (s *PersistenceSystem) PendingJournal() int { return len(s.pending) }
