package system

import (
	"testing"
	"time"

	"github.com/l1jgo/eventcopy/internal/core/event"
	coresys "github.com/l1jgo/eventcopy/internal/core/system"
	"github.com/l1jgo/eventcopy/internal/data"
	"github.com/l1jgo/eventcopy/internal/persist"
	"github.com/l1jgo/eventcopy/internal/world"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/poll"
)

const tickRate = 16 * time.Millisecond

// harness wires the copy pipeline the way main does, over in-memory maps.
type harness struct {
	src      *data.MemSource
	ws       *world.State
	bus      *event.Bus
	loader   data.MapLoader
	saves    *persist.SaveData
	copies   *CopySystem
	transfer *TransferSystem
	present  *LogPresenter
	stats    *CopyStats
	runner   *coresys.Runner
}

type harnessOptions struct {
	reuse      world.ReusePolicy
	stallTicks int
	slot       bool
	noPresent  bool
}

func defs(ids ...int32) []*data.EventData {
	out := make([]*data.EventData, 0, len(ids))
	for _, id := range ids {
		out = append(out, &data.EventData{
			ID: id, Name: "ev", X: id, Y: id,
			Pages: []data.EventPage{{Image: data.EventImage{CharacterName: "Actor1"}}},
		})
	}
	return out
}

func mapOf(t *testing.T, id int32, events ...*data.EventData) *data.MapData {
	t.Helper()
	m, err := data.NewMapData(id, "", 20, 15, events)
	assert.NilError(t, err)
	return m
}

// standardMaps: 1 = start map with natives 1,2; 2 and 3 = sources; 4 = empty.
func standardMaps(t *testing.T) []*data.MapData {
	return []*data.MapData{
		mapOf(t, 1, defs(1, 2)...),
		mapOf(t, 2, defs(1, 5)...),
		mapOf(t, 3, defs(1, 2, 3)...),
		mapOf(t, 4),
	}
}

func newHarness(t *testing.T, opts harnessOptions, maps ...*data.MapData) *harness {
	t.Helper()
	log := zap.NewNop()
	h := &harness{
		src:   data.NewMemSource(maps...),
		ws:    world.NewState(),
		bus:   event.NewBus(),
		saves: persist.NewSaveData(),
	}
	if opts.slot {
		h.loader = data.NewSlotLoader(h.src, h.ws.ActiveMapID, h.bus, log)
	} else {
		h.loader = data.NewFutureLoader(h.src, h.ws.ActiveMapID, log)
	}
	mapOpts := world.MapOptions{MinCopyID: 100, Reuse: opts.reuse}
	h.transfer = NewTransferSystem(h.ws, h.loader, h.saves, mapOpts, h.bus, log)
	h.copies = NewCopySystem(h.ws, h.loader, opts.stallTicks, h.bus, log)
	h.present = NewLogPresenter(log)
	h.stats = NewCopyStats(h.bus, log)

	h.runner = coresys.NewRunner()
	h.runner.Register(NewEventDispatchSystem(h.bus))
	h.runner.Register(h.transfer)
	h.runner.Register(h.copies)
	if !opts.noPresent {
		h.runner.Register(NewPresentSystem(h.ws, h.present))
	}
	h.runner.Register(NewCleanupSystem(h.ws, h.bus))
	return h
}

func (h *harness) tick() { h.runner.Tick(tickRate) }

func (h *harness) ticks(n int) {
	for range n {
		h.tick()
	}
}

// tickUntil ticks until cond holds, giving background loads time to land.
func (h *harness) tickUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		h.tick()
		if cond() {
			return poll.Success()
		}
		return poll.Continue("waiting for %s", what)
	}, poll.WithDelay(time.Millisecond), poll.WithTimeout(2*time.Second))
}

// enter transfers to mapID and waits until it is in play.
func (h *harness) enter(t *testing.T, mapID int32) *world.MapState {
	t.Helper()
	assert.NilError(t, h.ws.RequestTransfer(mapID, false))
	h.tickUntil(t, "map entry", func() bool {
		m := h.ws.Active()
		return m != nil && m.ID() == mapID && !h.transfer.Loading()
	})
	return h.ws.Active()
}

// warm loads mapID into the loader cache.
func (h *harness) warm(t *testing.T, mapID int32) {
	t.Helper()
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		_, ready, err := h.loader.Get(mapID)
		if err != nil {
			return poll.Error(err)
		}
		if ready {
			return poll.Success()
		}
		return poll.Continue("map %d loading", mapID)
	}, poll.WithDelay(time.Millisecond), poll.WithTimeout(2*time.Second))
}

func (h *harness) enqueue(t *testing.T, p world.CopyParams) {
	t.Helper()
	assert.NilError(t, h.ws.EnqueueCopy(p))
}

// copiesOf returns the live copies of the active map in id order.
func (h *harness) copiesOf() []*world.CopiedEvent {
	var out []*world.CopiedEvent
	h.ws.Active().EachEvent(func(ev world.Event) bool {
		if c, ok := ev.(*world.CopiedEvent); ok && !c.Erased() {
			out = append(out, c)
		}
		return true
	})
	return out
}
