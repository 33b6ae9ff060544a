package system

import (
	"context"
	"errors"
	"testing"

	"github.com/l1jgo/eventcopy/internal/persist"
	"github.com/l1jgo/eventcopy/internal/world"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
)

type fakeJournal struct {
	entries []persist.JournalEntry
	err     error
}

func (j *fakeJournal) Write(_ context.Context, entries []persist.JournalEntry) error {
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, entries...)
	return nil
}

func TestPersistenceSystemFlushesOnInterval(t *testing.T) {
	h := newHarness(t, harnessOptions{}, standardMaps(t)...)
	store := persist.NewMemStore()
	ps := NewPersistenceSystem(h.ws, h.saves, store, nil, h.bus, zap.NewNop(), 3)
	h.runner.Register(ps)

	h.enter(t, 1)
	h.warm(t, 2)
	h.enqueue(t, world.CopyParams{SrcMapID: 2, SrcEventID: 1, X: 6, Y: 6})
	h.ticks(3)

	all, err := store.LoadAll(context.Background())
	assert.NilError(t, err)
	assert.DeepEqual(t, all[1], []world.CopyParams{{SrcMapID: 2, SrcEventID: 1, X: 6, Y: 6}})
	assert.Equal(t, len(h.saves.Dirty()), 0)

	// nothing changed: no further writes
	saves := store.Saves()
	h.ticks(3)
	assert.Equal(t, store.Saves(), saves)
}

func TestPersistenceSystemWritesExitSnapshot(t *testing.T) {
	h := newHarness(t, harnessOptions{}, standardMaps(t)...)
	store := persist.NewMemStore()
	ps := NewPersistenceSystem(h.ws, h.saves, store, nil, h.bus, zap.NewNop(), 1000)

	h.enter(t, 1)
	h.warm(t, 2)
	h.enqueue(t, world.CopyParams{SrcMapID: 2, SrcEventID: 5})
	h.tick()
	h.enter(t, 4)

	ps.Flush()
	all, err := store.LoadAll(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, len(all[1]), 1)
	_, ok := all[4]
	assert.Assert(t, !ok)
}

func TestPersistenceSystemJournal(t *testing.T) {
	h := newHarness(t, harnessOptions{}, standardMaps(t)...)
	j := &fakeJournal{err: errors.New("db down")}
	ps := NewPersistenceSystem(h.ws, h.saves, persist.NewMemStore(), j, h.bus, zap.NewNop(), 1000)

	h.enter(t, 1)
	h.warm(t, 2)
	h.enqueue(t, world.CopyParams{SrcMapID: 2, SrcEventID: 1})
	h.tick()
	_, err := h.ws.Erase(101)
	assert.NilError(t, err)
	h.ticks(2) // erase reported at cleanup, dispatched next tick

	assert.Equal(t, ps.PendingJournal(), 2)
	ps.Flush()
	assert.Equal(t, ps.PendingJournal(), 2)

	j.err = nil
	ps.Stop()
	assert.Equal(t, ps.PendingJournal(), 0)
	assert.DeepEqual(t, j.entries, []persist.JournalEntry{
		{Op: "copy", MapID: 1, EventID: 101, SrcMapID: 2, SrcEventID: 1},
		{Op: "erase", MapID: 1, EventID: 101},
	})
}

func TestCheckpointKeepsReplayedCopiesWhileQueued(t *testing.T) {
	h := newHarness(t, harnessOptions{}, standardMaps(t)...)
	ctx := context.Background()
	store := persist.NewMemStore()
	saved := []world.CopyParams{{SrcMapID: 3, SrcEventID: 2, X: 4, Y: 4}}
	assert.NilError(t, store.SaveCopies(ctx, 1, saved))
	all, err := store.LoadAll(ctx)
	assert.NilError(t, err)
	h.saves.Restore(all)
	ps := NewPersistenceSystem(h.ws, h.saves, store, nil, h.bus, zap.NewNop(), 1000)

	h.src.Hold(3)
	m := h.enter(t, 1)
	assert.Equal(t, m.Queue().Len(), 1)

	ps.Stop()
	all, err = store.LoadAll(ctx)
	assert.NilError(t, err)
	assert.DeepEqual(t, all[1], saved)

	h.src.Release(3)
	h.tickUntil(t, "replayed copy", func() bool { return m.Queue().Len() == 0 })
	ps.Stop()
	all, err = store.LoadAll(ctx)
	assert.NilError(t, err)
	assert.DeepEqual(t, all[1], saved)
}

func TestStopJournalsFinalTick(t *testing.T) {
	h := newHarness(t, harnessOptions{}, standardMaps(t)...)
	j := &fakeJournal{}
	ps := NewPersistenceSystem(h.ws, h.saves, persist.NewMemStore(), j, h.bus, zap.NewNop(), 1000)
	h.runner.Register(ps)

	h.enter(t, 1)
	h.warm(t, 2)
	h.enqueue(t, world.CopyParams{SrcMapID: 2, SrcEventID: 1})
	h.tick() // copy placed, its event not dispatched yet
	assert.Equal(t, ps.PendingJournal(), 0)

	h.runner.Stop()
	assert.DeepEqual(t, j.entries, []persist.JournalEntry{
		{Op: "copy", MapID: 1, EventID: 101, SrcMapID: 2, SrcEventID: 1},
	})
	assert.Equal(t, ps.PendingJournal(), 0)
}
