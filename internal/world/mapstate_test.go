package world

import (
	"errors"
	"testing"

	"github.com/l1jgo/eventcopy/internal/data"
	"gotest.tools/v3/assert"
)

func mustMap(t *testing.T, id int32, events ...*data.EventData) *data.MapData {
	t.Helper()
	m, err := data.NewMapData(id, "", 20, 15, events)
	assert.NilError(t, err)
	return m
}

func eventDefs(ids ...int32) []*data.EventData {
	out := make([]*data.EventData, 0, len(ids))
	for _, id := range ids {
		out = append(out, &data.EventData{ID: id, Name: "ev", X: id, Y: id})
	}
	return out
}

func TestNewMapStatePlacesNativeEvents(t *testing.T) {
	m := NewMapState(mustMap(t, 1, eventDefs(1, 2, 5)...), MapOptions{MinCopyID: 100})

	assert.Equal(t, m.ID(), int32(1))
	assert.Equal(t, m.Len(), 6)
	assert.Equal(t, m.Count(), 3)
	assert.Equal(t, len(m.Spawned()), 3)

	ev, ok := m.Event(5)
	assert.Assert(t, ok)
	assert.Equal(t, ev.Kind(), KindNative)
	x, y := ev.Pos()
	assert.Equal(t, x, int32(5))
	assert.Equal(t, y, int32(5))
}

func TestResolveIDUsesFloor(t *testing.T) {
	m := NewMapState(mustMap(t, 1, eventDefs(1, 2, 3, 4)...), MapOptions{MinCopyID: 100})
	assert.Equal(t, m.ResolveID(0), int32(101))
	assert.Equal(t, m.ResolveID(42), int32(42))
}

func TestResolveIDUsesIndexLength(t *testing.T) {
	m := NewMapState(mustMap(t, 1, eventDefs(1, 149)...), MapOptions{MinCopyID: 100})
	assert.Equal(t, m.ResolveID(0), int32(150))
}

func TestMaterializeAutoIDs(t *testing.T) {
	src := mustMap(t, 3, eventDefs(7)...)
	m := NewMapState(mustMap(t, 1, eventDefs(1, 2)...), MapOptions{MinCopyID: 100})

	first, err := m.Materialize(src, CopyParams{SrcMapID: 3, SrcEventID: 7, X: 4, Y: 9})
	assert.NilError(t, err)
	assert.Equal(t, first.Event.ID(), int32(101))
	assert.Assert(t, !first.Reused)

	second, err := m.Materialize(src, CopyParams{SrcMapID: 3, SrcEventID: 7})
	assert.NilError(t, err)
	assert.Equal(t, second.Event.ID(), int32(102))

	got, ok := m.Event(101)
	assert.Assert(t, ok)
	assert.Equal(t, got.Kind(), KindCopy)
	assert.Equal(t, got.Definition(), src.Event(7))
	x, y := got.Pos()
	assert.Equal(t, x, int32(4))
	assert.Equal(t, y, int32(9))
	assert.Equal(t, got.(*CopiedEvent).MapID(), int32(1))
}

func TestMaterializeMissingDefinition(t *testing.T) {
	src := mustMap(t, 3, eventDefs(7)...)
	m := NewMapState(mustMap(t, 1), MapOptions{MinCopyID: 100})

	_, err := m.Materialize(src, CopyParams{SrcMapID: 3, SrcEventID: 8})
	assert.Assert(t, errors.Is(err, ErrEventNotFound))
	assert.Equal(t, m.Count(), 0)
}

func TestMaterializeOverwritesOccupiedID(t *testing.T) {
	src := mustMap(t, 3, eventDefs(7)...)
	m := NewMapState(mustMap(t, 1, eventDefs(1, 2)...), MapOptions{MinCopyID: 100})
	native, _ := m.Event(2)

	res, err := m.Materialize(src, CopyParams{SrcMapID: 3, SrcEventID: 7, DesID: 2})
	assert.NilError(t, err)
	assert.Equal(t, res.Evicted, native)

	got, _ := m.Event(2)
	assert.Equal(t, got.Kind(), KindCopy)
}

func TestPooledCopyKeepsOldID(t *testing.T) {
	src := mustMap(t, 3, eventDefs(7, 8)...)
	m := NewMapState(mustMap(t, 1), MapOptions{MinCopyID: 100, Reuse: ReuseKeepID})

	a, err := m.Materialize(src, CopyParams{SrcMapID: 3, SrcEventID: 7, DesID: 7})
	assert.NilError(t, err)
	_, err = m.Erase(7)
	assert.NilError(t, err)
	assert.Equal(t, m.PoolLen(), 1)

	b, err := m.Materialize(src, CopyParams{SrcMapID: 3, SrcEventID: 8, X: 1, Y: 2, DesID: 42})
	assert.NilError(t, err)
	assert.Assert(t, b.Reused)
	assert.Equal(t, b.Event, a.Event)
	assert.Equal(t, b.Event.ID(), int32(7))
	assert.Assert(t, !b.Event.Erased())
	assert.Equal(t, b.Event.Definition(), src.Event(8))
	assert.Assert(t, !m.events.Has(42))
	assert.Equal(t, m.PoolLen(), 0)
}

func TestPooledCopyAdoptsResolvedID(t *testing.T) {
	src := mustMap(t, 3, eventDefs(7, 8)...)
	m := NewMapState(mustMap(t, 1), MapOptions{MinCopyID: 100, Reuse: ReuseAdoptID})

	_, err := m.Materialize(src, CopyParams{SrcMapID: 3, SrcEventID: 7, DesID: 7})
	assert.NilError(t, err)
	_, err = m.Erase(7)
	assert.NilError(t, err)

	b, err := m.Materialize(src, CopyParams{SrcMapID: 3, SrcEventID: 8, DesID: 42})
	assert.NilError(t, err)
	assert.Assert(t, b.Reused)
	assert.Equal(t, b.Event.ID(), int32(42))
	assert.Assert(t, !m.events.Has(7))
	got, ok := m.Event(42)
	assert.Assert(t, ok)
	assert.Equal(t, got, Event(b.Event))
}

func TestPoolIsLIFO(t *testing.T) {
	src := mustMap(t, 3, eventDefs(7)...)
	m := NewMapState(mustMap(t, 1), MapOptions{MinCopyID: 100})

	for _, id := range []int32{10, 11} {
		_, err := m.Materialize(src, CopyParams{SrcMapID: 3, SrcEventID: 7, DesID: id})
		assert.NilError(t, err)
	}
	_, _ = m.Erase(10)
	_, _ = m.Erase(11)

	res, err := m.Materialize(src, CopyParams{SrcMapID: 3, SrcEventID: 7})
	assert.NilError(t, err)
	assert.Equal(t, res.Event.ID(), int32(11))
}

func TestEraseTwiceIsNoop(t *testing.T) {
	src := mustMap(t, 3, eventDefs(7)...)
	m := NewMapState(mustMap(t, 1), MapOptions{MinCopyID: 100})
	_, err := m.Materialize(src, CopyParams{SrcMapID: 3, SrcEventID: 7})
	assert.NilError(t, err)
	m.ClearOutput()

	_, err = m.Erase(101)
	assert.NilError(t, err)
	_, err = m.Erase(101)
	assert.NilError(t, err)
	assert.Equal(t, m.PoolLen(), 1)
	assert.Equal(t, len(m.Retired()), 1)

	_, err = m.Erase(5)
	assert.Assert(t, errors.Is(err, ErrNoSuchEvent))
}

func TestEraseNativeDoesNotPool(t *testing.T) {
	m := NewMapState(mustMap(t, 1, eventDefs(1)...), MapOptions{MinCopyID: 100})
	ev, err := m.Erase(1)
	assert.NilError(t, err)
	assert.Assert(t, ev.Erased())
	assert.Equal(t, m.PoolLen(), 0)
}

func TestSnapshotUsesLivePositions(t *testing.T) {
	src := mustMap(t, 3, eventDefs(7)...)
	m := NewMapState(mustMap(t, 1, eventDefs(1)...), MapOptions{MinCopyID: 100})

	for range 3 {
		_, err := m.Materialize(src, CopyParams{SrcMapID: 3, SrcEventID: 7, X: 1, Y: 1})
		assert.NilError(t, err)
	}
	assert.NilError(t, m.Move(102, 8, 9))
	_, err := m.Erase(103)
	assert.NilError(t, err)

	snap := m.Snapshot()
	assert.DeepEqual(t, snap, []CopyParams{
		{SrcMapID: 3, SrcEventID: 7, X: 1, Y: 1},
		{SrcMapID: 3, SrcEventID: 7, X: 8, Y: 9},
	})
}

func TestClearOutput(t *testing.T) {
	m := NewMapState(mustMap(t, 1, eventDefs(1)...), MapOptions{})
	_, _ = m.Erase(1)
	m.ClearOutput()
	assert.Equal(t, len(m.Spawned()), 0)
	assert.Equal(t, len(m.Retired()), 0)
}

func TestParseReusePolicy(t *testing.T) {
	p, err := ParseReusePolicy("adopt")
	assert.NilError(t, err)
	assert.Equal(t, p, ReuseAdoptID)
	_, err = ParseReusePolicy("never")
	assert.ErrorContains(t, err, "never")
}

func TestMaxEventIDDefaultsToCeiling(t *testing.T) {
	m := NewMapState(mustMap(t, 1), MapOptions{MinCopyID: 100})
	assert.Equal(t, m.MaxEventID(), data.MaxEventID)

	m = NewMapState(mustMap(t, 1), MapOptions{MaxEventID: data.MaxEventID + 10})
	assert.Equal(t, m.MaxEventID(), data.MaxEventID)
}

func TestMaterializeRejectsHugeDestination(t *testing.T) {
	src := mustMap(t, 3, eventDefs(7)...)
	m := NewMapState(mustMap(t, 1, eventDefs(1)...), MapOptions{MinCopyID: 100})

	_, err := m.Materialize(src, CopyParams{SrcMapID: 3, SrcEventID: 7, DesID: 2147483647})
	assert.Assert(t, errors.Is(err, ErrEventIDRange))
	assert.Equal(t, m.Len(), 2) // index not grown
	assert.Equal(t, len(m.Snapshot()), 0)
}

func TestMaterializeStopsWhenAutoIDsRunOut(t *testing.T) {
	src := mustMap(t, 3, eventDefs(7)...)
	m := NewMapState(mustMap(t, 1), MapOptions{MinCopyID: 100, MaxEventID: 102})
	p := CopyParams{SrcMapID: 3, SrcEventID: 7}

	for _, want := range []int32{101, 102} {
		res, err := m.Materialize(src, p)
		assert.NilError(t, err)
		assert.Equal(t, res.Event.ID(), want)
	}
	_, err := m.Materialize(src, p)
	assert.Assert(t, errors.Is(err, ErrEventIDRange))

	// a retired copy still frees an id under keep
	_, err = m.Erase(102)
	assert.NilError(t, err)
	res, err := m.Materialize(src, p)
	assert.NilError(t, err)
	assert.Equal(t, res.Event.ID(), int32(102))
	assert.Assert(t, res.Reused)
}
