package system

import (
	"testing"

	"github.com/l1jgo/eventcopy/internal/world"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
)

func TestPresenterSeesNativesOnEntry(t *testing.T) {
	h := newHarness(t, harnessOptions{}, standardMaps(t)...)
	h.enter(t, 1)
	assert.Equal(t, h.present.Count(), 2)
}

func TestPresenterReplacesSameID(t *testing.T) {
	h := newHarness(t, harnessOptions{}, standardMaps(t)...)
	h.enter(t, 1)
	h.warm(t, 2)

	h.enqueue(t, world.CopyParams{SrcMapID: 2, SrcEventID: 1, DesID: 2})
	h.tick()

	assert.Equal(t, h.present.Replaced(), 1)
	shown, ok := h.present.Shown(2)
	assert.Assert(t, ok)
	assert.Equal(t, shown.Kind(), world.KindCopy)
}

func TestPresenterRetiresErased(t *testing.T) {
	h := newHarness(t, harnessOptions{}, standardMaps(t)...)
	h.enter(t, 1)
	_, err := h.ws.Erase(1)
	assert.NilError(t, err)
	h.tick()

	_, ok := h.present.Shown(1)
	assert.Assert(t, !ok)
	assert.Equal(t, h.present.Count(), 1)
}

func TestPresenterResetOnMapChange(t *testing.T) {
	h := newHarness(t, harnessOptions{}, standardMaps(t)...)
	h.enter(t, 1)
	h.enter(t, 4)
	assert.Equal(t, h.present.Count(), 0)
}

func TestLogPresenterIgnoresStaleRetire(t *testing.T) {
	p := NewLogPresenter(zap.NewNop())
	h := newHarness(t, harnessOptions{}, standardMaps(t)...)
	m := h.enter(t, 1)

	old, _ := m.Event(1)
	p.Spawn(old)
	h.warm(t, 2)
	h.enqueue(t, world.CopyParams{SrcMapID: 2, SrcEventID: 1, DesID: 1})
	h.tick()
	cur, _ := m.Event(1)
	p.Spawn(cur)

	p.Retire(old)
	shown, ok := p.Shown(1)
	assert.Assert(t, ok)
	assert.Equal(t, shown, cur)
}
