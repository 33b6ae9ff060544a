package data

import (
	"context"
	"fmt"

	"github.com/l1jgo/eventcopy/internal/core/event"
	"go.uber.org/zap"
)

// MapLoader hands out loaded map containers without blocking the caller.
// Get returns ready=false while the map is still being fetched; the caller
// polls again on a later tick. Completed loads are cached for the lifetime of
// the loader. Map id 0 means the active map.
//
// Loaders are not safe for concurrent use; call them from the game loop.
type MapLoader interface {
	Get(mapID int32) (m *MapData, ready bool, err error)
}

// ActiveMapFunc reports the id of the map currently in play (0 if none).
type ActiveMapFunc func() int32

func resolveMapID(mapID int32, active ActiveMapFunc) int32 {
	if mapID == 0 && active != nil {
		return active()
	}
	return mapID
}

func fetch(src Source, mapID int32) (*MapData, error) {
	if mapID <= 0 {
		return nil, fmt.Errorf("map %d: %w", mapID, ErrMapNotFound)
	}
	return src.Fetch(context.Background(), mapID)
}

// ── FutureLoader ─────────────────────────────────────────────────

type future struct {
	done chan struct{}
	m    *MapData
	err  error
}

// FutureLoader keeps one independent load per map id. Every caller asking
// for a map sees the same result once its load completes; loads for
// different maps never interfere.
type FutureLoader struct {
	src     Source
	active  ActiveMapFunc
	cache   map[int32]*MapData
	pending map[int32]*future
	log     *zap.Logger
}

func NewFutureLoader(src Source, active ActiveMapFunc, log *zap.Logger) *FutureLoader {
	return &FutureLoader{
		src:     src,
		active:  active,
		cache:   make(map[int32]*MapData, 16),
		pending: make(map[int32]*future, 4),
		log:     log,
	}
}

func (l *FutureLoader) Get(mapID int32) (*MapData, bool, error) {
	mapID = resolveMapID(mapID, l.active)
	if m, ok := l.cache[mapID]; ok {
		return m, true, nil
	}

	f, ok := l.pending[mapID]
	if !ok {
		l.pending[mapID] = l.start(mapID)
		return nil, false, nil
	}

	select {
	case <-f.done:
	default:
		return nil, false, nil
	}

	// Failures are handed out once and forgotten so a later Get retries.
	delete(l.pending, mapID)
	if f.err != nil {
		return nil, false, f.err
	}
	l.cache[mapID] = f.m
	l.log.Debug("地圖載入完成", zap.Int32("map_id", mapID), zap.Int("events", f.m.Count()))
	return f.m, true, nil
}

func (l *FutureLoader) start(mapID int32) *future {
	f := &future{done: make(chan struct{})}
	l.log.Debug("開始載入地圖", zap.Int32("map_id", mapID))
	go func() {
		f.m, f.err = fetch(l.src, mapID)
		close(f.done)
	}()
	return f
}

// Cached reports whether mapID has completed loading.
func (l *FutureLoader) Cached(mapID int32) bool {
	_, ok := l.cache[mapID]
	return ok
}

// InFlight returns the number of loads not yet collected.
func (l *FutureLoader) InFlight() int { return len(l.pending) }

// ── SlotLoader ───────────────────────────────────────────────────

type slotResult struct {
	mapID int32
	m     *MapData
	err   error
}

// SlotLoader tracks a single in-flight load. Asking for a different map
// while a load is outstanding starts a new load and stops tracking the old
// one: when the old result lands it is discarded and counted as abandoned,
// and callers waiting on that map keep waiting until they ask again.
//
// Selected with loader = "slot"; FutureLoader is the default.
type SlotLoader struct {
	src       Source
	active    ActiveMapFunc
	cache     map[int32]*MapData
	loading   int32 // 0 = idle
	failed    error // failure for the tracked load, handed out once
	results   chan slotResult
	abandoned int
	bus       *event.Bus
	log       *zap.Logger
}

func NewSlotLoader(src Source, active ActiveMapFunc, bus *event.Bus, log *zap.Logger) *SlotLoader {
	return &SlotLoader{
		src:     src,
		active:  active,
		cache:   make(map[int32]*MapData, 16),
		results: make(chan slotResult, 8),
		bus:     bus,
		log:     log,
	}
}

func (l *SlotLoader) Get(mapID int32) (*MapData, bool, error) {
	mapID = resolveMapID(mapID, l.active)
	l.Poll()
	if m, ok := l.cache[mapID]; ok {
		return m, true, nil
	}

	if l.loading == mapID {
		if l.failed != nil {
			err := l.failed
			l.failed = nil
			l.loading = 0
			return nil, false, err
		}
		return nil, false, nil
	}

	if l.loading != 0 {
		l.log.Debug("載入槽被取代",
			zap.Int32("map_id", l.loading), zap.Int32("by", mapID))
	}
	l.loading = mapID
	l.failed = nil
	go func() {
		m, err := fetch(l.src, mapID)
		l.results <- slotResult{mapID: mapID, m: m, err: err}
	}()
	return nil, false, nil
}

// Poll collects results that have landed since the last call.
func (l *SlotLoader) Poll() {
	for {
		select {
		case r := <-l.results:
			l.land(r)
		default:
			return
		}
	}
}

func (l *SlotLoader) land(r slotResult) {
	if r.mapID != l.loading {
		l.abandoned++
		l.log.Warn("地圖載入結果被丟棄",
			zap.Int32("map_id", r.mapID),
			zap.Int32("tracked", l.loading),
			zap.Error(ErrLoadSuperseded))
		event.Emit(l.bus, event.LoadSuperseded{MapID: r.mapID, By: l.loading})
		return
	}
	if r.err != nil {
		l.failed = r.err
		return
	}
	l.cache[r.mapID] = r.m
	l.loading = 0
}

// Loading returns the tracked map id, 0 when idle.
func (l *SlotLoader) Loading() int32 { return l.loading }

// Abandoned returns how many load results were discarded.
func (l *SlotLoader) Abandoned() int { return l.abandoned }

func (l *SlotLoader) Cached(mapID int32) bool {
	_, ok := l.cache[mapID]
	return ok
}
