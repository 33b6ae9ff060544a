package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/l1jgo/eventcopy/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM with the event copy API registered.
// Single-goroutine access only (game loop).
type Engine struct {
	vm    *lua.LState
	world *world.State
	log   *zap.Logger
}

// NewEngine creates a Lua engine bound to ws and loads all scripts from the
// given directory.
func NewEngine(scriptsDir string, ws *world.State, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, world: ws, log: log}
	e.register()

	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "maps")} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) register() {
	for name, fn := range map[string]lua.LGFunction{
		"copy_event":  e.luaCopyEvent,
		"erase_event": e.luaEraseEvent,
		"move_event":  e.luaMoveEvent,
		"transfer":    e.luaTransfer,
		"map_id":      e.luaMapID,
		"event_count": e.luaEventCount,
		"event_pos":   e.luaEventPos,
	} {
		e.vm.SetGlobal(name, e.vm.NewFunction(fn))
	}
}

// RunString executes a Lua chunk.
func (e *Engine) RunString(code string) error {
	if err := e.vm.DoString(code); err != nil {
		return fmt.Errorf("lua: %w", err)
	}
	return nil
}

// OnMapEnter calls the Lua on_map_enter(map_id, replayed) hook if a script
// defines it.
func (e *Engine) OnMapEnter(mapID int32, replayed int) {
	fn := e.vm.GetGlobal("on_map_enter")
	if fn == lua.LNil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(mapID), lua.LNumber(replayed)); err != nil {
		e.log.Error("lua on_map_enter error", zap.Int32("map_id", mapID), zap.Error(err))
	}
}

// --- Lua API ---

// copy_event(src_map, src_event, x, y [, des_id]) -> true | nil, err
func (e *Engine) luaCopyEvent(L *lua.LState) int {
	p := world.CopyParams{
		SrcMapID:   checkInt32(L, 1),
		SrcEventID: checkInt32(L, 2),
		X:          checkInt32(L, 3),
		Y:          checkInt32(L, 4),
		DesID:      optInt32(L, 5, 0),
	}
	if err := e.world.EnqueueCopy(p); err != nil {
		return luaFail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// erase_event(id) -> true | nil, err
func (e *Engine) luaEraseEvent(L *lua.LState) int {
	if _, err := e.world.Erase(checkInt32(L, 1)); err != nil {
		return luaFail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// move_event(id, x, y) -> true | nil, err
func (e *Engine) luaMoveEvent(L *lua.LState) int {
	err := e.world.Move(checkInt32(L, 1), checkInt32(L, 2), checkInt32(L, 3))
	if err != nil {
		return luaFail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// transfer(map_id [, reload]) -> true | nil, err
func (e *Engine) luaTransfer(L *lua.LState) int {
	if err := e.world.RequestTransfer(checkInt32(L, 1), L.OptBool(2, false)); err != nil {
		return luaFail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// map_id() -> id of the map in play, 0 when none
func (e *Engine) luaMapID(L *lua.LState) int {
	L.Push(lua.LNumber(e.world.ActiveMapID()))
	return 1
}

// event_count() -> number of live (non-erased) events
func (e *Engine) luaEventCount(L *lua.LState) int {
	n := 0
	if m := e.world.Active(); m != nil {
		m.EachEvent(func(ev world.Event) bool {
			if !ev.Erased() {
				n++
			}
			return true
		})
	}
	L.Push(lua.LNumber(n))
	return 1
}

// event_pos(id) -> x, y | nil
func (e *Engine) luaEventPos(L *lua.LState) int {
	m := e.world.Active()
	if m == nil {
		L.Push(lua.LNil)
		return 1
	}
	ev, ok := m.Event(checkInt32(L, 1))
	if !ok || ev.Erased() {
		L.Push(lua.LNil)
		return 1
	}
	x, y := ev.Pos()
	L.Push(lua.LNumber(x))
	L.Push(lua.LNumber(y))
	return 2
}

// checkInt32 is L.CheckInt limited to the int32 range; wider numbers raise
// an argument error instead of wrapping.
func checkInt32(L *lua.LState, n int) int32 {
	v := L.CheckInt64(n)
	if v < math.MinInt32 || v > math.MaxInt32 {
		L.ArgError(n, fmt.Sprintf("%d out of range", v))
	}
	return int32(v)
}

func optInt32(L *lua.LState, n int, d int32) int32 {
	if L.Get(n) == lua.LNil {
		return d
	}
	return checkInt32(L, n)
}

func luaFail(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
