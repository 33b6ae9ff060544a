package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/l1jgo/eventcopy/internal/world"
	"go.uber.org/zap"
)

// ErrUsage is returned by argument parsing when a command is malformed.
var ErrUsage = errors.New("usage")

// HandleCommand processes a "." prefixed console command.
// Returns true if the text was a command (consumed), false otherwise.
func HandleCommand(text string, deps *Deps) bool {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, ".") {
		return false
	}

	parts := strings.Fields(text[1:]) // strip leading "."
	if len(parts) == 0 {
		return true
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help":
		cmdHelp(deps)
	case "copy":
		cmdCopy(args, deps)
	case "erase":
		cmdErase(args, deps)
	case "move":
		cmdMove(args, deps)
	case "transfer", "map":
		cmdTransfer(args, deps)
	case "events", "list":
		cmdEvents(deps)
	case "saved":
		cmdSaved(deps)
	case "lua":
		cmdLua(strings.TrimSpace(strings.TrimPrefix(text[1:], parts[0])), deps)
	default:
		reply(deps, "未知的指令: ."+cmd+"  輸入 .help 查看指令列表")
	}

	deps.Log.Debug("console command", zap.String("cmd", cmd), zap.Strings("args", args))
	return true
}

// --- Helper ---

func reply(deps *Deps, msg string) {
	if deps.Out == nil {
		return
	}
	fmt.Fprintln(deps.Out, msg)
}

func replyf(deps *Deps, format string, a ...any) {
	reply(deps, fmt.Sprintf(format, a...))
}

// intArgs parses lo..hi int32 arguments.
func intArgs(args []string, lo, hi int) ([]int32, error) {
	if len(args) < lo || len(args) > hi {
		return nil, fmt.Errorf("%w: want %d-%d arguments, got %d", ErrUsage, lo, hi, len(args))
	}
	out := make([]int32, len(args))
	for i, a := range args {
		v, err := strconv.ParseInt(a, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrUsage, a)
		}
		out[i] = int32(v)
	}
	return out, nil
}

// --- Commands ---

func cmdHelp(deps *Deps) {
	reply(deps, "=== 指令列表 ===")
	reply(deps, ".copy <來源地圖> <來源事件> <x> <y> [目標ID]  - 複製事件 (0=目前地圖, 目標ID 0=自動)")
	reply(deps, ".erase <事件ID>  - 消除事件")
	reply(deps, ".move <事件ID> <x> <y>  - 移動事件")
	reply(deps, ".transfer <地圖ID> [reload]  - 切換地圖")
	reply(deps, ".events  - 列出目前地圖的事件")
	reply(deps, ".saved  - 列出已保存的複製清單")
	reply(deps, ".lua <程式碼>  - 執行 Lua")
}

func cmdCopy(args []string, deps *Deps) {
	v, err := intArgs(args, 4, 5)
	if err != nil {
		reply(deps, "用法: .copy <來源地圖> <來源事件> <x> <y> [目標ID]")
		return
	}
	p := world.CopyParams{SrcMapID: v[0], SrcEventID: v[1], X: v[2], Y: v[3]}
	if len(v) == 5 {
		p.DesID = v[4]
	}
	if err := deps.World.EnqueueCopy(p); err != nil {
		replyf(deps, "複製失敗: %v", err)
		return
	}
	replyf(deps, "已排入複製佇列 (地圖 %d 事件 %d → (%d, %d))", p.SrcMapID, p.SrcEventID, p.X, p.Y)
}

func cmdErase(args []string, deps *Deps) {
	v, err := intArgs(args, 1, 1)
	if err != nil {
		reply(deps, "用法: .erase <事件ID>")
		return
	}
	if _, err := deps.World.Erase(v[0]); err != nil {
		replyf(deps, "消除失敗: %v", err)
		return
	}
	replyf(deps, "事件 %d 已消除", v[0])
}

func cmdMove(args []string, deps *Deps) {
	v, err := intArgs(args, 3, 3)
	if err != nil {
		reply(deps, "用法: .move <事件ID> <x> <y>")
		return
	}
	if err := deps.World.Move(v[0], v[1], v[2]); err != nil {
		replyf(deps, "移動失敗: %v", err)
		return
	}
	replyf(deps, "事件 %d 已移動至 (%d, %d)", v[0], v[1], v[2])
}

func cmdTransfer(args []string, deps *Deps) {
	reload := false
	if n := len(args); n == 2 && strings.EqualFold(args[1], "reload") {
		reload = true
		args = args[:1]
	}
	v, err := intArgs(args, 1, 1)
	if err != nil {
		reply(deps, "用法: .transfer <地圖ID> [reload]")
		return
	}
	if err := deps.World.RequestTransfer(v[0], reload); err != nil {
		replyf(deps, "切換地圖失敗: %v", err)
		return
	}
	replyf(deps, "準備切換至地圖 %d", v[0])
}

func cmdEvents(deps *Deps) {
	m := deps.World.Active()
	if m == nil {
		reply(deps, "目前沒有地圖")
		return
	}
	replyf(deps, "地圖 %d: %d 個事件, 佇列 %d, 回收池 %d", m.ID(), m.Count(), m.Queue().Len(), m.PoolLen())
	m.EachEvent(func(ev world.Event) bool {
		x, y := ev.Pos()
		state := ""
		if ev.Erased() {
			state = " (已消除)"
		}
		src := ""
		if c, ok := ev.(*world.CopiedEvent); ok {
			p := c.Params()
			src = fmt.Sprintf(" ← %d:%d", p.SrcMapID, p.SrcEventID)
		}
		replyf(deps, "  #%d %s %q (%d, %d)%s%s", ev.ID(), ev.Kind(), ev.Definition().Name, x, y, src, state)
		return true
	})
}

func cmdSaved(deps *Deps) {
	if deps.Saves == nil {
		return
	}
	ids := deps.Saves.Maps()
	if len(ids) == 0 {
		reply(deps, "沒有已保存的複製清單")
		return
	}
	for _, id := range ids {
		list, _ := deps.Saves.Load(id)
		replyf(deps, "地圖 %d: %d 個複製事件", id, len(list))
	}
}

func cmdLua(code string, deps *Deps) {
	if deps.Scripting == nil {
		reply(deps, "Lua 未啟用")
		return
	}
	if code == "" {
		reply(deps, "用法: .lua <程式碼>")
		return
	}
	if err := deps.Scripting.RunString(code); err != nil {
		replyf(deps, "Lua 錯誤: %v", err)
	}
}
