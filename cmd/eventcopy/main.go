package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/eventcopy/internal/config"
	"github.com/l1jgo/eventcopy/internal/core/event"
	coresys "github.com/l1jgo/eventcopy/internal/core/system"
	"github.com/l1jgo/eventcopy/internal/data"
	"github.com/l1jgo/eventcopy/internal/handler"
	"github.com/l1jgo/eventcopy/internal/net"
	"github.com/l1jgo/eventcopy/internal/persist"
	"github.com/l1jgo/eventcopy/internal/scripting"
	"github.com/l1jgo/eventcopy/internal/system"
	"github.com/l1jgo/eventcopy/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            EventCopy  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        跨地圖事件複製 · Go 執行環境       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m名稱:\033[0m %s\n\n", name)
}

// displayWidth counts CJK characters as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := 46 - displayWidth(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - displayWidth(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main logic ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("EVENTCOPY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Open the copy store and restore saved lists
	printSection("存檔")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, journal, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer closeStore()
	printOK(fmt.Sprintf("存檔後端: %s", cfg.Store.Backend))

	saves := persist.NewSaveData()
	all, err := store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load saved copies: %w", err)
	}
	saves.Restore(all)
	printStat("已保存複製清單的地圖", len(saves.Maps()))
	fmt.Println()

	// 4. Game state, bus and map loader
	printSection("資料載入")

	reuse, err := world.ParseReusePolicy(cfg.Copy.ReuseID)
	if err != nil {
		return err
	}
	mapOpts := world.MapOptions{MinCopyID: cfg.Copy.MinCopyID, MaxEventID: cfg.Copy.MaxEventID, Reuse: reuse}

	worldState := world.NewState()
	bus := event.NewBus()
	src := data.NewFileSource(cfg.Data.MapDir, cfg.Data.MapFile)
	loader := newLoader(cfg.Copy.Loader, src, worldState, bus, log)
	printOK(fmt.Sprintf("地圖目錄 %s (載入器: %s)", cfg.Data.MapDir, cfg.Copy.Loader))

	engine, err := scripting.NewEngine(cfg.Data.ScriptsDir, worldState, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()
	printOK("Lua 腳本載入完成")
	fmt.Println()

	stats := system.NewCopyStats(bus, log)
	event.Subscribe(bus, func(e event.MapEntered) {
		engine.OnMapEnter(e.MapID, e.Replayed)
	})

	// 5. Create systems and register with runner
	deps := &handler.Deps{
		Log:       log,
		World:     worldState,
		Saves:     saves,
		Scripting: engine,
		Out:       os.Stdout,
	}
	var lines <-chan string
	if cfg.Console.Enabled {
		console, err := handler.NewConsole(os.Stdin, cfg.Console.Encoding, log)
		if err != nil {
			return fmt.Errorf("console: %w", err)
		}
		lines = console.Lines()
	}
	var srv *net.Server
	sessions := net.NewSessionStore()
	if cfg.Console.Listen != "" {
		srv, err = net.NewServer(net.Options{
			Addr:        cfg.Console.Listen,
			InQueue:     cfg.Console.InQueue,
			OutQueue:    cfg.Console.OutQueue,
			MaxSessions: cfg.Console.MaxSessions,
		}, log)
		if err != nil {
			return fmt.Errorf("remote console: %w", err)
		}
		defer srv.Shutdown()
		go srv.AcceptLoop()
		printOK(fmt.Sprintf("遠端主控台監聽 %s", srv.Addr()))
	}

	runner := coresys.NewRunner(
		system.NewInputSystem(lines, srv, sessions, deps, cfg.Console.MaxPerTick, log),
		system.NewEventDispatchSystem(bus),
		system.NewTransferSystem(worldState, loader, saves, mapOpts, bus, log),
		system.NewCopySystem(worldState, loader, cfg.Copy.StallWarnTicks, bus, log),
		system.NewPresentSystem(worldState, system.NewLogPresenter(log)),
		system.NewOutputSystem(sessions),
		system.NewPersistenceSystem(worldState, saves, store, journal, bus, log, cfg.Store.FlushInterval),
		system.NewCleanupSystem(worldState, bus),
	)

	if err := worldState.RequestTransfer(cfg.Server.StartMap, false); err != nil {
		return fmt.Errorf("start map: %w", err)
	}

	// 6. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Server.TickRate)
	defer ticker.Stop()

	printSection("就緒")
	printReady(fmt.Sprintf("起始地圖 %d", cfg.Server.StartMap))
	printReady(fmt.Sprintf("遊戲迴圈啟動 (tick: %s)", cfg.Server.TickRate))
	if cfg.Console.Enabled {
		printReady("輸入 .help 查看指令列表")
	}
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Server.TickRate)
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			runner.Stop()
			sessions.CloseAll()
			stats.Log()
			log.Info("已停止",
				zap.Uint64("ticks", runner.Ticks()),
				zap.Uint64("overruns", runner.Overruns()),
				zap.Duration("slowest_tick", runner.Slowest()))
			return nil
		}
	}
}

// openStore opens the configured copy store. The journal is only available
// with the postgres backend.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (persist.CopyStore, system.Journal, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		db, err := persist.OpenDB(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("database: %w", err)
		}
		printOK("PostgreSQL 連線成功，資料庫遷移完成")
		return persist.NewPgStore(db), persist.NewJournalRepo(db), db.Close, nil
	case "redis":
		rs, err := persist.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		printOK(fmt.Sprintf("Redis 連線成功 (%s)", cfg.Redis.Addr))
		return rs, nil, func() { _ = rs.Close() }, nil
	default:
		return persist.NewMemStore(), nil, func() {}, nil
	}
}

func newLoader(kind string, src data.Source, ws *world.State, bus *event.Bus, log *zap.Logger) data.MapLoader {
	if kind == "slot" {
		return data.NewSlotLoader(src, ws.ActiveMapID, bus, log)
	}
	return data.NewFutureLoader(src, ws.ActiveMapID, log)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
