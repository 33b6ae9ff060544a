package system

import (
	"time"

	coresys "github.com/l1jgo/eventcopy/internal/core/system"
	"github.com/l1jgo/eventcopy/internal/handler"
	"github.com/l1jgo/eventcopy/internal/net"
	"go.uber.org/zap"
)

// InputSystem drains local console lines and remote console sessions and
// dispatches them as commands. Phase 0 (Input).
type InputSystem struct {
	lines      <-chan string // local console, nil when disabled
	server     *net.Server   // remote console, nil when disabled
	store      *net.SessionStore
	deps       *handler.Deps
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(lines <-chan string, server *net.Server, store *net.SessionStore, deps *handler.Deps, maxPerTick int, log *zap.Logger) *InputSystem {
	if maxPerTick <= 0 {
		maxPerTick = 1
	}
	return &InputSystem{
		lines:      lines,
		server:     server,
		store:      store,
		deps:       deps,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	s.drainLocal()
	if s.store == nil {
		return
	}
	s.acceptSessions()
	s.drainSessions()
}

func (s *InputSystem) drainLocal() {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case line, ok := <-s.lines:
			if !ok {
				s.log.Info("主控台輸入結束")
				s.lines = nil
				return
			}
			s.handle(line, s.deps)
		default:
			return
		}
	}
}

func (s *InputSystem) acceptSessions() {
	if s.server == nil {
		return
	}
	for {
		select {
		case sess := <-s.server.NewSessions():
			s.store.Add(sess)
		default:
			return
		}
	}
}

func (s *InputSystem) drainSessions() {
	var dead []uint64
	s.store.Each(func(sess *net.Session) {
		if sess.IsClosed() {
			dead = append(dead, sess.ID)
			return
		}
		deps := *s.deps
		deps.Out = sess
		for i := 0; i < s.maxPerTick; i++ {
			select {
			case line := <-sess.InQueue:
				s.handle(line, &deps)
			default:
				return
			}
		}
	})
	for _, id := range dead {
		s.store.Remove(id)
		s.log.Info("主控台連線結束", zap.Uint64("session", id))
	}
}

func (s *InputSystem) handle(line string, deps *handler.Deps) {
	if !handler.HandleCommand(line, deps) {
		s.log.Info("忽略非指令輸入（指令需以 . 開頭）", zap.String("text", line))
	}
}
