package net

import (
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const busyReply = "Console busy, try again later.\n"

// Options configures the remote console listener.
type Options struct {
	Addr        string
	InQueue     int // command lines buffered per session
	OutQueue    int // reply chunks buffered per session
	MaxSessions int // 0 = unlimited
}

// Server accepts remote console connections. Accepted sessions reach the
// game loop through NewSessions; nothing else crosses goroutines.
type Server struct {
	opts     Options
	listener net.Listener
	nextID   atomic.Uint64
	live     atomic.Int32
	newConns chan *Session
	log      *zap.Logger

	closeCh   chan struct{}
	closeOnce sync.Once
}

func NewServer(opts Options, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return nil, err
	}
	if opts.InQueue <= 0 {
		opts.InQueue = 1
	}
	if opts.OutQueue <= 0 {
		opts.OutQueue = 1
	}
	return &Server{
		opts:     opts,
		listener: ln,
		newConns: make(chan *Session, 16),
		log:      log,
		closeCh:  make(chan struct{}),
	}, nil
}

// AcceptLoop runs in its own goroutine until Shutdown.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("主控台連線接受失敗", zap.Error(err))
			continue
		}
		s.admit(conn)
	}
}

func (s *Server) admit(conn net.Conn) {
	if limit := s.opts.MaxSessions; limit > 0 && int(s.live.Load()) >= limit {
		s.log.Warn("主控台連線數已達上限，拒絕連線",
			zap.String("ip", conn.RemoteAddr().String()), zap.Int("max", limit))
		_, _ = conn.Write([]byte(busyReply))
		conn.Close()
		return
	}

	s.live.Add(1)
	sess := NewSession(conn, s.nextID.Add(1), s.opts.InQueue, s.opts.OutQueue, s.log)
	sess.onClose = func() { s.live.Add(-1) }
	sess.Start()
	s.log.Info("主控台連線", zap.Uint64("session", sess.ID), zap.String("ip", sess.IP))

	select {
	case s.newConns <- sess:
	case <-s.closeCh:
		sess.Close()
	default:
		s.log.Warn("連線佇列已滿，拒絕新連線")
		sess.Close()
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// Live reports sessions accepted and not yet closed.
func (s *Server) Live() int { return int(s.live.Load()) }

// Shutdown stops accepting and closes sessions the game loop never picked up.
// Sessions already handed over are closed by their owner. Safe to call twice.
func (s *Server) Shutdown() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.listener.Close()
		for {
			select {
			case sess := <-s.newConns:
				sess.Close()
			default:
				return
			}
		}
	})
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
