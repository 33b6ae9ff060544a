package net

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const greeting = "EventCopy console. Type .help for commands.\n"

// maxLine caps a single command line.
const maxLine = 4096

// Session is one remote console connection. Network I/O runs in dedicated
// goroutines; commands are executed only from the game loop.
type Session struct {
	ID   uint64
	conn net.Conn
	IP   string

	InQueue  chan string // game loop reads command lines from here
	OutQueue chan string // writer goroutine reads from here

	outBuf []string // buffered replies, flushed by OutputSystem (game loop only)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	onClose   func()

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, inSize, outSize int, log *zap.Logger) *Session {
	return &Session{
		ID:       id,
		conn:     conn,
		IP:       conn.RemoteAddr().String(),
		InQueue:  make(chan string, inSize),
		OutQueue: make(chan string, outSize),
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Uint64("session", id)),
	}
}

// Start sends the greeting and launches the reader and writer goroutines.
func (s *Session) Start() {
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if _, err := s.conn.Write([]byte(greeting)); err != nil {
		s.log.Error("歡迎訊息發送失敗", zap.Error(err))
		s.Close()
		return
	}
	go s.readLoop()
	go s.writeLoop()
}

// Write buffers reply text. Nothing reaches the connection until
// FlushOutput. Called only from the game loop goroutine.
func (s *Session) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, net.ErrClosed
	}
	s.outBuf = append(s.outBuf, string(p))
	return len(p), nil
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop goroutine.
// Non-blocking: if OutQueue is full, the session is disconnected (backpressure).
func (s *Session) FlushOutput() {
	for _, text := range s.outBuf {
		select {
		case s.OutQueue <- text:
		default:
			s.log.Warn("輸出佇列已滿，斷開慢速連線")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Close gracefully shuts down the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
		if s.onClose != nil {
			s.onClose()
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop runs in its own goroutine. It reads lines from the connection
// and pushes them onto InQueue for the game loop to consume.
func (s *Session) readLoop() {
	defer s.Close()

	sc := bufio.NewScanner(s.conn)
	sc.Buffer(make([]byte, 0, 256), maxLine)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == ".quit" || line == ".exit" {
			return
		}
		// Block until InQueue has space or session closes.
		select {
		case s.InQueue <- line:
		case <-s.closeCh:
			return
		}
	}
	if err := sc.Err(); err != nil && !s.closed.Load() {
		s.log.Debug("讀取錯誤", zap.Error(err))
	}
}

// writeLoop runs in its own goroutine. It writes queued replies to the
// connection.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case text := <-s.OutQueue:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if _, err := s.conn.Write([]byte(text)); err != nil {
				if !s.closed.Load() {
					s.log.Debug("寫入錯誤", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
