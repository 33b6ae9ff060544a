package system

import (
	"time"

	coresys "github.com/l1jgo/eventcopy/internal/core/system"
	"github.com/l1jgo/eventcopy/internal/net"
)

// OutputSystem flushes buffered console replies to their sessions.
// Phase 4 (Output).
type OutputSystem struct {
	store *net.SessionStore
}

func NewOutputSystem(store *net.SessionStore) *OutputSystem {
	return &OutputSystem{store: store}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	s.store.Each(func(sess *net.Session) {
		if !sess.IsClosed() {
			sess.FlushOutput()
		}
	})
}
