package net

// SessionStore tracks live console sessions. Game loop only.
type SessionStore struct {
	sessions map[uint64]*Session
	order    []uint64 // connect order, keeps command handling deterministic
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uint64]*Session)}
}

func (st *SessionStore) Add(s *Session) {
	if _, ok := st.sessions[s.ID]; ok {
		return
	}
	st.sessions[s.ID] = s
	st.order = append(st.order, s.ID)
}

func (st *SessionStore) Remove(id uint64) {
	if _, ok := st.sessions[id]; !ok {
		return
	}
	delete(st.sessions, id)
	for i, sid := range st.order {
		if sid == id {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
}

func (st *SessionStore) Get(id uint64) *Session {
	return st.sessions[id]
}

// Each visits sessions in connect order.
func (st *SessionStore) Each(fn func(*Session)) {
	for _, id := range st.order {
		fn(st.sessions[id])
	}
}

func (st *SessionStore) Count() int { return len(st.sessions) }

// CloseAll closes and forgets every session. Used at shutdown.
func (st *SessionStore) CloseAll() {
	for _, id := range st.order {
		st.sessions[id].Close()
	}
	clear(st.sessions)
	st.order = st.order[:0]
}
