package memory

import (
	"sort"
	"sync"
	"time"
)

// buffer is the FIFO history of one (session, agent type) key.
type buffer struct {
	mu    sync.Mutex
	turns []Turn
	epoch int
}

// Session is a client conversation context. Sessions live as long as the store.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	buffers map[string]*buffer
}

func (s *Session) buffer(agentType string, create bool) *buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buffers[agentType]
	if !ok && create {
		b = &buffer{}
		s.buffers[agentType] = b
	}
	return b
}

// AgentTypes lists the agent types that have a buffer in this session.
func (s *Session) AgentTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, 0, len(s.buffers))
	for t := range s.buffers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Store holds every session of the process. Appends to the same (session, agent
// type) key are serialized; different keys never share a lock beyond the short
// map lookups.
type Store struct {
	capacity int

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a store keeping at most capacity turns per key. A capacity of
// zero or less selects DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		sessions: make(map[string]*Session),
	}
}

func (s *Store) Capacity() int {
	return s.capacity
}

// Session returns the session with the given id, creating it on first use.
func (s *Store) Session(id string) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[id]; ok {
		return sess
	}
	sess = &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		buffers:   make(map[string]*buffer),
	}
	s.sessions[id] = sess
	return sess
}

func (s *Store) lookup(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Append adds turns to the end of the buffer of (sessionID, agentType), dropping
// the oldest turns when the buffer would exceed capacity.
func (s *Store) Append(sessionID, agentType string, turns ...Turn) {
	if len(turns) == 0 {
		return
	}
	b := s.Session(sessionID).buffer(agentType, true)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = append(b.turns, turns...)
	if over := len(b.turns) - s.capacity; over > 0 {
		kept := make([]Turn, s.capacity)
		copy(kept, b.turns[over:])
		b.turns = kept
	}
}

// Context returns a copy of the buffer of (sessionID, agentType), oldest first.
// Unknown sessions and agent types yield an empty slice.
func (s *Store) Context(sessionID, agentType string) []Turn {
	sess := s.lookup(sessionID)
	if sess == nil {
		return []Turn{}
	}
	b := sess.buffer(agentType, false)
	if b == nil {
		return []Turn{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Turn, len(b.turns))
	copy(out, b.turns)
	return out
}

// Reset clears the buffer of (sessionID, agentType) and advances its epoch.
// Resetting an unknown session or agent type does nothing.
func (s *Store) Reset(sessionID, agentType string) {
	sess := s.lookup(sessionID)
	if sess == nil {
		return
	}
	b := sess.buffer(agentType, false)
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = nil
	b.epoch++
}

// Epoch counts the resets of (sessionID, agentType). Backends that keep their own
// server-side history use it to start a fresh conversation after a reset.
func (s *Store) Epoch(sessionID, agentType string) int {
	sess := s.lookup(sessionID)
	if sess == nil {
		return 0
	}
	b := sess.buffer(agentType, false)
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.epoch
}

// Stats summarizes the store.
type Stats struct {
	Sessions int `json:"sessions"`
	Buffers  int `json:"buffers"`
	Turns    int `json:"turns"`
	Capacity int `json:"capacity"`
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	st := Stats{Sessions: len(sessions), Capacity: s.capacity}
	for _, sess := range sessions {
		for _, t := range sess.AgentTypes() {
			b := sess.buffer(t, false)
			b.mu.Lock()
			st.Buffers++
			st.Turns += len(b.turns)
			b.mu.Unlock()
		}
	}
	return st
}
