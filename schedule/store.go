package schedule

import (
	"sync"

	"roamio/conflict"
	"roamio/review"
	"roamio/timeline"
)

// entry pairs a session with its review protocol; both live for as long as
// the in-memory session does. Nothing here is persisted.
type entry struct {
	Session  *timeline.Session
	Protocol *review.Protocol
}

type Store struct {
	mu       sync.Mutex
	analyzer *conflict.Analyzer
	sessions map[string]*entry
}

func NewStore(analyzer *conflict.Analyzer) *Store {
	return &Store{
		analyzer: analyzer,
		sessions: make(map[string]*entry),
	}
}

func (s *Store) Add(session *timeline.Session) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{
		Session:  session,
		Protocol: review.NewProtocol(session, s.analyzer),
	}
	s.sessions[session.ID] = e
	return e
}

func (s *Store) Get(id string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	return e, ok
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
