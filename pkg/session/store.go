package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps one State per session id.
type Store struct {
	mu sync.Mutex

	options  []Option
	sessions map[string]*entry
}

type entry struct {
	state   *State
	touched time.Time
}

func NewStore(options ...Option) *Store {
	return &Store{
		options:  options,
		sessions: make(map[string]*entry),
	}
}

func (s *Store) Create() (string, *State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.create()
}

func (s *Store) Get(id string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]

	if !ok {
		return nil, false
	}

	e.touched = time.Now()

	return e.state, true
}

// GetOrCreate returns the session for id, or a new session under a fresh id
// if id is unknown.
func (s *Store) GetOrCreate(id string) (string, *State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[id]; ok {
		e.touched = time.Now()
		return id, e.state
	}

	return s.create()
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Prune drops sessions that were not accessed within maxAge.
func (s *Store) Prune(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := time.Now().Add(-maxAge)

	var count int

	for id, e := range s.sessions {
		if e.touched.Before(deadline) {
			delete(s.sessions, id)
			count++
		}
	}

	return count
}

func (s *Store) create() (string, *State) {
	id := uuid.NewString()

	e := &entry{
		state:   New(s.options...),
		touched: time.Now(),
	}

	s.sessions[id] = e

	return id, e.state
}
