package bot

import (
	"sync"

	"isomero/internal/model"
)

// userState remembers which location a chat is looking at.
type userState struct {
	Location model.Location
}

type stateStore struct {
	mu       sync.Mutex
	m        map[int64]*userState
	fallback model.Location
}

func newStateStore(fallback model.Location) *stateStore {
	return &stateStore{m: make(map[int64]*userState), fallback: fallback}
}

func (s *stateStore) location(chatID int64) model.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.m[chatID]; st != nil && st.Location != "" {
		return st.Location
	}
	return s.fallback
}

func (s *stateStore) setLocation(chatID int64, loc model.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[chatID]
	if st == nil {
		st = &userState{}
		s.m[chatID] = st
	}
	st.Location = loc
}

func (s *stateStore) reset(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
}
