package memory

import (
	"sync"

	"lms-quiz-service/internal/app"
)

// PlayerStore is an in-memory implementation of app.PlayerRepository.
type PlayerStore struct {
	mu      sync.RWMutex
	players map[string]*app.Player
}

func NewPlayerStore() *PlayerStore {
	return &PlayerStore{
		players: make(map[string]*app.Player),
	}
}

func (s *PlayerStore) Get(key string) (*app.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[key]
	return player, ok
}

func (s *PlayerStore) Put(key string, player *app.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[key] = player
}

func (s *PlayerStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, key)
}

// Len reports how many players are mounted.
func (s *PlayerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}
