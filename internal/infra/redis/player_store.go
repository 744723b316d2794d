package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"lms-quiz-service/internal/app"
)

// PlayerStore is a Redis-aware implementation of app.PlayerRepository.
// Notes:
//   - Players hold timers and subscribers, so they stay in a local map.
//   - Redis marks which attempts are live (quiz:player:{quizID}/{userID})
//     so other instances and operators can see them.
type PlayerStore struct {
	client  *redis.Client
	ttl     time.Duration
	mu      sync.RWMutex
	players map[string]*app.Player
}

func NewPlayerStore(client *redis.Client, ttl time.Duration) *PlayerStore {
	return &PlayerStore{
		client:  client,
		ttl:     ttl,
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
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(key), "1", s.ttl).Err()
}

func (s *PlayerStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[key]; !ok {
		return
	}
	delete(s.players, key)
	_ = s.client.Del(context.Background(), s.key(key)).Err()
}

// Live reports whether Redis still marks the player as mounted.
func (s *PlayerStore) Live(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	return n == 1, err
}

func (s *PlayerStore) key(key string) string {
	return "quiz:player:" + key
}
