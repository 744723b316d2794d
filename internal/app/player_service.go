package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"lms-quiz-service/internal/domain"
)

// PlayerRepository abstracts where live players are kept (in-memory, Redis, etc).
type PlayerRepository interface {
	Get(key string) (*Player, bool)
	Put(key string, player *Player)
	Delete(key string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// PlayerService contains the quiz-taking use cases.
type PlayerService struct {
	players PlayerRepository
	quizzes QuizRepository
	deps    PlayerDeps
	log     *zap.Logger

	// mu serializes mounting and unmounting; conns counts the connections
	// attached to each player key.
	mu    sync.Mutex
	conns map[string]int
}

// NewPlayerService wires the service. deps supplies the ledger, grader and
// clock shared by every player it starts.
func NewPlayerService(players PlayerRepository, quizzes QuizRepository, deps PlayerDeps) *PlayerService {
	deps.defaults()
	return &PlayerService{
		players: players,
		quizzes: quizzes,
		deps:    deps,
		log:     deps.Log,
		conns:   make(map[string]int),
	}
}

// PlayerKey identifies the live player of one user on one quiz.
func PlayerKey(quizID, userID string) string {
	return quizID + "/" + userID
}

// Start attaches a connection to the player of userID on quizID. An attempt
// in progress is resumed; otherwise a new player is mounted. Every successful
// Start must be paired with a Leave.
func (s *PlayerService) Start(ctx context.Context, quizID, userID string) (PlayerView, error) {
	key := PlayerKey(quizID, userID)

	s.mu.Lock()
	if existing, ok := s.players.Get(key); ok && existing.State() == StateInProgress {
		s.conns[key]++
		s.mu.Unlock()
		return existing.View(), nil
	}
	s.mu.Unlock()

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return PlayerView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another connection may have mounted while the quiz was loading.
	if existing, ok := s.players.Get(key); ok {
		if existing.State() == StateInProgress {
			s.conns[key]++
			return existing.View(), nil
		}
		existing.Close()
		s.players.Delete(key)
	}
	player, err := StartPlayer(ctx, quiz, userID, s.deps)
	if err != nil {
		return PlayerView{}, err
	}
	s.players.Put(key, player)
	s.conns[key]++

	view := player.View()
	s.log.Info("quiz attempt mounted",
		zap.String("quiz_id", quizID),
		zap.String("user_id", userID),
		zap.String("state", string(view.State)),
		zap.Int("attempts", view.Attempts),
	)
	return view, nil
}

// Answer records an answer for the current attempt.
func (s *PlayerService) Answer(_ context.Context, quizID, userID, questionID string, answer domain.Answer) (PlayerView, error) {
	player, err := s.player(quizID, userID)
	if err != nil {
		return PlayerView{}, err
	}
	if err := player.Answer(questionID, answer); err != nil {
		return PlayerView{}, err
	}
	return player.View(), nil
}

// Next advances to the next question.
func (s *PlayerService) Next(_ context.Context, quizID, userID string) (PlayerView, error) {
	player, err := s.player(quizID, userID)
	if err != nil {
		return PlayerView{}, err
	}
	if err := player.Next(); err != nil {
		return PlayerView{}, err
	}
	return player.View(), nil
}

// Previous goes back one question.
func (s *PlayerService) Previous(_ context.Context, quizID, userID string) (PlayerView, error) {
	player, err := s.player(quizID, userID)
	if err != nil {
		return PlayerView{}, err
	}
	if err := player.Previous(); err != nil {
		return PlayerView{}, err
	}
	return player.View(), nil
}

// Submit scores and records the attempt.
func (s *PlayerService) Submit(ctx context.Context, quizID, userID string) (PlayerView, error) {
	player, err := s.player(quizID, userID)
	if err != nil {
		return PlayerView{}, err
	}
	result, err := player.Submit(ctx)
	if err != nil {
		return PlayerView{}, err
	}
	s.log.Info("quiz attempt submitted",
		zap.String("quiz_id", quizID),
		zap.String("user_id", userID),
		zap.Float64("score", result.Score),
		zap.Int("time_spent", result.TimeSpent),
	)
	return player.View(), nil
}

// View returns the current snapshot.
func (s *PlayerService) View(_ context.Context, quizID, userID string) (PlayerView, error) {
	player, err := s.player(quizID, userID)
	if err != nil {
		return PlayerView{}, err
	}
	return player.View(), nil
}

// Subscribe returns a channel that receives player events.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *PlayerService) Subscribe(_ context.Context, quizID, userID string) (<-chan PlayerEvent, func(), error) {
	player, err := s.player(quizID, userID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := player.Subscribe()
	return ch, cancel, nil
}

// Leave detaches a connection. The player is unmounted, its timer stopped,
// only when the last connection leaves.
func (s *PlayerService) Leave(_ context.Context, quizID, userID string) {
	key := PlayerKey(quizID, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns[key] > 1 {
		s.conns[key]--
		return
	}
	delete(s.conns, key)
	if player, ok := s.players.Get(key); ok {
		player.Close()
		s.players.Delete(key)
	}
}

func (s *PlayerService) player(quizID, userID string) (*Player, error) {
	player, ok := s.players.Get(PlayerKey(quizID, userID))
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return player, nil
}
