package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"lms-quiz-service/internal/domain"
)

// QuizLoader reads authored quizzes from durable storage.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository is a read-through cache in front of a QuizLoader. Players
// get their own copy of each quiz so a running attempt never sees edits made
// to the cached value.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	loads  singleflight.Group

	jitterMu sync.Mutex
	jitter   *rand.Rand

	mu      sync.RWMutex
	entries map[string]quizEntry
	// epochs is bumped on Invalidate so loads started before an author save
	// do not repopulate the cache with the old quiz.
	epochs map[string]uint64
}

type quizEntry struct {
	quiz    domain.Quiz
	expires time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		jitter:  rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[string]quizEntry),
		epochs:  make(map[string]uint64),
	}
}

// GetQuiz returns a private copy of the quiz, loading it on a miss.
func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(quizID); ok {
		return quiz.Clone(), nil
	}

	v, err, _ := r.loads.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.cached(quizID); ok {
			return quiz, nil
		}
		r.mu.RLock()
		epoch := r.epochs[quizID]
		r.mu.RUnlock()

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return nil, err
		}
		r.store(quizID, quiz, epoch)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return v.(domain.Quiz).Clone(), nil
}

// Invalidate forgets a quiz so the next GetQuiz reloads it.
func (r *QuizRepository) Invalidate(_ context.Context, quizID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, quizID)
	r.epochs[quizID]++
	return nil
}

func (r *QuizRepository) cached(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[quizID]
	if !ok || !r.clock().Before(e.expires) {
		return domain.Quiz{}, false
	}
	return e.quiz, true
}

func (r *QuizRepository) store(quizID string, quiz domain.Quiz, epoch uint64) {
	if r.ttl <= 0 {
		return
	}
	expires := r.clock().Add(r.expiry())

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epochs[quizID] != epoch {
		return
	}
	r.entries[quizID] = quizEntry{quiz: quiz, expires: expires}
}

// expiry spreads entries over ttl plus up to 10% so they do not all reload
// together.
func (r *QuizRepository) expiry() time.Duration {
	r.jitterMu.Lock()
	defer r.jitterMu.Unlock()
	return r.ttl + time.Duration(r.jitter.Int63n(int64(r.ttl)/10+1))
}
