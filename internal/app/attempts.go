package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"lms-quiz-service/internal/domain"
)

// KeyValueStore is the persistence capability behind attempt tracking.
// Get reports found=false for missing keys. Incr atomically adds one to the
// decimal counter at key, treating a missing key as zero.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Incr(ctx context.Context, key string) (int64, error)
}

// AttemptLedger remembers how many times a user attempted a quiz and the
// result of the last attempt. The counter and the last result live in
// separate slots: a new attempt overwrites the result and bumps the counter.
type AttemptLedger struct {
	store KeyValueStore
	log   *zap.Logger
}

func NewAttemptLedger(store KeyValueStore, log *zap.Logger) *AttemptLedger {
	if log == nil {
		log = zap.NewNop()
	}
	return &AttemptLedger{store: store, log: log}
}

// AttemptScope identifies the ledger slot of one user on one quiz.
func AttemptScope(userID, quizID string) string {
	return userID + ":" + quizID
}

func attemptsKey(scope string) string { return "quiz:attempts:" + scope }
func resultKey(scope string) string   { return "quiz:last_result:" + scope }

// Attempts returns the number of recorded attempts. A corrupt counter reads as zero.
func (l *AttemptLedger) Attempts(ctx context.Context, scope string) (int, error) {
	raw, ok, err := l.store.Get(ctx, attemptsKey(scope))
	if err != nil {
		return 0, fmt.Errorf("read attempts: %w", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		l.log.Warn("ignoring malformed attempt counter", zap.String("scope", scope), zap.Error(err))
		return 0, nil
	}
	return n, nil
}

// LastResult returns the last persisted result, or nil when none exists or
// the stored value cannot be decoded.
func (l *AttemptLedger) LastResult(ctx context.Context, scope string) (*domain.Result, error) {
	raw, ok, err := l.store.Get(ctx, resultKey(scope))
	if err != nil {
		return nil, fmt.Errorf("read last result: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var result domain.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		l.log.Warn("ignoring malformed stored result", zap.String("scope", scope), zap.Error(err))
		return nil, nil
	}
	return &result, nil
}

// Record writes result into the last-result slot and increments the
// counter. It returns the new attempt count.
func (l *AttemptLedger) Record(ctx context.Context, scope string, result domain.Result) (int, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("encode result: %w", err)
	}
	if err := l.store.Set(ctx, resultKey(scope), data); err != nil {
		return 0, fmt.Errorf("write last result: %w", err)
	}
	attempts, err := l.store.Incr(ctx, attemptsKey(scope))
	if err != nil {
		return 0, fmt.Errorf("count attempt: %w", err)
	}
	return int(attempts), nil
}
