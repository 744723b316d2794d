package app

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms-quiz-service/internal/domain"
)

func TestAttemptLedgerCountsConcurrentRecords(t *testing.T) {
	ledger := NewAttemptLedger(newMapStore(), nil)
	scope := AttemptScope("user-1", "quiz-1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(score float64) {
			defer wg.Done()
			_, err := ledger.Record(context.Background(), scope, domain.Result{QuizID: "quiz-1", Score: score})
			assert.NoError(t, err)
		}(float64(i))
	}
	wg.Wait()

	attempts, err := ledger.Attempts(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, 20, attempts)
}

func TestAttemptLedgerKeepsLastResult(t *testing.T) {
	store := newMapStore()
	ledger := NewAttemptLedger(store, nil)
	scope := AttemptScope("user-1", "quiz-1")

	n, err := ledger.Record(context.Background(), scope, domain.Result{QuizID: "quiz-1", Score: 40})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = ledger.Record(context.Background(), scope, domain.Result{QuizID: "quiz-1", Score: 90})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	last, err := ledger.LastResult(context.Background(), scope)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 90.0, last.Score)

	require.NoError(t, store.Set(context.Background(), resultKey(scope), []byte("{broken")))
	last, err = ledger.LastResult(context.Background(), scope)
	require.NoError(t, err)
	assert.Nil(t, last)
}
