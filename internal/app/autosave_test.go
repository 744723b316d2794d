package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPersister struct {
	mu    sync.Mutex
	saves []string
	err   error
}

func (p *recordingPersister) SaveContent(_ context.Context, _ string, content []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.saves = append(p.saves, string(content))
	return nil
}

func (p *recordingPersister) Saves() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.saves...)
}

func newTestAutosaver(persister ContentPersister, saved []byte) (*Autosaver, *fakeTimers, *[]SaveStatus) {
	timers := &fakeTimers{}
	var statuses []SaveStatus
	a := NewAutosaver(context.Background(), "lesson-1", persister, saved, AutosaveOptions{
		AfterFunc: timers.AfterFunc,
		OnStatus:  func(s SaveStatus) { statuses = append(statuses, s) },
	})
	return a, timers, &statuses
}

func TestAutosaverDebouncesEdits(t *testing.T) {
	persister := &recordingPersister{}
	a, timers, _ := newTestAutosaver(persister, nil)
	defer a.Close()

	require.NoError(t, a.Edit(map[string]any{"html": "<p>a</p>"}))
	first := timers.last()
	require.NoError(t, a.Edit(map[string]any{"html": "<p>ab</p>"}))

	assert.True(t, first.stopped, "a new edit cancels the pending save")
	assert.Equal(t, DefaultDebounce, timers.last().d)

	timers.fireLast()
	assert.Equal(t, []string{`{"html":"<p>ab</p>"}`}, persister.Saves())
	assert.Equal(t, SaveSaved, a.Status())
	assert.False(t, a.Dirty())
}

func TestAutosaverSkipsUnchangedContent(t *testing.T) {
	persister := &recordingPersister{}
	a, timers, statuses := newTestAutosaver(persister, []byte(`{"b":2,"a":1}`))
	defer a.Close()

	require.NoError(t, a.Edit([]byte(`{"a":1, "b":2}`)))
	timers.fireLast()

	assert.Empty(t, persister.Saves())
	assert.Empty(t, *statuses)
	assert.Equal(t, SaveIdle, a.Status())
}

func TestAutosaverStatusRevertsToIdle(t *testing.T) {
	persister := &recordingPersister{}
	a, timers, statuses := newTestAutosaver(persister, nil)
	defer a.Close()

	require.NoError(t, a.Edit(map[string]int{"v": 1}))
	timers.fireLast()
	reset := timers.last()
	assert.Equal(t, DefaultStatusReset, reset.d)

	timers.fireLast()
	assert.Equal(t, SaveIdle, a.Status())
	assert.Equal(t, []SaveStatus{SaveSaving, SaveSaved, SaveIdle}, *statuses)
}

func TestAutosaverErrorKeepsEditsForRetry(t *testing.T) {
	persister := &recordingPersister{err: errStoreDown}
	a, _, _ := newTestAutosaver(persister, nil)
	defer a.Close()

	require.NoError(t, a.Edit(map[string]string{"html": "draft"}))
	err := a.Flush(context.Background())
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, SaveError, a.Status())
	assert.True(t, a.Dirty())
	assert.JSONEq(t, `{"html":"draft"}`, string(a.Content()))

	persister.mu.Lock()
	persister.err = nil
	persister.mu.Unlock()

	require.NoError(t, a.Flush(context.Background()))
	assert.Equal(t, []string{`{"html":"draft"}`}, persister.Saves())
	assert.Equal(t, SaveSaved, a.Status())
}

func TestAutosaverFlushWithoutEdits(t *testing.T) {
	persister := &recordingPersister{}
	a, _, _ := newTestAutosaver(persister, nil)
	require.NoError(t, a.Flush(context.Background()))
	assert.Empty(t, persister.Saves())
}

func TestAutosaverRejectsInvalidJSONAndClosed(t *testing.T) {
	a, _, _ := newTestAutosaver(&recordingPersister{}, nil)
	assert.Error(t, a.Edit([]byte(`{broken`)))

	a.Close()
	assert.Error(t, a.Edit(map[string]string{"a": "b"}))
}

func TestAutosaverRealTimer(t *testing.T) {
	persister := &recordingPersister{}
	a := NewAutosaver(context.Background(), "lesson-1", persister, nil, AutosaveOptions{
		Debounce:    20 * time.Millisecond,
		StatusReset: time.Hour,
	})
	defer a.Close()

	require.NoError(t, a.Edit(map[string]string{"html": "x"}))
	require.NoError(t, a.Edit(map[string]string{"html": "xy"}))

	assert.Eventually(t, func() bool { return len(persister.Saves()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{`{"html":"xy"}`}, persister.Saves())
}
