package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SaveStatus is surfaced to the editor while content is persisted.
type SaveStatus string

const (
	SaveIdle   SaveStatus = "idle"
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
	SaveError  SaveStatus = "error"
)

const (
	DefaultDebounce    = time.Second
	DefaultStatusReset = 3 * time.Second
)

// ContentPersister stores lesson content.
type ContentPersister interface {
	SaveContent(ctx context.Context, lessonID string, content []byte) error
}

// AutosaveOptions tunes an Autosaver. Zero values pick the defaults.
type AutosaveOptions struct {
	Debounce    time.Duration
	StatusReset time.Duration
	AfterFunc   func(time.Duration, func()) Timer
	OnStatus    func(SaveStatus)
	Log         *zap.Logger
}

// Autosaver coalesces lesson edits over an idle window and persists them,
// skipping saves whose content equals the last successful one. There is no
// conflict detection: the last write wins.
type Autosaver struct {
	lessonID  string
	persister ContentPersister
	opts      AutosaveOptions
	ctx       context.Context

	saveMu sync.Mutex // serializes persister calls

	mu         sync.Mutex
	pending    []byte
	lastSaved  []byte
	status     SaveStatus
	debounce   Timer
	reset      Timer
	generation int
	closed     bool
}

// NewAutosaver starts tracking a lesson whose persisted content is saved.
func NewAutosaver(ctx context.Context, lessonID string, persister ContentPersister, saved []byte, opts AutosaveOptions) *Autosaver {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.StatusReset <= 0 {
		opts.StatusReset = DefaultStatusReset
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	a := &Autosaver{
		lessonID:  lessonID,
		persister: persister,
		opts:      opts,
		ctx:       context.WithoutCancel(ctx),
		status:    SaveIdle,
	}
	if len(saved) > 0 {
		if canon, err := canonicalJSON(saved); err == nil {
			a.lastSaved = canon
		}
	}
	return a
}

// Edit records new content and restarts the debounce window.
func (a *Autosaver) Edit(content any) error {
	data, err := marshalCanonical(content)
	if err != nil {
		return fmt.Errorf("encode lesson content: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("autosaver for lesson %s is closed", a.lessonID)
	}
	a.pending = data
	if a.debounce != nil {
		a.debounce.Stop()
	}
	a.debounce = a.opts.AfterFunc(a.opts.Debounce, func() {
		if err := a.save(a.ctx); err != nil {
			a.opts.Log.Warn("autosave failed", zap.String("lesson_id", a.lessonID), zap.Error(err))
		}
	})
	return nil
}

// Flush saves pending content immediately.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.debounce != nil {
		a.debounce.Stop()
		a.debounce = nil
	}
	a.mu.Unlock()
	return a.save(ctx)
}

// Status returns the current save status.
func (a *Autosaver) Status() SaveStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Content returns the newest known content: pending edits first, then the
// last saved version.
func (a *Autosaver) Content() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending != nil {
		return append([]byte(nil), a.pending...)
	}
	return append([]byte(nil), a.lastSaved...)
}

// Dirty reports whether there are edits not yet saved.
func (a *Autosaver) Dirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Close cancels pending timers. Unsaved edits are dropped; call Flush first
// to keep them.
func (a *Autosaver) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.debounce != nil {
		a.debounce.Stop()
	}
	if a.reset != nil {
		a.reset.Stop()
	}
}

func (a *Autosaver) save(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	data := a.pending
	if data == nil {
		a.mu.Unlock()
		return nil
	}
	if bytes.Equal(data, a.lastSaved) {
		a.pending = nil
		a.mu.Unlock()
		return nil
	}
	a.setStatusLocked(SaveSaving)
	a.mu.Unlock()

	err := a.persister.SaveContent(ctx, a.lessonID, data)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		// Pending edits stay in memory so the next edit or flush retries.
		a.setStatusLocked(SaveError)
		a.scheduleResetLocked()
		return fmt.Errorf("save lesson %s: %w", a.lessonID, err)
	}
	a.lastSaved = data
	if bytes.Equal(a.pending, data) {
		a.pending = nil
	}
	a.setStatusLocked(SaveSaved)
	a.scheduleResetLocked()
	return nil
}

func (a *Autosaver) setStatusLocked(s SaveStatus) {
	a.status = s
	if a.opts.OnStatus != nil {
		a.opts.OnStatus(s)
	}
}

func (a *Autosaver) scheduleResetLocked() {
	if a.closed {
		return
	}
	if a.reset != nil {
		a.reset.Stop()
	}
	a.generation++
	gen := a.generation
	a.reset = a.opts.AfterFunc(a.opts.StatusReset, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.generation == gen && (a.status == SaveSaved || a.status == SaveError) {
			a.setStatusLocked(SaveIdle)
		}
	})
}

func marshalCanonical(content any) ([]byte, error) {
	var raw []byte
	switch v := content.(type) {
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	default:
		b, err := json.Marshal(content)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return canonicalJSON(raw)
}

// canonicalJSON re-encodes a document so that equal content compares equal
// byte for byte; encoding/json sorts map keys.
func canonicalJSON(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
