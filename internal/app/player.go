package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"lms-quiz-service/internal/domain"
)

// PlayerState is the phase of one quiz attempt.
type PlayerState string

const (
	StateInProgress PlayerState = "in_progress"
	StateSubmitted  PlayerState = "submitted"
	StateLockedOut  PlayerState = "locked_out"
)

// Grader is the external grading endpoint. Player submissions to it are
// fire-and-forget: a failure never rolls back a submitted attempt.
type Grader interface {
	SubmitResult(ctx context.Context, lessonID string, result domain.Result) (domain.GradeOutcome, error)
}

// Timer is the subset of *time.Timer the player needs.
type Timer interface {
	Stop() bool
}

// Notification is a transient message for the player UI.
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// PlayerEvent is delivered to subscribers: either a fresh view or a notification.
type PlayerEvent struct {
	Type         string        `json:"type"`
	View         *PlayerView   `json:"view,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}

// PlayerOption is a multiple choice option without its correctness flag.
type PlayerOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PlayerPrompt is the left side of a matching pair.
type PlayerPrompt struct {
	ID   string `json:"id"`
	Left string `json:"left"`
}

// PlayerQuestion is a question as shown to the student, without answers.
type PlayerQuestion struct {
	ID       string              `json:"id"`
	Type     domain.QuestionType `json:"type"`
	Question string              `json:"question"`
	Points   int                 `json:"points"`
	Options  []PlayerOption      `json:"options,omitempty"`
	Prompts  []PlayerPrompt      `json:"prompts,omitempty"`
	Choices  []string            `json:"choices,omitempty"`
}

// ReviewItem is the per-question outcome shown after submit.
type ReviewItem struct {
	QuestionID    string        `json:"questionId"`
	Question      string        `json:"question"`
	UserAnswer    domain.Answer `json:"userAnswer"`
	IsCorrect     bool          `json:"isCorrect"`
	CorrectAnswer string        `json:"correctAnswer,omitempty"`
	Explanation   string        `json:"explanation,omitempty"`
}

// PlayerView is a snapshot of the player for rendering.
type PlayerView struct {
	QuizID          string                   `json:"quizId"`
	Title           string                   `json:"title"`
	State           PlayerState              `json:"state"`
	CurrentIndex    int                      `json:"currentIndex"`
	TotalQuestions  int                      `json:"totalQuestions"`
	Question        *PlayerQuestion          `json:"question,omitempty"`
	Answers         map[string]domain.Answer `json:"answers"`
	CanGoNext       bool                     `json:"canGoNext"`
	CanGoPrevious   bool                     `json:"canGoPrevious"`
	CanSubmit       bool                     `json:"canSubmit"`
	TimeLeft        *int                     `json:"timeLeft,omitempty"` // seconds
	Attempts        int                      `json:"attempts"`
	AttemptsAllowed *int                     `json:"attemptsAllowed,omitempty"`
	Result          *domain.Result           `json:"result,omitempty"`
	Review          []ReviewItem             `json:"review,omitempty"`
}

// PlayerDeps wires a player to its collaborators. Only Ledger is required.
type PlayerDeps struct {
	Ledger    *AttemptLedger
	Grader    Grader
	Log       *zap.Logger
	Now       func() time.Time
	AfterFunc func(time.Duration, func()) Timer
	Shuffle   func(n int, swap func(i, j int))
}

func (d *PlayerDeps) defaults() {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.AfterFunc == nil {
		d.AfterFunc = func(dur time.Duration, f func()) Timer { return time.AfterFunc(dur, f) }
	}
	if d.Shuffle == nil {
		d.Shuffle = rand.Shuffle
	}
}

// Player runs one attempt of a quiz for one user.
type Player struct {
	deps   PlayerDeps
	quiz   domain.Quiz
	scope  string
	userID string
	ctx    context.Context

	mu          sync.Mutex
	state       PlayerState
	order       []int
	index       int
	answers     map[string]domain.Answer
	startedAt   time.Time
	deadline    time.Time
	timer       Timer
	attempts    int
	result      *domain.Result
	closed      bool
	subscribers map[chan PlayerEvent]struct{}
}

// StartPlayer mounts a player. When the attempt limit is already reached
// the player starts locked out and shows the last persisted result.
func StartPlayer(ctx context.Context, quiz domain.Quiz, userID string, deps PlayerDeps) (*Player, error) {
	deps.defaults()
	if deps.Ledger == nil {
		return nil, fmt.Errorf("player requires an attempt ledger")
	}
	p := &Player{
		deps:        deps,
		quiz:        quiz.Clone(),
		scope:       AttemptScope(userID, quiz.ID),
		userID:      userID,
		ctx:         context.WithoutCancel(ctx),
		answers:     make(map[string]domain.Answer),
		subscribers: make(map[chan PlayerEvent]struct{}),
	}

	attempts, err := deps.Ledger.Attempts(ctx, p.scope)
	if err != nil {
		return nil, err
	}
	p.attempts = attempts

	if quiz.AttemptsAllowed != nil && attempts >= *quiz.AttemptsAllowed {
		last, err := deps.Ledger.LastResult(ctx, p.scope)
		if err != nil {
			return nil, err
		}
		p.state = StateLockedOut
		p.result = last
		return p, nil
	}

	p.state = StateInProgress
	p.order = make([]int, len(p.quiz.Questions))
	for i := range p.order {
		p.order[i] = i
	}
	if p.quiz.ShuffleQuestions {
		deps.Shuffle(len(p.order), func(i, j int) { p.order[i], p.order[j] = p.order[j], p.order[i] })
	}
	p.startedAt = deps.Now()
	if p.quiz.TimeLimit != nil && *p.quiz.TimeLimit > 0 {
		limit := time.Duration(*p.quiz.TimeLimit) * time.Minute
		p.deadline = p.startedAt.Add(limit)
		p.timer = deps.AfterFunc(limit, p.expire)
	}
	return p, nil
}

// State returns the current phase.
func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Answer stores the answer for a question, replacing any previous one.
func (p *Player) Answer(questionID string, answer domain.Answer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateInProgress {
		return domain.ErrNotInProgress
	}
	if p.findQuestion(questionID) == nil {
		return domain.ErrQuestionNotFound
	}
	if answer.Empty() {
		delete(p.answers, questionID)
	} else {
		p.answers[questionID] = answer
	}
	p.broadcastLocked()
	return nil
}

// Next moves forward one question. It refuses to skip an unanswered
// question and stays put on the last one.
func (p *Player) Next() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateInProgress {
		return domain.ErrNotInProgress
	}
	if !p.currentAnsweredLocked() {
		return domain.ErrAnswerRequired
	}
	p.index = clamp(p.index+1, 0, len(p.order)-1)
	p.broadcastLocked()
	return nil
}

// Previous moves back one question, stopping at the first.
func (p *Player) Previous() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateInProgress {
		return domain.ErrNotInProgress
	}
	p.index = clamp(p.index-1, 0, len(p.order)-1)
	p.broadcastLocked()
	return nil
}

// Submit scores the attempt, records it and reports it to the grader.
func (p *Player) Submit(ctx context.Context) (domain.Result, error) {
	result, err := p.submit(ctx, false)
	if err != nil {
		return domain.Result{}, err
	}
	p.reportToGrader(ctx, result)
	return result, nil
}

// expire runs when the countdown hits zero. Only the first call submits.
func (p *Player) expire() {
	result, err := p.submit(p.ctx, true)
	if err != nil {
		if !errors.Is(err, domain.ErrNotInProgress) {
			p.deps.Log.Error("auto-submit on timeout failed", zap.String("scope", p.scope), zap.Error(err))
		}
		return
	}
	p.deps.Log.Info("quiz time expired, attempt submitted", zap.String("scope", p.scope))
	p.reportToGrader(p.ctx, result)
}

func (p *Player) submit(ctx context.Context, expired bool) (domain.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateInProgress || (expired && p.closed) {
		return domain.Result{}, domain.ErrNotInProgress
	}

	now := p.deps.Now()
	spent := now.Sub(p.startedAt)
	if !p.deadline.IsZero() && now.After(p.deadline) {
		spent = p.deadline.Sub(p.startedAt)
	}
	result := ScoreQuiz(p.quiz, p.answers, spent)
	result.SubmittedAt = now

	attempts, err := p.deps.Ledger.Record(ctx, p.scope, result)
	if err != nil {
		return domain.Result{}, fmt.Errorf("record attempt: %w", err)
	}
	p.attempts = attempts
	p.result = &result
	p.state = StateSubmitted
	if p.timer != nil {
		p.timer.Stop()
	}
	p.broadcastLocked()
	return result, nil
}

func (p *Player) reportToGrader(ctx context.Context, result domain.Result) {
	if p.deps.Grader == nil {
		return
	}
	outcome, err := p.deps.Grader.SubmitResult(ctx, p.quiz.ID, result)
	if err != nil {
		p.deps.Log.Warn("grading submission failed", zap.String("scope", p.scope), zap.Error(err))
		p.notify(Notification{Level: "error", Message: "Failed to submit quiz results"})
		return
	}
	if outcome.Passed {
		p.notify(Notification{Level: "success", Message: "Quiz passed"})
	} else {
		p.notify(Notification{Level: "info", Message: "Quiz submitted"})
	}
}

// View returns a snapshot for rendering.
func (p *Player) View() PlayerView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

// Review returns the per-question outcome of the submitted or last result.
// Correct answers and explanations are only revealed when the quiz allows it.
func (p *Player) Review() []ReviewItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reviewLocked()
}

// Subscribe returns a channel of player events. The caller must invoke the
// returned cancel function to avoid leaks.
func (p *Player) Subscribe() (<-chan PlayerEvent, func()) {
	ch := make(chan PlayerEvent, 8)

	p.mu.Lock()
	p.subscribers[ch] = struct{}{}
	view := p.viewLocked()
	// The channel is fresh, so the first snapshot never blocks.
	ch <- PlayerEvent{Type: "state", View: &view}
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		if _, ok := p.subscribers[ch]; ok {
			delete(p.subscribers, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
	return ch, cancel
}

// Close stops the countdown. A closed player never auto-submits.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
	}
}

func (p *Player) notify(n Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendLocked(PlayerEvent{Type: "notification", Notification: &n})
}

func (p *Player) broadcastLocked() {
	view := p.viewLocked()
	p.sendLocked(PlayerEvent{Type: "state", View: &view})
}

func (p *Player) sendLocked(event PlayerEvent) {
	for ch := range p.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest event so a slow reader never blocks the player.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

func (p *Player) viewLocked() PlayerView {
	view := PlayerView{
		QuizID:          p.quiz.ID,
		Title:           p.quiz.Title,
		State:           p.state,
		CurrentIndex:    p.index,
		TotalQuestions:  len(p.quiz.Questions),
		Answers:         make(map[string]domain.Answer, len(p.answers)),
		Attempts:        p.attempts,
		AttemptsAllowed: copyIntPtr(p.quiz.AttemptsAllowed),
	}
	for id, a := range p.answers {
		view.Answers[id] = a
	}

	switch p.state {
	case StateInProgress:
		if len(p.order) > 0 {
			q := p.quiz.Questions[p.order[p.index]]
			view.Question = presentQuestion(q)
		}
		last := p.index >= len(p.order)-1
		view.CanGoPrevious = p.index > 0
		view.CanGoNext = !last && p.currentAnsweredLocked()
		view.CanSubmit = last
		if !p.deadline.IsZero() {
			left := int(math.Ceil(p.deadline.Sub(p.deps.Now()).Seconds()))
			if left < 0 {
				left = 0
			}
			view.TimeLeft = &left
		}
	case StateSubmitted, StateLockedOut:
		if p.result != nil {
			r := *p.result
			view.Result = &r
			view.Review = p.reviewLocked()
		}
	}
	return view
}

func (p *Player) reviewLocked() []ReviewItem {
	if p.result == nil {
		return nil
	}
	items := make([]ReviewItem, 0, len(p.result.Answers))
	for _, record := range p.result.Answers {
		item := ReviewItem{
			QuestionID: record.QuestionID,
			UserAnswer: record.UserAnswer,
			IsCorrect:  record.IsCorrect,
		}
		if q := p.findQuestion(record.QuestionID); q != nil {
			item.Question = q.Question
			if p.quiz.ShowCorrectAnswers {
				item.CorrectAnswer = correctAnswerText(*q)
			}
			if p.quiz.ShowExplanations {
				item.Explanation = q.Explanation
			}
		}
		items = append(items, item)
	}
	return items
}

func (p *Player) currentAnsweredLocked() bool {
	if len(p.order) == 0 {
		return false
	}
	_, ok := p.answers[p.quiz.Questions[p.order[p.index]].ID]
	return ok
}

func (p *Player) findQuestion(id string) *domain.Question {
	for i := range p.quiz.Questions {
		if p.quiz.Questions[i].ID == id {
			return &p.quiz.Questions[i]
		}
	}
	return nil
}

func presentQuestion(q domain.Question) *PlayerQuestion {
	out := &PlayerQuestion{
		ID:       q.ID,
		Type:     q.Type,
		Question: q.Question,
		Points:   q.Points,
	}
	for _, o := range q.Options {
		out.Options = append(out.Options, PlayerOption{ID: o.ID, Text: o.Text})
	}
	for _, pair := range q.Pairs {
		out.Prompts = append(out.Prompts, PlayerPrompt{ID: pair.ID, Left: pair.Left})
		out.Choices = append(out.Choices, pair.Right)
	}
	// Right-hand choices are listed alphabetically so their order gives nothing away.
	sort.Strings(out.Choices)
	return out
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
