package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/events"
	"github.com/wordl-bot/wordl/internal/service/stats"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Clock() domain.Clock {
	return domain.Clock{Now: c.Now, Location: time.UTC}
}

// fakePicker hands out questions for word IDs 1..n in turn.
type fakePicker struct {
	mu    sync.Mutex
	words int
	next  int
	err   error
	calls int

	forgotten []domain.Scope
}

func (p *fakePicker) PickQuestion(_ context.Context, _ domain.Scope) (*domain.Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.words == 0 {
		return nil, domain.ErrNoWordsAvailable
	}
	id := int64(p.next%p.words + 1)
	p.next++
	return &domain.Question{
		WordID:      id,
		Prompt:      fmt.Sprintf("word%d", id),
		Correct:     fmt.Sprintf("answer%d", id),
		Distractors: []string{"x", "y", "z"},
	}, nil
}

func (p *fakePicker) Forget(scope domain.Scope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forgotten = append(p.forgotten, scope)
}

func (p *fakePicker) forgottenScopes() []domain.Scope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Scope(nil), p.forgotten...)
}

func (p *fakePicker) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakePicker) setWords(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.words = n
}

func (p *fakePicker) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// fakeRecorder counts calls and can be made to fail.
type fakeRecorder struct {
	mu         sync.Mutex
	points     stats.Points
	answers    []stats.Answer
	persisted  []*domain.SessionRecord
	answerErr  error
	persistErr error
	total      int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{points: stats.DefaultPoints()}
}

func (r *fakeRecorder) RecordAnswer(_ context.Context, a stats.Answer) (*stats.AnswerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.answerErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, r.answerErr)
	}
	r.answers = append(r.answers, a)
	delta := r.points.ForAnswer(a.Correct, a.Kind)
	r.total = max(r.total+delta, 0)
	return &stats.AnswerRecord{PointsDelta: delta, Points: r.total}, nil
}

func (r *fakeRecorder) PersistSessionSummary(_ context.Context, rec *domain.SessionRecord, unanswered int) (*domain.SessionSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.persistErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, r.persistErr)
	}
	rec.Percentage = domain.Percentage(rec.Correct, rec.Wrong)
	if rec.Answered() > 0 {
		rec.ID = int64(len(r.persisted) + 1)
		r.persisted = append(r.persisted, rec)
	}
	return domain.NewSessionSummary(rec, unanswered, nil), nil
}

func (r *fakeRecorder) setAnswerErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answerErr = err
}

func (r *fakeRecorder) setPersistErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistErr = err
}

func (r *fakeRecorder) answerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.answers)
}

func (r *fakeRecorder) persistCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.persisted)
}

// eventSink collects emitted session.finished payloads.
type eventSink struct {
	mu       sync.Mutex
	finished []events.SessionFinished
}

func (s *eventSink) HandleEvent(_ context.Context, event *events.Event) error {
	var p events.SessionFinished
	if err := event.UnmarshalPayload(&p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, p)
	return nil
}

func (s *eventSink) all() []events.SessionFinished {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.SessionFinished(nil), s.finished...)
}

type harness struct {
	engine   *Engine
	picker   *fakePicker
	recorder *fakeRecorder
	clock    *fakeClock
	sink     *eventSink
}

func newHarness(words int, opts ...Option) *harness {
	h := &harness{
		picker:   &fakePicker{words: words},
		recorder: newFakeRecorder(),
		clock:    newFakeClock(),
		sink:     &eventSink{},
	}
	emitter := events.NewInMemoryEventEmitter(discardLogger())
	emitter.RegisterHandler(h.sink)

	cfg := Config{DefaultQuestionCount: 5, FinishedRetention: 10 * time.Minute, IdleTimeout: time.Hour}
	all := append([]Option{WithClock(h.clock.Clock()), WithEmitter(emitter)}, opts...)
	h.engine = NewEngine(h.picker, h.recorder, cfg, discardLogger(), all...)
	return h
}
