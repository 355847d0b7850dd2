package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/events"
	"github.com/wordl-bot/wordl/internal/platform/logger"
	"github.com/wordl-bot/wordl/internal/service/stats"
	"github.com/wordl-bot/wordl/internal/task"
)

// QuestionPicker chooses the next question of a scope. picker.Picker satisfies it.
type QuestionPicker interface {
	PickQuestion(ctx context.Context, scope domain.Scope) (*domain.Question, error)
}

// scopeForgetter is implemented by pickers that remember the last word asked
// per scope.
type scopeForgetter interface {
	Forget(scope domain.Scope)
}

// AnswerRecorder persists answers and finished sessions. *stats.Recorder satisfies it.
type AnswerRecorder interface {
	RecordAnswer(ctx context.Context, a stats.Answer) (*stats.AnswerRecord, error)
	PersistSessionSummary(ctx context.Context, rec *domain.SessionRecord, unanswered int) (*domain.SessionSummary, error)
}

// Config holds the engine's tunables.
type Config struct {
	// DefaultQuestionCount is used when a quiz is started with count 0.
	DefaultQuestionCount int
	// FinishedRetention is how long a finished session stays addressable.
	FinishedRetention time.Duration
	// IdleTimeout finalizes quizzes with no action for this long; 0 disables it.
	IdleTimeout time.Duration
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		DefaultQuestionCount: 10,
		FinishedRetention:    10 * time.Minute,
		IdleTimeout:          2 * time.Hour,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for deadlines and timestamps.
func WithClock(clock domain.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithEmitter publishes a session.finished event on every finalization.
func WithEmitter(emitter events.EventEmitter) Option {
	return func(e *Engine) {
		e.emitter = emitter
	}
}

// WithTaskQueue runs blitz expiry on the given queue instead of the timer goroutine.
func WithTaskQueue(queue task.TaskQueueWriter) Option {
	return func(e *Engine) {
		e.tasks = queue
	}
}

// Engine runs quiz and blitz sessions. It keeps at most one active session per
// user and retains finished sessions for Config.FinishedRetention so late
// actions are acknowledged as stale instead of failing.
//
// Lock order is engine before session; the engine lock is never held while
// waiting on a session.
type Engine struct {
	picker   QuestionPicker
	recorder AnswerRecorder
	config   Config
	clock    domain.Clock
	emitter  events.EventEmitter
	tasks    task.TaskQueueWriter
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	active   map[int64]uuid.UUID
	closed   bool
}

// finished carries a finalization out of the session lock so the event is
// emitted without holding it.
type finished struct {
	session *session
	summary *domain.SessionSummary
	reason  events.FinishReason
}

// NewEngine creates an Engine. It panics if picker or recorder is nil.
func NewEngine(picker QuestionPicker, recorder AnswerRecorder, config Config, log *slog.Logger, opts ...Option) *Engine {
	if picker == nil {
		panic("picker cannot be nil")
	}
	if recorder == nil {
		panic("recorder cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	if config.DefaultQuestionCount <= 0 {
		config.DefaultQuestionCount = DefaultConfig().DefaultQuestionCount
	}

	e := &Engine{
		picker:   picker,
		recorder: recorder,
		config:   config,
		clock:    domain.SystemClock(time.UTC),
		logger:   log.With(slog.String("component", "session_engine")),
		sessions: make(map[uuid.UUID]*session),
		active:   make(map[int64]uuid.UUID),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartQuizSession starts a quiz of count questions in the user's personal
// scope (groupID 0) or in a group. A count of 0 uses the default. Any session
// the user already has is cancelled.
func (e *Engine) StartQuizSession(ctx context.Context, userID, groupID int64, count int) (uuid.UUID, error) {
	if count == 0 {
		count = e.config.DefaultQuestionCount
	}
	if count < 0 {
		return uuid.Nil, ErrInvalidQuestionCount
	}
	scope := domain.GroupScope(userID, groupID)
	if err := scope.Validate(); err != nil {
		return uuid.Nil, err
	}

	s := newSession(userID, scope, domain.SessionKindQuiz, e.clock.Time())
	s.target = count
	if err := e.register(ctx, s); err != nil {
		return uuid.Nil, err
	}

	_, log := e.withSession(ctx, s)
	log.Info("quiz session started", slog.Int("question_count", count), slog.Int64("group_id", groupID))
	return s.id, nil
}

// StartBlitzSession starts a blitz that finalizes itself after duration.
// Any session the user already has is cancelled.
func (e *Engine) StartBlitzSession(ctx context.Context, userID, groupID int64, duration time.Duration) (uuid.UUID, error) {
	if duration <= 0 {
		return uuid.Nil, ErrInvalidDuration
	}
	scope := domain.GroupScope(userID, groupID)
	if err := scope.Validate(); err != nil {
		return uuid.Nil, err
	}

	now := e.clock.Time()
	s := newSession(userID, scope, domain.SessionKindBlitz, now)
	s.deadline = now.Add(duration)
	if err := e.register(ctx, s); err != nil {
		return uuid.Nil, err
	}

	s.mu.Lock()
	if !s.finalized.Load() {
		id := s.id
		s.timer = time.AfterFunc(duration, func() { e.onDeadline(id) })
	}
	s.mu.Unlock()

	_, log := e.withSession(ctx, s)
	log.Info("blitz session started", slog.Duration("duration", duration), slog.Int64("group_id", groupID))
	return s.id, nil
}

// NextQuestion returns the question awaiting an answer, picking a new one when
// the previous answer has been scored. Calling it again before answering
// returns the same question.
//
// Returns:
//   - (*domain.Question, nil): The current question
//   - (nil, domain.ErrNoWordsAvailable): The scope ran out of words; the session is over
//   - (nil, domain.ErrStaleSessionAction): The session has finished or expired
//   - (nil, *ServiceError): A store call failed; the session is unchanged
func (e *Engine) NextQuestion(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	s, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	ctx, log := e.withSession(ctx, s)

	s.mu.Lock()
	q, fin, err := e.nextLocked(ctx, s)
	s.mu.Unlock()

	e.afterFinish(ctx, fin)
	if err != nil && !errors.Is(err, domain.ErrStaleSessionAction) && !errors.Is(err, domain.ErrNoWordsAvailable) {
		log.Error("failed to get next question", slog.String("error", err.Error()))
	}
	return q, err
}

func (e *Engine) nextLocked(ctx context.Context, s *session) (*domain.Question, *finished, error) {
	if s.finalized.Load() {
		if s.state == StateNoWords {
			return nil, nil, domain.ErrNoWordsAvailable
		}
		return nil, nil, domain.ErrStaleSessionAction
	}
	if s.state == StateAwaitingAnswer {
		return copyQuestion(s.current), nil, nil
	}

	now := e.clock.Time()
	if s.expired(now) {
		return nil, nil, domain.ErrStaleSessionAction
	}
	if s.completeLocked() {
		// The last answer was scored but its summary was not stored.
		fin, err := e.finalizeLocked(ctx, s, events.ReasonCompleted)
		if err != nil {
			return nil, nil, newServiceError("next_question", "failed to finish completed quiz", err)
		}
		return nil, fin, domain.ErrStaleSessionAction
	}

	q, err := e.picker.PickQuestion(ctx, s.scope)
	if errors.Is(err, domain.ErrNoWordsAvailable) {
		fin, ferr := e.finalizeLocked(ctx, s, events.ReasonNoWords)
		if ferr != nil {
			return nil, nil, newServiceError("next_question", "failed to finish session without words", ferr)
		}
		return nil, fin, domain.ErrNoWordsAvailable
	}
	if err != nil {
		return nil, nil, newServiceError("next_question", "failed to pick question", err)
	}

	q.Index = s.index
	s.current = q
	s.state = StateAwaitingAnswer
	s.lastActivity = now
	return copyQuestion(q), nil, nil
}

// SubmitAnswer scores chosen against the question at index. An answer for a
// question other than the pending one, or for a finished or expired session,
// is rejected with domain.ErrStaleSessionAction and changes nothing.
func (e *Engine) SubmitAnswer(ctx context.Context, id uuid.UUID, index int, chosen string) (*AnswerResult, error) {
	s, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	ctx, log := e.withSession(ctx, s)

	s.mu.Lock()
	res, fin, err := e.submitLocked(ctx, s, index, chosen)
	s.mu.Unlock()

	e.afterFinish(ctx, fin)
	if errors.Is(err, domain.ErrStaleSessionAction) {
		log.Debug("ignoring stale answer", slog.Int("index", index))
	} else if err != nil {
		log.Error("failed to submit answer", slog.Int("index", index), slog.String("error", err.Error()))
	}
	return res, err
}

func (e *Engine) submitLocked(ctx context.Context, s *session, index int, chosen string) (*AnswerResult, *finished, error) {
	if s.finalized.Load() || s.state != StateAwaitingAnswer || s.current == nil || s.current.Index != index || s.completeLocked() {
		return nil, nil, domain.ErrStaleSessionAction
	}
	now := e.clock.Time()
	if s.expired(now) {
		return nil, nil, domain.ErrStaleSessionAction
	}

	q := s.current
	isCorrect := q.IsCorrect(chosen)
	rec, err := e.recorder.RecordAnswer(ctx, stats.Answer{
		UserID:  s.userID,
		WordID:  q.WordID,
		Prompt:  q.Prompt,
		Correct: isCorrect,
		Kind:    s.kind,
	})
	if err != nil {
		return nil, nil, newServiceError("submit_answer", "failed to record answer", err)
	}

	if isCorrect {
		s.correct++
	} else {
		s.wrong++
	}
	s.score += rec.PointsDelta
	s.asked = append(s.asked, q)
	s.current = nil
	s.index++
	s.state = StateScored
	s.lastActivity = now

	res := &AnswerResult{
		IsCorrect:    isCorrect,
		CorrectValue: q.Correct,
		PointsDelta:  rec.PointsDelta,
		Points:       rec.Points,
	}
	if !s.completeLocked() {
		return res, nil, nil
	}

	fin, err := e.finalizeLocked(ctx, s, events.ReasonCompleted)
	if err != nil {
		// The answer itself is stored; the summary can be retried with FinishSession.
		logger.FromContextOrDefault(ctx, e.logger).Warn("failed to finish completed quiz",
			slog.String("error", err.Error()))
		return res, nil, nil
	}
	res.Finished = true
	res.Summary = fin.summary
	return res, fin, nil
}

// FinishSession finalizes the session early and returns its summary. Unanswered
// questions count as not attempted. Calling it again returns the same summary.
// A quiz whose completion could not be stored is finished as completed.
func (e *Engine) FinishSession(ctx context.Context, id uuid.UUID) (*domain.SessionSummary, error) {
	s, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	ctx, log := e.withSession(ctx, s)

	s.mu.Lock()
	var fin *finished
	summary := s.summary
	if !s.finalized.Load() {
		fin, err = e.finalizeLocked(ctx, s, s.finishReasonLocked(events.ReasonQuit))
		if fin != nil {
			summary = fin.summary
		}
	} else if s.state == StateCancelled {
		err = domain.ErrStaleSessionAction
	}
	s.mu.Unlock()

	e.afterFinish(ctx, fin)
	if err != nil {
		if !errors.Is(err, domain.ErrStaleSessionAction) {
			log.Error("failed to finish session", slog.String("error", err.Error()))
			err = newServiceError("finish_session", "failed to persist summary", err)
		}
		return nil, err
	}
	return summary, nil
}

// CancelSession discards the session without persisting anything. Cancelling
// a finished session is a no-op.
func (e *Engine) CancelSession(ctx context.Context, id uuid.UUID) error {
	s, err := e.lookup(id)
	if err != nil {
		return err
	}
	e.cancel(ctx, s)
	return nil
}

func (e *Engine) cancel(ctx context.Context, s *session) {
	_, log := e.withSession(ctx, s)

	s.mu.Lock()
	cancelled := s.finalized.CompareAndSwap(false, true)
	if cancelled {
		s.state = StateCancelled
		s.current = nil
		s.finishedAt = e.clock.Time()
		s.stopTimerLocked()
	}
	s.mu.Unlock()

	if cancelled {
		e.deactivate(s)
		if f, ok := e.picker.(scopeForgetter); ok {
			f.Forget(s.scope)
		}
		log.Info("session cancelled")
	}
}

// Info returns a snapshot of the session.
func (e *Engine) Info(id uuid.UUID) (Info, error) {
	s, err := e.lookup(id)
	if err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked(), nil
}

// ActiveSession returns the user's unfinished session, if any.
func (e *Engine) ActiveSession(userID int64) (uuid.UUID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.active[userID]
	return id, ok
}

// Len returns the number of sessions held, finished ones included.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Close stops accepting sessions and finalizes every unfinished one as quit,
// including sessions that never asked a question. Errors from individual
// finalizations are joined.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	list := e.snapshotLocked()
	e.mu.Unlock()

	var errs []error
	for _, s := range list {
		s.mu.Lock()
		s.stopTimerLocked()
		var fin *finished
		var err error
		if !s.finalized.Load() {
			fin, err = e.finalizeLocked(ctx, s, s.finishReasonLocked(events.ReasonQuit))
		}
		s.mu.Unlock()

		e.afterFinish(ctx, fin)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// finalizeLocked persists the summary exactly once. A failed persist leaves
// the session unfinalized so a later caller can retry. It returns nil, nil
// when another caller already finalized the session.
func (e *Engine) finalizeLocked(ctx context.Context, s *session, reason events.FinishReason) (*finished, error) {
	if !s.finalized.CompareAndSwap(false, true) {
		return nil, nil
	}

	now := e.clock.Time()
	summary, err := e.recorder.PersistSessionSummary(ctx, s.recordLocked(now), s.unansweredLocked())
	if err != nil {
		s.finalized.Store(false)
		return nil, err
	}

	s.summary = summary
	s.reason = reason
	s.finishedAt = now
	s.current = nil
	s.stopTimerLocked()
	if reason == events.ReasonNoWords {
		s.state = StateNoWords
	} else {
		s.state = StateFinished
	}
	return &finished{session: s, summary: summary, reason: reason}, nil
}

// afterFinish releases the user's active slot and publishes the event.
// It must be called without holding the session lock.
func (e *Engine) afterFinish(ctx context.Context, fin *finished) {
	if fin == nil {
		return
	}
	s := fin.session
	e.deactivate(s)

	log := logger.FromContextOrDefault(ctx, e.logger)
	log.Info("session finished",
		slog.String("reason", string(fin.reason)),
		slog.Int("correct", fin.summary.Correct),
		slog.Int("wrong", fin.summary.Wrong),
		slog.Float64("percentage", fin.summary.Percentage))

	if e.emitter == nil {
		return
	}
	event, err := events.NewSessionFinishedEvent(events.SessionFinished{
		SessionID: s.id,
		UserID:    s.userID,
		GroupID:   s.scope.GroupID,
		Kind:      s.kind,
		Reason:    fin.reason,
		Summary:   fin.summary,
	})
	if err != nil {
		log.Error("failed to build session finished event", slog.String("error", err.Error()))
		return
	}
	if err := e.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("failed to emit session finished event", slog.String("error", err.Error()))
	}
}

func (e *Engine) register(ctx context.Context, s *session) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	var previous *session
	if oldID, ok := e.active[s.userID]; ok {
		previous = e.sessions[oldID]
	}
	e.sessions[s.id] = s
	e.active[s.userID] = s.id
	e.mu.Unlock()

	if previous != nil {
		e.cancel(ctx, previous)
	}
	return nil
}

func (e *Engine) lookup(id uuid.UUID) (*session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// deactivate clears the user's active slot if it still points at s.
func (e *Engine) deactivate(s *session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active[s.userID] == s.id {
		delete(e.active, s.userID)
	}
}

func (e *Engine) remove(s *session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, s.id)
	if e.active[s.userID] == s.id {
		delete(e.active, s.userID)
	}
}

func (e *Engine) snapshotLocked() []*session {
	list := make([]*session, 0, len(e.sessions))
	for _, s := range e.sessions {
		list = append(list, s)
	}
	return list
}

// withSession tags the context logger with the session's identity.
func (e *Engine) withSession(ctx context.Context, s *session) (context.Context, *slog.Logger) {
	ctx = logger.WithLogger(ctx, logger.FromContextOrDefault(ctx, e.logger))
	ctx = logger.WithAttrs(ctx,
		slog.String("session_id", s.id.String()),
		slog.Int64("user_id", s.userID),
		slog.String("kind", string(s.kind)))
	return ctx, logger.FromContext(ctx)
}
