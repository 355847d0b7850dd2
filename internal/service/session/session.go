package session

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/events"
)

// State is the lifecycle state of a session.
type State string

// Possible session states
const (
	StateCreated        State = "created"
	StateAwaitingAnswer State = "awaiting_answer"
	StateScored         State = "scored"
	StateFinished       State = "finished"
	StateNoWords        State = "no_words" // terminal, distinct from a normal finish
	StateCancelled      State = "cancelled"
)

// Terminal reports whether no further question or answer is accepted.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateNoWords || s == StateCancelled
}

// Info is a point-in-time snapshot of a session.
type Info struct {
	ID        uuid.UUID
	UserID    int64
	Scope     domain.Scope
	Kind      domain.SessionKind
	State     State
	Index     int // index of the current or next question
	Target    int // question count; 0 for blitz
	Correct   int
	Wrong     int
	Score     int
	StartedAt time.Time
	Deadline  time.Time // zero for quiz
}

// AnswerResult is the outcome of one accepted answer.
type AnswerResult struct {
	IsCorrect    bool
	CorrectValue string
	PointsDelta  int
	Points       int
	// Finished is set when this answer completed the quiz; Summary is then filled.
	Finished bool
	Summary  *domain.SessionSummary
}

// session is the mutable state of one quiz or blitz run. Every field below mu
// is guarded by it. finalized flips exactly once per successful finalization,
// by compare-and-swap under mu, and is also read without the lock.
type session struct {
	id        uuid.UUID
	userID    int64
	scope     domain.Scope
	kind      domain.SessionKind
	target    int
	deadline  time.Time
	startedAt time.Time

	mu           sync.Mutex
	state        State
	current      *domain.Question
	asked        []*domain.Question
	index        int
	correct      int
	wrong        int
	score        int
	lastActivity time.Time
	timer        *time.Timer

	summary    *domain.SessionSummary
	reason     events.FinishReason
	finishedAt time.Time

	finalized atomic.Bool
}

func newSession(userID int64, scope domain.Scope, kind domain.SessionKind, now time.Time) *session {
	return &session{
		id:           uuid.New(),
		userID:       userID,
		scope:        scope,
		kind:         kind,
		startedAt:    now,
		state:        StateCreated,
		lastActivity: now,
	}
}

// expired reports whether a blitz deadline has passed at now.
func (s *session) expired(now time.Time) bool {
	return s.kind == domain.SessionKindBlitz && !now.Before(s.deadline)
}

// idle reports whether a quiz has seen no action for timeout; callers hold mu.
func (s *session) idleLocked(now time.Time, timeout time.Duration) bool {
	return s.kind == domain.SessionKindQuiz && timeout > 0 && now.Sub(s.lastActivity) >= timeout
}

// complete reports whether a quiz has answered its question count; callers hold mu.
func (s *session) completeLocked() bool {
	return s.kind == domain.SessionKindQuiz && s.index >= s.target
}

// finishReasonLocked is ReasonCompleted for a quiz that reached its count and
// fallback otherwise; callers hold mu.
func (s *session) finishReasonLocked(fallback events.FinishReason) events.FinishReason {
	if s.completeLocked() {
		return events.ReasonCompleted
	}
	return fallback
}

// unansweredLocked counts questions that were never scored.
// For a quiz that is the remainder of its count; for blitz the pending question, if any.
func (s *session) unansweredLocked() int {
	if s.kind == domain.SessionKindQuiz {
		return max(s.target-(s.correct+s.wrong), 0)
	}
	if s.state == StateAwaitingAnswer {
		return 1
	}
	return 0
}

func (s *session) recordLocked(finishedAt time.Time) *domain.SessionRecord {
	return &domain.SessionRecord{
		UserID:     s.userID,
		GroupID:    s.scope.GroupID,
		Kind:       s.kind,
		Correct:    s.correct,
		Wrong:      s.wrong,
		Score:      s.score,
		StartedAt:  s.startedAt,
		FinishedAt: finishedAt,
	}
}

func (s *session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *session) infoLocked() Info {
	return Info{
		ID:        s.id,
		UserID:    s.userID,
		Scope:     s.scope,
		Kind:      s.kind,
		State:     s.state,
		Index:     s.index,
		Target:    s.target,
		Correct:   s.correct,
		Wrong:     s.wrong,
		Score:     s.score,
		StartedAt: s.startedAt,
		Deadline:  s.deadline,
	}
}

func copyQuestion(q *domain.Question) *domain.Question {
	cp := *q
	cp.Distractors = slices.Clone(q.Distractors)
	return &cp
}
