package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// SessionKind distinguishes untimed quizzes from time-boxed blitz runs.
type SessionKind string

// Possible session kinds
const (
	SessionKindQuiz  SessionKind = "quiz"
	SessionKindBlitz SessionKind = "blitz"
)

// Valid reports whether k is a known session kind.
func (k SessionKind) Valid() bool {
	return k == SessionKindQuiz || k == SessionKindBlitz
}

// DistractorCount is the number of wrong options generated per question.
const DistractorCount = 3

// Question is one multiple-choice item bound into a session.
// The correct answer is reported by value so presentation can shuffle freely.
type Question struct {
	Index       int      `json:"index"`
	WordID      int64    `json:"word_id"`
	Prompt      string   `json:"prompt"`
	Correct     string   `json:"correct"`
	Distractors []string `json:"distractors"`
}

// Options returns the correct answer followed by the distractors.
func (q *Question) Options() []string {
	opts := make([]string, 0, len(q.Distractors)+1)
	opts = append(opts, q.Correct)
	return append(opts, q.Distractors...)
}

// IsCorrect reports whether choice is the correct answer.
func (q *Question) IsCorrect(choice string) bool {
	return strings.TrimSpace(choice) == q.Correct
}

// SessionRecord is the persisted result of one finished session.
type SessionRecord struct {
	ID         int64       `json:"id"`
	UserID     int64       `json:"user_id"`
	GroupID    int64       `json:"group_id,omitempty"`
	Kind       SessionKind `json:"kind"`
	Correct    int         `json:"correct"`
	Wrong      int         `json:"wrong"`
	Percentage float64     `json:"percentage"`
	Score      int         `json:"score"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

// Answered returns the number of scored questions.
func (r *SessionRecord) Answered() int {
	return r.Correct + r.Wrong
}

// Validate checks if the SessionRecord has valid data.
func (r *SessionRecord) Validate() error {
	if r.UserID <= 0 {
		return fmt.Errorf("%w: session user", ErrInvalidID)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: unknown session kind %q", ErrValidation, r.Kind)
	}
	if r.Correct < 0 || r.Wrong < 0 {
		return fmt.Errorf("%w: negative answer counts", ErrValidation)
	}
	return nil
}

// UserAggregates folds every persisted session of a user.
type UserAggregates struct {
	UserID            int64      `json:"user_id"`
	TotalSessions     int        `json:"total_sessions"`
	TotalQuestions    int        `json:"total_questions"`
	TotalCorrect      int        `json:"total_correct"`
	TotalWrong        int        `json:"total_wrong"`
	AveragePercentage float64    `json:"average_percentage"`
	BestPercentage    float64    `json:"best_percentage"`
	BestSessionID     int64      `json:"best_session_id,omitempty"`
	LastSessionAt     *time.Time `json:"last_session_at,omitempty"`
}

// Fold returns the aggregates after adding rec. The rolling average is taken over
// all answered questions, and a tie with the best percentage moves the best
// session to the newer record.
func (a UserAggregates) Fold(rec *SessionRecord) UserAggregates {
	next := a
	next.UserID = rec.UserID
	next.TotalSessions++
	next.TotalQuestions += rec.Answered()
	next.TotalCorrect += rec.Correct
	next.TotalWrong += rec.Wrong
	next.AveragePercentage = Percentage(next.TotalCorrect, next.TotalQuestions-next.TotalCorrect)

	if rec.Percentage >= next.BestPercentage {
		next.BestPercentage = rec.Percentage
		next.BestSessionID = rec.ID
	}

	finished := rec.FinishedAt
	next.LastSessionAt = &finished
	return next
}

// SessionSummary is returned when a session finishes.
type SessionSummary struct {
	SessionRecordID int64       `json:"session_record_id,omitempty"`
	Kind            SessionKind `json:"kind"`
	Correct         int         `json:"correct"`
	Wrong           int         `json:"wrong"`
	Unanswered      int         `json:"unanswered"`
	Percentage      float64     `json:"percentage"`
	RollingAverage  float64     `json:"rolling_average"`
	BestPercentage  float64     `json:"best_percentage"`
	Score           int         `json:"score"`
	StartedAt       time.Time   `json:"started_at"`
	FinishedAt      time.Time   `json:"finished_at"`
}

// NewSessionSummary combines a session's own counts with the user's aggregates.
func NewSessionSummary(rec *SessionRecord, unanswered int, aggregates *UserAggregates) *SessionSummary {
	s := &SessionSummary{
		SessionRecordID: rec.ID,
		Kind:            rec.Kind,
		Correct:         rec.Correct,
		Wrong:           rec.Wrong,
		Unanswered:      unanswered,
		Percentage:      rec.Percentage,
		Score:           rec.Score,
		StartedAt:       rec.StartedAt,
		FinishedAt:      rec.FinishedAt,
	}
	if aggregates != nil {
		s.RollingAverage = aggregates.AveragePercentage
		s.BestPercentage = aggregates.BestPercentage
	}
	return s
}

// Percentage returns correct / (correct + wrong) * 100 rounded to two decimals,
// or 0 when nothing was answered.
func Percentage(correct, wrong int) float64 {
	total := correct + wrong
	if total <= 0 {
		return 0
	}
	p := float64(correct) / float64(total) * 100
	return math.Round(p*100) / 100
}
