package domain

import (
	"fmt"
	"time"
)

// Action is the kind of an appended stats event.
type Action string

// Possible action values
const (
	ActionAdded   Action = "added"
	ActionCorrect Action = "correct"
	ActionWrong   Action = "wrong"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionAdded, ActionCorrect, ActionWrong:
		return true
	default:
		return false
	}
}

// AnswerAction maps an answer's correctness to its action.
func AnswerAction(isCorrect bool) Action {
	if isCorrect {
		return ActionCorrect
	}
	return ActionWrong
}

// StatsEvent is an immutable record of an answer or an added word.
// WordID is 0 when the word no longer exists.
type StatsEvent struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	WordID    int64     `json:"word_id,omitempty"`
	Action    Action    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
	LocalDate time.Time `json:"local_date"`
}

// NewStatsEvent creates an event stamped with the clock's instant and local calendar date.
func NewStatsEvent(userID, wordID int64, action Action, clock Clock) (*StatsEvent, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: event user", ErrInvalidID)
	}
	if !action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}

	now := clock.Time()
	return &StatsEvent{
		UserID:    userID,
		WordID:    wordID,
		Action:    action,
		CreatedAt: now.UTC(),
		LocalDate: DateOf(now),
	}, nil
}

// AnswerAggregate is the running accuracy for one (user, value, category) triple.
// Value is the word's source text and Category the session kind it was answered in.
type AnswerAggregate struct {
	UserID   int64  `json:"user_id"`
	Value    string `json:"value"`
	Category string `json:"category"`
	Attempts int    `json:"attempts"`
	Correct  int    `json:"correct"`
}

// Accuracy returns the share of correct attempts as a percentage.
func (a AnswerAggregate) Accuracy() float64 {
	if a.Attempts == 0 {
		return 0
	}
	return float64(a.Correct) / float64(a.Attempts) * 100
}
