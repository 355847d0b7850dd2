package domain

import "time"

// Transition describes how an answer moved a word's mastery level.
type Transition string

// Possible transitions
const (
	TransitionNone     Transition = "none"
	TransitionPromoted Transition = "promoted"
	TransitionDemoted  Transition = "demoted"
)

// ReviewOutcome is the scheduler's decision for one answer.
// It carries the full set of mastery fields to write back to the word row.
type ReviewOutcome struct {
	NewLevel      int        `json:"new_level"`
	NextEligible  *time.Time `json:"next_eligible,omitempty"`
	NewStreak     int        `json:"new_streak"`
	NewWrongCount int        `json:"new_wrong_count"`
	ResetStreak   bool       `json:"reset_streak"`
	Transition    Transition `json:"transition"`
}

// ChangesMastery reports whether the outcome promoted or demoted the word.
// Cached eligible sets that contain the word must be dropped after such an outcome commits.
func (o ReviewOutcome) ChangesMastery() bool {
	return o.Transition == TransitionPromoted || o.Transition == TransitionDemoted
}

// Apply returns a copy of w with the outcome's mastery fields.
func (o ReviewOutcome) Apply(w Word) Word {
	w.Level = o.NewLevel
	w.NextEligible = o.NextEligible
	w.CorrectStreak = o.NewStreak
	w.WrongCount = o.NewWrongCount
	return w
}
