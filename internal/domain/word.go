package domain

import (
	"fmt"
	"strings"
	"time"
)

// Scope bounds which words take part in a quiz or a cache lookup.
// A zero GroupID is the user's personal scope; otherwise the scope covers
// every word in the group, whoever owns it.
type Scope struct {
	UserID  int64
	GroupID int64
}

// PersonalScope returns the scope of all words owned by a user.
func PersonalScope(userID int64) Scope {
	return Scope{UserID: userID}
}

// GroupScope returns the scope of a group's words as seen by a learner.
func GroupScope(userID, groupID int64) Scope {
	return Scope{UserID: userID, GroupID: groupID}
}

// HasGroup reports whether the scope is bound to a group.
func (s Scope) HasGroup() bool {
	return s.GroupID != 0
}

// Validate checks that the scope identifies a user and, optionally, a group.
func (s Scope) Validate() error {
	if s.UserID <= 0 {
		return fmt.Errorf("%w: user id %d", ErrInvalidID, s.UserID)
	}
	if s.GroupID < 0 {
		return fmt.Errorf("%w: group id %d", ErrInvalidID, s.GroupID)
	}
	return nil
}

func (s Scope) String() string {
	if !s.HasGroup() {
		return fmt.Sprintf("user:%d/group:none", s.UserID)
	}
	return fmt.Sprintf("user:%d/group:%d", s.UserID, s.GroupID)
}

// Word is a bilingual pair owned by exactly one user, optionally in a group,
// together with its mastery fields.
type Word struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	GroupID   int64     `json:"group_id,omitempty"` // 0 when the word has no group
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`

	Level         int        `json:"level"`
	NextEligible  *time.Time `json:"next_eligible,omitempty"` // nil means eligible immediately
	CorrectStreak int        `json:"correct_streak"`
	WrongCount    int        `json:"wrong_count"`
}

// NewWord creates a level-0 word that is eligible on the given date.
func NewWord(userID, groupID int64, source, target string, today time.Time) (*Word, error) {
	eligible := DateOf(today)
	w := &Word{
		UserID:       userID,
		GroupID:      groupID,
		Source:       strings.TrimSpace(source),
		Target:       strings.TrimSpace(target),
		CreatedAt:    time.Now().UTC(),
		NextEligible: &eligible,
	}

	if err := w.Validate(); err != nil {
		return nil, err
	}

	return w, nil
}

// Validate checks if the Word has valid data.
func (w *Word) Validate() error {
	if w.UserID <= 0 {
		return fmt.Errorf("%w: word owner", ErrInvalidID)
	}
	if w.GroupID < 0 {
		return fmt.Errorf("%w: word group", ErrInvalidID)
	}
	if strings.TrimSpace(w.Source) == "" || strings.TrimSpace(w.Target) == "" {
		return ErrEmptyText
	}
	if err := w.CheckInvariants(); err != nil {
		return err
	}
	return nil
}

// CheckInvariants reports mastery fields that no scheduler transition can produce.
func (w *Word) CheckInvariants() error {
	if w.Level < 0 {
		return fmt.Errorf("%w: word %d has negative level %d", ErrInvariantViolation, w.ID, w.Level)
	}
	if w.CorrectStreak < 0 {
		return fmt.Errorf("%w: word %d has negative streak %d", ErrInvariantViolation, w.ID, w.CorrectStreak)
	}
	return nil
}

// IsEligible reports whether the word belongs in the active review pool on the given date.
func (w *Word) IsEligible(today time.Time) bool {
	if w.NextEligible == nil {
		return true
	}
	return !DateOf(*w.NextEligible).After(DateOf(today))
}
