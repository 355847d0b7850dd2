package stats

import "github.com/wordl-bot/wordl/internal/domain"

// Points is the point delta awarded per action.
type Points struct {
	Correct      int
	BlitzCorrect int
	Wrong        int
	Added        int
}

// DefaultPoints returns the standard points table.
func DefaultPoints() Points {
	return Points{Correct: 5, BlitzCorrect: 7, Wrong: -4, Added: 0}
}

// ForAnswer returns the delta for one answer given in a session of kind.
func (p Points) ForAnswer(isCorrect bool, kind domain.SessionKind) int {
	switch {
	case !isCorrect:
		return p.Wrong
	case kind == domain.SessionKindBlitz:
		return p.BlitzCorrect
	default:
		return p.Correct
	}
}

// Score returns the session score for the given counts.
func (p Points) Score(correct, wrong int, kind domain.SessionKind) int {
	return correct*p.ForAnswer(true, kind) + wrong*p.Wrong
}
