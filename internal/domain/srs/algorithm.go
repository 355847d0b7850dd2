package srs

import (
	"time"

	"github.com/wordl-bot/wordl/internal/domain"
)

// promotionOffset returns the number of days a promoted word stays out of the pool.
//
// The offset is looked up by the word's level *before* promotion, so a level-0 word
// that earns its promotion comes back after the first entry of the table.
//
// Parameters:
//   - level: The pre-promotion mastery level, already checked to be non-negative
//   - params: Configuration parameters for the scheduler
//
// Returns:
//   - The offset in days; levels beyond the table reuse its last entry
func promotionOffset(level int, params *Params) int {
	if level >= len(params.PromotionOffsets) {
		return params.PromotionOffsets[len(params.PromotionOffsets)-1]
	}
	return params.PromotionOffsets[level]
}

// evaluateCorrect computes the outcome of a correct answer.
//
// A correct answer extends the streak. When the streak reaches the promotion
// threshold the word moves up one level, its counters reset, and it leaves the
// pool until today plus the level's offset. Below the threshold nothing but the
// streak changes: the word keeps its date and stays in the immediate pool, so it
// can be asked again the same day.
//
// Parameters:
//   - word: The word being answered, with valid mastery fields
//   - today: The learner's current calendar date
//   - params: Configuration parameters for the scheduler
//
// Returns:
//   - The resulting ReviewOutcome
func evaluateCorrect(word *domain.Word, today time.Time, params *Params) domain.ReviewOutcome {
	streak := word.CorrectStreak + 1

	if streak >= params.PromotionStreak {
		next := domain.AddDays(today, promotionOffset(word.Level, params))
		return domain.ReviewOutcome{
			NewLevel:      word.Level + 1,
			NextEligible:  &next,
			NewStreak:     0,
			NewWrongCount: 0,
			ResetStreak:   true,
			Transition:    domain.TransitionPromoted,
		}
	}

	return domain.ReviewOutcome{
		NewLevel:      word.Level,
		NextEligible:  copyDate(word.NextEligible),
		NewStreak:     streak,
		NewWrongCount: 0,
		ResetStreak:   false,
		Transition:    domain.TransitionNone,
	}
}

// evaluateWrong computes the outcome of a wrong answer.
//
// Any wrong answer demotes the word to level 0 and puts it back in the immediate
// pool, whatever its previous level or streak. The wrong counter is bumped and then
// cleared together with the streak, so it never survives a demotion.
//
// Parameters:
//   - today: The learner's current calendar date
//
// Returns:
//   - The resulting ReviewOutcome
func evaluateWrong(today time.Time) domain.ReviewOutcome {
	next := domain.DateOf(today)
	return domain.ReviewOutcome{
		NewLevel:      0,
		NextEligible:  &next,
		NewStreak:     0,
		NewWrongCount: 0,
		ResetStreak:   true,
		Transition:    domain.TransitionDemoted,
	}
}

// evaluate dispatches to the correct or wrong branch.
//
// It never mutates the given word; callers receive a value describing the new
// mastery fields and decide how to persist them.
func evaluate(word *domain.Word, isCorrect bool, today time.Time, params *Params) domain.ReviewOutcome {
	today = domain.DateOf(today)
	if isCorrect {
		return evaluateCorrect(word, today, params)
	}
	return evaluateWrong(today)
}

func copyDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
