package srs

import (
	"errors"
	"fmt"
)

// Params defines all configurable parameters for the review scheduler
type Params struct {
	// PromotionStreak is the number of consecutive correct answers that promotes a word
	PromotionStreak int

	// PromotionOffsets holds the days until a promoted word resurfaces, indexed by
	// the level the word had before promotion. Levels past the end use the last entry.
	PromotionOffsets []int
}

// ErrInvalidParams is returned when scheduler parameters cannot produce a valid schedule.
var ErrInvalidParams = errors.New("invalid scheduler parameters")

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		PromotionStreak: 2,

		// level 0 -> 1 day, 1 -> 3 days, 2 -> 10 days, 3 and above -> 30 days
		PromotionOffsets: []int{1, 3, 10, 30},
	}
}

// Validate checks that the parameters are usable.
func (p *Params) Validate() error {
	if p.PromotionStreak < 1 {
		return fmt.Errorf("%w: promotion streak must be at least 1", ErrInvalidParams)
	}
	if len(p.PromotionOffsets) == 0 {
		return fmt.Errorf("%w: at least one promotion offset is required", ErrInvalidParams)
	}
	for i, days := range p.PromotionOffsets {
		if days < 1 {
			return fmt.Errorf("%w: offset for level %d must be at least 1 day", ErrInvalidParams, i)
		}
	}
	return nil
}
