package srs

import (
	"errors"
	"time"

	"github.com/wordl-bot/wordl/internal/domain"
)

// Common errors
var (
	ErrNilWord = errors.New("word cannot be nil")
)

// Service defines the interface for review scheduling operations
type Service interface {
	// Evaluate computes the new mastery fields of a word after one answer.
	// It performs no I/O. A word with a negative level or streak yields an error
	// wrapping domain.ErrInvariantViolation; callers skip such words.
	Evaluate(word *domain.Word, isCorrect bool, today time.Time) (domain.ReviewOutcome, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new scheduler with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new scheduler with custom parameters.
// It panics if the parameters are invalid.
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		panic("params cannot be nil")
	}
	if err := params.Validate(); err != nil {
		panic(err.Error())
	}
	return &defaultService{
		params: params,
	}
}

// Evaluate implements the Service interface
func (s *defaultService) Evaluate(
	word *domain.Word,
	isCorrect bool,
	today time.Time,
) (domain.ReviewOutcome, error) {
	if word == nil {
		return domain.ReviewOutcome{}, ErrNilWord
	}

	if err := word.CheckInvariants(); err != nil {
		return domain.ReviewOutcome{}, err
	}

	return evaluate(word, isCorrect, today, s.params), nil
}
