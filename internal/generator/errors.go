package generator

import (
	"errors"
	"fmt"

	"github.com/wonwookim/mockinterview/internal/apperrors"
	"github.com/wonwookim/mockinterview/internal/llm"
	"github.com/wonwookim/mockinterview/internal/reliability"
)

// Kind classifies a generation failure.
type Kind string

const (
	KindRateLimited      Kind = "rate_limited"
	KindTimeout          Kind = "timeout"
	KindGenerationFailed Kind = "generation_failed"
	KindDuplicate        Kind = "duplicate"
)

// AIError is the typed failure of a generation operation after retries.
type AIError struct {
	Kind     Kind
	Op       string
	Attempts int
	Err      error
}

func (e *AIError) Error() string {
	return fmt.Sprintf("%s %s after %d attempt(s): %v", e.Op, e.Kind, e.Attempts, e.Err)
}

func (e *AIError) Unwrap() error { return e.Err }

// Code maps the kind onto the application error taxonomy.
func (e *AIError) Code() string {
	switch e.Kind {
	case KindRateLimited:
		return apperrors.CodeRateLimited
	case KindTimeout:
		return apperrors.CodeAPITimeout
	case KindDuplicate:
		return apperrors.CodeDuplicateQuestion
	default:
		return apperrors.CodeGenerationFailed
	}
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, llm.ErrRateLimited), errors.Is(err, reliability.ErrBudgetExhausted):
		return KindRateLimited
	case errors.Is(err, llm.ErrTimeout):
		return KindTimeout
	default:
		return KindGenerationFailed
	}
}

// surface wraps an AIError so callers can branch with apperrors.HasCode and
// still reach the AIError with errors.As.
func surface(e *AIError) error {
	return apperrors.Wrap(e, e.Code(), e.Op+" failed")
}
