package apperrors

import (
	"errors"
	"fmt"
)

// AppError is a coded application error. Callers branch on Code, never on Message.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

const (
	CodeConfiguration     = "CONFIGURATION"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeNotFound          = "NOT_FOUND"
	CodeDuplicateQuestion = "DUPLICATE_QUESTION"
	CodeRateLimited       = "RATE_LIMITED"
	CodeAPITimeout        = "API_TIMEOUT"
	CodeGenerationFailed  = "GENERATION_FAILED"
	CodeSessionFailed     = "SESSION_FAILED"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInternal          = "INTERNAL_ERROR"
)

func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Newf(code, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(err error, code, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Configuration reports bad plan or catalog parameters.
func Configuration(format string, args ...any) *AppError {
	return Newf(CodeConfiguration, format, args...)
}

// InvalidTransition reports an operation that is not valid in the current phase.
func InvalidTransition(op, phase string) *AppError {
	return Newf(CodeInvalidTransition, "%s not allowed in phase %s", op, phase)
}

func NotFound(resource string) *AppError {
	return Newf(CodeNotFound, "%s not found", resource)
}

// CodeOf returns the code of the outermost AppError in err's chain, or CodeInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}
