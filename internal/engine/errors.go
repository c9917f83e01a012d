package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error raised by the engine itself, as opposed
// to a failure produced by a step body.
//
// Runtime errors include:
//   - Run finished: Call or Finish on an engine that already finished
//   - Unknown step: proxy call routed to an unregistered name
//   - Quota exceeded: run exceeds the configured max calls limit
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunToken identifies the affected run.
	RunToken string

	// Step identifies the step ("Owner.name") where applicable.
	Step string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeRunFinished indicates the engine already delivered TestFinished.
	ErrCodeRunFinished RuntimeErrorCode = "RUN_FINISHED"

	// ErrCodeUnknownStep indicates a call routed to an unregistered name.
	ErrCodeUnknownStep RuntimeErrorCode = "UNKNOWN_STEP"

	// ErrCodeQuotaExceeded indicates the run exceeded max calls.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.RunToken != "" && e.Step != "" {
		return fmt.Sprintf("%s: %s (run=%s, step=%s)", e.Code, e.Message, e.RunToken, e.Step)
	}
	if e.RunToken != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, e.Message, e.RunToken)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRunFinished returns true if the error is a run-finished error.
// Uses errors.As to handle wrapped errors.
func IsRunFinished(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeRunFinished
	}
	return false
}

// IsUnknownStep returns true if the error is an unknown-step error.
// Uses errors.As to handle wrapped errors.
func IsUnknownStep(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownStep
	}
	return false
}

// IsQuotaExceeded returns true if the error is a quota exceeded error.
// Uses errors.As to handle wrapped errors.
func IsQuotaExceeded(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	return false
}

// NewRunFinishedError creates a RuntimeError for calls after Finish.
func NewRunFinishedError(runToken string) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeRunFinished,
		Message:  "run already finished; create a new engine per scenario",
		RunToken: runToken,
	}
}

// NewUnknownStepError creates a RuntimeError for an unregistered step name.
func NewUnknownStepError(runToken, stepName string) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeUnknownStep,
		Message:  "no step registered under this name",
		RunToken: runToken,
		Step:     stepName,
	}
}

// NewQuotaError creates a RuntimeError for quota exceeded.
func NewQuotaError(runToken string, calls, maxCalls int) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeQuotaExceeded,
		Message:  fmt.Sprintf("run exceeded max calls (%d > %d)", calls, maxCalls),
		RunToken: runToken,
		Details: map[string]string{
			"calls":     fmt.Sprintf("%d", calls),
			"max_calls": fmt.Sprintf("%d", maxCalls),
		},
	}
}
