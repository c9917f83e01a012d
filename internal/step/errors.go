package step

import (
	"errors"
	"fmt"
)

// The engine recovers exactly two failure kinds raised by step bodies:
// assertion failures (violated expectations) and driver failures
// (automation/environment errors). Every other error is unrecognized and
// propagates uncaught, with no tally effect and no failure notification.
// The narrow set is deliberate; widening it changes observable
// test-failure semantics.

// AssertionError reports a violated expectation inside a step body.
type AssertionError struct {
	// Message describes the violated expectation.
	Message string

	// Expected and Actual hold the compared values when the assertion
	// captured them; both empty for bare failures.
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	if e.Expected != "" || e.Actual != "" {
		return fmt.Sprintf("assertion failed: %s (expected %s, got %s)", e.Message, e.Expected, e.Actual)
	}
	return fmt.Sprintf("assertion failed: %s", e.Message)
}

// NewAssertionError creates a bare assertion failure.
func NewAssertionError(format string, args ...any) *AssertionError {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// NewComparisonError creates an assertion failure carrying the compared values.
func NewComparisonError(message, expected, actual string) *AssertionError {
	return &AssertionError{Message: message, Expected: expected, Actual: actual}
}

// DriverError reports an automation or environment failure inside a step
// body: the driver misbehaved, not the expectation.
type DriverError struct {
	// Driver names the failing automation component.
	Driver string

	// Message describes the failure.
	Message string

	// Cause is the underlying error, when one exists.
	Cause error
}

// Error implements the error interface.
func (e *DriverError) Error() string {
	switch {
	case e.Driver != "" && e.Cause != nil:
		return fmt.Sprintf("driver %s: %s: %v", e.Driver, e.Message, e.Cause)
	case e.Driver != "":
		return fmt.Sprintf("driver %s: %s", e.Driver, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("driver failure: %s: %v", e.Message, e.Cause)
	default:
		return fmt.Sprintf("driver failure: %s", e.Message)
	}
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *DriverError) Unwrap() error {
	return e.Cause
}

// NewDriverError creates a driver failure.
func NewDriverError(driver, format string, args ...any) *DriverError {
	return &DriverError{Driver: driver, Message: fmt.Sprintf(format, args...)}
}

// WrapDriverError creates a driver failure around an underlying error.
func WrapDriverError(driver string, cause error) *DriverError {
	return &DriverError{Driver: driver, Message: "driver call failed", Cause: cause}
}

// IsAssertionError returns true if the error is an assertion failure.
// Uses errors.As to handle wrapped errors.
func IsAssertionError(err error) bool {
	var ae *AssertionError
	return errors.As(err, &ae)
}

// IsDriverError returns true if the error is a driver failure.
// Uses errors.As to handle wrapped errors.
func IsDriverError(err error) bool {
	var de *DriverError
	return errors.As(err, &de)
}

// IsRecognized returns true if the error is one of the two failure kinds the
// engine recovers. Unrecognized errors always propagate.
func IsRecognized(err error) bool {
	return IsAssertionError(err) || IsDriverError(err)
}
