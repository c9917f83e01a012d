package notify

import "github.com/roach88/stepwise/internal/step"

// Listener is the capability set an observer of scenario execution
// implements. The engine notifies listeners synchronously, in registration
// order, around every dispatched call.
//
// Notification methods return nothing: the engine must not depend on
// listener effects. Failed is the one query capability; it feeds the
// engine's skip-eligibility check and lets a listener force the rest of a
// scenario to be skipped.
//
// Listeners shared across concurrently running engines must synchronize
// internally; a single engine never calls a listener from more than one
// goroutine.
type Listener interface {
	// StepStarted reports that a tracked (or skip-eligible) call reached
	// its started transition.
	StepStarted(desc step.Description)

	// StepFinished reports that a tracked call ran to completion, whether
	// it succeeded or its failure was recovered.
	StepFinished(desc step.Description)

	// StepIgnored reports that a call was skipped after StepStarted.
	StepIgnored(desc step.Description)

	// StepFailed reports a recovered assertion or driver failure.
	StepFailed(failure step.Failure)

	// StepGroupStarted reports entry into a composite step group.
	StepGroupStarted(desc step.Description)

	// StepGroupFinished reports normal completion of the innermost open group.
	StepGroupFinished()

	// TestFinished reports scenario completion with the accumulated tally.
	TestFinished(tally step.Tally)

	// Failed reports whether this listener considers a step of the current
	// scenario to have failed. Consulted for skip-eligibility.
	Failed() bool
}

// BaseListener is a no-op Listener for embedding. Observers override only
// the events they care about.
type BaseListener struct{}

// StepStarted implements Listener.
func (BaseListener) StepStarted(step.Description) {}

// StepFinished implements Listener.
func (BaseListener) StepFinished(step.Description) {}

// StepIgnored implements Listener.
func (BaseListener) StepIgnored(step.Description) {}

// StepFailed implements Listener.
func (BaseListener) StepFailed(step.Failure) {}

// StepGroupStarted implements Listener.
func (BaseListener) StepGroupStarted(step.Description) {}

// StepGroupFinished implements Listener.
func (BaseListener) StepGroupFinished() {}

// TestFinished implements Listener.
func (BaseListener) TestFinished(step.Tally) {}

// Failed implements Listener. The base never reports failure.
func (BaseListener) Failed() bool { return false }
