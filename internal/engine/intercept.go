package engine

import (
	"context"

	"github.com/roach88/stepwise/internal/step"
)

// Call intercepts one invocation of a registered step definition.
//
// Dispatch order: finished check, quota check, then by kind - group first,
// then tracked (step kind, or any kind while skip-eligible), then plain.
// The context is passed through to the body untouched; the engine owns no
// timeout or cancellation.
//
// Recognized failures (*step.AssertionError, *step.DriverError) raised by
// tracked and plain calls are recorded and swallowed: the caller gets
// (nil, nil) and later tracked calls are skipped. Every other error
// propagates unchanged.
func (e *Engine) Call(ctx context.Context, def *step.Definition, args ...any) (any, error) {
	if e.finished {
		return nil, NewRunFinishedError(e.runToken)
	}
	if def == nil {
		return nil, NewUnknownStepError(e.runToken, "")
	}
	if e.quota != nil {
		if err := e.quota.Check(e.runToken); err != nil {
			return nil, err
		}
	}

	seq := e.clock.Next()
	desc := step.Describe(step.Invocation{Definition: def, Args: args})

	switch {
	case def.Kind == step.KindGroup:
		return e.runGroup(ctx, def, desc, seq, args)
	case def.Kind == step.KindStep || e.skipEligible(def):
		return e.runTracked(ctx, def, desc, seq, args)
	default:
		return e.runPlain(ctx, def, desc, args)
	}
}

// skipEligible reports whether the next call must be skipped instead of
// invoked. The engine's own failure record is authoritative; listener
// Failed() reports are advisory and can only widen the skip set.
func (e *Engine) skipEligible(def *step.Definition) bool {
	return len(e.failures) > 0 || e.broadcaster.Failed() || def.Pending || def.Ignored
}

// runGroup handles a step-group call.
//
// The group body always runs: skip policy applies to the tracked steps
// nested inside it, which re-enter Call individually. A body error that is
// the exact assertion failure a nested step already recorded is swallowed
// and the group completes normally. A new assertion failure, or any driver
// or unrecognized error, propagates without StepGroupFinished. The group
// itself never emits StepFailed and never touches the tally.
func (e *Engine) runGroup(ctx context.Context, def *step.Definition, desc step.Description, seq int64, args []any) (any, error) {
	e.logger.Debug("running test step group",
		"group", desc.String(),
		"run_token", e.runToken,
		"seq", seq,
	)
	e.broadcaster.StepGroupStarted(desc)

	result, err := def.Invoke(ctx, args...)
	if err != nil {
		if step.IsAssertionError(err) && e.alreadyRecorded(err) {
			e.broadcaster.StepGroupFinished()
			return nil, nil
		}
		return nil, err
	}

	e.broadcaster.StepGroupFinished()
	return result, nil
}

// runTracked handles a step-kind call, or a call of any kind made while
// skip-eligible.
//
// StepStarted is always delivered first. Skip-eligibility is then
// re-checked: a skipped call notifies StepIgnored, counts as ignored, and
// never invokes the body. An invoked call that raises a recognized failure
// notifies StepFailed and counts the failure; started, failed, finished
// arrive in that order, and the call still counts as executed. An
// unrecognized error propagates with no StepFinished and no tally update.
func (e *Engine) runTracked(ctx context.Context, def *step.Definition, desc step.Description, seq int64, args []any) (any, error) {
	e.logger.Debug("running test step",
		"step", desc.String(),
		"run_token", e.runToken,
		"seq", seq,
	)
	e.broadcaster.StepStarted(desc)

	if e.skipEligible(def) {
		e.broadcaster.StepIgnored(desc)
		e.tally.LogIgnored()
		return nil, nil
	}

	result, err := def.Invoke(ctx, args...)
	if err != nil {
		if !step.IsRecognized(err) {
			return nil, err
		}
		failure := e.recordFailure(desc, err)
		e.tally.LogFailure(failure)
	}

	e.broadcaster.StepFinished(desc)
	e.tally.LogExecuted()
	e.logger.Debug("test step done", "step", desc.String())

	if err != nil {
		return nil, nil
	}
	return result, nil
}

// runPlain handles an unmarked call outside skip conditions: silent invoke,
// no lifecycle notifications, no tally. Recognized failures are still
// recorded and broadcast as StepFailed so later tracked calls skip, then
// swallowed.
func (e *Engine) runPlain(ctx context.Context, def *step.Definition, desc step.Description, args []any) (any, error) {
	result, err := def.Invoke(ctx, args...)
	if err != nil {
		if !step.IsRecognized(err) {
			return nil, err
		}
		e.recordFailure(desc, err)
		return nil, nil
	}
	return result, nil
}

// recordFailure appends to the engine's failure record and notifies
// listeners. Tally accounting stays with the caller: only tracked steps
// tally their failures.
func (e *Engine) recordFailure(desc step.Description, err error) step.Failure {
	failure := step.NewFailure(desc, err)
	e.failures = append(e.failures, failure)
	e.broadcaster.StepFailed(failure)
	e.logger.Debug("test step failed",
		"step", desc.String(),
		"error", err,
	)
	return failure
}

// alreadyRecorded reports whether this exact error value was already
// recorded by a failed step. Identity comparison, not errors.Is: a group
// body re-raising its child's failure carries the same value, while a
// distinct failure with equal text is still new.
func (e *Engine) alreadyRecorded(err error) bool {
	for _, f := range e.failures {
		if f.Cause == err {
			return true
		}
	}
	return false
}
