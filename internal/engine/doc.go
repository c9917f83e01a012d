// Package engine implements the stepwise step interception engine.
//
// The engine sits between a host test and its step libraries: every call on
// a step object enters Call, which classifies the invocation, decides
// whether to skip it, executes at most one underlying body, and reports
// lifecycle events to listeners. Finish is the explicit terminal operation
// that delivers the run's tally.
//
// ARCHITECTURE:
//
// Single-Threaded Per Scenario:
// One engine instance serves one scenario run and is never reused. All
// dispatch, state mutation, and listener notification happen synchronously
// on the caller's goroutine. There is no internal locking and no queue;
// determinism comes from doing one thing at a time.
//
// Dispatch Order (per call):
//  1. Finished engine → structured RUN_FINISHED error
//  2. Call quota check (optional, WithMaxCalls)
//  3. Group kind → group lifecycle, body always invoked
//  4. Step kind, or any call while skip-eligible → tracked lifecycle
//  5. Plain kind otherwise → silent invoke, failures still observed
//
// Skip-eligibility is consulted at dispatch and again after StepStarted:
// a call is skipped when the engine has recorded a failure, when any
// listener reports Failed(), or when the definition is marked pending or
// ignored. The engine's own failure record is authoritative; listener
// reports are advisory and can only widen the skip set.
//
// CRITICAL PATTERNS:
//
// Narrow Catch:
// Exactly *step.AssertionError and *step.DriverError are caught, recorded,
// and broadcast. Every other error propagates to the caller untouched with
// no tally update.
//
// Notification Ordering:
// Listeners are notified synchronously in registration order, and delivery
// to all listeners completes before the engine proceeds. A failed tracked
// step notifies started, failed, finished in that order.
package engine
