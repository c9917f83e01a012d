// Package step defines the call-side model for intercepted scenario steps:
// registration-time classification, the step library, display-name rendering,
// executed-step descriptions, the failure taxonomy, and the per-scenario tally.
//
// A step method is registered once in a Library with its markers (step, group,
// pending, ignored). Classification happens at registration, not per call, so
// dispatch reads a stored Kind and the classifier stays testable in isolation.
//
// The package has no dependencies on the engine or the notification protocol;
// it is the shared vocabulary both build on.
package step
