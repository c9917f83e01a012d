// Package record defines the trace record model for step execution runs.
//
// A run produces an ordered sequence of events, one per notification the
// engine emits. Events are content-addressed: each event ID is a digest of
// its RFC 8785 canonical JSON payload, so the same run trace produces the
// same event IDs on every machine.
//
// Key design constraints:
//   - NO float types in canonical payloads - use int64 for numbers
//   - Logical clocks (seq) inside payloads, never wall-clock timestamps
//   - All JSON tags use snake_case
//   - Display markup never participates in digests
package record
