// Package store provides the SQLite-backed journal for scenario runs.
//
// The journal is an append-only record with two tables:
//   - Runs: one header row per engine run (token, scenario, status, tally)
//   - Events: one row per lifecycle notification (started/finished/ignored/
//     failed/group boundaries/test finished)
//
// # Critical Patterns
//
// Idempotent writes
//   - Event IDs are content-addressed (record.EventID), so duplicate writes
//     are silent no-ops via ON CONFLICT DO NOTHING
//   - UNIQUE(run_token, seq) rejects a divergent event for an already
//     journaled trace position
//
// Logical identity and time
//   - All ordering uses seq INTEGER (logical clock), NEVER timestamps
//   - Run tokens are UUIDv7: token order is creation order, but replay
//     correctness never depends on that
//
// Deterministic query results
//   - Trace reads order by: seq ASC, id ASC COLLATE BINARY
//   - Ensures identical results across replays
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: events require their run row
//
// JournalListener adapts the store to the notification protocol: register
// one instance per run alongside the engine's other listeners and it
// journals every event it observes.
package store
