package store

import (
	"context"
	"fmt"

	"github.com/roach88/stepwise/internal/record"
)

// WriteRun inserts a run header row into the journal.
// Uses ON CONFLICT(token) DO NOTHING for idempotency - duplicate tokens are
// silently ignored. Other constraint violations (e.g., CHECK on status)
// will still return errors.
func (s *Store) WriteRun(ctx context.Context, run record.Run) error {
	status := run.Status
	if status == "" {
		status = record.RunStatusRunning
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(token, scenario, status, executed, ignored, failed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		run.Token,
		run.Scenario,
		status,
		run.Executed,
		run.Ignored,
		run.Failed,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	return nil
}

// WriteEvent inserts an event record into the journal.
// Uses ON CONFLICT DO NOTHING for idempotency - duplicate writes are
// silently ignored. Each (run_token, seq) slot holds exactly ONE event
// (enforced by UNIQUE constraint).
//
// The event's tally is serialized to canonical JSON per RFC 8785 so the
// stored bytes match the event's content-addressed ID.
//
// Note: The run referenced by RunToken must exist (foreign key constraint).
// Note: A divergent event for an already journaled (run_token, seq) slot
// will silently fail; replay detects the divergence when traces compare.
func (s *Store) WriteEvent(ctx context.Context, ev record.Event) error {
	tallyJSON, err := marshalTally(ev.Tally)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	// ON CONFLICT DO NOTHING handles both:
	// 1. Duplicate event ID (same event written twice)
	// 2. Duplicate (run_token, seq) (second event for the same trace slot)
	// Both are silently ignored for idempotency.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(id, run_token, seq, kind, owner, step, display, error, tally)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		ev.ID,
		ev.RunToken,
		ev.Seq,
		string(ev.Kind),
		ev.Owner,
		ev.Step,
		ev.Display,
		ev.Error,
		tallyJSON,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	return nil
}

// FinishRun atomically journals a terminal test_finished event and flips
// the run row out of 'running' in a single transaction.
//
// The run row gets the event's tally counts, the given status, and the
// given finish timestamp. The update always runs, even when the event was
// already journaled, so a crash between the two writes heals on retry.
//
// Note: The run referenced by ev.RunToken must exist (foreign key constraint).
func (s *Store) FinishRun(ctx context.Context, ev record.Event, status, finishedAt string) error {
	if ev.Kind != record.EventTestFinished {
		return fmt.Errorf("finish run: event kind is %s, want %s", ev.Kind, record.EventTestFinished)
	}
	if ev.Tally == nil {
		return fmt.Errorf("finish run: event carries no tally")
	}

	tallyJSON, err := marshalTally(ev.Tally)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("finish run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events
		(id, run_token, seq, kind, owner, step, display, error, tally)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		ev.ID,
		ev.RunToken,
		ev.Seq,
		string(ev.Kind),
		ev.Owner,
		ev.Step,
		ev.Display,
		ev.Error,
		tallyJSON,
	)
	if err != nil {
		return fmt.Errorf("finish run: insert event: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, executed = ?, ignored = ?, failed = ?, finished_at = ?
		WHERE token = ?
	`,
		status,
		ev.Tally.Executed,
		ev.Tally.Ignored,
		len(ev.Tally.Failures),
		finishedAt,
		ev.RunToken,
	)
	if err != nil {
		return fmt.Errorf("finish run: update run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("finish run: commit: %w", err)
	}

	return nil
}

// HasRun checks if a run header row exists for the given token.
// Used by CLI commands to distinguish "unknown run" from "empty trace".
func (s *Store) HasRun(ctx context.Context, token string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM runs WHERE token = ?
	`, token).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check run: %w", err)
	}
	return count > 0, nil
}
