package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/stepwise/internal/record"
)

// ReadTrace returns all events for a run token.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE
// BINARY, so replays see an identical stream.
//
// Returns an empty slice (not nil) if no events exist for the run token.
func (s *Store) ReadTrace(ctx context.Context, runToken string) ([]record.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_token, seq, kind, owner, step, display, error, tally
		FROM events
		WHERE run_token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	var events []record.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}

	// Return empty slice instead of nil
	if events == nil {
		events = []record.Event{}
	}

	return events, nil
}

// ReadRun retrieves a run header row by token.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, token string) (record.Run, error) {
	var run record.Run
	err := s.db.QueryRowContext(ctx, `
		SELECT token, scenario, status, executed, ignored, failed, started_at, finished_at
		FROM runs
		WHERE token = ?
	`, token).Scan(
		&run.Token, &run.Scenario, &run.Status,
		&run.Executed, &run.Ignored, &run.Failed,
		&run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return record.Run{}, err
	}
	return run, nil
}

// ListRuns returns all run header rows.
// Run tokens are UUIDv7, so token order is creation order; the COLLATE
// BINARY tiebreak keeps the listing deterministic regardless.
func (s *Store) ListRuns(ctx context.Context) ([]record.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, scenario, status, executed, ignored, failed, started_at, finished_at
		FROM runs
		ORDER BY token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []record.Run
	for rows.Next() {
		var run record.Run
		if err := rows.Scan(
			&run.Token, &run.Scenario, &run.Status,
			&run.Executed, &run.Ignored, &run.Failed,
			&run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	if runs == nil {
		runs = []record.Run{}
	}

	return runs, nil
}

// scanEvent scans a row into an Event struct.
func scanEvent(rows *sql.Rows) (record.Event, error) {
	var ev record.Event
	var kind, tallyJSON string

	if err := rows.Scan(
		&ev.ID, &ev.RunToken, &ev.Seq, &kind,
		&ev.Owner, &ev.Step, &ev.Display, &ev.Error, &tallyJSON,
	); err != nil {
		return record.Event{}, fmt.Errorf("scan event: %w", err)
	}

	ev.Kind = record.EventKind(kind)

	tally, err := unmarshalTally(tallyJSON)
	if err != nil {
		return record.Event{}, err
	}
	ev.Tally = tally

	return ev, nil
}

// scanEventRow scans a single row into an Event struct.
func scanEventRow(row *sql.Row) (record.Event, error) {
	var ev record.Event
	var kind, tallyJSON string

	if err := row.Scan(
		&ev.ID, &ev.RunToken, &ev.Seq, &kind,
		&ev.Owner, &ev.Step, &ev.Display, &ev.Error, &tallyJSON,
	); err != nil {
		return record.Event{}, err
	}

	ev.Kind = record.EventKind(kind)

	tally, err := unmarshalTally(tallyJSON)
	if err != nil {
		return record.Event{}, err
	}
	ev.Tally = tally

	return ev, nil
}
