package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/stepwise/internal/record"
)

// RunState represents the journaled state of a run for replay and
// recovery purposes.
type RunState struct {
	Run        record.Run
	Events     []record.Event
	LastSeq    int64
	Terminated bool // True if a test_finished event is journaled
	Consistent bool // True if the run row status agrees with Terminated
}

// GetRunState retrieves the complete journaled state of a run.
// Returns the run row, its full trace, and an analysis of completeness.
// Returns sql.ErrNoRows if the run token is unknown.
func (s *Store) GetRunState(ctx context.Context, token string) (RunState, error) {
	var state RunState

	run, err := s.ReadRun(ctx, token)
	if err != nil {
		return state, fmt.Errorf("get run state: %w", err)
	}
	state.Run = run

	events, err := s.ReadTrace(ctx, token)
	if err != nil {
		return state, fmt.Errorf("get run state: %w", err)
	}
	state.Events = events

	for _, ev := range events {
		if ev.Seq > state.LastSeq {
			state.LastSeq = ev.Seq
		}
		if ev.Kind == record.EventTestFinished {
			state.Terminated = true
		}
	}

	// The run row leaves 'running' in the same transaction that journals
	// test_finished, so disagreement means a crashed or torn write.
	state.Consistent = (run.Status != record.RunStatusRunning) == state.Terminated

	return state, nil
}

// FindInterruptedRuns returns all runs that need recovery attention.
// A run is interrupted if:
// 1. Its row status is still 'running' (no terminal event journaled), OR
// 2. Its row status disagrees with the journaled trace (torn write)
//
// Used by the replay command to identify runs that never finished.
func (s *Store) FindInterruptedRuns(ctx context.Context) ([]RunState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT token FROM (
			-- Runs whose row never left 'running'
			SELECT token FROM runs WHERE status = 'running'

			UNION

			-- Runs marked finished without a journaled terminal event
			SELECT r.token
			FROM runs r
			LEFT JOIN events e ON r.token = e.run_token AND e.kind = 'test_finished'
			WHERE r.status != 'running' AND e.id IS NULL
		)
		ORDER BY token COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("find interrupted runs: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan run token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run tokens: %w", err)
	}

	// Get full state for each interrupted run
	var states []RunState
	for _, token := range tokens {
		state, err := s.GetRunState(ctx, token)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}

	return states, nil
}

// TerminalEvent returns the journaled test_finished event for a run.
// Returns found=false when the run never terminated.
func (s *Store) TerminalEvent(ctx context.Context, token string) (ev record.Event, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, run_token, seq, kind, owner, step, display, error, tally
		FROM events
		WHERE run_token = ? AND kind = 'test_finished'
		ORDER BY seq ASC, id COLLATE BINARY ASC
		LIMIT 1
	`, token)

	ev, err = scanEventRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Event{}, false, nil
	}
	if err != nil {
		return record.Event{}, false, fmt.Errorf("terminal event: %w", err)
	}
	return ev, true, nil
}
