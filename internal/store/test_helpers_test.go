package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/stepwise/internal/record"
)

// createTestStore creates a new on-disk store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a test run row with the given token.
func createTestRun(token string) record.Run {
	return record.Run{
		Token:     token,
		Scenario:  "checkout",
		Status:    record.RunStatusRunning,
		StartedAt: "2026-01-02T03:04:05Z",
	}
}

// createTestEvent creates a test event with a content-addressed ID.
func createTestEvent(runToken string, seq int64, kind record.EventKind, owner, stepName string) record.Event {
	ev := record.Event{
		RunToken: runToken,
		Seq:      seq,
		Kind:     kind,
		Owner:    owner,
		Step:     stepName,
	}
	if kind == record.EventStepFailed {
		ev.Error = "boom"
	}
	ev.ID = record.EventID(ev)
	return ev
}

// writeTestRun writes a run row, failing the test on error.
func writeTestRun(t *testing.T, s *Store, token string) {
	t.Helper()
	if err := s.WriteRun(context.Background(), createTestRun(token)); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
}
