package store

import (
	"context"
	"testing"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/notify"
	"github.com/roach88/stepwise/internal/record"
	"github.com/roach88/stepwise/internal/step"
)

// runJournaledScenario drives a small scenario through an engine with a
// JournalListener attached and returns the listener.
func runJournaledScenario(t *testing.T, s *Store) *JournalListener {
	t.Helper()

	lib := step.NewLibrary("ShoppingSteps")
	lib.Step("add_item", func(ctx context.Context, args ...any) (any, error) {
		return nil, nil
	})
	lib.Step("pay", func(ctx context.Context, args ...any) (any, error) {
		return nil, step.NewAssertionError("card declined")
	})

	jl := NewJournalListener(context.Background(), s, WithJournalLogger(engine.DiscardLogger()))
	eng := engine.New([]notify.Listener{jl},
		engine.WithLogger(engine.DiscardLogger()),
		engine.WithTokens(engine.NewFixedGenerator("run-journal-1")),
	)
	if err := jl.BeginRun(eng.RunToken(), "checkout"); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	ctx := context.Background()
	proxy := eng.Bind(lib)
	if _, err := proxy.Call(ctx, "add_item", "widget"); err != nil {
		t.Fatalf("add_item failed: %v", err)
	}
	if _, err := proxy.Call(ctx, "pay"); err != nil {
		t.Fatalf("pay returned %v, want recovered nil", err)
	}
	if err := eng.Finish(); err != nil {
		t.Fatalf("Finish() failed: %v", err)
	}

	return jl
}

func TestJournalListener_JournalsFullTrace(t *testing.T) {
	s := createTestStore(t)
	jl := runJournaledScenario(t, s)

	if err := jl.Err(); err != nil {
		t.Fatalf("journal listener recorded error: %v", err)
	}
	if jl.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", jl.Dropped())
	}

	events, err := s.ReadTrace(context.Background(), "run-journal-1")
	if err != nil {
		t.Fatalf("ReadTrace() failed: %v", err)
	}

	wantKinds := []record.EventKind{
		record.EventStepStarted,  // add_item
		record.EventStepFinished, // add_item
		record.EventStepStarted,  // pay
		record.EventStepFailed,   // pay assertion
		record.EventStepFinished, // pay (failure recovered)
		record.EventTestFinished,
	}
	if len(events) != len(wantKinds) {
		t.Fatalf("got %d events, want %d", len(events), len(wantKinds))
	}
	for i, kind := range wantKinds {
		if events[i].Kind != kind {
			t.Errorf("events[%d].Kind = %q, want %q", i, events[i].Kind, kind)
		}
		if events[i].Seq != int64(i+1) {
			t.Errorf("events[%d].Seq = %d, want %d", i, events[i].Seq, i+1)
		}
	}
}

func TestJournalListener_FailureEventCarriesError(t *testing.T) {
	s := createTestStore(t)
	runJournaledScenario(t, s)

	events, err := s.ReadTrace(context.Background(), "run-journal-1")
	if err != nil {
		t.Fatalf("ReadTrace() failed: %v", err)
	}
	failed := record.Filter(events, record.Pattern{Kind: record.EventStepFailed})
	if len(failed) != 1 {
		t.Fatalf("got %d step_failed events, want 1", len(failed))
	}
	if failed[0].Step != "pay" {
		t.Errorf("step = %q, want pay", failed[0].Step)
	}
	if failed[0].Error != "assertion failed: card declined" {
		t.Errorf("error = %q, want %q", failed[0].Error, "assertion failed: card declined")
	}
}

func TestJournalListener_FinishesRunRow(t *testing.T) {
	s := createTestStore(t)
	runJournaledScenario(t, s)

	run, err := s.ReadRun(context.Background(), "run-journal-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if run.Status != record.RunStatusFailed {
		t.Errorf("status = %q, want failed", run.Status)
	}
	if run.Scenario != "checkout" {
		t.Errorf("scenario = %q, want checkout", run.Scenario)
	}
	// add_item and pay both finished; pay also failed
	if run.Executed != 2 || run.Ignored != 0 || run.Failed != 1 {
		t.Errorf("tally = %d/%d/%d, want 2/0/1", run.Executed, run.Ignored, run.Failed)
	}
	if run.StartedAt == "" || run.FinishedAt == "" {
		t.Error("run timestamps missing")
	}
}

func TestJournalListener_PassingRunMarkedPassed(t *testing.T) {
	s := createTestStore(t)

	lib := step.NewLibrary("ShoppingSteps")
	lib.Step("add_item", func(ctx context.Context, args ...any) (any, error) {
		return nil, nil
	})

	jl := NewJournalListener(context.Background(), s, WithJournalLogger(engine.DiscardLogger()))
	eng := engine.New([]notify.Listener{jl},
		engine.WithLogger(engine.DiscardLogger()),
		engine.WithTokens(engine.NewFixedGenerator("run-journal-2")),
	)
	if err := jl.BeginRun(eng.RunToken(), "smoke"); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	proxy := eng.Bind(lib)
	if _, err := proxy.Call(context.Background(), "add_item"); err != nil {
		t.Fatalf("add_item failed: %v", err)
	}
	if err := eng.Finish(); err != nil {
		t.Fatalf("Finish() failed: %v", err)
	}
	if err := jl.Err(); err != nil {
		t.Fatalf("journal listener recorded error: %v", err)
	}

	run, err := s.ReadRun(context.Background(), "run-journal-2")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if run.Status != record.RunStatusPassed {
		t.Errorf("status = %q, want passed", run.Status)
	}
}

func TestJournalListener_JournaledEventsValidate(t *testing.T) {
	s := createTestStore(t)
	runJournaledScenario(t, s)

	events, err := s.ReadTrace(context.Background(), "run-journal-1")
	if err != nil {
		t.Fatalf("ReadTrace() failed: %v", err)
	}
	for i, ev := range events {
		if errs := ev.Validate(); len(errs) != 0 {
			t.Errorf("events[%d] (%s) invalid: %v", i, ev.Kind, errs)
		}
	}
}

func TestJournalListener_WriteFailureIsRetained(t *testing.T) {
	s := createTestStore(t)

	jl := NewJournalListener(context.Background(), s, WithJournalLogger(engine.DiscardLogger()))
	// BeginRun never called: no run row, so the foreign key rejects events
	jl.StepStarted(step.Description{Owner: "ShoppingSteps", Name: "add_item"})

	if jl.Err() == nil {
		t.Error("Err() = nil, want retained write failure")
	}
	if jl.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", jl.Dropped())
	}
}

func TestJournalListener_NeverReportsFailed(t *testing.T) {
	s := createTestStore(t)
	jl := runJournaledScenario(t, s)

	// The journal observes; skip decisions stay with the engine
	if jl.Failed() {
		t.Error("Failed() = true, journal must not drive skipping")
	}
}
