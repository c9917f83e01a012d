package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/notify"
	"github.com/roach88/stepwise/internal/record"
	"github.com/roach88/stepwise/internal/step"
)

// JournalListener journals every lifecycle event it observes.
//
// One instance serves one run: call BeginRun with the engine's token before
// the first step executes, and check Err after the scenario finishes.
// Notification methods cannot return errors, so write failures are logged,
// the first one is retained, and journaling continues best-effort.
//
// The listener owns its own clock: journal seqs are dense per trace and
// independent of the engine's dispatch seqs.
type JournalListener struct {
	notify.BaseListener

	store  *Store
	clock  *engine.Clock
	ctx    context.Context
	logger *slog.Logger

	runToken string
	scenario string
	firstErr error
	dropped  int
}

// JournalOption configures a JournalListener.
type JournalOption func(*JournalListener)

// WithJournalLogger sets the logger for journal write failures.
func WithJournalLogger(logger *slog.Logger) JournalOption {
	return func(l *JournalListener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewJournalListener creates a listener journaling into the given store.
// The context bounds every journal write for the lifetime of the run.
func NewJournalListener(ctx context.Context, s *Store, opts ...JournalOption) *JournalListener {
	l := &JournalListener{
		store:  s,
		clock:  engine.NewClock(),
		ctx:    ctx,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// BeginRun writes the run header row and arms the listener for the given
// run token. Must be called before the engine dispatches its first call;
// events observed before BeginRun would violate the journal's foreign key.
func (l *JournalListener) BeginRun(runToken, scenario string) error {
	l.runToken = runToken
	l.scenario = scenario
	return l.store.WriteRun(l.ctx, record.Run{
		Token:     runToken,
		Scenario:  scenario,
		Status:    record.RunStatusRunning,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// Err returns the first journal write failure, or nil when every observed
// event was journaled.
func (l *JournalListener) Err() error {
	return l.firstErr
}

// Dropped returns how many events failed to journal.
func (l *JournalListener) Dropped() int {
	return l.dropped
}

// RunToken returns the token set by BeginRun.
func (l *JournalListener) RunToken() string {
	return l.runToken
}

// StepStarted implements notify.Listener.
func (l *JournalListener) StepStarted(desc step.Description) {
	seq := l.clock.Next()
	l.write(record.NewStepEvent(record.EventStepStarted, l.runToken, seq, desc))
}

// StepFinished implements notify.Listener.
func (l *JournalListener) StepFinished(desc step.Description) {
	seq := l.clock.Next()
	l.write(record.NewStepEvent(record.EventStepFinished, l.runToken, seq, desc))
}

// StepIgnored implements notify.Listener.
func (l *JournalListener) StepIgnored(desc step.Description) {
	seq := l.clock.Next()
	l.write(record.NewStepEvent(record.EventStepIgnored, l.runToken, seq, desc))
}

// StepFailed implements notify.Listener.
func (l *JournalListener) StepFailed(failure step.Failure) {
	seq := l.clock.Next()
	l.write(record.NewFailureEvent(l.runToken, seq, failure))
}

// StepGroupStarted implements notify.Listener.
func (l *JournalListener) StepGroupStarted(desc step.Description) {
	seq := l.clock.Next()
	l.write(record.NewStepEvent(record.EventGroupStarted, l.runToken, seq, desc))
}

// StepGroupFinished implements notify.Listener.
func (l *JournalListener) StepGroupFinished() {
	seq := l.clock.Next()
	l.write(record.NewGroupFinishedEvent(l.runToken, seq))
}

// TestFinished implements notify.Listener. Journals the terminal event and
// finishes the run row in one transaction.
func (l *JournalListener) TestFinished(tally step.Tally) {
	seq := l.clock.Next()
	ev := record.NewTestFinishedEvent(l.runToken, seq, tally)

	status := record.RunStatusPassed
	if len(tally.Failures) > 0 {
		status = record.RunStatusFailed
	}
	finishedAt := time.Now().UTC().Format(time.RFC3339)

	if err := l.store.FinishRun(l.ctx, ev, status, finishedAt); err != nil {
		l.record(ev, err)
	}
}

// Failed is inherited from notify.BaseListener: the journal observes, it
// never drives skip decisions.

func (l *JournalListener) write(ev record.Event) {
	if err := l.store.WriteEvent(l.ctx, ev); err != nil {
		l.record(ev, err)
	}
}

func (l *JournalListener) record(ev record.Event, err error) {
	if l.firstErr == nil {
		l.firstErr = err
	}
	l.dropped++
	l.logger.Error("journal write failed",
		"run_token", l.runToken,
		"seq", ev.Seq,
		"kind", ev.Kind,
		"error", err,
	)
}

var _ notify.Listener = (*JournalListener)(nil)
