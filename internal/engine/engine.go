package engine

import (
	"io"
	"log/slog"

	"github.com/roach88/stepwise/internal/notify"
	"github.com/roach88/stepwise/internal/step"
)

// Engine intercepts step calls for one scenario run.
//
// An Engine is created per scenario, drives at most one run, and is dead
// after Finish. It owns the run's tally and failure record; listeners are
// externally owned and shared.
//
// Thread-safety model: none. All methods must be called from the scenario's
// single goroutine. Listeners shared across engines synchronize internally.
type Engine struct {
	broadcaster *notify.Broadcaster
	clock       *Clock
	logger      *slog.Logger
	tokens      TokenGenerator
	runToken    string

	tally    *step.Tally
	failures []step.Failure
	finished bool

	failOnFinish bool
	quota        *CallQuota
}

// Option configures engine construction.
type Option func(*Engine)

// WithFailOnFinish makes Finish return the last recorded failure's cause.
// Default: Finish returns nil regardless of failures; the tally carries them.
func WithFailOnFinish(fail bool) Option {
	return func(e *Engine) {
		e.failOnFinish = fail
	}
}

// WithMaxCalls sets a call quota for the run. Zero or negative means
// unlimited (the default).
func WithMaxCalls(maxCalls int) Option {
	return func(e *Engine) {
		if maxCalls > 0 {
			e.quota = NewCallQuota(maxCalls)
		}
	}
}

// WithLogger sets the engine's logger. Default: slog.Default().
// Tests typically pass slog.New(slog.NewTextHandler(io.Discard, nil)).
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock sets a pre-configured clock. Used when resuming a journaled
// sequence position.
func WithClock(clock *Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithTokens sets the run token generator. Default: UUIDv7Generator.
// Tests pass NewFixedGenerator for deterministic traces.
func WithTokens(tokens TokenGenerator) Option {
	return func(e *Engine) {
		if tokens != nil {
			e.tokens = tokens
		}
	}
}

// New creates an Engine reporting to the given listeners.
//
// The listeners slice is copied; notification order is the slice order and
// never changes afterward. The run token is drawn once, here.
func New(listeners []notify.Listener, opts ...Option) *Engine {
	e := &Engine{
		broadcaster: notify.NewBroadcaster(listeners...),
		clock:       NewClock(),
		logger:      slog.Default(),
		tokens:      UUIDv7Generator{},
		tally:       step.NewTally(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.runToken = e.tokens.Generate()
	return e
}

// RunToken returns the token identifying this run.
func (e *Engine) RunToken() string {
	return e.runToken
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Tally returns a snapshot of the run's tally so far.
func (e *Engine) Tally() step.Tally {
	return e.tally.Snapshot()
}

// Failures returns a copy of the recorded failures in occurrence order.
func (e *Engine) Failures() []step.Failure {
	out := make([]step.Failure, len(e.failures))
	copy(out, e.failures)
	return out
}

// HasFailed reports whether the engine itself recorded a failure.
// Listener Failed() reports are not consulted here; see skipEligible.
func (e *Engine) HasFailed() bool {
	return len(e.failures) > 0
}

// LastFailure returns the most recently recorded failure.
func (e *Engine) LastFailure() (step.Failure, bool) {
	if len(e.failures) == 0 {
		return step.Failure{}, false
	}
	return e.failures[len(e.failures)-1], true
}

// Finished reports whether Finish has run.
func (e *Engine) Finished() bool {
	return e.finished
}

// Finish is the explicit terminal operation for a run.
//
// It delivers TestFinished with a copy of the tally to all listeners, in
// registration order, exactly once. When the engine was built
// WithFailOnFinish(true) and a failure was recorded, Finish returns the
// last recorded failure's cause; otherwise nil.
//
// The engine is dead afterward: subsequent Call or Finish returns a
// RUN_FINISHED runtime error.
func (e *Engine) Finish() error {
	if e.finished {
		return NewRunFinishedError(e.runToken)
	}
	e.finished = true

	tally := e.tally.Snapshot()
	e.broadcaster.TestFinished(tally)

	e.logger.Info("test finished",
		"run_token", e.runToken,
		"executed", tally.Executed,
		"ignored", tally.Ignored,
		"failures", len(tally.Failures),
	)

	if e.failOnFinish && len(e.failures) > 0 {
		return e.failures[len(e.failures)-1].Cause
	}
	return nil
}

// DiscardLogger returns a logger that drops everything. Convenience for
// hosts and tests that want a quiet engine.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
