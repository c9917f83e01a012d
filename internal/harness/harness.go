package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/stepwise/internal/compiler"
	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/notify"
	"github.com/roach88/stepwise/internal/record"
	"github.com/roach88/stepwise/internal/step"
	"github.com/roach88/stepwise/internal/store"
	"github.com/roach88/stepwise/internal/testutil"
)

// Harness executes one scenario against a live interception engine.
// It owns the scenario's store, engine, and journal for the duration of a run.
type Harness struct {
	store   *store.Store
	engine  *engine.Engine
	journal *store.JournalListener
	proxy   *engine.Proxy
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database for isolation, and
// uses a fixed run token so traces are reproducible across runs. Engine and
// journal logs are discarded; callers that want them journaled elsewhere or
// logged use RunJournaled directly.
func Run(scenario *compiler.Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	tokens := testutil.NewFixedRunTokenGenerator(scenario.RunToken)
	return RunJournaled(scenario, st, tokens, engine.DiscardLogger())
}

// RunJournaled executes a scenario against a caller-owned store. The run is
// journaled under a token from the given generator, so a persistent store
// accumulates one run per invocation. The caller keeps ownership of the
// store and closes it.
//
// Execution flow:
// 1. Attach a journal listener to the provided store
// 2. Build the step library from the scenario's step definitions
// 3. Execute the script calls through the engine proxy
// 4. Finish the run and read the journaled trace back
// 5. Evaluate assertions against trace, tally, and recorded errors
func RunJournaled(scenario *compiler.Scenario, st *store.Store, tokens engine.TokenGenerator, logger *slog.Logger) (*Result, error) {
	ctx := context.Background()

	journal := store.NewJournalListener(ctx, st, store.WithJournalLogger(logger))

	opts := []engine.Option{
		engine.WithTokens(tokens),
		engine.WithLogger(logger),
	}
	if scenario.Engine != nil {
		if scenario.Engine.MaxCalls > 0 {
			opts = append(opts, engine.WithMaxCalls(scenario.Engine.MaxCalls))
		}
		if scenario.Engine.FailOnFinish {
			opts = append(opts, engine.WithFailOnFinish(true))
		}
	}

	eng := engine.New([]notify.Listener{journal, notify.NewLogListener(logger)}, opts...)

	if err := journal.BeginRun(eng.RunToken(), scenario.Name); err != nil {
		return nil, fmt.Errorf("failed to begin run: %w", err)
	}

	h := &Harness{
		store:   st,
		engine:  eng,
		journal: journal,
		logger:  logger,
	}
	// Bodies resolve h.proxy at call time, so binding after library
	// construction is safe and lets groups call through the proxy.
	h.proxy = eng.Bind(h.buildLibrary(scenario))

	result := NewResult()
	result.RunToken = eng.RunToken()

	for i, call := range scenario.Script {
		if _, err := h.proxy.Call(ctx, call.Call, call.Args...); err != nil {
			result.Aborted = err.Error()
			h.logger.Warn("script aborted",
				"step", i,
				"call", call.Call,
				"error", err,
			)
			break
		}
	}

	if err := eng.Finish(); err != nil {
		result.FinishErr = err.Error()
	}

	if err := journal.Err(); err != nil {
		return nil, fmt.Errorf("journal write failed: %w", err)
	}

	trace, err := st.ReadTrace(ctx, eng.RunToken())
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	result.Trace = trace
	result.Tally = record.SummarizeTally(eng.Tally())

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	// An aborted script fails the scenario unless an assertion claims the abort.
	if result.Aborted != "" && !claimsAbort(scenario.Assertions) {
		result.AddError(fmt.Sprintf("script aborted: %s", result.Aborted))
	}

	// A scenario without assertions is a pure journaling run: recorded step
	// failures fail it directly, matching the journaled run status. Declaring
	// any assertion hands the verdict to the assertions instead.
	if len(scenario.Assertions) == 0 && result.Tally != nil && len(result.Tally.Failures) > 0 {
		result.AddError(fmt.Sprintf("%d step failure(s) recorded", len(result.Tally.Failures)))
	}

	return result, nil
}

// claimsAbort reports whether any assertion expects the script to abort.
func claimsAbort(assertions []compiler.Assertion) bool {
	for _, a := range assertions {
		if a.Type == compiler.AssertScriptError {
			return true
		}
	}
	return false
}

// buildLibrary registers one definition per scenario step, with bodies that
// produce the declared outcome when invoked.
func (h *Harness) buildLibrary(scenario *compiler.Scenario) *step.Library {
	lib := step.NewLibrary(scenario.Owner)
	for _, def := range scenario.Steps {
		var marks []step.Mark
		if def.Pending {
			marks = append(marks, step.Pending())
		}
		if def.Ignored {
			marks = append(marks, step.Ignored())
		}
		body := h.stepBody(def)
		switch def.Kind {
		case compiler.KindGroup:
			lib.Group(def.Name, body, marks...)
		case compiler.KindPlain:
			lib.Plain(def.Name, body, marks...)
		default:
			lib.Step(def.Name, body, marks...)
		}
	}
	return lib
}

// stepBody builds the executable body for one step definition. Group bodies
// call their children through the proxy so nested calls are intercepted too.
func (h *Harness) stepBody(def compiler.StepDef) step.Body {
	return func(ctx context.Context, args ...any) (any, error) {
		if def.Kind == compiler.KindGroup {
			for _, name := range def.Calls {
				if _, err := h.proxy.Call(ctx, name); err != nil {
					return nil, err
				}
			}
		}

		switch def.Outcome {
		case compiler.OutcomeAssertion:
			return nil, step.NewAssertionError("%s", def.Message)
		case compiler.OutcomeDriver:
			return nil, step.NewDriverError("", "%s", def.Message)
		case compiler.OutcomeError:
			return nil, errors.New(def.Message)
		case compiler.OutcomeRethrow:
			if failure, ok := h.engine.LastFailure(); ok {
				return nil, failure.Cause
			}
			return nil, nil
		default:
			if def.Returns != "" {
				return def.Returns, nil
			}
			return nil, nil
		}
	}
}
