package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/harness"
	"github.com/roach88/stepwise/internal/store"
	"github.com/roach88/stepwise/internal/testutil"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Token    string

	// Tokens allows overriding the run token generator (for testing).
	// If nil, the command picks one from --token / the scenario / UUIDv7.
	Tokens engine.TokenGenerator
}

// RunResult holds the outcome of a journaled scenario run.
type RunResult struct {
	Scenario    string   `json:"scenario"`
	RunToken    string   `json:"run_token"`
	Pass        bool     `json:"pass"`
	Executed    int      `json:"executed"`
	Ignored     int      `json:"ignored"`
	Failed      int      `json:"failed"`
	FinishError string   `json:"finish_error,omitempty"`
	Aborted     string   `json:"aborted,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Run a scenario and journal its trace",
		Long: `Run a scenario file through the interception engine.

The scenario's step library is registered, its script executed call by
call, and every step lifecycle event journaled to the SQLite database
(creating it if it doesn't exist). Assertions declared in the scenario
are evaluated against the journaled trace.

The run token defaults to a fresh UUIDv7 so repeated runs accumulate in
the journal. Pass --token (or pin run_token in the scenario) for a
reproducible token.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed (assertions, aborted script, unclaimed step failures)
  2 - Command error (invalid paths, database not found, etc.)

Examples:
  stepwise run ./scenarios/checkout.yaml --db ./stepwise.db
  stepwise run ./scenarios/checkout.yaml --db ./stepwise.db --token run-1
  stepwise run ./scenarios/checkout.yaml --db ./stepwise.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Token, "token", "", "fixed run token (default: fresh UUIDv7)")

	return cmd
}

func runScenario(opts *RunOptions, scenarioFile string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	// Load scenario
	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	slog.Debug("scenario loaded", "name", scenario.Name, "steps", len(scenario.Steps), "script", len(scenario.Script))

	// Open journal (create if not exists)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// Token precedence: test override, --token, scenario pin, fresh UUIDv7.
	tokens := opts.Tokens
	if tokens == nil {
		switch {
		case opts.Token != "":
			tokens = engine.NewFixedGenerator(opts.Token)
		case scenario.RunToken != "":
			tokens = testutil.NewFixedRunTokenGenerator(scenario.RunToken)
		default:
			tokens = engine.UUIDv7Generator{}
		}
	}

	result, err := harness.RunJournaled(scenario, st, tokens, slog.Default())
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}
	slog.Debug("run journaled", "run", result.RunToken, "events", len(result.Trace))

	runResult := RunResult{
		Scenario:    scenario.Name,
		RunToken:    result.RunToken,
		Pass:        result.Pass,
		FinishError: result.FinishErr,
		Aborted:     result.Aborted,
		Errors:      result.Errors,
	}
	if result.Tally != nil {
		runResult.Executed = result.Tally.Executed
		runResult.Ignored = result.Tally.Ignored
		runResult.Failed = len(result.Tally.Failures)
	}

	if opts.Format == "json" {
		return outputRunJSON(cmd, runResult)
	}
	return outputRunText(cmd, runResult)
}

// outputRunJSON outputs the run result as JSON.
func outputRunJSON(cmd *cobra.Command, result RunResult) error {
	status := "ok"
	if !result.Pass {
		status = "error"
	}

	response := CLIResponse{
		Status:   status,
		Data:     result,
		RunToken: result.RunToken,
	}
	if !result.Pass {
		response.Error = &CLIError{
			Code:    "E_SCENARIO_FAILED",
			Message: fmt.Sprintf("scenario %s failed", result.Scenario),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Pass {
		// Scenario failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", result.Scenario))
	}
	return nil
}

// outputRunText outputs the run result as text.
func outputRunText(cmd *cobra.Command, result RunResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run: %s\n", result.RunToken)
	fmt.Fprintf(w, "Scenario: %s\n", result.Scenario)
	fmt.Fprintf(w, "Steps: executed=%d ignored=%d failed=%d\n", result.Executed, result.Ignored, result.Failed)
	if result.FinishError != "" {
		fmt.Fprintf(w, "Finish error: %s\n", result.FinishError)
	}
	if result.Aborted != "" {
		fmt.Fprintf(w, "Aborted: %s\n", result.Aborted)
	}
	fmt.Fprintln(w)

	if result.Pass {
		fmt.Fprintln(w, "✓ Scenario passed")
		return nil
	}

	fmt.Fprintln(w, "✗ Scenario failed")
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	// Scenario failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", result.Scenario))
}
