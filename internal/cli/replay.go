package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/harness"
	"github.com/roach88/stepwise/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Run      string // optional - verify one recorded run only
}

// ReplayRunResult holds the replay verdict for a single recorded run.
type ReplayRunResult struct {
	RunToken      string `json:"run_token"`
	Events        int    `json:"events"`
	Terminated    bool   `json:"terminated"`
	Consistent    bool   `json:"consistent"`
	Deterministic bool   `json:"deterministic"`
	Divergence    string `json:"divergence,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Scenario         string            `json:"scenario"`
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario-file>",
		Short: "Re-run a scenario and verify journaled traces",
		Long: `Re-run a scenario and compare its trace against journaled runs.

The scenario executes once against a throwaway in-memory journal, then
each recorded run of the same scenario is compared event by event. Run
tokens, event IDs, and display markup legitimately differ between runs
and are excluded from the comparison; seq, kind, owner, step, error, and
tally must agree. A run the journal recorded as interrupted diverges at
its truncation point.

Exit codes:
  0 - All recorded runs replay deterministically
  1 - Divergence detected
  2 - Command error (database not found, run not found, etc.)

Examples:
  stepwise replay ./scenarios/checkout.yaml --db ./stepwise.db
  stepwise replay ./scenarios/checkout.yaml --db ./stepwise.db --run run-1
  stepwise replay ./scenarios/checkout.yaml --db ./stepwise.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Run, "run", "", "verify a single recorded run")

	return cmd
}

func runReplay(opts *ReplayOptions, scenarioFile string, cmd *cobra.Command) error {
	ctx := context.Background()

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	// One fresh execution serves every comparison: the engine is
	// deterministic, so re-running per recorded run would produce the
	// same trace each time.
	fresh, err := harness.Run(scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "fresh execution failed", err)
	}

	tokens, err := recordedRunTokens(ctx, st, scenario.Name, opts.Run)
	if err != nil {
		return err
	}

	if len(tokens) == 0 {
		if opts.Format == "json" {
			result := ReplayResult{
				Scenario:         scenario.Name,
				Runs:             []ReplayRunResult{},
				TotalRuns:        0,
				AllDeterministic: true,
			}
			return outputReplayJSON(cmd, result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "No recorded runs found for scenario: %s\n", scenario.Name)
		return nil
	}

	// Verify each recorded run
	result := ReplayResult{
		Scenario:         scenario.Name,
		Runs:             make([]ReplayRunResult, 0, len(tokens)),
		TotalRuns:        len(tokens),
		AllDeterministic: true,
	}

	for _, token := range tokens {
		runResult, err := verifyRecordedRun(ctx, st, token, fresh)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", token), err)
		}

		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	// Output results
	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	return outputReplayText(cmd, result, opts.Verbose)
}

// recordedRunTokens resolves which journaled runs to verify. A --run token
// must exist and must belong to the scenario being replayed.
func recordedRunTokens(ctx context.Context, st *store.Store, scenarioName, only string) ([]string, error) {
	if only != "" {
		run, err := st.ReadRun(ctx, only)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", only))
		}
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read run", err)
		}
		if run.Scenario != scenarioName {
			return nil, NewExitError(ExitCommandError,
				fmt.Sprintf("run %s was recorded for scenario %q, not %q", only, run.Scenario, scenarioName))
		}
		return []string{only}, nil
	}

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	var tokens []string
	for _, run := range runs {
		if run.Scenario == scenarioName {
			tokens = append(tokens, run.Token)
		}
	}
	return tokens, nil
}

// verifyRecordedRun compares one journaled trace against the fresh run.
func verifyRecordedRun(ctx context.Context, st *store.Store, token string, fresh *harness.Result) (ReplayRunResult, error) {
	state, err := st.GetRunState(ctx, token)
	if err != nil {
		return ReplayRunResult{}, err
	}

	runResult := ReplayRunResult{
		RunToken:      token,
		Events:        len(state.Events),
		Terminated:    state.Terminated,
		Consistent:    state.Consistent,
		Deterministic: true,
	}

	if div := engine.CompareTraces(state.Events, fresh.Trace); div != nil {
		runResult.Deterministic = false
		runResult.Divergence = fmt.Sprintf("event %d: %s", div.Index, div.Reason)
	}

	return runResult, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %s, %d recorded run(s)\n", result.Scenario, result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s\n", status, truncateID(run.RunToken))

		if verbose {
			fmt.Fprintf(w, "  Events: %d\n", run.Events)
			fmt.Fprintf(w, "  Terminated: %v\n", run.Terminated)
			fmt.Fprintf(w, "  Consistent: %v\n", run.Consistent)
		} else {
			fmt.Fprintf(w, "  Events: %d\n", run.Events)
		}

		if !run.Deterministic {
			fmt.Fprintf(w, "  Divergence at %s\n", run.Divergence)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All recorded runs replay deterministically")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
