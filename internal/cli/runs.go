package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/queryir"
	"github.com/roach88/stepwise/internal/querysql"
	"github.com/roach88/stepwise/internal/record"
	"github.com/roach88/stepwise/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Status   string // optional - filter by run status
	Scenario string // optional - filter by scenario name
}

// RunsResult holds the run listing output.
type RunsResult struct {
	Runs  []record.Run `json:"runs"`
	Total int          `json:"total"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs in the journal",
		Long: `List the runs recorded in a journal.

Each row shows the run token, scenario, terminal status, and tally
counts. Runs are listed oldest first: start time, then token, both
under binary collation.

Examples:
  stepwise runs --db ./stepwise.db
  stepwise runs --db ./stepwise.db --status failed
  stepwise runs --db ./stepwise.db --scenario checkout-basic --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status (running, passed, failed)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "filter by scenario name")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if opts.Status != "" && !validRunStatus(opts.Status) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --status %q: must be one of [running passed failed]", opts.Status))
	}

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := queryRuns(ctx, st, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query runs", err)
	}

	result := RunsResult{Runs: runs, Total: len(runs)}

	if len(runs) == 0 {
		if opts.Format == "json" {
			return outputRunsJSON(cmd, RunsResult{Runs: []record.Run{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
		return nil
	}

	if opts.Format == "json" {
		return outputRunsJSON(cmd, result)
	}
	return outputRunsText(cmd, result)
}

// validRunStatus reports whether s is a known run status.
func validRunStatus(s string) bool {
	switch s {
	case record.RunStatusRunning, record.RunStatusPassed, record.RunStatusFailed:
		return true
	}
	return false
}

// queryRuns builds the run listing query as journal IR, compiles it,
// and scans the rows.
func queryRuns(ctx context.Context, st *store.Store, opts *RunsOptions) ([]record.Run, error) {
	var predicates []queryir.Predicate
	if opts.Status != "" {
		predicates = append(predicates, queryir.Equals{Column: "status", Value: queryir.String(opts.Status)})
	}
	if opts.Scenario != "" {
		predicates = append(predicates, queryir.Equals{Column: "scenario", Value: queryir.String(opts.Scenario)})
	}

	query := queryir.Select{
		From:    queryir.SourceRuns,
		Columns: []string{"token", "scenario", "status", "executed", "ignored", "failed", "started_at", "finished_at"},
	}
	if len(predicates) > 0 {
		query.Filter = queryir.And{Predicates: predicates}
	}

	if vr := queryir.Validate(query); !vr.IsValid {
		return nil, fmt.Errorf("invalid runs query: %v", vr.Problems)
	}

	sqlText, args, err := querysql.NewCompiler().Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compiling runs query: %w", err)
	}

	rows, err := st.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []record.Run
	for rows.Next() {
		var run record.Run
		if err := rows.Scan(&run.Token, &run.Scenario, &run.Status,
			&run.Executed, &run.Ignored, &run.Failed,
			&run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// outputRunsJSON outputs the run listing as JSON.
func outputRunsJSON(cmd *cobra.Command, result RunsResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputRunsText outputs the run listing as text.
func outputRunsText(cmd *cobra.Command, result RunsResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, "=== Runs ===")
	for _, run := range result.Runs {
		fmt.Fprintf(w, "  %-20s %-24s %-8s executed=%d ignored=%d failed=%d\n",
			truncateID(run.Token), run.Scenario, run.Status,
			run.Executed, run.Ignored, run.Failed)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d run(s)\n", result.Total)

	return nil
}
