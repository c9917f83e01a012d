package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/queryir"
	"github.com/roach88/stepwise/internal/querysql"
	"github.com/roach88/stepwise/internal/record"
	"github.com/roach88/stepwise/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Run      string
	Kind     string // optional - filter to one event kind
	Step     string // optional - filter to one step name
}

// TraceRow is one journaled event in the timeline.
type TraceRow struct {
	ID      string          `json:"id"`
	Seq     int64           `json:"seq"`
	Kind    string          `json:"kind"`
	Owner   string          `json:"owner,omitempty"`
	Step    string          `json:"step,omitempty"`
	Display string          `json:"display,omitempty"`
	Error   string          `json:"error,omitempty"`
	Tally   json.RawMessage `json:"tally,omitempty"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int  `json:"total_events"`
	Started     int  `json:"started"`
	Finished    int  `json:"finished"`
	Failed      int  `json:"failed"`
	Ignored     int  `json:"ignored"`
	IsTerminal  bool `json:"is_terminal"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunToken string     `json:"run_token"`
	Scenario string     `json:"scenario,omitempty"`
	Status   string     `json:"status,omitempty"`
	Timeline []TraceRow `json:"timeline"`
	Stats    TraceStats `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journaled trace of a run",
		Long: `Show the journaled event timeline for a single run.

Events are listed in trace order (dense seq starting at 1). Filters
narrow the timeline to one event kind or one step name; the query is
built as journal query IR and compiled to parameterized SQL, so filter
values never reach the SQL text.

Examples:
  stepwise trace --db ./stepwise.db --run run-1
  stepwise trace --db ./stepwise.db --run run-1 --kind step_failed
  stepwise trace --db ./stepwise.db --run run-1 --step add_item --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Run, "run", "", "run token to trace (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one event kind")
	cmd.Flags().StringVar(&opts.Step, "step", "", "filter to one step name")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if opts.Kind != "" && !record.ValidKinds[record.EventKind(opts.Kind)] {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --kind %q", opts.Kind))
	}

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	// Run registry row carries scenario name and terminal status
	run, err := st.ReadRun(ctx, opts.Run)
	if errors.Is(err, sql.ErrNoRows) {
		if opts.Format == "json" {
			return outputTraceJSON(cmd, TraceResult{
				RunToken: opts.Run,
				Timeline: []TraceRow{},
				Stats:    TraceStats{},
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "No events found for run: %s\n", opts.Run)
		return nil
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	timeline, err := queryTimeline(ctx, st, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query trace", err)
	}

	stats := computeTraceStats(timeline)

	// Terminality is a property of the run, not of the filtered view; a
	// --kind filter must not hide the journaled test_finished.
	_, terminal, err := st.TerminalEvent(ctx, opts.Run)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read terminal event", err)
	}
	stats.IsTerminal = terminal

	result := TraceResult{
		RunToken: opts.Run,
		Scenario: run.Scenario,
		Status:   run.Status,
		Timeline: timeline,
		Stats:    stats,
	}

	// Output results
	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}

	return outputTraceText(cmd, result, opts.Verbose)
}

// queryTimeline builds the timeline query as journal IR, compiles it,
// and scans the rows.
func queryTimeline(ctx context.Context, st *store.Store, opts *TraceOptions) ([]TraceRow, error) {
	predicates := []queryir.Predicate{
		queryir.Param{Column: "run_token", Name: "run"},
	}
	if opts.Kind != "" {
		predicates = append(predicates, queryir.Equals{Column: "kind", Value: queryir.String(opts.Kind)})
	}
	if opts.Step != "" {
		predicates = append(predicates, queryir.Equals{Column: "step", Value: queryir.String(opts.Step)})
	}

	query := queryir.Select{
		From:    queryir.SourceEvents,
		Filter:  queryir.And{Predicates: predicates},
		Columns: []string{"id", "seq", "kind", "owner", "step", "display", "error", "tally"},
	}

	// A schema drift surfaces here with every problem listed, not as a
	// half-built statement.
	if vr := queryir.Validate(query); !vr.IsValid {
		return nil, fmt.Errorf("invalid trace query: %v", vr.Problems)
	}

	compiler := querysql.NewCompiler()
	compiler.Params["run"] = opts.Run
	sqlText, args, err := compiler.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compiling trace query: %w", err)
	}

	rows, err := st.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var timeline []TraceRow
	for rows.Next() {
		var row TraceRow
		var tallyJSON string
		if err := rows.Scan(&row.ID, &row.Seq, &row.Kind, &row.Owner,
			&row.Step, &row.Display, &row.Error, &tallyJSON); err != nil {
			return nil, err
		}
		if tallyJSON != "" {
			row.Tally = json.RawMessage(tallyJSON)
		}
		timeline = append(timeline, row)
	}
	return timeline, rows.Err()
}

// computeTraceStats tallies the timeline by event kind. IsTerminal is left
// for the caller; the timeline may be filtered.
func computeTraceStats(timeline []TraceRow) TraceStats {
	stats := TraceStats{TotalEvents: len(timeline)}
	for _, row := range timeline {
		switch record.EventKind(row.Kind) {
		case record.EventStepStarted, record.EventGroupStarted:
			stats.Started++
		case record.EventStepFinished, record.EventGroupFinished:
			stats.Finished++
		case record.EventStepFailed:
			stats.Failed++
		case record.EventStepIgnored:
			stats.Ignored++
		}
	}
	return stats
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status:   "ok",
		Data:     result,
		RunToken: result.RunToken,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Run: %s\n", result.RunToken)
	if result.Scenario != "" {
		fmt.Fprintf(w, "Scenario: %s\n", result.Scenario)
	}
	fmt.Fprintf(w, "Status: %s\n", result.Status)
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, row := range result.Timeline {
			formatTimelineRow(w, row, verbose)
		}
	}
	fmt.Fprintln(w)

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Started:      %d\n", result.Stats.Started)
	fmt.Fprintf(w, "  Finished:     %d\n", result.Stats.Finished)
	fmt.Fprintf(w, "  Failed:       %d\n", result.Stats.Failed)
	fmt.Fprintf(w, "  Ignored:      %d\n", result.Stats.Ignored)
	fmt.Fprintf(w, "  Terminal:     %s\n", terminalStatus(result.Stats.IsTerminal))

	return nil
}

// formatTimelineRow formats a single timeline row for text output.
func formatTimelineRow(w interface{ Write([]byte) (int, error) }, row TraceRow, verbose bool) {
	line := fmt.Sprintf("  [%d] %-15s", row.Seq, row.Kind)
	if row.Owner != "" || row.Step != "" {
		line += fmt.Sprintf(" %s/%s", row.Owner, row.Step)
	}
	if row.Error != "" {
		line += fmt.Sprintf(" error=%q", row.Error)
	}
	fmt.Fprintln(w, line)

	if verbose {
		if row.Display != "" {
			fmt.Fprintf(w, "       Display: %s\n", row.Display)
		}
		fmt.Fprintf(w, "       ID: %s\n", truncateID(row.ID))
	}
}

// terminalStatus returns a human-readable terminal status.
func terminalStatus(isTerminal bool) string {
	if isTerminal {
		return "yes (test_finished journaled)"
	}
	return "no (run interrupted or still running)"
}
