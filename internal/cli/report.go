package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/queryir"
	"github.com/roach88/stepwise/internal/querysql"
	"github.com/roach88/stepwise/internal/record"
	"github.com/roach88/stepwise/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
	Scenario string // optional - restrict the report to one scenario
}

// ReportSummary aggregates run outcomes across the journal.
type ReportSummary struct {
	TotalRuns   int     `json:"total_runs"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	Interrupted int     `json:"interrupted"`
	PassRate    float64 `json:"pass_rate"` // percent of terminal runs that passed
}

// ScenarioReport aggregates run outcomes for one scenario.
type ScenarioReport struct {
	Scenario string  `json:"scenario"`
	Runs     int     `json:"runs"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	PassRate float64 `json:"pass_rate"`
}

// StepFailureCount counts journaled failures of one step.
type StepFailureCount struct {
	Owner string `json:"owner"`
	Step  string `json:"step"`
	Count int    `json:"count"`
}

// InterruptedRun describes a run that never reached a terminal event.
type InterruptedRun struct {
	Token    string `json:"token"`
	Scenario string `json:"scenario,omitempty"`
	LastSeq  int64  `json:"last_seq"`
}

// ReportResult holds the complete report output.
type ReportResult struct {
	Summary      ReportSummary      `json:"summary"`
	Scenarios    []ScenarioReport   `json:"scenarios"`
	StepFailures []StepFailureCount `json:"step_failures"`
	Interrupted  []InterruptedRun   `json:"interrupted"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate run outcomes from the journal",
		Long: `Aggregate run outcomes across a journal.

Reports per-scenario pass rates, the steps that failed most often, and
any runs that were interrupted before a terminal event was journaled.
Percentages are computed here from the journaled tallies; the engine
and journal store only counts.

Examples:
  stepwise report --db ./stepwise.db
  stepwise report --db ./stepwise.db --scenario checkout-basic
  stepwise report --db ./stepwise.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "restrict the report to one scenario")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result, err := buildReport(ctx, st, opts.Scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build report", err)
	}

	if result.Summary.TotalRuns == 0 {
		if opts.Format == "json" {
			return outputReportJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
		return nil
	}

	if opts.Format == "json" {
		return outputReportJSON(cmd, result)
	}
	return outputReportText(cmd, result)
}

// buildReport reads the journal and aggregates outcomes. When scenario is
// non-empty, runs of other scenarios are excluded everywhere.
func buildReport(ctx context.Context, st *store.Store, scenario string) (ReportResult, error) {
	result := ReportResult{
		Scenarios:    []ScenarioReport{},
		StepFailures: []StepFailureCount{},
		Interrupted:  []InterruptedRun{},
	}

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return result, fmt.Errorf("listing runs: %w", err)
	}

	perScenario := make(map[string]*ScenarioReport)

	for _, run := range runs {
		if scenario != "" && run.Scenario != scenario {
			continue
		}

		result.Summary.TotalRuns++
		sr := perScenario[run.Scenario]
		if sr == nil {
			sr = &ScenarioReport{Scenario: run.Scenario}
			perScenario[run.Scenario] = sr
		}
		sr.Runs++

		switch run.Status {
		case record.RunStatusPassed:
			result.Summary.Passed++
			sr.Passed++
		case record.RunStatusFailed:
			result.Summary.Failed++
			sr.Failed++
		}
	}

	result.Summary.PassRate = passRate(result.Summary.Passed, result.Summary.Failed)

	// Deterministic ordering: scenarios by name, failures by count then name
	for _, sr := range perScenario {
		sr.PassRate = passRate(sr.Passed, sr.Failed)
		result.Scenarios = append(result.Scenarios, *sr)
	}
	sort.Slice(result.Scenarios, func(i, j int) bool {
		return result.Scenarios[i].Scenario < result.Scenarios[j].Scenario
	})

	failures, err := queryFailureHotspots(ctx, st, scenario)
	if err != nil {
		return result, err
	}
	result.StepFailures = failures

	interrupted, err := st.FindInterruptedRuns(ctx)
	if err != nil {
		return result, fmt.Errorf("finding interrupted runs: %w", err)
	}
	for _, state := range interrupted {
		if scenario != "" && state.Run.Scenario != scenario {
			continue
		}
		result.Summary.Interrupted++
		result.Interrupted = append(result.Interrupted, InterruptedRun{
			Token:    state.Run.Token,
			Scenario: state.Run.Scenario,
			LastSeq:  state.LastSeq,
		})
	}

	return result, nil
}

// queryFailureHotspots counts journaled step_failed events per step across
// every run of the journal, joining through the run rows so the scenario
// restriction applies on the runs side.
func queryFailureHotspots(ctx context.Context, st *store.Store, scenario string) ([]StepFailureCount, error) {
	query := queryir.Join{
		Runs: queryir.Select{
			From: queryir.SourceRuns,
		},
		Events: queryir.Select{
			From:    queryir.SourceEvents,
			Columns: []string{"owner", "step"},
			Filter:  queryir.Equals{Column: "kind", Value: queryir.String(record.EventStepFailed)},
		},
	}
	if scenario != "" {
		query.Runs.Filter = queryir.Equals{Column: "scenario", Value: queryir.String(scenario)}
	}

	if vr := queryir.Validate(query); !vr.IsValid {
		return nil, fmt.Errorf("invalid failure query: %v", vr.Problems)
	}

	sqlText, args, err := querysql.NewCompiler().Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compiling failure query: %w", err)
	}

	rows, err := st.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]*StepFailureCount)
	for rows.Next() {
		var owner, stepName string
		if err := rows.Scan(&owner, &stepName); err != nil {
			return nil, err
		}
		key := owner + "/" + stepName
		fc := counts[key]
		if fc == nil {
			fc = &StepFailureCount{Owner: owner, Step: stepName}
			counts[key] = fc
		}
		fc.Count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	failures := make([]StepFailureCount, 0, len(counts))
	for _, fc := range counts {
		failures = append(failures, *fc)
	}
	sort.Slice(failures, func(i, j int) bool {
		a, b := failures[i], failures[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		return a.Step < b.Step
	})
	return failures, nil
}

// passRate returns the percentage of terminal runs that passed, with one
// decimal of precision. Zero terminal runs yields 0.
func passRate(passed, failed int) float64 {
	terminal := passed + failed
	if terminal == 0 {
		return 0
	}
	rate := float64(passed) / float64(terminal) * 100
	// Round to one decimal so text and JSON agree
	return float64(int(rate*10+0.5)) / 10
}

// outputReportJSON outputs the report as JSON.
func outputReportJSON(cmd *cobra.Command, result ReportResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputReportText outputs the report as text.
func outputReportText(cmd *cobra.Command, result ReportResult) error {
	w := cmd.OutOrStdout()

	// Summary section
	fmt.Fprintln(w, "=== Summary ===")
	fmt.Fprintf(w, "  Total Runs:  %d\n", result.Summary.TotalRuns)
	fmt.Fprintf(w, "  Passed:      %d\n", result.Summary.Passed)
	fmt.Fprintf(w, "  Failed:      %d\n", result.Summary.Failed)
	fmt.Fprintf(w, "  Interrupted: %d\n", result.Summary.Interrupted)
	fmt.Fprintf(w, "  Pass Rate:   %.1f%%\n", result.Summary.PassRate)
	fmt.Fprintln(w)

	// Scenarios section
	fmt.Fprintln(w, "=== Scenarios ===")
	for _, sr := range result.Scenarios {
		fmt.Fprintf(w, "  %-24s %d run(s)  passed=%d failed=%d  %.1f%%\n",
			sr.Scenario, sr.Runs, sr.Passed, sr.Failed, sr.PassRate)
	}
	fmt.Fprintln(w)

	// Step failures section
	fmt.Fprintln(w, "=== Step Failures ===")
	if len(result.StepFailures) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, fc := range result.StepFailures {
			fmt.Fprintf(w, "  %s/%s: %d failure(s)\n", fc.Owner, fc.Step, fc.Count)
		}
	}
	fmt.Fprintln(w)

	// Interrupted runs section
	fmt.Fprintln(w, "=== Interrupted Runs ===")
	if len(result.Interrupted) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, ir := range result.Interrupted {
			fmt.Fprintf(w, "  %s (%s) last seq %d\n", truncateID(ir.Token), ir.Scenario, ir.LastSeq)
		}
	}

	return nil
}
