package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/compiler"
	"github.com/roach88/stepwise/internal/harness"
	"github.com/roach88/stepwise/internal/record"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Args string
}

// InvokeResult holds the outcome of a single-step invocation.
type InvokeResult struct {
	Step     string               `json:"step"`
	Display  string               `json:"display"`
	Pass     bool                 `json:"pass"`
	Trace    []record.Event       `json:"trace"`
	Tally    *record.TallySummary `json:"tally,omitempty"`
	Aborted  string               `json:"aborted,omitempty"`
	Errors   []string             `json:"errors,omitempty"`
	RunToken string               `json:"run_token"`
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <scenario-file> <step-name>",
		Short: "Invoke a single step from a scenario's library",
		Long: `Invoke one step from a scenario's library against a fresh engine.

The scenario's step library is registered as usual, but the script is
replaced by the single named call and assertions are skipped. The full
lifecycle trace of the invocation is printed. Useful for poking at a
step definition without writing a scenario around it.

Arguments are passed as a JSON array of scalars. Floats are rejected
because rendered step names must be canonical.

Exit codes:
  0 - Step executed (or was ignored as pending)
  1 - Step failed or aborted the script
  2 - Command error (unknown step, invalid args, etc.)

Examples:
  stepwise invoke ./scenarios/checkout.yaml add_item --args '["widget", 3]'
  stepwise invoke ./scenarios/checkout.yaml checkout --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeStep(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "[]", "step arguments as a JSON array")

	return cmd
}

func invokeStep(opts *InvokeOptions, scenarioFile, stepName string, cmd *cobra.Command) error {
	stepArgs, err := parseInvokeArgs(opts.Args)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --args", err)
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	if !libraryHasStep(scenario, stepName) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("step %q not defined in scenario %s", stepName, scenario.Name))
	}

	// Same library, single-call script. Assertions and golden fixtures
	// describe the original script's trace, so they don't apply here.
	invocation := *scenario
	invocation.Script = []compiler.ScriptCall{{Call: stepName, Args: stepArgs}}
	invocation.Assertions = nil
	invocation.Golden = ""

	result, err := harness.Run(&invocation)
	if err != nil {
		return WrapExitError(ExitCommandError, "invocation failed", err)
	}

	invokeResult := InvokeResult{
		Step:     stepName,
		Display:  formatInvocation(stepName, stepArgs),
		Pass:     result.Pass,
		Trace:    result.Trace,
		Tally:    result.Tally,
		Aborted:  result.Aborted,
		Errors:   result.Errors,
		RunToken: result.RunToken,
	}

	if opts.Format == "json" {
		return outputInvokeJSON(cmd, invokeResult)
	}
	return outputInvokeText(cmd, invokeResult)
}

// parseInvokeArgs decodes a JSON array of scalar step arguments. Numbers
// must be integers; floats have no canonical rendering and are rejected,
// matching the scenario compiler.
func parseInvokeArgs(raw string) ([]any, error) {
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()

	var parsed []any
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}

	args := make([]any, 0, len(parsed))
	for i, v := range parsed {
		switch val := v.(type) {
		case string:
			args = append(args, val)
		case bool:
			args = append(args, val)
		case json.Number:
			n, err := val.Int64()
			if err != nil {
				return nil, fmt.Errorf("argument %d: float arguments are forbidden - use int or string", i)
			}
			args = append(args, n)
		default:
			return nil, fmt.Errorf("argument %d: unsupported type %T", i, v)
		}
	}
	return args, nil
}

// libraryHasStep reports whether the scenario's library defines the step.
func libraryHasStep(scenario *compiler.Scenario, name string) bool {
	for _, def := range scenario.Steps {
		if def.Name == name {
			return true
		}
	}
	return false
}

// formatInvocation renders a step call for display, e.g. add_item("widget", 3).
func formatInvocation(name string, args []any) string {
	if len(args) == 0 {
		return name + "()"
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		switch val := arg.(type) {
		case string:
			parts[i] = fmt.Sprintf("%q", val)
		default:
			parts[i] = fmt.Sprintf("%v", val)
		}
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}

// outputInvokeJSON outputs the invocation result as JSON.
func outputInvokeJSON(cmd *cobra.Command, result InvokeResult) error {
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
			Code:    "E_STEP_FAILED",
			Message: fmt.Sprintf("step %s failed", result.Step),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("step %s failed", result.Step))
	}
	return nil
}

// outputInvokeText outputs the invocation result as text.
func outputInvokeText(cmd *cobra.Command, result InvokeResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Invocation: %s\n", result.Display)
	fmt.Fprintf(w, "Run: %s\n\n", result.RunToken)

	for _, event := range result.Trace {
		line := fmt.Sprintf("  [%d] %-15s", event.Seq, event.Kind)
		if event.Owner != "" || event.Step != "" {
			line += fmt.Sprintf(" %s/%s", event.Owner, event.Step)
		}
		if event.Error != "" {
			line += fmt.Sprintf(" error=%q", event.Error)
		}
		if event.Tally != nil {
			line += fmt.Sprintf(" executed=%d ignored=%d", event.Tally.Executed, event.Tally.Ignored)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	if result.Pass {
		fmt.Fprintln(w, "✓ Step executed")
		return nil
	}

	fmt.Fprintln(w, "✗ Step failed")
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("step %s failed", result.Step))
}
