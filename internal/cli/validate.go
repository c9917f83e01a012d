package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/compiler"
)

// FileValidation holds the validation outcome for one scenario file.
type FileValidation struct {
	File   string                     `json:"file"`
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool             `json:"valid"`
	Files      []FileValidation `json:"files"`
	ErrorCount int              `json:"error_count"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files without executing anything.

Performs syntax checking, schema validation, step reference checks, and
group call-graph cycle analysis. Accepts a single file or a directory
(walked recursively for .yaml/.yml files). Faster than run for
development feedback.

Exit codes:
  0 - All scenarios valid
  1 - Validation errors found
  2 - Command error (path not found, no scenario files, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], filter, cmd)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runValidate(opts *RootOptions, path, filter string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	files, err := scenarioPaths(path, filter)
	if err != nil {
		// Path problems (not found, no files, bad filter) are command-level errors
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	formatter.VerboseLog("Found %d scenario file(s) in %s", len(files), path)

	result := ValidationResult{
		Valid: true,
		Files: make([]FileValidation, 0, len(files)),
	}

	for _, file := range files {
		formatter.VerboseLog("Validating scenario: %s", file)
		fv := validateScenarioFile(file)
		result.Files = append(result.Files, fv)
		if !fv.Valid {
			result.Valid = false
			result.ErrorCount += len(fv.Errors)
		}
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}

	return outputValidateSuccess(formatter, result)
}

// validateScenarioFile compiles and validates one scenario file. Compile
// failures, schema violations, and group call cycles all land in Errors.
func validateScenarioFile(path string) FileValidation {
	fv := FileValidation{File: path, Valid: true}

	scenario, err := compiler.CompileScenarioFile(path)
	if err != nil {
		var cErr *compiler.CompileError
		if errors.As(err, &cErr) {
			fv.Errors = append(fv.Errors, compiler.ValidationError{
				Field:   cErr.Field,
				Message: cErr.Message,
				Code:    MapFieldToErrorCode(cErr.Field),
				Line:    getLineFromPos(cErr.Pos),
			})
		} else {
			fv.Errors = append(fv.Errors, compiler.ValidationError{
				Field:   "scenario",
				Message: err.Error(),
				Code:    ErrCodeLoadFailed,
			})
		}
		fv.Valid = false
		return fv
	}

	fv.Errors = append(fv.Errors, compiler.Validate(scenario)...)

	// Group call cycles never terminate at run time, so they invalidate
	// the scenario rather than merely warn.
	for _, warning := range compiler.AnalyzeCycles(scenario) {
		fv.Errors = append(fv.Errors, compiler.ValidationError{
			Field:   "steps",
			Message: warning.Message,
			Code:    compiler.ErrGroupCycle,
		})
	}

	fv.Valid = len(fv.Errors) == 0
	return fv
}

// getLineFromPos extracts a line number from a CUE token.Pos.
func getLineFromPos(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ All scenarios valid")
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Path/loader errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs per-file validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		first := firstValidationError(result)

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    first.Code,
				Message: first.Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", result.ErrorCount))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, fv := range result.Files {
		if fv.Valid {
			continue
		}
		fmt.Fprintf(formatter.Writer, "%s\n", fv.File)
		for _, err := range fv.Errors {
			if err.Line > 0 {
				fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
			}
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
		}
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", result.ErrorCount))
}

// firstValidationError returns the first error across all files. Callers
// only invoke it when at least one file failed.
func firstValidationError(result ValidationResult) compiler.ValidationError {
	for _, fv := range result.Files {
		if len(fv.Errors) > 0 {
			return fv.Errors[0]
		}
	}
	return compiler.ValidationError{Code: ErrCodeGeneric, Message: "validation failed"}
}
