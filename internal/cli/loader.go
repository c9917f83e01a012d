package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/stepwise/internal/compiler"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No scenario files found
	ErrCodeLoadFailed  = "E004" // Scenario parse/compile failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E006" // File write error
)

// LoadError represents an error that occurred while locating or parsing
// scenario files.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// scenarioPaths resolves a path argument into scenario files. A directory is
// walked for .yaml/.yml files (optionally filtered by glob pattern on the
// base name); a file path is returned as-is.
func scenarioPaths(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing path: %v", err)}
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	files, err := findScenarioFiles(path, filter)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no scenario files found in %s", path)}
	}
	return files, nil
}

// findScenarioFiles finds all YAML scenario files in a directory.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		// Only process .yaml and .yml files
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		// Apply filter if specified
		if filter != "" {
			base := filepath.Base(path)
			name := strings.TrimSuffix(base, ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// MapFieldToErrorCode maps a compiler error field to a validation error code.
// Field paths follow the scenario document shape ("steps[2].kind",
// "assertions[0].events[1].kind").
func MapFieldToErrorCode(field string) string {
	switch field {
	case "name":
		return compiler.ErrScenarioNameEmpty
	case "owner":
		return compiler.ErrScenarioOwnerInvalid
	case "steps":
		return compiler.ErrScenarioNoSteps
	case "cue":
		return ErrCodeLoadFailed
	}

	switch {
	case strings.HasPrefix(field, "engine"):
		return compiler.ErrInvalidEngineOptions
	case strings.HasSuffix(field, ".outcome"):
		return compiler.ErrInvalidOutcome
	case strings.HasSuffix(field, ".calls"), strings.HasSuffix(field, ".call"):
		return compiler.ErrUnknownStepRef
	case strings.HasSuffix(field, ".args"):
		return compiler.ErrInvalidArgValue
	case strings.HasSuffix(field, ".type"):
		return compiler.ErrInvalidAssertionType
	case strings.HasSuffix(field, ".count"),
		strings.HasSuffix(field, ".executed"),
		strings.HasSuffix(field, ".ignored"):
		return compiler.ErrNegativeAssertionCount
	case strings.HasSuffix(field, ".kind"):
		// Event-kind expectations live under assertions; step kinds under steps.
		if strings.HasPrefix(field, "assertions") {
			return compiler.ErrInvalidEventKind
		}
		return compiler.ErrInvalidStepKind
	case strings.HasSuffix(field, ".name"):
		return compiler.ErrInvalidStepName
	case strings.HasPrefix(field, "assertions"):
		return compiler.ErrMissingAssertionField
	default:
		return ErrCodeGeneric
	}
}
