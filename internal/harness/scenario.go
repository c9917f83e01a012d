package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stepwise/internal/compiler"
)

// LoadScenario loads a scenario from a YAML file.
// The document is decoded strictly (unknown fields are rejected), then run
// through schema validation and the group call-graph cycle check.
func LoadScenario(path string) (*compiler.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario compiler.Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks scenario structure before execution.
func validateScenario(s *compiler.Scenario) error {
	if errs := compiler.Validate(s); len(errs) > 0 {
		if len(errs) == 1 {
			return errs[0]
		}
		return fmt.Errorf("%w (and %d more)", errs[0], len(errs)-1)
	}

	// A cyclic group graph would recurse forever at execution time, so
	// cycle warnings are load errors here.
	if warnings := compiler.AnalyzeCycles(s); len(warnings) > 0 {
		return errors.New(warnings[0].Message)
	}

	return nil
}
