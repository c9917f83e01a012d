package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/stepwise/internal/compiler"
	"github.com/roach88/stepwise/internal/record"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	RunToken     string         `json:"run_token,omitempty"`
	Trace        []record.Event `json:"trace"`
}

// Canonical serializes the snapshot as RFC 8785 canonical JSON. The same
// bytes back both goldie fixtures and the CLI's golden comparison, so a
// fixture written by one is readable by the other.
func (s *TraceSnapshot) Canonical() ([]byte, error) {
	return record.MarshalCanonical(s.toCanonicalMap())
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. Event IDs are excluded: they hash the run token and
// sequence, so they are fully derived from what the snapshot already holds.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"kind": string(event.Kind),
			"seq":  event.Seq,
		}
		if event.Owner != "" {
			eventMap["owner"] = event.Owner
		}
		if event.Step != "" {
			eventMap["step"] = event.Step
		}
		if event.Display != "" {
			eventMap["display"] = event.Display
		}
		if event.Error != "" {
			eventMap["error"] = event.Error
		}
		if event.Tally != nil {
			tallyMap := map[string]any{
				"executed": event.Tally.Executed,
				"ignored":  event.Tally.Ignored,
			}
			if len(event.Tally.Failures) > 0 {
				failures := make([]any, len(event.Tally.Failures))
				for j, f := range event.Tally.Failures {
					failures[j] = f
				}
				tallyMap["failures"] = failures
			}
			eventMap["tally"] = tallyMap
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if s.RunToken != "" {
		result["run_token"] = s.RunToken
	}
	return result
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{name}.golden, where name is the scenario's
// golden field (falling back to the scenario name).
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *compiler.Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	name := scenario.Golden
	if name == "" {
		name = scenario.Name
	}
	return AssertGolden(t, name, result)
}

// AssertGolden compares the given result's trace against a golden file.
// Useful when a scenario has already run and the result should be compared
// without re-running.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: name,
		RunToken:     result.RunToken,
		Trace:        result.Trace,
	}

	traceJSON, err := snapshot.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)

	return nil
}
