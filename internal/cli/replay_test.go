package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// variantScenarioYAML journals a run under the same scenario name as
// passingScenarioYAML but with a shorter script, so a replay of the full
// scenario diverges where the recorded trace terminates early.
const variantScenarioYAML = `name: checkout-basic
owner: ShoppingSteps
run_token: run-variant-1
steps:
  - name: add_item
    kind: step
script:
  - call: add_item
    args: ["widget", 2]
`

func TestReplayMissingDatabaseFlag(t *testing.T) {
	tmpDir := t.TempDir()
	scenarioPath := writeScenario(t, tmpDir, "checkout.yaml", passingScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{scenarioPath}) // Missing --db flag

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

func TestReplayNonExistentScenarioFile(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, "/nonexistent/checkout.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load scenario")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayNoRecordedRuns(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	scenarioPath := writeScenario(t, tmpDir, "checkout.yaml", passingScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, scenarioPath})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No recorded runs found for scenario: checkout-basic")
}

func TestReplayDeterministic(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	seedRun(t, dbPath, passingScenarioYAML)

	scenarioPath := writeScenario(t, tmpDir, "checkout.yaml", passingScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, scenarioPath})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Replay Summary: checkout-basic, 1 recorded run(s)")
	assert.Contains(t, output, "✓ Run: run-checkout-1")
	assert.Contains(t, output, "Events: 5")
	assert.Contains(t, output, "✓ All recorded runs replay deterministically")
}

func TestReplayRunNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	seedRun(t, dbPath, passingScenarioYAML)

	scenarioPath := writeScenario(t, tmpDir, "checkout.yaml", passingScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", "ghost", scenarioPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: ghost")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayScenarioMismatch(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	seedRun(t, dbPath, failingScenarioYAML) // records run-declined-1 for checkout-declined

	scenarioPath := writeScenario(t, tmpDir, "checkout.yaml", passingScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", "run-declined-1", scenarioPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(),
		`run run-declined-1 was recorded for scenario "checkout-declined", not "checkout-basic"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayDivergence(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	// The recorded run executed one step; the replayed scenario executes two.
	seedRun(t, dbPath, variantScenarioYAML)

	scenarioPath := writeScenario(t, tmpDir, "checkout.yaml", passingScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, scenarioPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ Run: run-variant-1")
	// Both traces open with add_item; the recorded one then finishes while
	// the fresh one starts checkout.
	assert.Contains(t, output, "Divergence at event 2: kind mismatch: test_finished vs step_started")
	assert.Contains(t, output, "✗ Determinism verification failed")
}

func TestReplayMixedRuns(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	seedRun(t, dbPath, passingScenarioYAML)
	seedRun(t, dbPath, variantScenarioYAML)

	scenarioPath := writeScenario(t, tmpDir, "checkout.yaml", passingScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, scenarioPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "Replay Summary: checkout-basic, 2 recorded run(s)")
	assert.Contains(t, output, "✓ Run: run-checkout-1")
	assert.Contains(t, output, "✗ Run: run-variant-1")
	assert.Contains(t, output, "✗ Determinism verification failed")
}

func TestReplayInterruptedRunDiverges(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	seedInterruptedRun(t, dbPath, "run-hung-1", "checkout-basic")

	scenarioPath := writeScenario(t, tmpDir, "checkout.yaml", passingScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Verbose: true}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, scenarioPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ Run: run-hung-1")
	assert.Contains(t, output, "Terminated: false")
	assert.Contains(t, output, "Divergence at event")
	assert.Contains(t, output, "step mismatch")
}

func TestReplayJSONOutput(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	seedRun(t, dbPath, passingScenarioYAML)

	scenarioPath := writeScenario(t, tmpDir, "checkout.yaml", passingScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, scenarioPath})

	err := cmd.Execute()
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "checkout-basic", data["scenario"])
	assert.Equal(t, float64(1), data["total_runs"])
	assert.Equal(t, true, data["all_deterministic"])

	runs, ok := data["runs"].([]interface{})
	require.True(t, ok)
	require.Len(t, runs, 1)
	run := runs[0].(map[string]interface{})
	assert.Equal(t, "run-checkout-1", run["run_token"])
	assert.Equal(t, float64(5), run["events"])
	assert.Equal(t, true, run["deterministic"])
}

func TestReplayJSONDivergence(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	seedRun(t, dbPath, variantScenarioYAML)

	scenarioPath := writeScenario(t, tmpDir, "checkout.yaml", passingScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, scenarioPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var response CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "error", response.Status)
	require.NotNil(t, response.Error)
	assert.Equal(t, "E_DETERMINISM", response.Error.Code)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, data["all_deterministic"])
}
