package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/harness"
	"github.com/roach88/stepwise/internal/step"
	"github.com/roach88/stepwise/internal/store"
	"github.com/roach88/stepwise/internal/testutil"
)

// Scenario fixtures shared across command tests. Each pins a run_token so
// journaled traces are reproducible and seeded runs never collide.

// Two clean steps, tally claimed. Passes.
const passingScenarioYAML = `name: checkout-basic
owner: ShoppingSteps
run_token: run-checkout-1
steps:
  - name: add_item
    kind: step
  - name: checkout
    kind: step
    returns: "order-42"
script:
  - call: add_item
    args: ["widget", 2]
  - call: checkout
assertions:
  - type: tally
    executed: 2
`

// A declared step failure and no assertions claiming it. The failure is
// journaled, the following step is skipped, and the run fails.
const failingScenarioYAML = `name: checkout-declined
owner: ShoppingSteps
run_token: run-declined-1
steps:
  - name: add_item
    kind: step
  - name: pay
    kind: step
    outcome: assertion
    message: "card declined"
  - name: ship
    kind: step
script:
  - call: add_item
  - call: pay
  - call: ship
`

// The same declared failure, claimed by a failures assertion. The run is
// journaled as failed but the scenario passes.
const claimedFailureScenarioYAML = `name: checkout-claimed
owner: ShoppingSteps
run_token: run-claimed-1
steps:
  - name: add_item
    kind: step
  - name: pay
    kind: step
    outcome: assertion
    message: "card declined"
script:
  - call: add_item
  - call: pay
assertions:
  - type: failures
    failures: ["card declined"]
`

// writeScenario writes a scenario fixture into dir and returns its path.
func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// seedRun journals one run of the given scenario into the database at
// dbPath, creating the file on first use. The scenario's pinned run_token
// becomes the run's token.
func seedRun(t *testing.T, dbPath, scenarioYAML string) *harness.Result {
	t.Helper()
	path := writeScenario(t, t.TempDir(), "seed.yaml", scenarioYAML)
	scenario, err := harness.LoadScenario(path)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer func() { require.NoError(t, st.Close()) }()

	tokens := testutil.NewFixedRunTokenGenerator(scenario.RunToken)
	result, err := harness.RunJournaled(scenario, st, tokens, engine.DiscardLogger())
	require.NoError(t, err)
	return result
}

// seedInterruptedRun journals a run header and one step event without a
// terminal event, leaving the run row at 'running'.
func seedInterruptedRun(t *testing.T, dbPath, token, scenario string) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer func() { require.NoError(t, st.Close()) }()

	journal := store.NewJournalListener(context.Background(), st)
	require.NoError(t, journal.BeginRun(token, scenario))
	journal.StepStarted(step.Description{Owner: "ShoppingSteps", Name: "add_item"})
	require.NoError(t, journal.Err())
}
