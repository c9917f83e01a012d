// Package harness provides scenario-driven conformance testing for the
// interception engine.
//
// The harness loads step scenarios, runs them against a live engine with a
// journaled in-memory store, and validates the resulting notification trace
// as an executable contract test.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario exercises"
//	owner: ShoppingSteps
//	engine:
//	  max_calls: 100
//	  fail_on_finish: true
//	steps:
//	  - name: add_item
//	    kind: step
//	  - name: pay
//	    kind: step
//	    outcome: assertion
//	    message: "card declined"
//	  - name: checkout
//	    kind: group
//	    calls: [add_item, pay]
//	script:
//	  - call: checkout
//	  - call: add_item
//	    args: ["sku-1", 2]
//	assertions:
//	  - type: trace_contains
//	    events:
//	      - kind: step_failed
//	        owner: ShoppingSteps
//	        step: pay
//	        error: "assertion failed: card declined"
//	  - type: tally
//	    executed: 2
//	    ignored: 1
//	    failures: ["card declined"]
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - trace_equals: Verifies the trace matches the expected events exactly
//   - trace_contains: Verifies each expected event appears in the trace
//   - trace_order: Verifies events appear in the specified order
//   - trace_count: Verifies an event kind appears exactly N times
//   - tally: Verifies the run's executed/ignored counters and failure list
//   - failures: Verifies the recorded failure list on its own
//   - finish_error: Verifies the error returned by the finish transition
//   - script_error: Verifies whether the script aborted with a propagated error
//
// # Deterministic Testing
//
// All scenarios execute with fixed run tokens and the engine's dense logical
// clock to ensure reproducible traces and golden snapshot comparison.
//
// The harness uses:
//   - Fixed run tokens (from scenario.run_token, defaulting to a test token)
//   - The engine's logical sequence clock (one tick per dispatched call)
//   - In-memory SQLite journal (isolated per scenario)
//
// This ensures identical traces across runs for golden file comparison.
//
// # Usage
//
// Load a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/checkout.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Execute it:
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
