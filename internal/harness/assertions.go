package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/stepwise/internal/compiler"
	"github.com/roach88/stepwise/internal/record"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	Trace    []record.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Full trace for context
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, formatEvent(event))
	}

	return buf.String()
}

// matchEvent reports whether the event matches the expectation exactly.
// Sequence numbers and event IDs are never part of expectations.
func matchEvent(ev record.Event, expect compiler.TraceExpect) bool {
	return string(ev.Kind) == expect.Kind &&
		ev.Owner == expect.Owner &&
		ev.Step == expect.Step &&
		ev.Error == expect.Error
}

// formatExpect renders an expected event for failure messages.
func formatExpect(e compiler.TraceExpect) string {
	s := e.Kind
	if e.Step != "" {
		s += " " + e.Owner + "." + e.Step
	} else if e.Owner != "" {
		s += " " + e.Owner
	}
	if e.Error != "" {
		s += ": " + e.Error
	}
	return s
}

// formatEvent renders a trace event for failure messages.
func formatEvent(ev record.Event) string {
	s := string(ev.Kind)
	if ev.Step != "" {
		s += " " + ev.Owner + "." + ev.Step
	} else if ev.Owner != "" {
		s += " " + ev.Owner
	}
	if ev.Error != "" {
		s += ": " + ev.Error
	}
	return s
}

// formatExpectList renders an expected event list for failure messages.
func formatExpectList(events []compiler.TraceExpect) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = formatExpect(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// assertTraceEquals checks that the trace matches the expected events
// exactly, in both length and order.
func assertTraceEquals(trace []record.Event, assertion compiler.Assertion) error {
	if len(trace) != len(assertion.Events) {
		return &AssertionError{
			Type:     compiler.AssertTraceEquals,
			Expected: fmt.Sprintf("%d events", len(assertion.Events)),
			Actual:   fmt.Sprintf("%d events", len(trace)),
			Trace:    trace,
		}
	}

	for i, expect := range assertion.Events {
		if !matchEvent(trace[i], expect) {
			return &AssertionError{
				Type:     compiler.AssertTraceEquals,
				Expected: fmt.Sprintf("event %d: %s", i+1, formatExpect(expect)),
				Actual:   fmt.Sprintf("event %d: %s", i+1, formatEvent(trace[i])),
				Trace:    trace,
			}
		}
	}

	return nil
}

// assertTraceContains checks that each expected event appears somewhere in
// the trace. Extra events are allowed.
func assertTraceContains(trace []record.Event, assertion compiler.Assertion) error {
	for _, expect := range assertion.Events {
		found := false
		for _, ev := range trace {
			if matchEvent(ev, expect) {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     compiler.AssertTraceContains,
				Expected: formatExpect(expect),
				Actual:   "not found in trace",
				Trace:    trace,
			}
		}
	}

	return nil
}

// assertTraceOrder checks that events appear in the specified order.
// Events don't need to be consecutive (intervening events are allowed).
func assertTraceOrder(trace []record.Event, assertion compiler.Assertion) error {
	// Step 1: Find first position of each expected event
	positions := make(map[string]int)

	for i, ev := range trace {
		for _, expect := range assertion.Events {
			key := formatExpect(expect)
			if matchEvent(ev, expect) && positions[key] == 0 {
				positions[key] = i + 1 // 1-indexed for readability
			}
		}
	}

	// Step 2: Verify all events found
	for _, expect := range assertion.Events {
		if positions[formatExpect(expect)] == 0 {
			return &AssertionError{
				Type:     compiler.AssertTraceOrder,
				Expected: fmt.Sprintf("all events present: %s", formatExpectList(assertion.Events)),
				Actual:   fmt.Sprintf("missing event: %s", formatExpect(expect)),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Events); i++ {
		prev := formatExpect(assertion.Events[i-1])
		curr := formatExpect(assertion.Events[i])

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     compiler.AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %s", formatExpectList(assertion.Events)),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the event kind appears exactly the specified
// number of times.
func assertTraceCount(trace []record.Event, assertion compiler.Assertion) error {
	count := record.Count(trace, record.Pattern{Kind: record.EventKind(assertion.Kind)})

	if count != assertion.Count {
		return &AssertionError{
			Type:     compiler.AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Kind),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertTally checks the run's execution counters. An omitted failures list
// asserts a clean run.
func assertTally(result *Result, assertion compiler.Assertion) error {
	tally := result.Tally
	if tally == nil {
		return &AssertionError{
			Type:     compiler.AssertTally,
			Expected: "tally summary present",
			Actual:   "no tally recorded",
			Trace:    result.Trace,
		}
	}

	if tally.Executed != assertion.Executed {
		return &AssertionError{
			Type:     compiler.AssertTally,
			Expected: fmt.Sprintf("%d executed", assertion.Executed),
			Actual:   fmt.Sprintf("%d executed", tally.Executed),
			Trace:    result.Trace,
		}
	}

	if tally.Ignored != assertion.Ignored {
		return &AssertionError{
			Type:     compiler.AssertTally,
			Expected: fmt.Sprintf("%d ignored", assertion.Ignored),
			Actual:   fmt.Sprintf("%d ignored", tally.Ignored),
			Trace:    result.Trace,
		}
	}

	return matchFailures(compiler.AssertTally, tally.Failures, assertion.Failures, result.Trace)
}

// assertFailures checks the recorded failure list on its own.
func assertFailures(result *Result, assertion compiler.Assertion) error {
	var recorded []string
	if result.Tally != nil {
		recorded = result.Tally.Failures
	}
	return matchFailures(compiler.AssertFailures, recorded, assertion.Failures, result.Trace)
}

// matchFailures checks recorded failures pairwise against expected
// substrings: same count, each expected string contained in the recorded
// failure at the same position.
func matchFailures(atype string, recorded, expected []string, trace []record.Event) error {
	if len(recorded) != len(expected) {
		return &AssertionError{
			Type:     atype,
			Expected: fmt.Sprintf("%d failures", len(expected)),
			Actual:   fmt.Sprintf("%d failures", len(recorded)),
			Trace:    trace,
		}
	}

	for i, want := range expected {
		if !strings.Contains(recorded[i], want) {
			return &AssertionError{
				Type:     atype,
				Expected: fmt.Sprintf("failure %d containing %q", i+1, want),
				Actual:   recorded[i],
				Trace:    trace,
			}
		}
	}

	return nil
}

// assertFinishError checks the error returned by the engine's finish
// transition. An empty expectation means finish must return nil.
func assertFinishError(result *Result, assertion compiler.Assertion) error {
	if assertion.Error == "" {
		if result.FinishErr != "" {
			return &AssertionError{
				Type:     compiler.AssertFinishError,
				Expected: "finish to return no error",
				Actual:   result.FinishErr,
				Trace:    result.Trace,
			}
		}
		return nil
	}

	if !strings.Contains(result.FinishErr, assertion.Error) {
		actual := result.FinishErr
		if actual == "" {
			actual = "no error returned"
		}
		return &AssertionError{
			Type:     compiler.AssertFinishError,
			Expected: fmt.Sprintf("finish error containing %q", assertion.Error),
			Actual:   actual,
			Trace:    result.Trace,
		}
	}

	return nil
}

// assertScriptError checks whether the script aborted with a propagated
// error. An empty expectation means the script must run to completion.
func assertScriptError(result *Result, assertion compiler.Assertion) error {
	if assertion.Error == "" {
		if result.Aborted != "" {
			return &AssertionError{
				Type:     compiler.AssertScriptError,
				Expected: "script to run to completion",
				Actual:   fmt.Sprintf("aborted: %s", result.Aborted),
				Trace:    result.Trace,
			}
		}
		return nil
	}

	if !strings.Contains(result.Aborted, assertion.Error) {
		actual := result.Aborted
		if actual == "" {
			actual = "script ran to completion"
		}
		return &AssertionError{
			Type:     compiler.AssertScriptError,
			Expected: fmt.Sprintf("script abort containing %q", assertion.Error),
			Actual:   actual,
			Trace:    result.Trace,
		}
	}

	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []compiler.Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case compiler.AssertTraceEquals:
			err = assertTraceEquals(result.Trace, assertion)
		case compiler.AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case compiler.AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case compiler.AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case compiler.AssertTally:
			err = assertTally(result, assertion)
		case compiler.AssertFailures:
			err = assertFailures(result, assertion)
		case compiler.AssertFinishError:
			err = assertFinishError(result, assertion)
		case compiler.AssertScriptError:
			err = assertScriptError(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
