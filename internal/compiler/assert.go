package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
)

// Assertion type constants.
const (
	AssertTraceEquals   = "trace_equals"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertTally         = "tally"
	AssertFailures      = "failures"
	AssertFinishError   = "finish_error"
	AssertScriptError   = "script_error"
)

// ValidAssertionTypes enumerates the accepted assertion types.
var ValidAssertionTypes = map[string]bool{
	AssertTraceEquals:   true,
	AssertTraceContains: true,
	AssertTraceOrder:    true,
	AssertTraceCount:    true,
	AssertTally:         true,
	AssertFailures:      true,
	AssertFinishError:   true,
	AssertScriptError:   true,
}

// Assertion validates the journaled trace, the result tally, or the finish
// outcome of a scenario run.
type Assertion struct {
	// Type specifies the assertion type:
	//   - "trace_equals": trace matches the events list exactly, in order
	//   - "trace_contains": every listed event appears somewhere in the trace
	//   - "trace_order": listed events appear in relative order
	//   - "trace_count": events of Kind appear exactly Count times
	//   - "tally": executed/ignored counts and failure strings match
	//   - "failures": recorded failure strings match, in order
	//   - "finish_error": Finish returned an error containing Error
	//   - "script_error": the script aborted with an error containing Error
	Type string `yaml:"type" json:"type"`

	// Events are the expected trace events
	// (used by trace_equals, trace_contains, trace_order).
	Events []TraceExpect `yaml:"events,omitempty" json:"events,omitempty"`

	// Kind is the event kind to count (used by trace_count).
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Executed is the expected executed count (used by tally).
	Executed int `yaml:"executed,omitempty" json:"executed,omitempty"`

	// Ignored is the expected ignored count (used by tally).
	Ignored int `yaml:"ignored,omitempty" json:"ignored,omitempty"`

	// Failures are the expected failure strings in occurrence order
	// (used by tally and failures). Each entry is matched as a substring
	// of the recorded "Owner.name: cause" string.
	Failures []string `yaml:"failures,omitempty" json:"failures,omitempty"`

	// Error is the expected error substring (used by finish_error and
	// script_error). Empty means no error: Finish must return nil, or the
	// script must run to completion.
	Error string `yaml:"error,omitempty" json:"error,omitempty"`
}

// TraceExpect describes one expected trace event. Owner, Step, and Error
// compare exactly against the journaled event; sequence numbers and IDs are
// never part of an expectation.
type TraceExpect struct {
	Kind  string `yaml:"kind" json:"kind"`
	Owner string `yaml:"owner,omitempty" json:"owner,omitempty"`
	Step  string `yaml:"step,omitempty" json:"step,omitempty"`
	Error string `yaml:"error,omitempty" json:"error,omitempty"`
}

// canonicalMap converts an assertion for canonical JSON serialization.
func (a Assertion) canonicalMap() map[string]any {
	m := map[string]any{"type": a.Type}
	if len(a.Events) > 0 {
		events := make([]any, len(a.Events))
		for i, ev := range a.Events {
			e := map[string]any{"kind": ev.Kind}
			if ev.Owner != "" {
				e["owner"] = ev.Owner
			}
			if ev.Step != "" {
				e["step"] = ev.Step
			}
			if ev.Error != "" {
				e["error"] = ev.Error
			}
			events[i] = e
		}
		m["events"] = events
	}
	if a.Kind != "" {
		m["kind"] = a.Kind
	}
	if a.Count != 0 {
		m["count"] = int64(a.Count)
	}
	if a.Executed != 0 {
		m["executed"] = int64(a.Executed)
	}
	if a.Ignored != 0 {
		m["ignored"] = int64(a.Ignored)
	}
	if len(a.Failures) > 0 {
		failures := make([]any, len(a.Failures))
		for i, f := range a.Failures {
			failures[i] = f
		}
		m["failures"] = failures
	}
	if a.Error != "" {
		m["error"] = a.Error
	}
	return m
}

// parseAssertions extracts the assertions list from a scenario document.
func parseAssertions(v cue.Value) ([]Assertion, error) {
	var assertions []Assertion

	assertVal := v.LookupPath(cue.ParsePath("assertions"))
	if !assertVal.Exists() {
		return assertions, nil // assertions are optional
	}

	iter, err := assertVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		a, err := parseAssertion(iter.Value(), i)
		if err != nil {
			return nil, err
		}
		assertions = append(assertions, a)
	}

	return assertions, nil
}

// parseAssertion extracts one assertion.
func parseAssertion(v cue.Value, index int) (Assertion, error) {
	var a Assertion

	// Parse type (required string field)
	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return a, &CompileError{
			Field:   fmt.Sprintf("assertions[%d].type", index),
			Message: "assertion requires 'type' field",
			Pos:     v.Pos(),
		}
	}
	typ, err := typeVal.String()
	if err != nil {
		return a, formatCUEError(err)
	}
	if !ValidAssertionTypes[typ] {
		return a, &CompileError{
			Field:   fmt.Sprintf("assertions[%d].type", index),
			Message: fmt.Sprintf("unknown assertion type %q", typ),
			Pos:     typeVal.Pos(),
		}
	}
	a.Type = typ

	// Parse expected events (trace assertions)
	eventsVal := v.LookupPath(cue.ParsePath("events"))
	if eventsVal.Exists() {
		evIter, err := eventsVal.List()
		if err != nil {
			return a, formatCUEError(err)
		}
		for j := 0; evIter.Next(); j++ {
			expect, err := parseTraceExpect(evIter.Value(), index, j)
			if err != nil {
				return a, err
			}
			a.Events = append(a.Events, expect)
		}
	}

	// Parse kind (trace_count)
	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if kindVal.Exists() {
		kind, err := kindVal.String()
		if err != nil {
			return a, formatCUEError(err)
		}
		a.Kind = kind
	}

	// Parse count (trace_count)
	countVal := v.LookupPath(cue.ParsePath("count"))
	if countVal.Exists() {
		count, err := countVal.Int64()
		if err != nil {
			return a, &CompileError{
				Field:   fmt.Sprintf("assertions[%d].count", index),
				Message: "count must be an integer",
				Pos:     countVal.Pos(),
			}
		}
		a.Count = int(count)
	}

	// Parse tally expectations
	executedVal := v.LookupPath(cue.ParsePath("executed"))
	if executedVal.Exists() {
		executed, err := executedVal.Int64()
		if err != nil {
			return a, &CompileError{
				Field:   fmt.Sprintf("assertions[%d].executed", index),
				Message: "executed must be an integer",
				Pos:     executedVal.Pos(),
			}
		}
		a.Executed = int(executed)
	}
	ignoredVal := v.LookupPath(cue.ParsePath("ignored"))
	if ignoredVal.Exists() {
		ignored, err := ignoredVal.Int64()
		if err != nil {
			return a, &CompileError{
				Field:   fmt.Sprintf("assertions[%d].ignored", index),
				Message: "ignored must be an integer",
				Pos:     ignoredVal.Pos(),
			}
		}
		a.Ignored = int(ignored)
	}

	// Parse expected failure strings
	failuresVal := v.LookupPath(cue.ParsePath("failures"))
	if failuresVal.Exists() {
		fIter, err := failuresVal.List()
		if err != nil {
			return a, formatCUEError(err)
		}
		for fIter.Next() {
			f, err := fIter.Value().String()
			if err != nil {
				return a, &CompileError{
					Field:   fmt.Sprintf("assertions[%d].failures", index),
					Message: "failures entries must be strings",
					Pos:     fIter.Value().Pos(),
				}
			}
			a.Failures = append(a.Failures, f)
		}
	}

	// Parse expected finish error substring
	errorVal := v.LookupPath(cue.ParsePath("error"))
	if errorVal.Exists() {
		errStr, err := errorVal.String()
		if err != nil {
			return a, formatCUEError(err)
		}
		a.Error = errStr
	}

	return a, nil
}

// parseTraceExpect extracts one expected trace event.
func parseTraceExpect(v cue.Value, assertIndex, eventIndex int) (TraceExpect, error) {
	var expect TraceExpect

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return expect, &CompileError{
			Field:   fmt.Sprintf("assertions[%d].events[%d].kind", assertIndex, eventIndex),
			Message: "expected event requires 'kind' field",
			Pos:     v.Pos(),
		}
	}
	kind, err := kindVal.String()
	if err != nil {
		return expect, formatCUEError(err)
	}
	expect.Kind = kind

	ownerVal := v.LookupPath(cue.ParsePath("owner"))
	if ownerVal.Exists() {
		owner, err := ownerVal.String()
		if err != nil {
			return expect, formatCUEError(err)
		}
		expect.Owner = owner
	}

	stepVal := v.LookupPath(cue.ParsePath("step"))
	if stepVal.Exists() {
		step, err := stepVal.String()
		if err != nil {
			return expect, formatCUEError(err)
		}
		expect.Step = step
	}

	errorVal := v.LookupPath(cue.ParsePath("error"))
	if errorVal.Exists() {
		errStr, err := errorVal.String()
		if err != nil {
			return expect, formatCUEError(err)
		}
		expect.Error = errStr
	}

	return expect, nil
}
