package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/stepwise/internal/record"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedDocType = "E100" // unsupported document type for validation

	// Scenario structure errors (E101-E109)
	ErrScenarioNameEmpty    = "E101" // name is required
	ErrScenarioOwnerInvalid = "E102" // owner missing or malformed
	ErrScenarioNoSteps      = "E103" // at least one step definition required
	ErrInvalidStepName      = "E104" // step name malformed
	ErrDuplicateName        = "E105" // duplicate step definition name
	ErrInvalidStepKind      = "E106" // kind not in step/group/plain
	ErrInvalidOutcome       = "E107" // outcome enum or message/returns mismatch
	ErrUnknownStepRef       = "E108" // script or group references undefined step
	ErrInvalidArgValue      = "E109" // script argument not a supported scalar

	// Assertion errors (E110-E119)
	ErrInvalidAssertionType   = "E110" // type not in the assertion enum
	ErrMissingAssertionField  = "E111" // required assertion field absent
	ErrInvalidEventKind       = "E112" // expected event kind unknown
	ErrNegativeAssertionCount = "E113" // count/executed/ignored below zero
	ErrGroupCycle             = "E114" // group call graph contains a cycle

	// Engine option errors (E120)
	ErrInvalidEngineOptions = "E120" // max_calls below zero
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled document against schema rules.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch doc := v.(type) {
	case *Scenario:
		return validateScenario(doc)
	case Scenario:
		return validateScenario(&doc)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported document type: %T", v),
			Code:    ErrUnsupportedDocType,
		}}
	}
}

// ownerPattern matches library owner names like "ShoppingSteps".
// Owners start with an uppercase letter.
var ownerPattern = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)

// stepNamePattern matches step names like "add_item".
// Step names start with a lowercase letter.
var stepNamePattern = regexp.MustCompile(`^[a-z][a-zA-Z0-9_]*$`)

// validateScenario validates a compiled scenario document.
func validateScenario(s *Scenario) []ValidationError {
	var errs []ValidationError

	// E101: name is required
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "name is required and must be non-empty",
			Code:    ErrScenarioNameEmpty,
		})
	}

	// E102: owner is required and must be a valid owner name
	if !ownerPattern.MatchString(s.Owner) {
		errs = append(errs, ValidationError{
			Field:   "owner",
			Message: fmt.Sprintf("invalid owner %q, must start with an uppercase letter", s.Owner),
			Code:    ErrScenarioOwnerInvalid,
		})
	}

	// E120: engine options must be sane
	if s.Engine != nil && s.Engine.MaxCalls < 0 {
		errs = append(errs, ValidationError{
			Field:   "engine.max_calls",
			Message: fmt.Sprintf("max_calls must be non-negative, got %d", s.Engine.MaxCalls),
			Code:    ErrInvalidEngineOptions,
		})
	}

	// E103: at least one step definition required
	if len(s.Steps) == 0 {
		errs = append(errs, ValidationError{
			Field:   "steps",
			Message: "at least one step definition is required",
			Code:    ErrScenarioNoSteps,
		})
	}

	// Track defined steps for reference checks
	defined := make(map[string]bool)

	for i, def := range s.Steps {
		errs = append(errs, validateStepDef(i, def, defined)...)
		defined[def.Name] = true
	}

	// Group calls must reference defined steps
	for i, def := range s.Steps {
		for _, call := range def.Calls {
			if !defined[call] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("steps[%d].calls", i),
					Message: fmt.Sprintf("group %q calls undefined step %q", def.Name, call),
					Code:    ErrUnknownStepRef,
				})
			}
		}
	}

	// Script calls must reference defined steps, with scalar args
	for i, call := range s.Script {
		if !defined[call.Call] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("script[%d].call", i),
				Message: fmt.Sprintf("script calls undefined step %q", call.Call),
				Code:    ErrUnknownStepRef,
			})
		}
		for j, arg := range call.Args {
			if err := validateArgValue(arg); err != "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("script[%d].args[%d]", i, j),
					Message: err,
					Code:    ErrInvalidArgValue,
				})
			}
		}
	}

	// Validate assertions
	for i, a := range s.Assertions {
		errs = append(errs, validateAssertion(i, a)...)
	}

	return errs
}

// validateStepDef validates a single step definition.
func validateStepDef(index int, def StepDef, defined map[string]bool) []ValidationError {
	var errs []ValidationError

	// E104: step name must be well-formed
	if !stepNamePattern.MatchString(def.Name) {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("steps[%d].name", index),
			Message: fmt.Sprintf("invalid step name %q, must start with a lowercase letter", def.Name),
			Code:    ErrInvalidStepName,
		})
	}

	// E105: duplicate step name
	if defined[def.Name] {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("steps[%d].name", index),
			Message: fmt.Sprintf("duplicate step name: %q", def.Name),
			Code:    ErrDuplicateName,
		})
	}

	// E106: kind must be valid
	if !ValidStepKinds[def.Kind] {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("steps[%d].kind", index),
			Message: fmt.Sprintf("invalid kind %q, must be \"step\", \"group\", or \"plain\"", def.Kind),
			Code:    ErrInvalidStepKind,
		})
	}

	// E107: outcome must be valid and consistent with message/returns
	outcome := def.Outcome
	if outcome != "" && !ValidOutcomes[outcome] {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("steps[%d].outcome", index),
			Message: fmt.Sprintf("invalid outcome %q, must be \"ok\", \"assertion\", \"driver\", \"error\", or \"rethrow\"", outcome),
			Code:    ErrInvalidOutcome,
		})
	}
	switch outcome {
	case OutcomeAssertion, OutcomeDriver, OutcomeError:
		if strings.TrimSpace(def.Message) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("steps[%d].message", index),
				Message: fmt.Sprintf("step %q with outcome %q requires a message", def.Name, outcome),
				Code:    ErrInvalidOutcome,
			})
		}
		if def.Returns != "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("steps[%d].returns", index),
				Message: fmt.Sprintf("step %q with outcome %q cannot declare a return value", def.Name, outcome),
				Code:    ErrInvalidOutcome,
			})
		}
	case "", OutcomeOK, OutcomeRethrow:
		if def.Message != "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("steps[%d].message", index),
				Message: fmt.Sprintf("step %q declares a message but its outcome cannot fail with one", def.Name),
				Code:    ErrInvalidOutcome,
			})
		}
	}

	// E108 is checked by the caller once all names are known; here only the
	// structural rule: non-groups cannot declare calls.
	if def.Kind != KindGroup && def.Kind != "" && len(def.Calls) > 0 {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("steps[%d].calls", index),
			Message: fmt.Sprintf("step %q declares calls but only groups may call other steps", def.Name),
			Code:    ErrInvalidStepKind,
		})
	}

	return errs
}

// validateArgValue reports why a script argument is unsupported, or ""
// when it is a supported scalar.
func validateArgValue(arg any) string {
	switch arg.(type) {
	case string, int, int64, bool:
		return ""
	case float32, float64:
		return "float arguments are forbidden - use int or string"
	case nil:
		return "null arguments are forbidden"
	default:
		return fmt.Sprintf("unsupported argument type %T, must be a string, int, or bool", arg)
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) []ValidationError {
	var errs []ValidationError

	// E110: type must be known
	if !ValidAssertionTypes[a.Type] {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("assertions[%d].type", index),
			Message: fmt.Sprintf("unknown assertion type %q", a.Type),
			Code:    ErrInvalidAssertionType,
		})
		return errs
	}

	switch a.Type {
	case AssertTraceEquals, AssertTraceContains, AssertTraceOrder:
		// E111: events list required
		if len(a.Events) == 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("assertions[%d].events", index),
				Message: fmt.Sprintf("events list is required for %s", a.Type),
				Code:    ErrMissingAssertionField,
			})
		}
		// E112: every expected kind must be a trace event kind
		for j, ev := range a.Events {
			if !record.ValidKinds[record.EventKind(ev.Kind)] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("assertions[%d].events[%d].kind", index, j),
					Message: fmt.Sprintf("unknown event kind %q", ev.Kind),
					Code:    ErrInvalidEventKind,
				})
			}
		}
	case AssertTraceCount:
		if a.Kind == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("assertions[%d].kind", index),
				Message: "kind is required for trace_count",
				Code:    ErrMissingAssertionField,
			})
		} else if !record.ValidKinds[record.EventKind(a.Kind)] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("assertions[%d].kind", index),
				Message: fmt.Sprintf("unknown event kind %q", a.Kind),
				Code:    ErrInvalidEventKind,
			})
		}
		if a.Count < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("assertions[%d].count", index),
				Message: fmt.Sprintf("count must be non-negative, got %d", a.Count),
				Code:    ErrNegativeAssertionCount,
			})
		}
	case AssertTally:
		if a.Executed < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("assertions[%d].executed", index),
				Message: fmt.Sprintf("executed must be non-negative, got %d", a.Executed),
				Code:    ErrNegativeAssertionCount,
			})
		}
		if a.Ignored < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("assertions[%d].ignored", index),
				Message: fmt.Sprintf("ignored must be non-negative, got %d", a.Ignored),
				Code:    ErrNegativeAssertionCount,
			})
		}
	case AssertFailures, AssertFinishError, AssertScriptError:
		// An empty failures list asserts a clean run; an empty error
		// asserts a nil Finish result or a completed script. Nothing
		// further to check.
	}

	return errs
}
