package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/roach88/stepwise/internal/record"
)

// Step kinds a scenario document may declare.
const (
	KindStep  = "step"
	KindGroup = "group"
	KindPlain = "plain"
)

// ValidStepKinds enumerates the accepted step kinds.
var ValidStepKinds = map[string]bool{
	KindStep:  true,
	KindGroup: true,
	KindPlain: true,
}

// Outcomes a step definition may declare. The zero value means OutcomeOK.
//
// OutcomeRethrow makes the body re-raise the run's last recorded failure
// cause. It exists so scenarios can exercise the group path that swallows a
// failure its own child already recorded.
const (
	OutcomeOK        = "ok"
	OutcomeAssertion = "assertion"
	OutcomeDriver    = "driver"
	OutcomeError     = "error"
	OutcomeRethrow   = "rethrow"
)

// ValidOutcomes enumerates the accepted step outcomes.
var ValidOutcomes = map[string]bool{
	OutcomeOK:        true,
	OutcomeAssertion: true,
	OutcomeDriver:    true,
	OutcomeError:     true,
	OutcomeRethrow:   true,
}

// Scenario is a compiled scenario document.
//
// A scenario declares one step library (Owner + Steps), a script of ordered
// calls against it, and assertions over the resulting trace. The same struct
// is produced by both loading paths: CompileScenarioFile (CUE, used by the
// CLI for position-annotated diagnostics) and the harness's strict YAML
// decoder (which rejects unknown fields).
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Owner is the step-library owner name, e.g. "ShoppingSteps".
	Owner string `yaml:"owner" json:"owner"`

	// Engine carries optional engine construction options.
	Engine *EngineOptions `yaml:"engine,omitempty" json:"engine,omitempty"`

	// Steps is the scenario's step library. At least one entry is required.
	Steps []StepDef `yaml:"steps" json:"steps"`

	// Script is the ordered list of calls to make against the library.
	// The runner finishes the run after the last call; there is no
	// reserved "finish" step name.
	Script []ScriptCall `yaml:"script,omitempty" json:"script,omitempty"`

	// Assertions validate the journaled trace, tally, and finish outcome.
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`

	// Golden names an optional golden trace fixture under testdata/golden.
	Golden string `yaml:"golden,omitempty" json:"golden,omitempty"`

	// RunToken fixes the run token for deterministic traces. Empty means
	// the harness default.
	RunToken string `yaml:"run_token,omitempty" json:"run_token,omitempty"`
}

// EngineOptions configures the engine a scenario runs under.
type EngineOptions struct {
	// MaxCalls caps the number of intercepted calls. Zero means unlimited.
	MaxCalls int `yaml:"max_calls,omitempty" json:"max_calls,omitempty"`

	// FailOnFinish makes Finish return the last recorded failure's cause.
	FailOnFinish bool `yaml:"fail_on_finish,omitempty" json:"fail_on_finish,omitempty"`
}

// StepDef declares one entry of the scenario's step library.
type StepDef struct {
	// Name is the step name, e.g. "add_item".
	Name string `yaml:"name" json:"name"`

	// Kind classifies the step: "step", "group", or "plain".
	Kind string `yaml:"kind" json:"kind"`

	// Pending marks the step as not yet implemented.
	Pending bool `yaml:"pending,omitempty" json:"pending,omitempty"`

	// Ignored marks the step as deliberately skipped.
	Ignored bool `yaml:"ignored,omitempty" json:"ignored,omitempty"`

	// Outcome scripts the body's behavior: "ok" (default), "assertion",
	// "driver", "error", or "rethrow".
	Outcome string `yaml:"outcome,omitempty" json:"outcome,omitempty"`

	// Message is the failure message for assertion, driver, and error
	// outcomes.
	Message string `yaml:"message,omitempty" json:"message,omitempty"`

	// Returns is the value the body returns on an ok outcome.
	Returns string `yaml:"returns,omitempty" json:"returns,omitempty"`

	// Calls lists the library steps a group body invokes, in order.
	// Only group-kind steps may declare calls.
	Calls []string `yaml:"calls,omitempty" json:"calls,omitempty"`
}

// ScriptCall is one scripted call against the step library.
type ScriptCall struct {
	// Call names the library step to invoke.
	Call string `yaml:"call" json:"call"`

	// Args are rendered into the step name. Scalars only; floats are
	// forbidden because they have no canonical form.
	Args []any `yaml:"args,omitempty" json:"args,omitempty"`
}

// CompileScenarioFile reads a scenario YAML file and compiles it through CUE.
func CompileScenarioFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return CompileScenarioSource(path, data)
}

// CompileScenarioSource compiles scenario YAML source through CUE.
// The filename is used only for error positions.
func CompileScenarioSource(filename string, data []byte) (*Scenario, error) {
	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return nil, formatCUEError(err)
	}

	ctx := cuecontext.New()
	v := ctx.BuildFile(file)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	return CompileScenario(v)
}

// CompileScenario parses a CUE value into a Scenario.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the document root, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.BuildFile(yamlFile)
//	scenario, err := CompileScenario(v)
func CompileScenario(v cue.Value) (*Scenario, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	s := &Scenario{}

	// Parse name (required)
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "name",
			Message: "name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	s.Name = name

	// Parse description (optional)
	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		s.Description = desc
	}

	// Parse owner (required)
	ownerVal := v.LookupPath(cue.ParsePath("owner"))
	if !ownerVal.Exists() {
		return nil, &CompileError{
			Field:   "owner",
			Message: "owner is required",
			Pos:     v.Pos(),
		}
	}
	owner, err := ownerVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	s.Owner = owner

	// Parse engine options (optional)
	engineVal := v.LookupPath(cue.ParsePath("engine"))
	if engineVal.Exists() {
		opts, err := parseEngineOptions(engineVal)
		if err != nil {
			return nil, err
		}
		s.Engine = opts
	}

	// Parse step library (required, at least one)
	s.Steps, err = parseSteps(v)
	if err != nil {
		return nil, err
	}
	if len(s.Steps) == 0 {
		return nil, &CompileError{
			Field:   "steps",
			Message: "at least one step definition is required",
			Pos:     v.Pos(),
		}
	}

	// Parse script (optional, can be empty)
	s.Script, err = parseScript(v)
	if err != nil {
		return nil, err
	}

	// Parse assertions (optional)
	s.Assertions, err = parseAssertions(v)
	if err != nil {
		return nil, err
	}

	// Parse golden fixture name (optional)
	goldenVal := v.LookupPath(cue.ParsePath("golden"))
	if goldenVal.Exists() {
		golden, err := goldenVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		s.Golden = golden
	}

	// Parse fixed run token (optional)
	tokenVal := v.LookupPath(cue.ParsePath("run_token"))
	if tokenVal.Exists() {
		tok, err := tokenVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		s.RunToken = tok
	}

	return s, nil
}

// parseEngineOptions extracts the engine options block.
func parseEngineOptions(v cue.Value) (*EngineOptions, error) {
	opts := &EngineOptions{}

	maxVal := v.LookupPath(cue.ParsePath("max_calls"))
	if maxVal.Exists() {
		max, err := maxVal.Int64()
		if err != nil {
			return nil, &CompileError{
				Field:   "engine.max_calls",
				Message: "max_calls must be an integer",
				Pos:     maxVal.Pos(),
			}
		}
		opts.MaxCalls = int(max)
	}

	failVal := v.LookupPath(cue.ParsePath("fail_on_finish"))
	if failVal.Exists() {
		fail, err := failVal.Bool()
		if err != nil {
			return nil, &CompileError{
				Field:   "engine.fail_on_finish",
				Message: "fail_on_finish must be a bool",
				Pos:     failVal.Pos(),
			}
		}
		opts.FailOnFinish = fail
	}

	return opts, nil
}

// parseSteps extracts the step library definitions.
func parseSteps(v cue.Value) ([]StepDef, error) {
	var steps []StepDef

	stepsVal := v.LookupPath(cue.ParsePath("steps"))
	if !stepsVal.Exists() {
		return nil, &CompileError{
			Field:   "steps",
			Message: "steps are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := stepsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		def, err := parseStepDef(iter.Value(), i)
		if err != nil {
			return nil, err
		}
		steps = append(steps, def)
	}

	return steps, nil
}

// parseStepDef extracts one step definition.
func parseStepDef(v cue.Value, index int) (StepDef, error) {
	var def StepDef

	// Parse name (required string field)
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return def, &CompileError{
			Field:   fmt.Sprintf("steps[%d].name", index),
			Message: "step name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return def, formatCUEError(err)
	}
	def.Name = name

	// Parse kind (required string field)
	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return def, &CompileError{
			Field:   fmt.Sprintf("steps[%d].kind", index),
			Message: fmt.Sprintf("step %q requires a kind (\"step\", \"group\", or \"plain\")", def.Name),
			Pos:     v.Pos(),
		}
	}
	kind, err := kindVal.String()
	if err != nil {
		return def, formatCUEError(err)
	}
	if !ValidStepKinds[kind] {
		return def, &CompileError{
			Field:   fmt.Sprintf("steps[%d].kind", index),
			Message: fmt.Sprintf("invalid kind %q, must be \"step\", \"group\", or \"plain\"", kind),
			Pos:     kindVal.Pos(),
		}
	}
	def.Kind = kind

	// Parse pending / ignored marks (optional bools)
	pendingVal := v.LookupPath(cue.ParsePath("pending"))
	if pendingVal.Exists() {
		pending, err := pendingVal.Bool()
		if err != nil {
			return def, formatCUEError(err)
		}
		def.Pending = pending
	}
	ignoredVal := v.LookupPath(cue.ParsePath("ignored"))
	if ignoredVal.Exists() {
		ignored, err := ignoredVal.Bool()
		if err != nil {
			return def, formatCUEError(err)
		}
		def.Ignored = ignored
	}

	// Parse outcome (optional, defaults to ok)
	outcomeVal := v.LookupPath(cue.ParsePath("outcome"))
	if outcomeVal.Exists() {
		outcome, err := outcomeVal.String()
		if err != nil {
			return def, formatCUEError(err)
		}
		if !ValidOutcomes[outcome] {
			return def, &CompileError{
				Field:   fmt.Sprintf("steps[%d].outcome", index),
				Message: fmt.Sprintf("invalid outcome %q, must be \"ok\", \"assertion\", \"driver\", \"error\", or \"rethrow\"", outcome),
				Pos:     outcomeVal.Pos(),
			}
		}
		def.Outcome = outcome
	}

	// Parse message (optional)
	messageVal := v.LookupPath(cue.ParsePath("message"))
	if messageVal.Exists() {
		message, err := messageVal.String()
		if err != nil {
			return def, formatCUEError(err)
		}
		def.Message = message
	}

	// Parse returns (optional)
	returnsVal := v.LookupPath(cue.ParsePath("returns"))
	if returnsVal.Exists() {
		returns, err := returnsVal.String()
		if err != nil {
			return def, formatCUEError(err)
		}
		def.Returns = returns
	}

	// Parse group calls (optional list of step names)
	callsVal := v.LookupPath(cue.ParsePath("calls"))
	if callsVal.Exists() {
		callIter, err := callsVal.List()
		if err != nil {
			return def, formatCUEError(err)
		}
		for callIter.Next() {
			call, err := callIter.Value().String()
			if err != nil {
				return def, &CompileError{
					Field:   fmt.Sprintf("steps[%d].calls", index),
					Message: "calls entries must be step names",
					Pos:     callIter.Value().Pos(),
				}
			}
			def.Calls = append(def.Calls, call)
		}
	}

	return def, nil
}

// parseScript extracts the ordered script calls.
func parseScript(v cue.Value) ([]ScriptCall, error) {
	var script []ScriptCall

	scriptVal := v.LookupPath(cue.ParsePath("script"))
	if !scriptVal.Exists() {
		return script, nil // script is optional
	}

	iter, err := scriptVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		call, err := parseScriptCall(iter.Value(), i)
		if err != nil {
			return nil, err
		}
		script = append(script, call)
	}

	return script, nil
}

// parseScriptCall extracts one scripted call.
func parseScriptCall(v cue.Value, index int) (ScriptCall, error) {
	var call ScriptCall

	callVal := v.LookupPath(cue.ParsePath("call"))
	if !callVal.Exists() {
		return call, &CompileError{
			Field:   fmt.Sprintf("script[%d].call", index),
			Message: "script entry requires 'call' field",
			Pos:     v.Pos(),
		}
	}
	name, err := callVal.String()
	if err != nil {
		return call, formatCUEError(err)
	}
	call.Call = name

	argsVal := v.LookupPath(cue.ParsePath("args"))
	if argsVal.Exists() {
		argIter, err := argsVal.List()
		if err != nil {
			return call, formatCUEError(err)
		}
		for argIter.Next() {
			arg, err := parseArgValue(argIter.Value(), index)
			if err != nil {
				return call, err
			}
			call.Args = append(call.Args, arg)
		}
	}

	return call, nil
}

// parseArgValue converts a CUE scalar to a Go argument value.
// Floats are forbidden: they have no canonical rendering.
func parseArgValue(v cue.Value, index int) (any, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return i, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   fmt.Sprintf("script[%d].args", index),
			Message: "float arguments are forbidden - use int or string",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   fmt.Sprintf("script[%d].args", index),
			Message: fmt.Sprintf("unsupported argument kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// Digest computes the content-addressed ID for a compiled scenario. Two
// documents that compile to the same Scenario digest identically regardless
// of formatting or field order in the source file.
func (s *Scenario) Digest() (string, error) {
	return record.ScenarioDigest(s.canonicalMap())
}

// canonicalMap converts the scenario to a map for canonical JSON
// serialization. Zero-valued fields are omitted so absence and zero digest
// identically.
func (s *Scenario) canonicalMap() map[string]any {
	doc := map[string]any{
		"name":  s.Name,
		"owner": s.Owner,
	}
	if s.Description != "" {
		doc["description"] = s.Description
	}
	if s.Engine != nil {
		eng := map[string]any{}
		if s.Engine.MaxCalls != 0 {
			eng["max_calls"] = int64(s.Engine.MaxCalls)
		}
		if s.Engine.FailOnFinish {
			eng["fail_on_finish"] = true
		}
		doc["engine"] = eng
	}

	steps := make([]any, len(s.Steps))
	for i, def := range s.Steps {
		m := map[string]any{
			"name": def.Name,
			"kind": def.Kind,
		}
		if def.Pending {
			m["pending"] = true
		}
		if def.Ignored {
			m["ignored"] = true
		}
		if def.Outcome != "" {
			m["outcome"] = def.Outcome
		}
		if def.Message != "" {
			m["message"] = def.Message
		}
		if def.Returns != "" {
			m["returns"] = def.Returns
		}
		if len(def.Calls) > 0 {
			calls := make([]any, len(def.Calls))
			for j, c := range def.Calls {
				calls[j] = c
			}
			m["calls"] = calls
		}
		steps[i] = m
	}
	doc["steps"] = steps

	if len(s.Script) > 0 {
		script := make([]any, len(s.Script))
		for i, call := range s.Script {
			m := map[string]any{"call": call.Call}
			if len(call.Args) > 0 {
				m["args"] = append([]any{}, call.Args...)
			}
			script[i] = m
		}
		doc["script"] = script
	}

	if len(s.Assertions) > 0 {
		assertions := make([]any, len(s.Assertions))
		for i, a := range s.Assertions {
			assertions[i] = a.canonicalMap()
		}
		doc["assertions"] = assertions
	}

	if s.Golden != "" {
		doc["golden"] = s.Golden
	}
	if s.RunToken != "" {
		doc["run_token"] = s.RunToken
	}
	return doc
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
