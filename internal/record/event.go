package record

import (
	"fmt"

	"github.com/roach88/stepwise/internal/step"
)

// EventKind identifies which notification an event records.
type EventKind string

const (
	EventStepStarted   EventKind = "step_started"
	EventStepFinished  EventKind = "step_finished"
	EventStepIgnored   EventKind = "step_ignored"
	EventStepFailed    EventKind = "step_failed"
	EventGroupStarted  EventKind = "group_started"
	EventGroupFinished EventKind = "group_finished"
	EventTestFinished  EventKind = "test_finished"
)

// ValidKinds enumerates every event kind a trace may contain.
var ValidKinds = map[EventKind]bool{
	EventStepStarted:   true,
	EventStepFinished:  true,
	EventStepIgnored:   true,
	EventStepFailed:    true,
	EventGroupStarted:  true,
	EventGroupFinished: true,
	EventTestFinished:  true,
}

// Event is one entry of a run trace.
//
// Step identity is carried by Owner and Step (markup-free). Display is the
// rendered form with span markup and exists for reporting only; it never
// participates in the event ID.
type Event struct {
	ID       string        `json:"id"`
	RunToken string        `json:"run_token"`
	Seq      int64         `json:"seq"`
	Kind     EventKind     `json:"kind"`
	Owner    string        `json:"owner,omitempty"`
	Step     string        `json:"step,omitempty"`
	Display  string        `json:"display,omitempty"`
	Error    string        `json:"error,omitempty"`
	Tally    *TallySummary `json:"tally,omitempty"`
}

// TallySummary is the journaled form of a result tally.
// Failures hold "Owner.name: cause" strings in occurrence order.
type TallySummary struct {
	Executed int      `json:"executed"`
	Ignored  int      `json:"ignored"`
	Failures []string `json:"failures,omitempty"`
}

// SummarizeTally converts an engine tally into its journaled form.
func SummarizeTally(t step.Tally) *TallySummary {
	s := &TallySummary{
		Executed: t.Executed,
		Ignored:  t.Ignored,
	}
	for _, f := range t.Failures {
		s.Failures = append(s.Failures, f.String())
	}
	return s
}

// payload builds the canonical object an event ID is computed over.
// ID and Display are excluded: ID is the digest itself and Display is
// presentation markup.
func (e Event) payload() map[string]any {
	p := map[string]any{
		"run_token": e.RunToken,
		"seq":       e.Seq,
		"kind":      string(e.Kind),
	}
	if e.Owner != "" {
		p["owner"] = e.Owner
	}
	if e.Step != "" {
		p["step"] = e.Step
	}
	if e.Error != "" {
		p["error"] = e.Error
	}
	if e.Tally != nil {
		failures := make([]any, len(e.Tally.Failures))
		for i, f := range e.Tally.Failures {
			failures[i] = f
		}
		p["tally"] = map[string]any{
			"executed": int64(e.Tally.Executed),
			"ignored":  int64(e.Tally.Ignored),
			"failures": failures,
		}
	}
	return p
}

// NewStepEvent builds a step-scoped event (started, finished, ignored, or
// group started) from a step description.
func NewStepEvent(kind EventKind, runToken string, seq int64, desc step.Description) Event {
	e := Event{
		RunToken: runToken,
		Seq:      seq,
		Kind:     kind,
		Owner:    desc.Owner,
		Step:     desc.Name,
		Display:  desc.Display,
	}
	e.ID = EventID(e)
	return e
}

// NewFailureEvent builds a step_failed event from a recorded failure.
func NewFailureEvent(runToken string, seq int64, failure step.Failure) Event {
	e := Event{
		RunToken: runToken,
		Seq:      seq,
		Kind:     EventStepFailed,
		Owner:    failure.Description.Owner,
		Step:     failure.Description.Name,
		Display:  failure.Description.Display,
	}
	if failure.Cause != nil {
		e.Error = failure.Cause.Error()
	}
	e.ID = EventID(e)
	return e
}

// NewGroupFinishedEvent builds a group_finished event. Group completion
// carries no description: it closes whatever group is innermost.
func NewGroupFinishedEvent(runToken string, seq int64) Event {
	e := Event{
		RunToken: runToken,
		Seq:      seq,
		Kind:     EventGroupFinished,
	}
	e.ID = EventID(e)
	return e
}

// NewTestFinishedEvent builds the terminal test_finished event carrying the
// run's tally.
func NewTestFinishedEvent(runToken string, seq int64, tally step.Tally) Event {
	e := Event{
		RunToken: runToken,
		Seq:      seq,
		Kind:     EventTestFinished,
		Tally:    SummarizeTally(tally),
	}
	e.ID = EventID(e)
	return e
}

// ValidationError represents a validation error with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the event against trace schema rules.
// Returns all errors (not fail-fast) for better developer experience.
func (e Event) Validate() []ValidationError {
	var errs []ValidationError

	if e.RunToken == "" {
		errs = append(errs, ValidationError{
			Field:   "run_token",
			Message: "run token is required",
		})
	}
	if e.Seq < 1 {
		errs = append(errs, ValidationError{
			Field:   "seq",
			Message: fmt.Sprintf("seq must be >= 1, got %d", e.Seq),
		})
	}
	if !ValidKinds[e.Kind] {
		errs = append(errs, ValidationError{
			Field:   "kind",
			Message: fmt.Sprintf("unknown event kind %q", e.Kind),
		})
	}

	switch e.Kind {
	case EventStepStarted, EventStepFinished, EventStepIgnored, EventStepFailed, EventGroupStarted:
		if e.Owner == "" {
			errs = append(errs, ValidationError{
				Field:   "owner",
				Message: fmt.Sprintf("%s requires an owner", e.Kind),
			})
		}
		if e.Step == "" {
			errs = append(errs, ValidationError{
				Field:   "step",
				Message: fmt.Sprintf("%s requires a step name", e.Kind),
			})
		}
	case EventGroupFinished, EventTestFinished:
		if e.Owner != "" || e.Step != "" {
			errs = append(errs, ValidationError{
				Field:   "step",
				Message: fmt.Sprintf("%s must not name a step", e.Kind),
			})
		}
	}

	if e.Kind == EventStepFailed && e.Error == "" {
		errs = append(errs, ValidationError{
			Field:   "error",
			Message: "step_failed requires an error message",
		})
	}
	if e.Kind != EventStepFailed && e.Error != "" {
		errs = append(errs, ValidationError{
			Field:   "error",
			Message: fmt.Sprintf("%s must not carry an error", e.Kind),
		})
	}

	if e.Kind == EventTestFinished && e.Tally == nil {
		errs = append(errs, ValidationError{
			Field:   "tally",
			Message: "test_finished requires a tally",
		})
	}
	if e.Kind != EventTestFinished && e.Tally != nil {
		errs = append(errs, ValidationError{
			Field:   "tally",
			Message: fmt.Sprintf("%s must not carry a tally", e.Kind),
		})
	}

	return errs
}
