package harness

import (
	"github.com/roach88/stepwise/internal/record"
)

// Result is the outcome of one scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every assertion matched and the script ran as expected. A
	// scenario without assertions passes only when no step failure was
	// recorded and the script ran to completion.
	Pass bool `json:"pass"`

	// RunToken identifies the engine run that produced the trace.
	RunToken string `json:"run_token"`

	// Trace contains the journaled notification events in sequence order,
	// read back from the store after the run finished.
	Trace []record.Event `json:"trace"`

	// Tally summarizes the engine's execution counters at finish time.
	Tally *record.TallySummary `json:"tally,omitempty"`

	// FinishErr is the message returned by the engine's finish transition.
	// Empty when Finish returned nil.
	FinishErr string `json:"finish_err,omitempty"`

	// Aborted is set when a script call propagated an unrecognized error
	// and the remaining script entries were not executed.
	Aborted string `json:"aborted,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []record.Event{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
