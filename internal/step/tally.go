package step

// Tally holds one scenario's execution counters: how many tracked steps ran,
// how many were skipped, and the ordered failures reported along the way.
//
// A tally is owned exclusively by one interception engine and mutated only
// through the Log methods. It carries no derived computation: percentages
// and cross-scenario aggregation are downstream reporting concerns.
type Tally struct {
	Executed int
	Ignored  int
	Failures []Failure
}

// NewTally creates an empty tally.
func NewTally() *Tally {
	return &Tally{}
}

// LogExecuted records one tracked step that ran to a finished transition,
// whether it succeeded or failed.
func (t *Tally) LogExecuted() {
	t.Executed++
}

// LogIgnored records one call that was skipped after its started transition.
func (t *Tally) LogIgnored() {
	t.Ignored++
}

// LogFailure appends a reported step failure in arrival order.
func (t *Tally) LogFailure(f Failure) {
	t.Failures = append(t.Failures, f)
}

// HasFailures returns true if any step failure was recorded.
func (t *Tally) HasFailures() bool {
	return len(t.Failures) > 0
}

// Snapshot returns a copy safe to hand to listeners. The failures slice is
// cloned so listener code cannot mutate the engine's bookkeeping.
func (t *Tally) Snapshot() Tally {
	out := Tally{
		Executed: t.Executed,
		Ignored:  t.Ignored,
	}
	if len(t.Failures) > 0 {
		out.Failures = make([]Failure, len(t.Failures))
		copy(out.Failures, t.Failures)
	}
	return out
}
