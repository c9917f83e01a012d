package engine

// CallQuota tracks intercepted calls for one run and enforces a maximum.
//
// The quota guards scripted scenarios against runaway call loops (a group
// body that keeps calling itself, a script generator gone wrong). It counts
// every call entering dispatch, including skipped ones: a skipped call still
// consumes engine work.
//
// A quota error is an engine error, not a step failure: it is never caught,
// never tallied, and never broadcast as StepFailed.
type CallQuota struct {
	maxCalls int
	current  int
}

// NewCallQuota creates a quota with the given limit.
func NewCallQuota(maxCalls int) *CallQuota {
	return &CallQuota{
		maxCalls: maxCalls,
		current:  0,
	}
}

// Check increments the call counter and validates against the limit.
// Returns a QUOTA_EXCEEDED runtime error once the limit is passed.
func (q *CallQuota) Check(runToken string) error {
	q.current++
	if q.current > q.maxCalls {
		return NewQuotaError(runToken, q.current, q.maxCalls)
	}
	return nil
}

// Current returns the current call count.
func (q *CallQuota) Current() int {
	return q.current
}

// MaxCalls returns the configured limit.
func (q *CallQuota) MaxCalls() int {
	return q.maxCalls
}
