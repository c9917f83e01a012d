package notify

import "github.com/roach88/stepwise/internal/step"

// Broadcaster fans lifecycle events out to an ordered list of listeners.
//
// Delivery is synchronous: each event reaches every listener, in
// registration order, before the broadcast call returns. The Broadcaster is
// itself a Listener, so composites nest.
//
// The listener list is fixed at construction. The engine intentionally has
// no way to add or remove observers mid-scenario; fan-out order would stop
// being reproducible.
type Broadcaster struct {
	listeners []Listener
}

// NewBroadcaster creates a broadcaster over the given listeners. The slice
// is copied; callers cannot reorder delivery after construction.
func NewBroadcaster(listeners ...Listener) *Broadcaster {
	copied := make([]Listener, len(listeners))
	copy(copied, listeners)
	return &Broadcaster{listeners: copied}
}

// Len returns the number of registered listeners.
func (b *Broadcaster) Len() int {
	return len(b.listeners)
}

// StepStarted delivers the started event to all listeners in order.
func (b *Broadcaster) StepStarted(desc step.Description) {
	for _, l := range b.listeners {
		l.StepStarted(desc)
	}
}

// StepFinished delivers the finished event to all listeners in order.
func (b *Broadcaster) StepFinished(desc step.Description) {
	for _, l := range b.listeners {
		l.StepFinished(desc)
	}
}

// StepIgnored delivers the ignored event to all listeners in order.
func (b *Broadcaster) StepIgnored(desc step.Description) {
	for _, l := range b.listeners {
		l.StepIgnored(desc)
	}
}

// StepFailed delivers the failure to all listeners in order.
func (b *Broadcaster) StepFailed(failure step.Failure) {
	for _, l := range b.listeners {
		l.StepFailed(failure)
	}
}

// StepGroupStarted delivers the group-started event to all listeners in order.
func (b *Broadcaster) StepGroupStarted(desc step.Description) {
	for _, l := range b.listeners {
		l.StepGroupStarted(desc)
	}
}

// StepGroupFinished delivers the group-finished event to all listeners in order.
func (b *Broadcaster) StepGroupFinished() {
	for _, l := range b.listeners {
		l.StepGroupFinished()
	}
}

// TestFinished delivers the scenario tally to all listeners in order.
func (b *Broadcaster) TestFinished(tally step.Tally) {
	for _, l := range b.listeners {
		l.TestFinished(tally)
	}
}

// Failed reports whether any listener considers a step to have failed: a
// logical OR across all listeners, every listener consulted.
func (b *Broadcaster) Failed() bool {
	failed := false
	for _, l := range b.listeners {
		if l.Failed() {
			failed = true
		}
	}
	return failed
}
