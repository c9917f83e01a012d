package record

// Pattern selects events out of a trace. Zero-value fields match anything:
// an empty Pattern matches every event.
type Pattern struct {
	Kind  EventKind // empty = any kind
	Owner string    // empty = any owner
	Step  string    // empty = any step name
}

// Matches reports whether the event satisfies every non-empty field of the
// pattern. All conditions must hold.
func (p Pattern) Matches(e Event) bool {
	if p.Kind != "" && p.Kind != e.Kind {
		return false
	}
	if p.Owner != "" && p.Owner != e.Owner {
		return false
	}
	if p.Step != "" && p.Step != e.Step {
		return false
	}
	return true
}

// Filter returns the events matching the pattern, preserving trace order.
func Filter(events []Event, p Pattern) []Event {
	var out []Event
	for _, e := range events {
		if p.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// First returns the first event matching the pattern.
func First(events []Event, p Pattern) (Event, bool) {
	for _, e := range events {
		if p.Matches(e) {
			return e, true
		}
	}
	return Event{}, false
}

// Count returns how many events match the pattern.
func Count(events []Event, p Pattern) int {
	n := 0
	for _, e := range events {
		if p.Matches(e) {
			n++
		}
	}
	return n
}
