package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/stepwise/internal/record"
)

// Divergence reports the first difference between two run traces.
type Divergence struct {
	// Index is the 0-based trace position where the traces part.
	Index int

	// Reason describes the difference.
	Reason string

	// Recorded is the journaled event at Index, nil past the journal's end.
	Recorded *record.Event

	// Fresh is the re-run event at Index, nil past the re-run's end.
	Fresh *record.Event
}

// CompareTraces compares a journaled trace with a freshly produced one and
// returns the first divergence, or nil when the runs agree.
//
// A re-run carries a new run token, so events compare on position and
// observable content: seq, kind, owner, step name, error text, and tally.
// Run tokens, event IDs (which cover the token), and display markup are
// excluded.
func CompareTraces(recorded, fresh []record.Event) *Divergence {
	n := min(len(recorded), len(fresh))
	for i := 0; i < n; i++ {
		if reason := eventDivergence(recorded[i], fresh[i]); reason != "" {
			return &Divergence{
				Index:    i,
				Reason:   reason,
				Recorded: &recorded[i],
				Fresh:    &fresh[i],
			}
		}
	}

	if len(recorded) > n {
		return &Divergence{
			Index:    n,
			Reason:   fmt.Sprintf("journaled trace has %d extra event(s)", len(recorded)-n),
			Recorded: &recorded[n],
		}
	}
	if len(fresh) > n {
		return &Divergence{
			Index:  n,
			Reason: fmt.Sprintf("fresh trace has %d extra event(s)", len(fresh)-n),
			Fresh:  &fresh[n],
		}
	}
	return nil
}

func eventDivergence(a, b record.Event) string {
	if a.Seq != b.Seq {
		return fmt.Sprintf("seq mismatch: %d vs %d", a.Seq, b.Seq)
	}
	if a.Kind != b.Kind {
		return fmt.Sprintf("kind mismatch: %s vs %s", a.Kind, b.Kind)
	}
	if a.Owner != b.Owner {
		return fmt.Sprintf("owner mismatch: %q vs %q", a.Owner, b.Owner)
	}
	if a.Step != b.Step {
		return fmt.Sprintf("step mismatch: %q vs %q", a.Step, b.Step)
	}
	if a.Error != b.Error {
		return fmt.Sprintf("error mismatch: %q vs %q", a.Error, b.Error)
	}
	if reason := tallyDivergence(a.Tally, b.Tally); reason != "" {
		return reason
	}
	return ""
}

func tallyDivergence(a, b *record.TallySummary) string {
	switch {
	case a == nil && b == nil:
		return ""
	case a == nil || b == nil:
		return "tally mismatch: present on one side only"
	case a.Executed != b.Executed:
		return fmt.Sprintf("tally executed mismatch: %d vs %d", a.Executed, b.Executed)
	case a.Ignored != b.Ignored:
		return fmt.Sprintf("tally ignored mismatch: %d vs %d", a.Ignored, b.Ignored)
	case !slices.Equal(a.Failures, b.Failures):
		return fmt.Sprintf("tally failures mismatch: %v vs %v", a.Failures, b.Failures)
	default:
		return ""
	}
}
