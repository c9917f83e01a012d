package step

// Kind categorizes a registered step method for dispatch.
//
// Classification is computed once at registration time from the method's
// markers and stored on the Definition. There is no sentinel kind: scenario
// completion is an explicit engine operation, not a reserved method name.
type Kind string

const (
	// KindPlain is a forwarded helper call: no lifecycle events on success,
	// but failures are still observed.
	KindPlain Kind = "plain"

	// KindStep is an explicit, reportable unit of scenario behavior.
	KindStep Kind = "step"

	// KindGroup is a composite step bounding nested calls. Groups are never
	// themselves skipped; skip policy applies to the steps nested inside.
	KindGroup Kind = "group"
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Marks are the metadata markers attached to a step method at registration.
// Step and Group select the dispatch kind; Pending and Ignored make the
// method skip-eligible without affecting its kind.
type Marks struct {
	Step    bool
	Group   bool
	Pending bool
	Ignored bool
}

// Mark configures registration markers on a Definition.
type Mark func(*Marks)

// Pending marks a method as declared-but-unimplemented. Pending methods are
// always skip-eligible; their bodies are never invoked.
func Pending() Mark {
	return func(m *Marks) {
		m.Pending = true
	}
}

// Ignored marks a method as deliberately excluded from execution. Ignored
// methods are always skip-eligible; their bodies are never invoked.
func Ignored() Mark {
	return func(m *Marks) {
		m.Ignored = true
	}
}

// Classify maps registration markers to a dispatch kind.
//
// Group takes precedence over Step when both markers are present, matching
// dispatch order: group handling is checked before step handling. Unmarked
// methods are always KindPlain; classification never fails.
func Classify(m Marks) Kind {
	switch {
	case m.Group:
		return KindGroup
	case m.Step:
		return KindStep
	default:
		return KindPlain
	}
}
