package step

import (
	"context"
	"fmt"
)

// Body is the underlying implementation of a registered step method.
//
// On success it returns an ordinary value (or nil). Recognized failures are
// *AssertionError and *DriverError; any other error kind propagates through
// the engine uncaught.
type Body func(ctx context.Context, args ...any) (any, error)

// Definition is one registered step method: identity, classification, and
// the markers that make it skip-eligible. Definitions are created by a
// Library and never mutated afterward.
type Definition struct {
	// Owner is the identity of the step library the method belongs to.
	Owner string

	// Name is the bare method name, before argument rendering.
	Name string

	// Kind is the dispatch classification, computed at registration.
	Kind Kind

	// Pending and Ignored make the method skip-eligible.
	Pending bool
	Ignored bool

	body Body
}

// Invoke runs the underlying method body.
func (d *Definition) Invoke(ctx context.Context, args ...any) (any, error) {
	return d.body(ctx, args...)
}

// Library is the ordered set of step methods registered for one step-object
// type. Registration order is preserved for introspection; lookup is by name.
//
// Libraries are built once during setup and read-only afterward. Registering
// a nil body or a duplicate name panics: both are programming errors that
// must surface at registration, not mid-scenario.
type Library struct {
	owner string
	defs  []*Definition
	index map[string]*Definition
}

// NewLibrary creates an empty library owned by the named step-object type.
func NewLibrary(owner string) *Library {
	return &Library{
		owner: owner,
		index: make(map[string]*Definition),
	}
}

// Owner returns the step-object identity this library belongs to.
func (l *Library) Owner() string {
	return l.owner
}

// Register adds a method with explicit markers and returns its definition.
// The dispatch kind is classified here, once, from the markers.
func (l *Library) Register(name string, marks Marks, body Body) *Definition {
	if body == nil {
		panic(fmt.Sprintf("step: nil body for %s.%s", l.owner, name))
	}
	if _, exists := l.index[name]; exists {
		panic(fmt.Sprintf("step: duplicate registration of %s.%s", l.owner, name))
	}
	def := &Definition{
		Owner:   l.owner,
		Name:    name,
		Kind:    Classify(marks),
		Pending: marks.Pending,
		Ignored: marks.Ignored,
		body:    body,
	}
	l.defs = append(l.defs, def)
	l.index[name] = def
	return def
}

// Step registers a tracked, reportable step method.
func (l *Library) Step(name string, body Body, marks ...Mark) *Definition {
	return l.Register(name, applyMarks(Marks{Step: true}, marks), body)
}

// Group registers a composite step-group method.
func (l *Library) Group(name string, body Body, marks ...Mark) *Definition {
	return l.Register(name, applyMarks(Marks{Group: true}, marks), body)
}

// Plain registers an unmarked helper method.
func (l *Library) Plain(name string, body Body, marks ...Mark) *Definition {
	return l.Register(name, applyMarks(Marks{}, marks), body)
}

// Lookup returns the definition registered under name.
func (l *Library) Lookup(name string) (*Definition, bool) {
	def, ok := l.index[name]
	return def, ok
}

// Definitions returns all registered methods in registration order.
// The returned slice is a copy; mutating it does not affect the library.
func (l *Library) Definitions() []*Definition {
	out := make([]*Definition, len(l.defs))
	copy(out, l.defs)
	return out
}

// Len returns the number of registered methods.
func (l *Library) Len() int {
	return len(l.defs)
}

func applyMarks(base Marks, marks []Mark) Marks {
	for _, m := range marks {
		m(&base)
	}
	return base
}
