package step

// Invocation is one intercepted call: the registered method plus the ordered
// argument values it was called with. Ephemeral; it exists only for the
// duration of one dispatch.
type Invocation struct {
	Definition *Definition
	Args       []any
}

// Description identifies a reported step: the owning library identity plus
// the rendered display name. It is the correlation key delivered to
// listeners and must be reproducible from the same method and arguments.
//
// Name is the markup-free rendering and carries the identity; Display is the
// markup rendering shown to listeners. Two descriptions are the same step
// when Owner and Name match, whatever their Display decoration.
type Description struct {
	Owner   string
	Name    string
	Display string
}

// Describe builds the description for an invocation.
func Describe(inv Invocation) Description {
	return Description{
		Owner:   inv.Definition.Owner,
		Name:    Render(inv.Definition.Name, inv.Args, false),
		Display: Render(inv.Definition.Name, inv.Args, true),
	}
}

// Same reports whether two descriptions identify the same executed step.
// Display markup is excluded from the comparison.
func (d Description) Same(other Description) bool {
	return d.Owner == other.Owner && d.Name == other.Name
}

// String returns the markup-free identity, qualified by owner.
func (d Description) String() string {
	if d.Owner == "" {
		return d.Name
	}
	return d.Owner + "." + d.Name
}
