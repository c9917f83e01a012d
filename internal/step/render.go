package step

import (
	"fmt"
	"strings"
)

// Span classes used by the markup rendering. Display-only decoration: they
// never participate in the identity of a rendered name.
const (
	singleParameterSpan = "<span class='single-parameter'>"
	parametersSpan      = "<span class='parameters'>"
	closeSpan           = "</span>"
)

// Render formats a call's display name from its method name and arguments.
//
// With no arguments the result is exactly the bare method name, regardless of
// the markup flag. With arguments the result is "name: " followed by the
// arguments joined with ", ", each formatted via its natural %v
// representation. When markup is requested the joined arguments are wrapped
// in a span whose class is single-parameter for exactly one argument and
// parameters for more than one.
//
// Engine-internal rendering (logging, correlation identity) uses
// markup=false; listener-facing display names use markup=true.
func Render(name string, args []any, markup bool) string {
	if len(args) == 0 {
		return name
	}

	var b strings.Builder
	b.WriteString(name)
	b.WriteString(": ")
	if markup {
		if len(args) == 1 {
			b.WriteString(singleParameterSpan)
		} else {
			b.WriteString(parametersSpan)
		}
	}
	for i, arg := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v", arg)
	}
	if markup {
		b.WriteString(closeSpan)
	}
	return b.String()
}
