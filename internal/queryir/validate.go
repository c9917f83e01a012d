package queryir

import "fmt"

// ValidationResult contains schema analysis of a query.
type ValidationResult struct {
	// IsValid indicates the query names only known sources and
	// columns and types every literal to its column.
	IsValid bool

	// Problems lists schema violations. Empty when IsValid is true.
	Problems []string
}

// Validate checks a query against the journal schema.
//
// Checks:
//  1. Sources must be runs or events
//  2. Columns must exist in their source
//  3. Literals must match their column's storage class
//  4. Parameters must be named
//  5. Projections should be explicit (SELECT * is flagged)
//
// Validate collects every problem rather than stopping at the first,
// which is what interactive front-ends want. The querysql compiler
// re-checks identifiers on its own and stops at the first error, so a
// query that skips Validate still cannot smuggle names into SQL text.
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{
		problems: []string{},
	}
	v.validateQuery(query)

	return ValidationResult{
		IsValid:  len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

// addProblem appends a problem message.
func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// validateQuery validates a query node.
func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addProblem("nil query - validation requires a query node")
		return
	}

	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case Join:
		v.validateJoin(query)
	case *Join:
		v.validateJoin(*query)
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

// validateSelect validates a Select query node.
func (v *validator) validateSelect(sel Select) {
	if _, ok := sourceColumns[sel.From]; !ok {
		// Column checks against an unknown source would flag every
		// column; one problem is enough.
		v.addProblem("unknown source %q - journal sources are runs and events", sel.From)
		return
	}

	if len(sel.Columns) == 0 {
		v.addProblem("empty column list (SELECT *) on %s - name columns so output survives schema migrations", sel.From)
	}

	v.validateColumns(sel.From, sel.Columns)
	v.validatePredicate(sel.From, sel.Filter)
}

// validateJoin validates a Join query node.
func (v *validator) validateJoin(join Join) {
	runsOK := join.Runs.From == SourceRuns
	if !runsOK {
		v.addProblem("join runs side selects from %q - must be %s", join.Runs.From, SourceRuns)
	}
	eventsOK := join.Events.From == SourceEvents
	if !eventsOK {
		v.addProblem("join events side selects from %q - must be %s", join.Events.From, SourceEvents)
	}

	// A filter-only side with no columns is fine on a join; only both
	// sides empty means SELECT *.
	if len(join.Runs.Columns) == 0 && len(join.Events.Columns) == 0 {
		v.addProblem("empty column list (SELECT *) on join - name columns so output survives schema migrations")
	}

	if runsOK {
		v.validateColumns(SourceRuns, join.Runs.Columns)
		v.validatePredicate(SourceRuns, join.Runs.Filter)
	}
	if eventsOK {
		v.validateColumns(SourceEvents, join.Events.Columns)
		v.validatePredicate(SourceEvents, join.Events.Filter)
	}
}

// validateColumns checks projection columns against the source schema.
func (v *validator) validateColumns(src Source, columns []string) {
	for _, col := range columns {
		if !HasColumn(src, col) {
			v.addProblem("column %q does not exist in %s", col, src)
		}
	}
}

// validatePredicate validates a predicate node.
func (v *validator) validatePredicate(src Source, p Predicate) {
	if p == nil {
		return // nil predicates are valid (no filter)
	}

	switch pred := p.(type) {
	case Equals:
		v.validateEquals(src, pred)
	case *Equals:
		v.validateEquals(src, *pred)
	case Param:
		v.validateParam(src, pred)
	case *Param:
		v.validateParam(src, *pred)
	case And:
		v.validateAnd(src, pred)
	case *And:
		v.validateAnd(src, *pred)
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

// validateEquals validates an Equals predicate, including the literal
// against the column's storage class.
func (v *validator) validateEquals(src Source, eq Equals) {
	typ, ok := ColumnType(src, eq.Column)
	if !ok {
		v.addProblem("column %q does not exist in %s", eq.Column, src)
		return
	}

	switch val := eq.Value.(type) {
	case String:
		if typ == TypeInt {
			v.addProblem("column %s.%s holds integers - got string literal %q", src, eq.Column, string(val))
		}
	case Int:
		if typ == TypeText {
			v.addProblem("column %s.%s holds text - got integer literal %d", src, eq.Column, int64(val))
		}
	case nil:
		v.addProblem("equals on %s.%s has no value", src, eq.Column)
	default:
		v.addProblem("unknown literal type: %T", eq.Value)
	}
}

// validateParam validates a Param predicate.
func (v *validator) validateParam(src Source, p Param) {
	if !HasColumn(src, p.Column) {
		v.addProblem("column %q does not exist in %s", p.Column, src)
	}
	if p.Name == "" {
		v.addProblem("parameter on %s.%s has no name", src, p.Column)
	}
	// Parameter values are bound at compile time and go straight to
	// the driver; only the column is checkable here.
}

// validateAnd validates an And predicate.
func (v *validator) validateAnd(src Source, and And) {
	for _, subPred := range and.Predicates {
		v.validatePredicate(src, subPred)
	}
}
