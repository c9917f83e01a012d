package queryir

// Source names a journal table.
//
// The journal has exactly two sources; nothing else is queryable.
// Unknown sources fail validation and compilation.
type Source string

const (
	// SourceRuns is the run registry: one row per scenario run.
	SourceRuns Source = "runs"

	// SourceEvents is the event log: one row per lifecycle event,
	// with a dense seq per run.
	SourceEvents Source = "events"
)

// ColType is the storage class of a journal column.
type ColType int

const (
	TypeText ColType = iota
	TypeInt
)

// column pairs a journal column name with its storage class.
type column struct {
	name string
	typ  ColType
}

// Schema-order column lists. These mirror store/schema.sql; a column
// added there needs an entry here before queries can reach it.
var (
	runColumns = []column{
		{"token", TypeText},
		{"scenario", TypeText},
		{"status", TypeText},
		{"executed", TypeInt},
		{"ignored", TypeInt},
		{"failed", TypeInt},
		{"started_at", TypeText},
		{"finished_at", TypeText},
	}
	eventColumns = []column{
		{"id", TypeText},
		{"run_token", TypeText},
		{"seq", TypeInt},
		{"kind", TypeText},
		{"owner", TypeText},
		{"step", TypeText},
		{"display", TypeText},
		{"error", TypeText},
		{"tally", TypeText},
	}
)

// sourceColumns maps each source to its schema-order columns.
var sourceColumns = map[Source][]column{
	SourceRuns:   runColumns,
	SourceEvents: eventColumns,
}

// Columns returns the column names of a source in schema order, or
// nil for an unknown source. The slice is a copy; callers may keep it.
func Columns(src Source) []string {
	cols, ok := sourceColumns[src]
	if !ok {
		return nil
	}
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.name
	}
	return names
}

// HasColumn reports whether a source has the named column.
func HasColumn(src Source, name string) bool {
	_, ok := ColumnType(src, name)
	return ok
}

// ColumnType returns the storage class of a column. ok is false when
// the source or the column is unknown.
func ColumnType(src Source, name string) (ColType, bool) {
	for _, col := range sourceColumns[src] {
		if col.name == name {
			return col.typ, true
		}
	}
	return TypeText, false
}

// Query represents an abstract journal query.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and
// enables exhaustive type switches in the SQL compiler.
//
// Query types:
//   - Select: single-source access with filtering and projection
//   - Join: runs and events paired on the run token
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
// Predicates appear in Select.Filter, on either side of a Join.
//
// Predicate types:
//   - Equals: column = literal
//   - Param: column = named runtime parameter
//   - And: all predicates must be true
//
// There is no Or: journal inspection wants narrowing, and separate
// queries cover the union cases.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Literal represents a literal value in a predicate.
//
// This is a sealed interface - only String and Int implement it. The
// set matches the journal's storage classes; see the package comment
// for why floats and nulls are absent.
type Literal interface {
	literalNode() // Marker method - seals interface to this package
}

// String is a text literal.
type String string

func (String) literalNode() {}

// Int is an integer literal.
type Int int64

func (Int) literalNode() {}

// Select represents single-source access with filtering and projection.
//
// Semantics:
//
//	SELECT <columns> FROM <from> WHERE <filter>
//
// Example:
//
//	Select{
//	  From: SourceEvents,
//	  Filter: And{Predicates: []Predicate{
//	    Param{Column: "run_token", Name: "run"},
//	    Equals{Column: "kind", Value: String("step_failed")},
//	  }},
//	  Columns: []string{"seq", "step", "error"},
//	}
//
// compiles to:
//
//	SELECT seq, step, error FROM events
//	WHERE run_token = ? AND kind = ?
//	ORDER BY run_token COLLATE BINARY ASC, seq ASC
//
// Rules:
//   - From must be a journal source; anything else fails compilation
//   - Columns is the explicit projection, in output order; empty
//     compiles to SELECT *, which Validate flags because * output
//     does not survive schema migrations
//   - Filter nil means no filter (all rows)
type Select struct {
	From    Source    // Journal source (SourceRuns or SourceEvents)
	Filter  Predicate // WHERE conditions (nil = no filter)
	Columns []string  // Explicit projection (empty = SELECT *)
}

func (Select) queryNode() {}

// Join pairs the run registry with the event log.
//
// Semantics:
//
//	SELECT <runs columns>, <events columns>
//	FROM runs INNER JOIN events ON runs.token = events.run_token
//	WHERE <runs filter> AND <events filter>
//
// The join key is the journal's only foreign key and is fixed; the IR
// cannot express any other join. Each join row is one event, so the
// result keeps trace order (run token, then seq).
//
// Example ("traces of failed runs"):
//
//	Join{
//	  Runs: Select{
//	    From:    SourceRuns,
//	    Filter:  Equals{Column: "status", Value: String("failed")},
//	    Columns: []string{"scenario"},
//	  },
//	  Events: Select{
//	    From:    SourceEvents,
//	    Columns: []string{"seq", "kind", "step", "error"},
//	  },
//	}
//
// Rules:
//   - Runs.From must be SourceRuns and Events.From must be
//     SourceEvents; the fields are validated, not inferred
//   - A side with no columns contributes nothing to the projection;
//     both sides empty compiles to SELECT *
//   - Side filters apply to their own source and are ANDed together
type Join struct {
	Runs   Select // Run side (From must be SourceRuns)
	Events Select // Event side (From must be SourceEvents)
}

func (Join) queryNode() {}

// Equals represents a column-equals-literal predicate.
//
// Semantics:
//
//	<column> = <literal>
//
// Example:
//
//	Equals{Column: "kind", Value: String("step_failed")}
//
// compiles to "kind = ?" with the literal passed as a statement
// argument, never interpolated.
//
// Absence is the empty string throughout the journal, so "events
// without an error" is Equals{Column: "error", Value: String("")}.
type Equals struct {
	Column string  // Column in the enclosing source
	Value  Literal // Literal value (String or Int)
}

func (Equals) predicateNode() {}

// Param represents a column-equals-runtime-parameter predicate.
//
// Semantics:
//
//	<column> = <named parameter>
//
// The value is not part of the query; the compiler resolves Name
// against its Params map at compile time. This is how front-ends
// splice user input (a run token from a CLI flag, say) into a query
// without ever touching SQL text.
//
// Example:
//
//	Param{Column: "run_token", Name: "run"}
//
// compiles to "run_token = ?" with Params["run"] as the argument.
// Compilation fails when no value is bound, since a placeholder
// without an argument would shift every later argument.
type Param struct {
	Column string // Column in the enclosing source
	Name   string // Parameter name resolved from Compiler.Params
}

func (Param) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
//
// Semantics:
//
//	<predicate1> AND <predicate2> AND ... AND <predicateN>
//
// An empty Predicates slice means "always true" and compiles to
// 1 = 1. Nested And is allowed and flattens in argument order.
type And struct {
	Predicates []Predicate // All must be true (empty = always true)
}

func (And) predicateNode() {}
