// Package queryir provides a typed intermediate representation for
// journal queries.
//
// The IR is the abstraction boundary between journal inspection
// front-ends (CLI flags, report tooling) and the SQL that actually
// runs against the store:
//
//	[inspection flags] → [query IR] → [parameterized SQLite]
//
// Front-ends build IR values, Validate reports schema problems, and
// package querysql compiles the IR to a parameterized statement. No
// front-end ever assembles SQL text.
//
// SOURCES:
//
// The journal has exactly two sources and the IR is closed over them:
//
//	runs    one row per scenario run (token, status, tally counters)
//	events  one row per lifecycle event (seq, kind, owner, step, error)
//
// Columns and ColumnType expose the schema so callers can build
// projections and type-check literals without touching the store.
//
// SEALED INTERFACES:
//
// Query, Predicate and Literal are sealed interfaces using the marker
// method pattern. Only types in this package can implement them.
//
// This enables:
//   - Exhaustive type switches in the SQL compiler
//   - Compile-time safety against external extensions
//   - A closed identifier set, so compiled SQL never carries an
//     unvetted name
//
// LITERALS:
//
// The literal set is String and Int, matching the journal's storage
// classes. There is no float literal: the canonical event encoding
// rejects floats, so no journal column ever holds one. There is no
// null literal either: every journal column is NOT NULL with a ''
// default, so absence is matched as Equals on the empty string.
//
// JOINS:
//
// Join pairs the two sources on the journal's only foreign key,
// runs.token = events.run_token. Each join row is one event, so join
// results keep trace order. The join key is fixed by the schema and
// is not expressible in the IR.
//
// VALIDATION vs COMPILATION:
//
// Validate walks the whole query and collects every problem, which is
// what interactive front-ends want. The querysql compiler re-checks
// identifiers itself and stops at the first error, so a query that
// skips Validate still cannot smuggle names into SQL text.
package queryir
