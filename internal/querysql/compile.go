// Package querysql compiles journal query IR to parameterized SQL for
// SQLite.
//
// Identifiers (sources, columns) reach the SQL text only after vetting
// against the queryir schema. Values never reach the text at all; they
// travel as statement arguments. Every statement carries ORDER BY with
// explicit collation so row order is stable across SQLite versions,
// which replay comparison and golden output depend on.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/stepwise/internal/queryir"
)

// Compiler compiles queryir nodes to parameterized SQLite statements.
type Compiler struct {
	// Params holds values for Param predicates, keyed by name.
	// Front-ends fill it from user input before compiling.
	Params map[string]any
}

// NewCompiler creates a Compiler with an empty parameter map.
func NewCompiler() *Compiler {
	return &Compiler{
		Params: make(map[string]any),
	}
}

// Compile converts a query to SQL. Returns (sql, args, error).
//
// Compilation stops at the first problem; callers that want every
// problem at once run queryir.Validate first. The sql string contains
// only vetted identifiers and ? placeholders, one per returned arg.
func (c *Compiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Join:
		return c.compileJoin(query)
	case *queryir.Join:
		return c.compileJoin(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect compiles a queryir.Select to SQL. The statement always
// carries ORDER BY; see orderKey.
func (c *Compiler) compileSelect(sel queryir.Select) (string, []any, error) {
	// From reaches the SQL text only after this check.
	if queryir.Columns(sel.From) == nil {
		return "", nil, fmt.Errorf("unknown source %q", sel.From)
	}

	selectClause, err := projection(sel.From, sel.Columns, false)
	if err != nil {
		return "", nil, err
	}

	var whereClause string
	var args []any
	if sel.Filter != nil {
		filterSQL, filterArgs, err := c.compilePredicate(sel.From, false, sel.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + filterSQL
		args = filterArgs
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		selectClause,
		sel.From,
		whereClause,
		orderKey(sel.From, false))

	return sql, args, nil
}

// compileJoin compiles a queryir.Join to SQL.
//
// The ON clause is fixed to the journal's foreign key. Side filters
// compile qualified and AND together, runs side first; args follow
// placeholder order.
func (c *Compiler) compileJoin(j queryir.Join) (string, []any, error) {
	if j.Runs.From != queryir.SourceRuns {
		return "", nil, fmt.Errorf("join runs side selects from %q, want %s", j.Runs.From, queryir.SourceRuns)
	}
	if j.Events.From != queryir.SourceEvents {
		return "", nil, fmt.Errorf("join events side selects from %q, want %s", j.Events.From, queryir.SourceEvents)
	}

	selectClause, err := joinProjection(j)
	if err != nil {
		return "", nil, err
	}

	var whereParts []string
	var args []any
	if j.Runs.Filter != nil {
		filterSQL, filterArgs, err := c.compilePredicate(queryir.SourceRuns, true, j.Runs.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile runs filter: %w", err)
		}
		whereParts = append(whereParts, filterSQL)
		args = append(args, filterArgs...)
	}
	if j.Events.Filter != nil {
		filterSQL, filterArgs, err := c.compilePredicate(queryir.SourceEvents, true, j.Events.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile events filter: %w", err)
		}
		whereParts = append(whereParts, filterSQL)
		args = append(args, filterArgs...)
	}

	var whereClause string
	if len(whereParts) > 0 {
		whereClause = " WHERE " + strings.Join(whereParts, " AND ")
	}

	// Join rows are one per event, so event order is row order.
	sql := fmt.Sprintf("SELECT %s FROM runs INNER JOIN events ON runs.token = events.run_token%s ORDER BY %s",
		selectClause,
		whereClause,
		orderKey(queryir.SourceEvents, true))

	return sql, args, nil
}

// projection builds the SELECT column list. Empty columns compile to
// *, matching the validation flag rather than an error: the statement
// is safe, just migration-brittle.
func projection(src queryir.Source, columns []string, qualified bool) (string, error) {
	if len(columns) == 0 {
		return "*", nil
	}

	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		ref, err := columnRef(src, qualified, col)
		if err != nil {
			return "", err
		}
		parts = append(parts, ref)
	}

	return strings.Join(parts, ", "), nil
}

// joinProjection builds the column list for a join, runs side first.
// A side with no columns contributes nothing; both sides empty
// compiles to *.
func joinProjection(j queryir.Join) (string, error) {
	if len(j.Runs.Columns) == 0 && len(j.Events.Columns) == 0 {
		return "*", nil
	}

	var parts []string
	if len(j.Runs.Columns) > 0 {
		p, err := projection(queryir.SourceRuns, j.Runs.Columns, true)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	if len(j.Events.Columns) > 0 {
		p, err := projection(queryir.SourceEvents, j.Events.Columns, true)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}

	return strings.Join(parts, ", "), nil
}

// orderKey returns the ORDER BY terms for a source. Every compiled
// statement uses this; replay comparison and golden output depend on
// stable row order. started_at is RFC3339 text, so BINARY collation
// sorts it chronologically.
func orderKey(src queryir.Source, qualified bool) string {
	var prefix string
	if qualified {
		prefix = string(src) + "."
	}
	if src == queryir.SourceRuns {
		return prefix + "started_at COLLATE BINARY ASC, " + prefix + "token COLLATE BINARY ASC"
	}
	return prefix + "run_token COLLATE BINARY ASC, " + prefix + "seq ASC"
}

// compilePredicate compiles a predicate to a WHERE fragment.
// Returns (sql, args, error). Values are never interpolated; every
// value becomes a ? placeholder.
func (c *Compiler) compilePredicate(src queryir.Source, qualified bool, p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil // Always true
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(src, qualified, pred)
	case *queryir.Equals:
		return c.compileEquals(src, qualified, *pred)
	case queryir.Param:
		return c.compileParam(src, qualified, pred)
	case *queryir.Param:
		return c.compileParam(src, qualified, *pred)
	case queryir.And:
		return c.compileAnd(src, qualified, pred)
	case *queryir.And:
		return c.compileAnd(src, qualified, *pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate to "column = ?".
func (c *Compiler) compileEquals(src queryir.Source, qualified bool, eq queryir.Equals) (string, []any, error) {
	ref, err := columnRef(src, qualified, eq.Column)
	if err != nil {
		return "", nil, err
	}

	arg, err := literalArg(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("column %s: %w", eq.Column, err)
	}

	return ref + " = ?", []any{arg}, nil
}

// compileParam compiles a Param predicate to "column = ?" with the
// value resolved from the Params map. A missing value is an error: a
// placeholder without an argument would shift every later argument.
func (c *Compiler) compileParam(src queryir.Source, qualified bool, p queryir.Param) (string, []any, error) {
	ref, err := columnRef(src, qualified, p.Column)
	if err != nil {
		return "", nil, err
	}

	val, ok := c.Params[p.Name]
	if !ok {
		return "", nil, fmt.Errorf("no value for parameter %q", p.Name)
	}

	return ref + " = ?", []any{val}, nil
}

// compileAnd compiles an And predicate to a conjunction.
func (c *Compiler) compileAnd(src queryir.Source, qualified bool, and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	var sqlParts []string
	var allArgs []any

	for _, pred := range and.Predicates {
		sql, args, err := c.compilePredicate(src, qualified, pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allArgs = append(allArgs, args...)
	}

	return strings.Join(sqlParts, " AND "), allArgs, nil
}

// columnRef vets a column against the journal schema and returns its
// SQL reference. Identifiers reach SQL text only through this check.
func columnRef(src queryir.Source, qualified bool, column string) (string, error) {
	if !queryir.HasColumn(src, column) {
		return "", fmt.Errorf("unknown column %q for source %s", column, src)
	}
	if qualified {
		return string(src) + "." + column, nil
	}
	return column, nil
}

// literalArg converts a queryir.Literal to a driver argument. The
// literal set is closed, so only a missing value can fail.
func literalArg(v queryir.Literal) (any, error) {
	switch val := v.(type) {
	case queryir.String:
		return string(val), nil
	case queryir.Int:
		return int64(val), nil
	case nil:
		return nil, fmt.Errorf("literal value is nil")
	default:
		return nil, fmt.Errorf("unsupported literal type: %T", v)
	}
}
