package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelect_Construction(t *testing.T) {
	sel := Select{
		From: SourceEvents,
		Filter: &Equals{
			Column: "kind",
			Value:  String("step_failed"),
		},
		Columns: []string{"seq", "step", "error"},
	}

	assert.Equal(t, SourceEvents, sel.From)
	assert.NotNil(t, sel.Filter)
	assert.Len(t, sel.Columns, 3)
}

func TestSelect_ImplementsQuery(t *testing.T) {
	var q Query = Select{From: SourceRuns}
	assert.NotNil(t, q)

	// Sealed interface - can type switch exhaustively
	switch q.(type) {
	case Select:
		// Expected
	case Join:
		t.Fatal("unexpected type")
	}
}

func TestSelect_NilFilter(t *testing.T) {
	// Filter is optional - nil means all rows
	sel := Select{
		From:    SourceRuns,
		Filter:  nil,
		Columns: []string{"token"},
	}

	assert.Nil(t, sel.Filter)
}

func TestJoin_Construction(t *testing.T) {
	join := Join{
		Runs: Select{
			From:    SourceRuns,
			Filter:  Equals{Column: "status", Value: String("failed")},
			Columns: []string{"scenario"},
		},
		Events: Select{
			From:    SourceEvents,
			Columns: []string{"seq", "kind", "step"},
		},
	}

	assert.Equal(t, SourceRuns, join.Runs.From)
	assert.Equal(t, SourceEvents, join.Events.From)
	assert.Len(t, join.Events.Columns, 3)
}

func TestJoin_ImplementsQuery(t *testing.T) {
	var q Query = Join{
		Runs:   Select{From: SourceRuns, Columns: []string{"token"}},
		Events: Select{From: SourceEvents, Columns: []string{"seq"}},
	}
	assert.NotNil(t, q)
}

func TestEquals_Construction(t *testing.T) {
	eq := Equals{
		Column: "status",
		Value:  String("passed"),
	}

	assert.Equal(t, "status", eq.Column)
	assert.Equal(t, String("passed"), eq.Value)
}

func TestEquals_ImplementsPredicate(t *testing.T) {
	var p Predicate = Equals{Column: "seq", Value: Int(1)}
	assert.NotNil(t, p)

	// Sealed interface - can type switch exhaustively
	switch p.(type) {
	case Equals:
		// Expected
	case Param:
		t.Fatal("unexpected type")
	case And:
		t.Fatal("unexpected type")
	}
}

func TestParam_Construction(t *testing.T) {
	p := Param{
		Column: "run_token",
		Name:   "run",
	}

	assert.Equal(t, "run_token", p.Column)
	assert.Equal(t, "run", p.Name)
}

func TestParam_ImplementsPredicate(t *testing.T) {
	var p Predicate = Param{Column: "run_token", Name: "run"}
	assert.NotNil(t, p)
}

func TestAnd_Construction(t *testing.T) {
	and := And{
		Predicates: []Predicate{
			Equals{Column: "kind", Value: String("step_failed")},
			Param{Column: "run_token", Name: "run"},
		},
	}

	assert.Len(t, and.Predicates, 2)
}

func TestAnd_ImplementsPredicate(t *testing.T) {
	var p Predicate = And{Predicates: []Predicate{}}
	assert.NotNil(t, p)
}

func TestAnd_EmptyPredicates(t *testing.T) {
	// Empty predicates means "always true" (vacuous truth)
	and := And{Predicates: []Predicate{}}
	assert.Empty(t, and.Predicates)
}

func TestAnd_NestedAnd(t *testing.T) {
	// And can contain nested And (though usually flattened)
	nested := And{
		Predicates: []Predicate{
			Equals{Column: "owner", Value: String("ShoppingSteps")},
			And{
				Predicates: []Predicate{
					Equals{Column: "kind", Value: String("step_failed")},
					Equals{Column: "seq", Value: Int(3)},
				},
			},
		},
	}

	assert.Len(t, nested.Predicates, 2)
	assert.IsType(t, And{}, nested.Predicates[1])
}

func TestQuery_SealedInterface(t *testing.T) {
	// Only Select and Join implement Query (sealed interface)
	queries := []Query{
		Select{From: SourceEvents, Columns: []string{"seq"}},
		Join{
			Runs:   Select{From: SourceRuns, Columns: []string{"token"}},
			Events: Select{From: SourceEvents, Columns: []string{"seq"}},
		},
	}

	for _, q := range queries {
		// Type switch is exhaustive - compiler knows all types
		switch q.(type) {
		case Select:
			// OK
		case Join:
			// OK
		default:
			t.Fatal("unexpected query type")
		}
	}
}

func TestPredicate_SealedInterface(t *testing.T) {
	// Only Equals, Param, And implement Predicate (sealed interface)
	predicates := []Predicate{
		Equals{Column: "kind", Value: String("test_finished")},
		Param{Column: "run_token", Name: "run"},
		And{Predicates: []Predicate{}},
	}

	for _, p := range predicates {
		// Type switch is exhaustive - compiler knows all types
		switch p.(type) {
		case Equals:
			// OK
		case Param:
			// OK
		case And:
			// OK
		default:
			t.Fatal("unexpected predicate type")
		}
	}
}

func TestLiteral_SealedInterface(t *testing.T) {
	// Only String and Int implement Literal (sealed interface)
	literals := []Literal{
		String("step_started"),
		Int(42),
	}

	for _, l := range literals {
		switch l.(type) {
		case String:
			// OK
		case Int:
			// OK
		default:
			t.Fatal("unexpected literal type")
		}
	}
}

func TestSelect_PointerVariants(t *testing.T) {
	// Both value and pointer types satisfy Query
	sel := &Select{
		From:    SourceRuns,
		Columns: []string{"token"},
	}

	var q Query = sel
	assert.NotNil(t, q)

	switch q.(type) {
	case *Select:
		// Expected - pointer type
	case Select:
		t.Fatal("expected pointer type, got value type")
	}
}

func TestJoin_PointerVariants(t *testing.T) {
	join := &Join{
		Runs:   Select{From: SourceRuns},
		Events: Select{From: SourceEvents, Columns: []string{"seq"}},
	}

	var q Query = join
	assert.NotNil(t, q)

	switch q.(type) {
	case *Join:
		// Expected - pointer type
	case Join:
		t.Fatal("expected pointer type, got value type")
	}
}

func TestEquals_PointerVariants(t *testing.T) {
	eq := &Equals{
		Column: "kind",
		Value:  String("step_ignored"),
	}

	var p Predicate = eq
	assert.NotNil(t, p)

	switch p.(type) {
	case *Equals:
		// Expected - pointer type
	case Equals:
		t.Fatal("expected pointer type, got value type")
	}
}

func TestParam_PointerVariants(t *testing.T) {
	param := &Param{
		Column: "run_token",
		Name:   "run",
	}

	var p Predicate = param
	assert.NotNil(t, p)

	switch p.(type) {
	case *Param:
		// Expected - pointer type
	case Param:
		t.Fatal("expected pointer type, got value type")
	}
}

func TestAnd_PointerVariants(t *testing.T) {
	and := &And{
		Predicates: []Predicate{
			Equals{Column: "seq", Value: Int(1)},
		},
	}

	var p Predicate = and
	assert.NotNil(t, p)

	switch p.(type) {
	case *And:
		// Expected - pointer type
	case And:
		t.Fatal("expected pointer type, got value type")
	}
}

func TestQuery_MarkerMethodExists(t *testing.T) {
	// Verify the marker method exists and is callable
	sel := Select{From: SourceEvents}
	sel.queryNode()

	join := Join{Runs: Select{From: SourceRuns}, Events: Select{From: SourceEvents}}
	join.queryNode()
}

func TestPredicate_MarkerMethodExists(t *testing.T) {
	// Verify the marker method exists and is callable
	eq := Equals{Column: "kind", Value: String("step_started")}
	eq.predicateNode()

	param := Param{Column: "run_token", Name: "run"}
	param.predicateNode()

	and := And{Predicates: []Predicate{}}
	and.predicateNode()
}

func TestLiteral_MarkerMethodExists(t *testing.T) {
	String("x").literalNode()
	Int(1).literalNode()
}

func TestColumns_SchemaOrder(t *testing.T) {
	assert.Equal(t,
		[]string{"token", "scenario", "status", "executed", "ignored", "failed", "started_at", "finished_at"},
		Columns(SourceRuns))
	assert.Equal(t,
		[]string{"id", "run_token", "seq", "kind", "owner", "step", "display", "error", "tally"},
		Columns(SourceEvents))
}

func TestColumns_UnknownSource(t *testing.T) {
	assert.Nil(t, Columns(Source("tables")))
}

func TestColumns_ReturnsCopy(t *testing.T) {
	first := Columns(SourceRuns)
	first[0] = "mutated"

	second := Columns(SourceRuns)
	assert.Equal(t, "token", second[0])
}

func TestHasColumn(t *testing.T) {
	assert.True(t, HasColumn(SourceRuns, "status"))
	assert.True(t, HasColumn(SourceEvents, "seq"))
	assert.False(t, HasColumn(SourceRuns, "seq"))
	assert.False(t, HasColumn(SourceEvents, "status"))
	assert.False(t, HasColumn(SourceEvents, "count(*)"))
	assert.False(t, HasColumn(Source("tables"), "id"))
}

func TestColumnType(t *testing.T) {
	typ, ok := ColumnType(SourceEvents, "seq")
	assert.True(t, ok)
	assert.Equal(t, TypeInt, typ)

	typ, ok = ColumnType(SourceEvents, "kind")
	assert.True(t, ok)
	assert.Equal(t, TypeText, typ)

	typ, ok = ColumnType(SourceRuns, "executed")
	assert.True(t, ok)
	assert.Equal(t, TypeInt, typ)

	_, ok = ColumnType(SourceRuns, "display")
	assert.False(t, ok)
}

func TestComplexQuery_Construction(t *testing.T) {
	// Trace of one run, failures only
	query := Select{
		From: SourceEvents,
		Filter: And{
			Predicates: []Predicate{
				Param{Column: "run_token", Name: "run"},
				Equals{Column: "kind", Value: String("step_failed")},
			},
		},
		Columns: []string{"seq", "step", "error"},
	}

	assert.Equal(t, SourceEvents, query.From)
	assert.IsType(t, And{}, query.Filter)
	assert.Len(t, query.Columns, 3)

	and := query.Filter.(And)
	assert.Len(t, and.Predicates, 2)
}

func TestComplexQuery_JoinWithFilters(t *testing.T) {
	// Failed-run traces with filters on both sides
	query := Join{
		Runs: Select{
			From:    SourceRuns,
			Filter:  Equals{Column: "status", Value: String("failed")},
			Columns: []string{"scenario"},
		},
		Events: Select{
			From: SourceEvents,
			Filter: And{
				Predicates: []Predicate{
					Equals{Column: "kind", Value: String("step_failed")},
					Equals{Column: "owner", Value: String("ShoppingSteps")},
				},
			},
			Columns: []string{"seq", "step", "error"},
		},
	}

	assert.IsType(t, Equals{}, query.Runs.Filter)
	assert.IsType(t, And{}, query.Events.Filter)
}
