package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_EventsSelect(t *testing.T) {
	// Failures of one run: SELECT seq, step, error FROM events WHERE ...
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

	result := Validate(query)

	assert.True(t, result.IsValid, "schema-conforming select should be valid")
	assert.Empty(t, result.Problems, "no problems for a valid query")
}

func TestValidate_RunsSelect(t *testing.T) {
	query := Select{
		From:    SourceRuns,
		Filter:  Equals{Column: "status", Value: String("failed")},
		Columns: []string{"token", "scenario", "started_at"},
	}

	result := Validate(query)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Problems)
}

func TestValidate_PointerQuery(t *testing.T) {
	query := &Select{
		From: SourceEvents,
		Filter: &Equals{
			Column: "kind",
			Value:  String("test_finished"),
		},
		Columns: []string{"seq", "kind"},
	}

	result := Validate(query)

	assert.True(t, result.IsValid, "pointer types should validate")
	assert.Empty(t, result.Problems)
}

func TestValidate_EmptyColumns(t *testing.T) {
	// SELECT * is flagged: output does not survive schema migrations
	query := Select{
		From:    SourceEvents,
		Columns: []string{},
	}

	result := Validate(query)

	assert.False(t, result.IsValid)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "SELECT *")
}

func TestValidate_NilColumns(t *testing.T) {
	query := Select{
		From:    SourceRuns,
		Columns: nil,
	}

	result := Validate(query)

	assert.False(t, result.IsValid)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "empty column list")
}

func TestValidate_UnknownSource(t *testing.T) {
	query := Select{
		From:    Source("tables"),
		Columns: []string{"whatever"},
	}

	result := Validate(query)

	assert.False(t, result.IsValid)
	require.Len(t, result.Problems, 1, "unknown source should not cascade into column problems")
	assert.Contains(t, result.Problems[0], "unknown source")
}

func TestValidate_UnknownProjectionColumn(t *testing.T) {
	query := Select{
		From:    SourceEvents,
		Columns: []string{"seq", "severity"},
	}

	result := Validate(query)

	assert.False(t, result.IsValid)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], `"severity"`)
	assert.Contains(t, result.Problems[0], "does not exist")
}

func TestValidate_UnknownFilterColumn(t *testing.T) {
	query := Select{
		From:    SourceRuns,
		Filter:  Equals{Column: "seq", Value: Int(1)}, // seq lives in events
		Columns: []string{"token"},
	}

	result := Validate(query)

	assert.False(t, result.IsValid)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], `"seq"`)
	assert.Contains(t, result.Problems[0], "runs")
}

func TestValidate_LiteralTypeMismatch(t *testing.T) {
	tests := []struct {
		name   string
		filter Predicate
		want   string
	}{
		{
			name:   "string literal on integer column",
			filter: Equals{Column: "seq", Value: String("3")},
			want:   "holds integers",
		},
		{
			name:   "integer literal on text column",
			filter: Equals{Column: "kind", Value: Int(4)},
			want:   "holds text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := Select{
				From:    SourceEvents,
				Filter:  tt.filter,
				Columns: []string{"seq"},
			}

			result := Validate(query)

			assert.False(t, result.IsValid)
			require.Len(t, result.Problems, 1)
			assert.Contains(t, result.Problems[0], tt.want)
		})
	}
}

func TestValidate_NilLiteral(t *testing.T) {
	query := Select{
		From:    SourceEvents,
		Filter:  Equals{Column: "kind"},
		Columns: []string{"seq"},
	}

	result := Validate(query)

	assert.False(t, result.IsValid)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "no value")
}

func TestValidate_ParamEmptyName(t *testing.T) {
	query := Select{
		From:    SourceEvents,
		Filter:  Param{Column: "run_token"},
		Columns: []string{"seq"},
	}

	result := Validate(query)

	assert.False(t, result.IsValid)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "no name")
}

func TestValidate_EmptyStringLiteral(t *testing.T) {
	// Absence is the empty string; matching it is valid
	query := Select{
		From:    SourceEvents,
		Filter:  Equals{Column: "error", Value: String("")},
		Columns: []string{"seq", "step"},
	}

	result := Validate(query)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Problems)
}

func TestValidate_Join(t *testing.T) {
	query := Join{
		Runs: Select{
			From:    SourceRuns,
			Filter:  Equals{Column: "status", Value: String("failed")},
			Columns: []string{"scenario"},
		},
		Events: Select{
			From:    SourceEvents,
			Columns: []string{"seq", "kind", "step", "error"},
		},
	}

	result := Validate(query)

	assert.True(t, result.IsValid, "runs-events join should be valid")
	assert.Empty(t, result.Problems)
}

func TestValidate_JoinPointer(t *testing.T) {
	query := &Join{
		Runs:   Select{From: SourceRuns, Columns: []string{"token"}},
		Events: Select{From: SourceEvents, Columns: []string{"seq"}},
	}

	result := Validate(query)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Problems)
}

func TestValidate_JoinSidesSwapped(t *testing.T) {
	query := Join{
		Runs:   Select{From: SourceEvents, Columns: []string{"seq"}},
		Events: Select{From: SourceRuns, Columns: []string{"token"}},
	}

	result := Validate(query)

	assert.False(t, result.IsValid)
	require.Len(t, result.Problems, 2)
	assert.Contains(t, result.Problems[0], "runs side")
	assert.Contains(t, result.Problems[1], "events side")
}

func TestValidate_JoinFilterOnlyRunsSide(t *testing.T) {
	// A side may contribute a filter and no columns
	query := Join{
		Runs: Select{
			From:   SourceRuns,
			Filter: Equals{Column: "status", Value: String("failed")},
		},
		Events: Select{
			From:    SourceEvents,
			Columns: []string{"seq", "step", "error"},
		},
	}

	result := Validate(query)

	assert.True(t, result.IsValid, "filter-only join side should be valid")
	assert.Empty(t, result.Problems)
}

func TestValidate_JoinBothSidesEmpty(t *testing.T) {
	query := Join{
		Runs:   Select{From: SourceRuns},
		Events: Select{From: SourceEvents},
	}

	result := Validate(query)

	assert.False(t, result.IsValid)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "SELECT *")
}

func TestValidate_JoinSideColumnsChecked(t *testing.T) {
	// Each side's columns validate against that side's source
	query := Join{
		Runs: Select{
			From:    SourceRuns,
			Columns: []string{"kind"}, // kind lives in events
		},
		Events: Select{
			From:    SourceEvents,
			Columns: []string{"seq"},
		},
	}

	result := Validate(query)

	assert.False(t, result.IsValid)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], `"kind"`)
	assert.Contains(t, result.Problems[0], "runs")
}

func TestValidate_MultipleProblems(t *testing.T) {
	query := Select{
		From: SourceEvents,
		Filter: And{
			Predicates: []Predicate{
				Equals{Column: "severity", Value: String("high")}, // unknown column
				Equals{Column: "seq", Value: String("3")},         // type mismatch
				Param{Column: "run_token"},                        // unnamed parameter
			},
		},
		Columns: nil, // SELECT *
	}

	result := Validate(query)

	assert.False(t, result.IsValid)
	assert.Len(t, result.Problems, 4, "should accumulate every problem")
}

func TestValidate_NilQuery(t *testing.T) {
	result := Validate(nil)

	assert.False(t, result.IsValid)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "nil query")
}

func TestValidate_NilFilter(t *testing.T) {
	// nil filter is valid (no filter = all rows)
	query := Select{
		From:    SourceRuns,
		Filter:  nil,
		Columns: []string{"token", "status"},
	}

	result := Validate(query)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Problems)
}

func TestValidate_EmptyAndPredicate(t *testing.T) {
	// Empty And (vacuous truth) is valid
	query := Select{
		From:    SourceEvents,
		Filter:  And{Predicates: []Predicate{}},
		Columns: []string{"seq"},
	}

	result := Validate(query)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Problems)
}

func TestValidate_DeepNestedAnd(t *testing.T) {
	query := Select{
		From: SourceEvents,
		Filter: And{
			Predicates: []Predicate{
				And{
					Predicates: []Predicate{
						Equals{Column: "owner", Value: String("ShoppingSteps")},
						And{
							Predicates: []Predicate{
								Equals{Column: "kind", Value: String("step_finished")},
								Equals{Column: "seq", Value: Int(2)},
							},
						},
					},
				},
				Param{Column: "run_token", Name: "run"},
			},
		},
		Columns: []string{"seq", "step"},
	}

	result := Validate(query)

	assert.True(t, result.IsValid, "deep nested And is valid")
	assert.Empty(t, result.Problems)
}

func TestValidate_DeepNestedAndWithViolation(t *testing.T) {
	query := Select{
		From: SourceEvents,
		Filter: And{
			Predicates: []Predicate{
				And{
					Predicates: []Predicate{
						And{
							Predicates: []Predicate{
								Equals{Column: "severity", Value: String("high")}, // deep violation
							},
						},
					},
				},
			},
		},
		Columns: []string{"seq"},
	}

	result := Validate(query)

	assert.False(t, result.IsValid, "deep violation should surface")
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], `"severity"`)
}

func TestValidate_Idempotent(t *testing.T) {
	// Validate is pure - calling twice gives the same result
	query := Select{
		From:    SourceEvents,
		Columns: nil, // violation
	}

	result1 := Validate(query)
	result2 := Validate(query)

	assert.Equal(t, result1.IsValid, result2.IsValid)
	assert.Equal(t, result1.Problems, result2.Problems)
}

func TestValidationResult_Fields(t *testing.T) {
	result := ValidationResult{
		IsValid:  false,
		Problems: []string{"problem 1", "problem 2"},
	}

	assert.False(t, result.IsValid)
	assert.Len(t, result.Problems, 2)
	assert.Equal(t, "problem 1", result.Problems[0])
	assert.Equal(t, "problem 2", result.Problems[1])
}
