package query

import (
	"strings"
	"testing"

	"github.com/asaidimu/rowql/core/row"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject(t *testing.T) {
	input := row.Of(
		"id", "a",
		"user", row.Of("name", "ada"),
		"tags", []any{"x", "y"},
	)
	upper := func(r row.Row) any { return strings.ToUpper(r.Value("id").(string)) }
	length := row.Extractor(func(r row.Row) any { return len(r.Value("tags").([]any)) })

	tests := []struct {
		name     string
		exprs    []any
		expected row.Row
	}{
		{
			name:     "wildcard keeps key order",
			exprs:    []any{"*"},
			expected: input,
		},
		{
			name:     "paths",
			exprs:    []any{"user.name", "tags[1]", "missing.deep"},
			expected: row.Of("user.name", "ada", "tags[1]", "y", "missing.deep", nil),
		},
		{
			name:     "function extractors get positional keys",
			exprs:    []any{"id", upper, length},
			expected: row.Of("id", "a", "$1", "A", "$2", 2),
		},
		{
			name:     "aliases",
			exprs:    []any{As("name", "user.name"), As("loud", upper)},
			expected: row.Of("name", "ada", "loud", "A"),
		},
		{
			name:     "wildcard then path overrides in place",
			exprs:    []any{"*", As("id", upper)},
			expected: row.Of("id", "A", "user", row.Of("name", "ada"), "tags", []any{"x", "y"}),
		},
		{
			name:     "no expressions",
			exprs:    nil,
			expected: row.Row{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := Select(tt.exprs...)
			require.Empty(t, pb.errs)
			assert.Equal(t, tt.expected, project(pb.items, input))
		})
	}
}

func TestCompileProjection_Errors(t *testing.T) {
	var nilExtractor func(row.Row) any

	tests := []struct {
		name string
		expr any
	}{
		{"number", 1},
		{"nil", nil},
		{"wrong func shape", func(r row.Row) bool { return true }},
		{"nil extractor", nilExtractor},
		{"aliased wildcard", As("all", "*")},
		{"alias without name", As("", "id")},
		{"alias of invalid", As("x", 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileProjection(0, tt.expr)
			assert.ErrorIs(t, err, ErrInvalidProjectionExpression)
		})
	}
}
