package row

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		expr     string
		expected Path
	}{
		{"size", Path{"size"}},
		{"user.name", Path{"user", "name"}},
		{"tags[0]", Path{"tags", "0"}},
		{`meta["created"].at`, Path{"meta", "created", "at"}},
		{"meta['created']", Path{"meta", "created"}},
		{"a..b", Path{"a", "b"}},
		{"", Path{}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, []string(tt.expected), []string(ParsePath(tt.expr)))
		})
	}
}

func TestPath_Get(t *testing.T) {
	r := Of(
		"id", "a",
		"user", Of("name", "ada", "langs", []any{"go", "js"}),
		"meta", map[string]any{"created": "2020"},
		"scores", []int{7, 8},
		"typed", map[string]int{"n": 4},
		"nothing", nil,
	)

	tests := []struct {
		expr     string
		expected any
	}{
		{"id", "a"},
		{"user.name", "ada"},
		{"user.langs[1]", "js"},
		{"user.langs[5]", nil},
		{"user.langs[x]", nil},
		{"meta['created']", "2020"},
		{"scores[0]", 7},
		{"typed.n", 4},
		{"missing", nil},
		{"missing.deeper.still", nil},
		{"nothing.deeper", nil},
		{"id.length", nil},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParsePath(tt.expr).Get(r))
			assert.Equal(t, tt.expected, Extract(r, tt.expr))
		})
	}
}

func TestPath_EmptyAddressesRow(t *testing.T) {
	r := Of("a", 1)
	assert.Equal(t, r, ParsePath("").Get(r))
}

func TestPath_String(t *testing.T) {
	assert.Equal(t, "meta.created", ParsePath(`meta["created"]`).String())
}
