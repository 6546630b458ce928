package row

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	early := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	tests := []struct {
		name     string
		a, b     any
		expected int
	}{
		{"ints less", 1, 2, -1},
		{"ints greater", 3, 2, 1},
		{"ints equal", 2, 2, 0},
		{"mixed numeric kinds", int64(2), 1.5, 1},
		{"int64 beyond float precision", int64(1<<53 + 1), int64(1 << 53), 1},
		{"uint64 beyond float precision", uint64(1 << 53), uint64(1<<53 + 1), -1},
		{"max uint64 vs max uint64 minus one", uint64(1<<64 - 1), uint64(1<<64 - 2), 1},
		{"negative int vs uint", int8(-1), uint64(1<<64 - 1), -1},
		{"uint vs int", uint(1<<53 + 1), int64(1 << 53), 1},
		{"int kinds mixed", int32(7), int64(7), 0},
		{"large uint vs decimal", uint64(1<<63 + 1), decimal.RequireFromString("9223372036854775808"), 1},
		{"uint and float", uint8(1), float32(1), 0},
		{"strings", "a", "b", -1},
		{"strings equal", "b", "b", 0},
		{"bools", false, true, -1},
		{"bools reversed", true, false, 1},
		{"times", late, early, 1},
		{"decimal vs decimal", decimal.NewFromFloat(1.10), decimal.NewFromFloat(1.2), -1},
		{"decimal vs int", decimal.NewFromInt(3), 2, 1},
		{"int vs decimal", 2, decimal.RequireFromString("2.0"), 0},
		{"nil left", nil, 1, 0},
		{"nil right", "a", nil, 0},
		{"string vs number", "10", 9, 0},
		{"decimal vs string", decimal.NewFromInt(1), "1", 0},
		{"unsupported", []int{1}, []int{2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Compare(tt.a, tt.b))
		})
	}
}
