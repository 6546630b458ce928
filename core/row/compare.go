package row

import (
	"cmp"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Compare orders two extracted values naturally and returns -1, 0 or +1.
//
// Numbers of any Go numeric kind compare by value, as do decimal.Decimal
// values. Two integers compare exactly, without a detour through float64. Strings compare lexicographically, booleans as false < true and
// times chronologically. Nil, mismatched or otherwise incomparable values
// compare as equal so that the next order key decides.
func Compare(a, b any) int {
	if a == nil || b == nil {
		return 0
	}

	if da, ok := a.(decimal.Decimal); ok {
		if db, ok := toDecimal(b); ok {
			return da.Cmp(db)
		}
		return 0
	}
	if db, ok := b.(decimal.Decimal); ok {
		if da, ok := toDecimal(a); ok {
			return da.Cmp(db)
		}
		return 0
	}

	if c, ok := compareIntegers(a, b); ok {
		return c
	}

	if fa, ok := toNumber(a); ok {
		if fb, ok := toNumber(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
		}
		return 0
	}

	switch va := a.(type) {
	case string:
		if vb, ok := b.(string); ok {
			return strings.Compare(va, vb)
		}
	case bool:
		if vb, ok := b.(bool); ok {
			switch {
			case !va && vb:
				return -1
			case va && !vb:
				return 1
			}
		}
	case time.Time:
		if vb, ok := b.(time.Time); ok {
			return va.Compare(vb)
		}
	}
	return 0
}

// compareIntegers orders two values of integer kinds. ok is false unless
// both are integers.
func compareIntegers(a, b any) (int, bool) {
	ia, aSigned := toInt64(a)
	ua, aUnsigned := toUint64(a)
	ib, bSigned := toInt64(b)
	ub, bUnsigned := toUint64(b)

	switch {
	case aSigned && bSigned:
		return cmp.Compare(ia, ib), true
	case aUnsigned && bUnsigned:
		return cmp.Compare(ua, ub), true
	case aSigned && bUnsigned:
		if ia < 0 {
			return -1, true
		}
		return cmp.Compare(uint64(ia), ub), true
	case aUnsigned && bSigned:
		if ib < 0 {
			return 1, true
		}
		return cmp.Compare(ua, uint64(ib)), true
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	}
	return 0, false
}

// toNumber converts Go numeric kinds to float64. Strings are not parsed, so
// "10" and 9 are incomparable.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	}
	if i, ok := toInt64(v); ok {
		return decimal.NewFromInt(i), true
	}
	if u, ok := toUint64(v); ok {
		return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0), true
	}
	if f, ok := toNumber(v); ok {
		return decimal.NewFromFloat(f), true
	}
	return decimal.Decimal{}, false
}
