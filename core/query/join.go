package query

import (
	"github.com/asaidimu/rowql/core/row"
)

// noMatch stands in for a join condition that was never installed.
func noMatch(row.Row, row.Row) bool { return false }

// joinRows combines the accumulated left rows with the right rows. Every
// emitted pair is merged with right-hand fields taking precedence.
func joinRows(kind JoinType, left, right []row.Row, cond JoinCondition) []row.Row {
	if cond == nil {
		cond = noMatch
	}

	switch kind {
	case JoinTypeCross:
		out := make([]row.Row, 0, len(left)*len(right))
		for _, l := range left {
			for _, r := range right {
				out = append(out, row.Merge(l, r))
			}
		}
		return out
	case JoinTypeRight:
		return rightJoin(left, right, cond)
	case JoinTypeOuter:
		out := leftJoin(left, right, cond, true)
		return append(out, unmatchedRight(left, right, cond)...)
	case JoinTypeLeft:
		return leftJoin(left, right, cond, true)
	default:
		return leftJoin(left, right, cond, false)
	}
}

// leftJoin drives the join from the left rows. With keepUnmatched a left
// row that matches nothing is emitted unchanged.
func leftJoin(left, right []row.Row, cond JoinCondition, keepUnmatched bool) []row.Row {
	var out []row.Row
	for _, l := range left {
		matched := false
		for _, r := range right {
			if cond(l, r) {
				out = append(out, row.Merge(l, r))
				matched = true
			}
		}
		if !matched && keepUnmatched {
			out = append(out, l)
		}
	}
	return out
}

// rightJoin drives the join from the right rows. Merged rows still put the
// left fields first.
func rightJoin(left, right []row.Row, cond JoinCondition) []row.Row {
	var out []row.Row
	for _, r := range right {
		matched := false
		for _, l := range left {
			if cond(l, r) {
				out = append(out, row.Merge(l, r))
				matched = true
			}
		}
		if !matched {
			out = append(out, r)
		}
	}
	return out
}

// unmatchedRight rescans left for every right row and returns the right rows
// that no left row satisfies.
func unmatchedRight(left, right []row.Row, cond JoinCondition) []row.Row {
	var out []row.Row
	for _, r := range right {
		matched := false
		for _, l := range left {
			if cond(l, r) {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, r)
		}
	}
	return out
}
