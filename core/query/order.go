package query

import (
	"slices"
	"sort"

	"github.com/asaidimu/rowql/core/row"
)

func compileOrderKey(position int, key any, dir Direction) (OrderKey, error) {
	k := OrderKey{Key: key, Direction: dir}
	if dir != "" && dir != Ascending && dir != Descending {
		return k, stageError(NodeOrderBy, position, ErrInvalidSortDirection, "direction %q", dir)
	}

	switch v := key.(type) {
	case string:
		path := row.ParsePath(v)
		k.compare = byExtractor(path.Get)
	case func(row.Row) any:
		k.compare = byExtractor(v)
	case row.Extractor:
		k.compare = byExtractor(v)
	case func(a, b row.Row) int:
		k.compare = v
	case Comparator:
		k.compare = v
	}
	if k.compare == nil {
		return k, stageError(NodeOrderBy, position, ErrInvalidOrderKeySpecification, "got %T", key)
	}
	return k, nil
}

func byExtractor(extract func(row.Row) any) Comparator {
	if extract == nil {
		return nil
	}
	return func(a, b row.Row) int {
		return row.Compare(extract(a), extract(b))
	}
}

// sortRows returns a stably sorted copy of rows. The first key that tells
// two rows apart decides their order.
func sortRows(rows []row.Row, keys []OrderKey) []row.Row {
	sorted := slices.Clone(rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return compareRows(sorted[i], sorted[j], keys) < 0
	})
	return sorted
}

func compareRows(a, b row.Row, keys []OrderKey) int {
	for _, k := range keys {
		c := k.compare(a, b)
		if c == 0 {
			continue
		}
		if k.Direction == Descending {
			return -c
		}
		return c
	}
	return 0
}
