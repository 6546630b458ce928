package query

import (
	"fmt"

	"github.com/asaidimu/rowql/core/row"
)

// Wildcard selects every field of a row in the row's own key order.
const Wildcard = "*"

func compileProjection(position int, expr any) (ProjectionItem, error) {
	item := ProjectionItem{Expr: expr}
	switch e := expr.(type) {
	case string:
		if e == Wildcard {
			item.Wildcard = true
			return item, nil
		}
		item.Key = e
		item.extract = pathExtractor(e)
	case func(row.Row) any:
		item.Key = positionalKey(position)
		item.extract = e
	case row.Extractor:
		item.Key = positionalKey(position)
		item.extract = e
	case Alias:
		inner, err := compileProjection(position, e.Expr)
		if err != nil {
			return item, err
		}
		if inner.Wildcard || e.Name == "" {
			return item, stageError(NodeProject, position, ErrInvalidProjectionExpression, "alias %q cannot name %v", e.Name, e.Expr)
		}
		item.Key = e.Name
		item.extract = inner.extract
	default:
		return item, stageError(NodeProject, position, ErrInvalidProjectionExpression, "got %T", expr)
	}
	if item.extract == nil {
		return item, stageError(NodeProject, position, ErrInvalidProjectionExpression, "nil extractor")
	}
	return item, nil
}

// positionalKey names the output field of an unaliased extractor function.
func positionalKey(position int) string {
	return fmt.Sprintf("$%d", position)
}

func pathExtractor(expr string) row.Extractor {
	path := row.ParsePath(expr)
	return path.Get
}

// project turns one raw row into an output row. A later field with a key
// already present overrides the value and keeps the earlier position.
func project(items []ProjectionItem, r row.Row) row.Row {
	b := row.NewBuilder(len(items))
	for _, item := range items {
		if item.Wildcard {
			r.Each(func(k string, v any) { b.Set(k, v) })
			continue
		}
		b.Set(item.Key, item.extract(r))
	}
	return b.Row()
}
