package query

import (
	"sync"

	"github.com/asaidimu/rowql/core/row"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collated returns an order key that compares the strings at path using the
// collation rules of tag, e.g. so that "é" sorts next to "e" in French.
// Values that are not strings fall back to natural ordering.
//
//	query.Select("*").From(rows).OrderBy(query.Collated("name", language.French))
func Collated(path string, tag language.Tag, opts ...collate.Option) Comparator {
	p := row.ParsePath(path)
	c := collate.New(tag, opts...)
	var mu sync.Mutex

	return func(a, b row.Row) int {
		va, vb := p.Get(a), p.Get(b)
		sa, okA := va.(string)
		sb, okB := vb.(string)
		if !okA || !okB {
			return row.Compare(va, vb)
		}
		// A Collator keeps scratch buffers and must not be shared.
		mu.Lock()
		defer mu.Unlock()
		return c.CompareString(sa, sb)
	}
}
