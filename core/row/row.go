// Package row defines the record model shared by every stage of the query
// pipeline: an ordered, string-keyed mapping of arbitrary values, plus the
// helpers used to address and compare the values stored in it.
package row

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
)

// Row is a single record. Keys keep the order in which they were first set,
// which is the order a wildcard projection expands them in.
//
// A Row is treated as an immutable value once built: every method that
// "changes" a row returns a new one. The zero Row is an empty row.
type Row struct {
	keys   []string
	values map[string]any
}

// Pair is one key/value entry of a Row.
type Pair struct {
	Key   string
	Value any
}

// Extractor pulls a single value out of a row.
type Extractor func(r Row) any

// New builds a row from pairs, in order. A repeated key overwrites the earlier
// value but keeps its first position.
func New(pairs ...Pair) Row {
	b := NewBuilder(len(pairs))
	for _, p := range pairs {
		b.Set(p.Key, p.Value)
	}
	return b.Row()
}

// Of builds a row from alternating keys and values:
//
//	row.Of("id", "a", "size", 3)
//
// It panics if the arguments are not key/value pairs with string keys, which
// makes it suited to literals in code and tests.
func Of(kv ...any) Row {
	if len(kv)%2 != 0 {
		panic(fmt.Sprintf("row.Of: odd number of arguments (%d)", len(kv)))
	}
	b := NewBuilder(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("row.Of: key at position %d is %T, not string", i, kv[i]))
		}
		b.Set(key, kv[i+1])
	}
	return b.Row()
}

// FromMap converts a plain map into a row. Go maps carry no order, so keys are
// sorted to keep the result deterministic.
func FromMap(m map[string]any) Row {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := NewBuilder(len(keys))
	for _, k := range keys {
		b.Set(k, m[k])
	}
	return b.Row()
}

// FromMaps converts each map with FromMap.
func FromMaps(ms []map[string]any) []Row {
	rows := make([]Row, len(ms))
	for i, m := range ms {
		rows[i] = FromMap(m)
	}
	return rows
}

// Merge combines two rows: every field of left in left's order, followed by
// the fields of right. On a key collision the right-hand value wins and the
// key stays where left put it.
func Merge(left, right Row) Row {
	b := NewBuilder(left.Len() + right.Len())
	left.Each(func(k string, v any) { b.Set(k, v) })
	right.Each(func(k string, v any) { b.Set(k, v) })
	return b.Row()
}

// Len returns the number of fields.
func (r Row) Len() int {
	return len(r.keys)
}

// Keys returns the field names in order.
func (r Row) Keys() []string {
	return slices.Clone(r.keys)
}

// Values returns the field values in key order. This is the positional form
// of a row.
func (r Row) Values() []any {
	values := make([]any, len(r.keys))
	for i, k := range r.keys {
		values[i] = r.values[k]
	}
	return values
}

// Get returns the value stored under key and whether the key is present.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value stored under key, or nil.
func (r Row) Value(key string) any {
	return r.values[key]
}

// Has reports whether key is present.
func (r Row) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Each calls fn for every field in order.
func (r Row) Each(fn func(key string, value any)) {
	for _, k := range r.keys {
		fn(k, r.values[k])
	}
}

// With returns a copy of the row with key set to value.
func (r Row) With(key string, value any) Row {
	b := NewBuilder(r.Len() + 1)
	r.Each(func(k string, v any) { b.Set(k, v) })
	b.Set(key, value)
	return b.Row()
}

// Map returns the fields as a plain map. Order is lost.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		m[k] = r.values[k]
	}
	return m
}

// Equal reports whether both rows hold the same keys in the same order with
// deeply equal values.
func (r Row) Equal(other Row) bool {
	if !slices.Equal(r.keys, other.keys) {
		return false
	}
	for _, k := range r.keys {
		if !reflect.DeepEqual(r.values[k], other.values[k]) {
			return false
		}
	}
	return true
}

// String renders the row as {k: v, ...} in key order.
func (r Row) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", k, r.values[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

// Builder assembles a row field by field. It is the only way to grow a row in
// place; once Row is called the builder must not be reused.
type Builder struct {
	row Row
}

// NewBuilder returns a builder sized for capacity fields.
func NewBuilder(capacity int) *Builder {
	b := &Builder{}
	if capacity > 0 {
		b.row.keys = make([]string, 0, capacity)
		b.row.values = make(map[string]any, capacity)
	}
	return b
}

// Set stores value under key. A new key is appended; an existing key keeps
// its position and takes the new value.
func (b *Builder) Set(key string, value any) *Builder {
	if b.row.values == nil {
		b.row.values = make(map[string]any)
	}
	if _, exists := b.row.values[key]; !exists {
		b.row.keys = append(b.row.keys, key)
	}
	b.row.values[key] = value
	return b
}

// Row returns the assembled row.
func (b *Builder) Row() Row {
	r := b.row
	if len(r.keys) == 0 {
		return Row{}
	}
	b.row = Row{}
	return r
}
