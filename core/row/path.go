package row

import (
	"reflect"
	"strconv"
	"strings"
)

// Path is a parsed field address such as `user.tags[0]` or `meta["created"]`.
type Path []string

// ParsePath splits a path expression on `.`, `[`, `]`, `'` and `"`, dropping
// empty pieces. An empty expression yields an empty path, which addresses the
// row itself.
func ParsePath(expr string) Path {
	return strings.FieldsFunc(expr, isPathSeparator)
}

func isPathSeparator(c rune) bool {
	switch c {
	case '.', '[', ']', '\'', '"':
		return true
	}
	return false
}

// Get indexes into r one piece at a time. A missing or non-indexable
// intermediate value yields nil.
func (p Path) Get(r Row) any {
	var current any = r
	for _, piece := range p {
		if current == nil {
			return nil
		}
		current = index(current, piece)
	}
	return current
}

// String joins the pieces back with dots.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Extract is ParsePath(expr).Get(r).
func Extract(r Row, expr string) any {
	return ParsePath(expr).Get(r)
}

func index(container any, piece string) any {
	switch c := container.(type) {
	case Row:
		return c.Value(piece)
	case map[string]any:
		return c[piece]
	case []any:
		i, err := strconv.Atoi(piece)
		if err != nil || i < 0 || i >= len(c) {
			return nil
		}
		return c[i]
	case []Row:
		i, err := strconv.Atoi(piece)
		if err != nil || i < 0 || i >= len(c) {
			return nil
		}
		return c[i]
	}
	return indexReflect(reflect.ValueOf(container), piece)
}

func indexReflect(v reflect.Value, piece string) any {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil
		}
		found := v.MapIndex(reflect.ValueOf(piece).Convert(v.Type().Key()))
		if !found.IsValid() {
			return nil
		}
		return found.Interface()
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(piece)
		if err != nil || i < 0 || i >= v.Len() {
			return nil
		}
		return v.Index(i).Interface()
	}
	return nil
}
