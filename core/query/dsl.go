// Package query defines the plan that the fluent pipeline builder produces.
// A plan is a tree of Nodes, each a tagged variant naming one operator
// (source, filter, ordering, join, pagination, projection) and the child it
// consumes. Building a plan records configuration only; an Evaluator walks
// the tree to materialize rows.
package query

import (
	"fmt"
	"strings"

	"github.com/asaidimu/rowql/core/row"
)

// NodeKind identifies the operator a plan node applies.
type NodeKind int

// Supported node kinds.
const (
	NodeSource NodeKind = iota
	NodeFilter
	NodeOrderBy
	NodeJoin
	NodePaginate
	NodeProject
)

var nodeKindNames = map[NodeKind]string{
	NodeSource:   "source",
	NodeFilter:   "filter",
	NodeOrderBy:  "orderBy",
	NodeJoin:     "join",
	NodePaginate: "paginate",
	NodeProject:  "select",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Direction specifies the direction of an order key.
type Direction string

// Supported sort directions. The zero value means the caller gave none and
// sorts ascending.
const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// JoinType specifies how a join combines its two inputs.
type JoinType string

// Supported join types.
const (
	JoinTypeInner JoinType = "inner"
	JoinTypeLeft  JoinType = "left"
	JoinTypeRight JoinType = "right"
	JoinTypeOuter JoinType = "outer"
	JoinTypeCross JoinType = "cross"
)

// PageKind specifies which pagination operation a node applies.
type PageKind string

// Supported pagination operations.
const (
	PageOffset PageKind = "offset"
	PageLimit  PageKind = "limit"
)

// Predicate decides whether a row passes a filter.
type Predicate func(r row.Row) bool

// JoinCondition decides whether a left row and a right row match.
type JoinCondition func(left, right row.Row) bool

// Comparator orders two rows and returns a negative, zero or positive value.
type Comparator func(a, b row.Row) int

// OrderKey is one key of an ordering node.
type OrderKey struct {
	Key       any       // The key as given: a path string, an extractor or a comparator.
	Direction Direction // Ascending unless set to Descending.
	compare   Comparator
}

// Page is the configuration of a pagination node.
type Page struct {
	Kind PageKind
	N    int
}

// ProjectionItem is one requested output expression.
type ProjectionItem struct {
	Expr     any    // The expression as given to Select.
	Key      string // The output key; empty for the wildcard.
	Wildcard bool
	extract  row.Extractor
}

// Alias names the output field of a projected expression.
type Alias struct {
	Name string
	Expr any
}

// As returns an aliased projection expression. expr may be a path string or
// an extractor function.
func As(name string, expr any) Alias {
	return Alias{Name: name, Expr: expr}
}

// Node is one operator of a query plan. Only the fields relevant to Kind are
// set. A node never changes once another node has been chained from it.
type Node struct {
	Kind  NodeKind
	Input *Node // The node this one consumes; nil for NodeSource.

	Rows       []row.Row        // NodeSource: the bound rows. NodeJoin: the right-hand rows.
	Predicate  Predicate        // NodeFilter.
	Keys       []OrderKey       // NodeOrderBy, highest priority first.
	Join       JoinType         // NodeJoin.
	Condition  JoinCondition    // NodeJoin; nil matches nothing.
	Page       Page             // NodePaginate.
	Projection []ProjectionItem // NodeProject.

	errs []error
}

// Errors returns the configuration errors recorded on this node alone.
func (n *Node) Errors() []error {
	return n.errs
}

// describe renders a single node for Explain.
func (n *Node) describe() string {
	switch n.Kind {
	case NodeSource:
		return fmt.Sprintf("SOURCE rows=%d", len(n.Rows))
	case NodeFilter:
		return "WHERE predicate"
	case NodeOrderBy:
		keys := make([]string, len(n.Keys))
		for i, k := range n.Keys {
			dir := "asc"
			if k.Direction == Descending {
				dir = "desc"
			}
			keys[i] = describeExpr(k.Key) + " " + dir
		}
		return "ORDER BY " + strings.Join(keys, ", ")
	case NodeJoin:
		kind := strings.ToUpper(string(n.Join)) + " JOIN"
		if n.Join == JoinTypeCross {
			return fmt.Sprintf("%s rows=%d", kind, len(n.Rows))
		}
		on := "unset"
		if n.Condition != nil {
			on = "set"
		}
		return fmt.Sprintf("%s rows=%d on=%s", kind, len(n.Rows), on)
	case NodePaginate:
		return fmt.Sprintf("%s %d", strings.ToUpper(string(n.Page.Kind)), n.Page.N)
	case NodeProject:
		exprs := make([]string, len(n.Projection))
		for i, item := range n.Projection {
			if item.Wildcard {
				exprs[i] = "*"
			} else {
				exprs[i] = item.Key
			}
		}
		return "SELECT " + strings.Join(exprs, ", ")
	}
	return n.Kind.String()
}

func describeExpr(expr any) string {
	switch e := expr.(type) {
	case string:
		return e
	case Alias:
		return e.Name
	case func(row.Row) any, row.Extractor:
		return "<extractor>"
	case func(a, b row.Row) int, Comparator:
		return "<comparator>"
	}
	return fmt.Sprintf("<%T>", expr)
}
