package query

import (
	"context"
	"slices"
	"strings"

	"github.com/asaidimu/rowql/core/row"
	"go.uber.org/multierr"
)

// ProjectionBuilder holds the output expressions captured by Select until a
// source is bound with From.
type ProjectionBuilder struct {
	items []ProjectionItem
	errs  []error
}

// Select starts a pipeline. Each expression is a path string, the wildcard
// "*", an extractor function (func(row.Row) any or row.Extractor) or an
// Alias. Unsupported shapes are reported when the pipeline is evaluated.
//
//	rows, err := query.Select("value", "size").
//		From(data).
//		Where(func(r row.Row) bool { return r.Value("size").(int) > 2 }).
//		OrderBy("size").
//		Eval()
func Select(exprs ...any) *ProjectionBuilder {
	pb := &ProjectionBuilder{items: make([]ProjectionItem, 0, len(exprs))}
	for i, expr := range exprs {
		item, err := compileProjection(i, expr)
		if err != nil {
			pb.errs = append(pb.errs, err)
			continue
		}
		pb.items = append(pb.items, item)
	}
	return pb
}

// From binds the rows the pipeline reads. The slice and its rows are never
// modified.
func (pb *ProjectionBuilder) From(rows []row.Row) *Stage {
	return &Stage{
		node: &Node{Kind: NodeSource, Rows: rows},
		projection: &Node{
			Kind:       NodeProject,
			Projection: pb.items,
			errs:       pb.errs,
		},
	}
}

// Stage is one step of a pipeline. Every method returns a new Stage that
// wraps the receiver; the receiver stays valid and can be evaluated or
// extended independently.
type Stage struct {
	node       *Node
	projection *Node
}

func (s *Stage) chain(n *Node) *Stage {
	n.Input = s.node
	return &Stage{node: n, projection: s.projection}
}

// Where keeps the rows for which cond returns true. cond must be a
// func(row.Row) bool or a Predicate.
func (s *Stage) Where(cond any) *Stage {
	n := &Node{Kind: NodeFilter}
	switch c := cond.(type) {
	case Predicate:
		n.Predicate = c
	case func(row.Row) bool:
		n.Predicate = c
	default:
		n.errs = []error{stageError(NodeFilter, 0, ErrUnsupportedConditionType, "got %T", cond)}
	}
	if n.Predicate == nil && n.errs == nil {
		n.errs = []error{stageError(NodeFilter, 0, ErrUnsupportedConditionType, "nil predicate")}
	}
	return s.chain(n)
}

// OrderBy sorts the rows by key. Called on a stage that is itself an
// ordering, it appends key as a lower priority tie-break. key is a path
// string, an extractor (func(row.Row) any or row.Extractor) or a comparator
// (func(a, b row.Row) int or Comparator). The direction defaults to
// Ascending.
func (s *Stage) OrderBy(key any, direction ...Direction) *Stage {
	n := &Node{Kind: NodeOrderBy}
	input := s.node
	if input.Kind == NodeOrderBy {
		n.Keys = slices.Clone(input.Keys)
		n.errs = slices.Clone(input.errs)
		input = input.Input
	}

	position := len(n.Keys)
	dir := Direction("")
	if len(direction) > 0 {
		dir = direction[0]
	}
	k, err := compileOrderKey(position, key, dir)
	if err != nil {
		n.errs = append(n.errs, err)
	}
	n.Keys = append(n.Keys, k)

	n.Input = input
	return &Stage{node: n, projection: s.projection}
}

// Join starts an inner join with rows. It is the same as InnerJoin.
//
// Every join takes as its left side whatever the stage it is called on
// produces, so a join attached after Where, OrderBy, Limit or Offset applies
// to their output, not to the raw source. Joins chained one after another
// fold left to right.
func (s *Stage) Join(rows []row.Row) *JoinBuilder {
	return s.join(JoinTypeInner, rows)
}

// InnerJoin emits a merged row for every matching pair of rows.
func (s *Stage) InnerJoin(rows []row.Row) *JoinBuilder {
	return s.join(JoinTypeInner, rows)
}

// LeftJoin is like InnerJoin but also keeps left rows that match nothing.
func (s *Stage) LeftJoin(rows []row.Row) *JoinBuilder {
	return s.join(JoinTypeLeft, rows)
}

// RightJoin is driven by rows: every right row is merged with each left row
// it matches, or kept unchanged when it matches none.
func (s *Stage) RightJoin(rows []row.Row) *JoinBuilder {
	return s.join(JoinTypeRight, rows)
}

// OuterJoin emits the left join followed by the right rows that match no
// left row.
func (s *Stage) OuterJoin(rows []row.Row) *JoinBuilder {
	return s.join(JoinTypeOuter, rows)
}

// CrossJoin merges every row with every row of rows. It needs no condition.
func (s *Stage) CrossJoin(rows []row.Row) *Stage {
	return s.chain(&Node{Kind: NodeJoin, Join: JoinTypeCross, Rows: rows})
}

func (s *Stage) join(kind JoinType, rows []row.Row) *JoinBuilder {
	return &JoinBuilder{
		parent: s,
		node:   &Node{Kind: NodeJoin, Join: kind, Rows: rows},
	}
}

// Limit keeps at most n rows.
func (s *Stage) Limit(n int) *Stage {
	return s.paginate(PageLimit, n)
}

// Offset drops the first n rows.
func (s *Stage) Offset(n int) *Stage {
	return s.paginate(PageOffset, n)
}

func (s *Stage) paginate(kind PageKind, count int) *Stage {
	n := &Node{Kind: NodePaginate, Page: Page{Kind: kind, N: count}}
	if count < 0 {
		n.errs = []error{stageError(NodePaginate, 0, ErrInvalidPaginationArgument, "%s must not be negative, got %d", kind, count)}
	}
	return s.chain(n)
}

// Eval materializes the pipeline with the default evaluator.
func (s *Stage) Eval() ([]row.Row, error) {
	return s.EvalContext(context.Background())
}

// EvalContext materializes the pipeline with the default evaluator,
// aborting if ctx is cancelled between stages.
func (s *Stage) EvalContext(ctx context.Context) ([]row.Row, error) {
	return defaultEvaluator.Evaluate(ctx, s)
}

// Plan returns the plan tree rooted at the projection.
func (s *Stage) Plan() *Node {
	p := *s.projection
	p.Input = s.node
	return &p
}

// Validate reports every configuration error recorded anywhere in the
// pipeline, combined into one error, or nil.
func (s *Stage) Validate() error {
	return validatePlan(s.Plan())
}

// Joins returns the join nodes of the pipeline in the order they apply.
func (s *Stage) Joins() []*Node {
	var joins []*Node
	for n := s.node; n != nil; n = n.Input {
		if n.Kind == NodeJoin {
			joins = append(joins, n)
		}
	}
	slices.Reverse(joins)
	return joins
}

// Explain renders the plan one node per step, source first.
func (s *Stage) Explain() string {
	return explainPlan(s.Plan())
}

func (s *Stage) String() string {
	return s.Explain()
}

// JoinBuilder is a join waiting for its condition. Until On is called the
// join matches nothing.
type JoinBuilder struct {
	parent *Stage
	node   *Node
}

// On installs the join condition and returns the joined stage. cond must be
// a func(left, right row.Row) bool or a JoinCondition.
func (jb *JoinBuilder) On(cond any) *Stage {
	n := *jb.node
	switch c := cond.(type) {
	case JoinCondition:
		n.Condition = c
	case func(left, right row.Row) bool:
		n.Condition = c
	default:
		n.errs = []error{stageError(NodeJoin, 0, ErrUnsupportedConditionType, "got %T", cond)}
	}
	if n.Condition == nil && n.errs == nil {
		n.errs = []error{stageError(NodeJoin, 0, ErrUnsupportedConditionType, "nil join condition")}
	}
	return jb.parent.chain(&n)
}

// Stage returns the joined stage without a condition, so the join matches
// nothing.
func (jb *JoinBuilder) Stage() *Stage {
	n := *jb.node
	return jb.parent.chain(&n)
}

// Plan returns the plan of the unconditioned join.
func (jb *JoinBuilder) Plan() *Node {
	return jb.Stage().Plan()
}

// Eval materializes the pipeline with the unconditioned join.
func (jb *JoinBuilder) Eval() ([]row.Row, error) {
	return jb.Stage().Eval()
}

// EvalContext materializes the pipeline with the unconditioned join.
func (jb *JoinBuilder) EvalContext(ctx context.Context) ([]row.Row, error) {
	return jb.Stage().EvalContext(ctx)
}

func validatePlan(root *Node) error {
	var nodes []*Node
	for n := root; n != nil; n = n.Input {
		nodes = append(nodes, n)
	}
	var err error
	for i := len(nodes) - 1; i >= 0; i-- {
		err = multierr.Append(err, multierr.Combine(nodes[i].errs...))
	}
	return err
}

func explainPlan(root *Node) string {
	var steps []string
	for n := root; n != nil; n = n.Input {
		steps = append(steps, n.describe())
	}
	slices.Reverse(steps)
	return strings.Join(steps, " | ")
}
