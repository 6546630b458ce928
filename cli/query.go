package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/asaidimu/rowql/core/query"
	"github.com/asaidimu/rowql/core/row"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

type queryOptions struct {
	data    source
	join    source
	sqlite  string
	on      string
	kind    string
	selects []string
	where   []string
	order   []string
	collate string
	limit   int
	offset  int
}

func newQueryCommand(g *globalOptions) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a query over rows loaded from a file or a SQLite database",
		Example: `  rowql query --data products.json --where "size>2" --order size --order value
  rowql query --data users.yaml --join orders.json --on id=user_id --kind left --select name,total
  rowql query --sqlite shop.db --sql "SELECT * FROM products" --order price:descending --limit 5 --format table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer env.logger.Sync()
			defer env.close()

			stage, err := opts.build(cmd.Context(), env.logger)
			if err != nil {
				return err
			}
			return env.run(cmd, stage)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.data.file, "data", "", "JSON or YAML file holding the rows to query")
	f.StringVar(&opts.sqlite, "sqlite", "", "SQLite database used by --sql and --join-sql")
	f.StringVar(&opts.data.sql, "sql", "", "SELECT statement producing the rows to query")
	f.StringVar(&opts.join.file, "join", "", "JSON or YAML file holding the rows to join")
	f.StringVar(&opts.join.sql, "join-sql", "", "SELECT statement producing the rows to join")
	f.StringVar(&opts.on, "on", "", "join fields: \"field\" or \"left=right\"")
	f.StringVar(&opts.kind, "kind", string(query.JoinTypeInner), "join kind: inner, left, right, outer or cross")
	f.StringSliceVar(&opts.selects, "select", []string{query.Wildcard}, "comma separated output paths")
	f.StringArrayVar(&opts.where, "where", nil, "filter such as size>2, name=ada or tags~x; repeatable, all must hold")
	f.StringArrayVar(&opts.order, "order", nil, "order key as path[:ascending|:descending]; repeatable, first has priority")
	f.StringVar(&opts.collate, "collate", "", "language tag used to order string values, e.g. de or sv")
	f.IntVar(&opts.limit, "limit", -1, "keep at most this many rows")
	f.IntVar(&opts.offset, "offset", 0, "skip this many rows")
	return cmd
}

func (o *queryOptions) build(ctx context.Context, logger *zap.Logger) (*query.Stage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := o.data.load(ctx, logger, o.sqlite)
	if err != nil {
		return nil, err
	}

	exprs := make([]any, len(o.selects))
	for i, s := range o.selects {
		exprs[i] = strings.TrimSpace(s)
	}
	stage := query.Select(exprs...).From(data)

	if !o.join.empty() {
		right, err := o.join.load(ctx, logger, o.sqlite)
		if err != nil {
			return nil, err
		}
		stage, err = o.applyJoin(stage, right)
		if err != nil {
			return nil, err
		}
	}

	if len(o.where) > 0 {
		preds := make([]query.Predicate, len(o.where))
		for i, expr := range o.where {
			pred, err := parseWhere(expr)
			if err != nil {
				return nil, err
			}
			preds[i] = pred
		}
		stage = stage.Where(query.And(preds...))
	}

	var tag *language.Tag
	if o.collate != "" {
		t, err := language.Parse(o.collate)
		if err != nil {
			return nil, fmt.Errorf("invalid --collate: %w", err)
		}
		tag = &t
	}
	for _, order := range o.order {
		path, dir, err := parseOrder(order)
		if err != nil {
			return nil, err
		}
		var key any = path
		if tag != nil {
			key = query.Collated(path, *tag)
		}
		stage = stage.OrderBy(key, dir)
	}

	if o.offset != 0 {
		stage = stage.Offset(o.offset)
	}
	if o.limit >= 0 {
		stage = stage.Limit(o.limit)
	}
	return stage, nil
}

func (o *queryOptions) applyJoin(stage *query.Stage, right []row.Row) (*query.Stage, error) {
	kind := query.JoinType(strings.ToLower(o.kind))
	if kind == query.JoinTypeCross {
		return stage.CrossJoin(right), nil
	}
	if o.on == "" {
		return nil, fmt.Errorf("--on is required for a %s join", kind)
	}
	left, rightField, found := strings.Cut(o.on, "=")
	if !found {
		rightField = left
	}
	cond := query.FieldsEqual(strings.TrimSpace(left), strings.TrimSpace(rightField))

	switch kind {
	case query.JoinTypeInner:
		return stage.InnerJoin(right).On(cond), nil
	case query.JoinTypeLeft:
		return stage.LeftJoin(right).On(cond), nil
	case query.JoinTypeRight:
		return stage.RightJoin(right).On(cond), nil
	case query.JoinTypeOuter:
		return stage.OuterJoin(right).On(cond), nil
	}
	return nil, fmt.Errorf("unknown join kind %q", o.kind)
}

// whereOperators is ordered so that two character operators are tried
// before their one character prefixes.
var whereOperators = []struct {
	token string
	op    query.ComparisonOperator
}{
	{"!=", query.ComparisonOperatorNeq},
	{">=", query.ComparisonOperatorGte},
	{"<=", query.ComparisonOperatorLte},
	{"=", query.ComparisonOperatorEq},
	{">", query.ComparisonOperatorGt},
	{"<", query.ComparisonOperatorLt},
	{"~", query.ComparisonOperatorContains},
}

// parseWhere turns "path<op>value" into a predicate. The value stays a
// string; numeric strings compare with numbers by value.
func parseWhere(expr string) (query.Predicate, error) {
	best, bestAt := -1, len(expr)
	for i, candidate := range whereOperators {
		at := strings.Index(expr, candidate.token)
		if at >= 0 && (at < bestAt || (at == bestAt && best >= 0 && len(candidate.token) > len(whereOperators[best].token))) {
			best, bestAt = i, at
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("invalid --where %q: no operator", expr)
	}
	op := whereOperators[best]
	path := strings.TrimSpace(expr[:bestAt])
	value := strings.TrimSpace(expr[bestAt+len(op.token):])
	if path == "" {
		return nil, fmt.Errorf("invalid --where %q: missing field", expr)
	}
	return query.Field(path).Op(op.op, value)
}

// parseOrder splits "path[:direction]". A colon with nothing after it is an
// error rather than the default direction.
func parseOrder(order string) (string, query.Direction, error) {
	path, dir, found := strings.Cut(order, ":")
	if !found {
		return path, query.Ascending, nil
	}
	if dir == "" {
		return "", "", fmt.Errorf("invalid --order %q: missing direction after ':': %w", order, query.ErrInvalidSortDirection)
	}
	return path, query.Direction(dir), nil
}
