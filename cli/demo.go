package cli

import (
	"github.com/asaidimu/rowql/core/query"
	"github.com/asaidimu/rowql/core/row"
	"github.com/spf13/cobra"
)

// demoRows is the sample data the demo command queries.
func demoRows() []row.Row {
	return []row.Row{
		row.Of("value", "a", "size", 3),
		row.Of("value", "b", "size", 2),
		row.Of("value", "d", "size", 4),
		row.Of("value", "c", "size", 4),
	}
}

// demoStage selects value and size for every row larger than 2, ordered by
// size and then by value.
func demoStage() *query.Stage {
	bySize := func(a, b row.Row) int {
		return row.Compare(a.Value("size"), b.Value("size"))
	}
	return query.Select("value", "size").
		From(demoRows()).
		Where(query.Field("size").Gt(2)).
		OrderBy(bySize).
		OrderBy("value")
}

func newDemoCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a sample query over built-in rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer env.logger.Sync()
			defer env.close()

			return env.run(cmd, demoStage())
		},
	}
}
