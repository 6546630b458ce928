// Package cli implements the rowql command line: it loads rows from files or
// SQLite, runs them through a query pipeline built from flags and prints the
// result as JSON or a table.
package cli

import (
	"context"
	"os"

	"github.com/asaidimu/rowql/core/query"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type globalOptions struct {
	configPath string
	format     string
	logLevel   string
	maxRows    int
}

// environment is what a command needs once flags and config are resolved.
type environment struct {
	config    Config
	logger    *zap.Logger
	evaluator *query.Evaluator
}

// setup merges the config file with the flags the user actually set and
// builds the logger and evaluator.
func (g *globalOptions) setup(cmd *cobra.Command) (*environment, error) {
	cfg, err := LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = g.format
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if flags.Changed("max-rows") {
		cfg.MaxRows = g.maxRows
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}
	evaluator, err := query.NewEvaluator(query.WithLogger(logger), query.WithMaxRows(cfg.MaxRows))
	if err != nil {
		return nil, err
	}
	_, err = evaluator.Subscribe(query.EvaluateSuccess, func(ctx context.Context, ev query.EvaluationEvent) error {
		var duration int64
		if ev.Duration != nil {
			duration = *ev.Duration
		}
		logger.Info("Query evaluated",
			zap.String("run", ev.RunID),
			zap.String("plan", ev.Plan),
			zap.Int("rows", ev.Rows),
			zap.Int64("duration_ms", duration))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &environment{config: cfg, logger: logger, evaluator: evaluator}, nil
}

// close releases the evaluator, logging rather than failing the command.
func (env *environment) close() {
	if err := env.evaluator.Close(); err != nil {
		env.logger.Warn("Failed to close evaluator", zap.Error(err))
	}
}

// run evaluates stage and prints the rows to the command's output.
func (env *environment) run(cmd *cobra.Command, stage *query.Stage) error {
	env.logger.Debug("Running query", zap.String("plan", stage.Explain()))
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := env.evaluator.Evaluate(ctx, stage)
	if err != nil {
		return err
	}
	return writeRows(cmd.OutOrStdout(), rows, env.config.Format)
}

// NewRootCommand builds the rowql command tree.
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:           "rowql",
		Short:         "Query in-memory rows with select, where, order by, joins and pagination",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML config file with log_level, format and max_rows")
	pf.StringVar(&g.format, "format", FormatJSON, "output format: json or table")
	pf.StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	pf.IntVar(&g.maxRows, "max-rows", 0, "fail when a stage produces more rows than this; 0 means no limit")

	root.AddCommand(newQueryCommand(g), newDemoCommand(g))
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
