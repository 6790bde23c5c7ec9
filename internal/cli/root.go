// Package cli wires cmd/rowql's Cobra commands to the core query
// engine. It is explicitly outside the module's tested invariants: a
// runnable demonstration, not a component spec.md or SPEC_FULL.md asks
// to be verified.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds flags shared across rowql's subcommands.
type RootOptions struct {
	File       string
	FileFormat string
	Output     string
	Trace      bool
	TraceLevel string
}

// NewRootCommand builds the "rowql" root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rowql",
		Short: "rowql - a file-oriented SQL-like query engine",
		Long:  "rowql runs a SQL-like statement over CSV, JSON, YAML, XML, NEON, or Parquet documents without loading them into a database first.",
	}

	cmd.PersistentFlags().StringVar(&opts.File, "file", "", "default data file for a query with no FROM clause, or a file-query literal's path")
	cmd.PersistentFlags().StringVar(&opts.FileFormat, "format-in", "", "override format inference for --file (csv|json|jsonstream|yaml|xml|neon|parquet|remote)")
	cmd.PersistentFlags().StringVar(&opts.Output, "format", "table", "output format (table|json)")
	cmd.PersistentFlags().BoolVar(&opts.Trace, "trace", false, "enable execution tracing to stderr")
	cmd.PersistentFlags().StringVar(&opts.TraceLevel, "trace-level", "info", "trace level when --trace is set (error|warn|info|debug|verbose)")

	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewReplCommand(opts))

	return cmd
}
