package cli

import (
	"context"
	"io"

	"github.com/cloudimpl/rowql/core"
	"github.com/cloudimpl/rowql/trace"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewQueryCommand builds "rowql query <statement>".
func NewQueryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <statement>",
		Short: "run a single rowql statement and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args[0])
		},
	}
}

func runQuery(cmd *cobra.Command, opts *RootOptions, statement string) error {
	correlationID := uuid.New().String()
	configureTrace(opts)
	trace.Get().Info(trace.ComponentPlan, "invocation", trace.Fields("correlation_id", correlationID, "statement", statement))

	q, err := core.Parse(statement)
	if err != nil {
		return err
	}

	var defaultSrc core.Source
	if opts.File != "" {
		src, err := core.OpenSource(opts.File, opts.FileFormat)
		if err != nil {
			return err
		}
		defer src.Close()
		defaultSrc = src
	}

	results, err := q.Execute(context.Background(), defaultSrc)
	if err != nil {
		return err
	}
	return writeResults(cmd.OutOrStdout(), opts, results)
}

func writeResults(w io.Writer, opts *RootOptions, results *core.Results) error {
	switch opts.Output {
	case "json":
		return renderJSON(w, results.Rows())
	default:
		renderTable(w, results.Rows())
		return nil
	}
}

func configureTrace(opts *RootOptions) {
	if !opts.Trace {
		return
	}
	t := trace.Get()
	switch opts.TraceLevel {
	case "error":
		t.SetLevel(trace.LevelError)
	case "warn":
		t.SetLevel(trace.LevelWarn)
	case "debug":
		t.SetLevel(trace.LevelDebug)
	case "verbose":
		t.SetLevel(trace.LevelVerbose)
	default:
		t.SetLevel(trace.LevelInfo)
	}
	for _, c := range []trace.Component{
		trace.ComponentLexer, trace.ComponentParser, trace.ComponentPlan,
		trace.ComponentScan, trace.ComponentFilter, trace.ComponentJoin,
		trace.ComponentAggregate, trace.ComponentSort, trace.ComponentSpill,
		trace.ComponentAdapter, trace.ComponentResults,
	} {
		t.EnableComponent(c)
	}
}
