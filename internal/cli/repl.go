package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/cloudimpl/rowql/core"
	"github.com/spf13/cobra"
)

// NewReplCommand builds "rowql repl", an interactive shell in the
// spirit of a database client: one statement per line against a
// default file set with --file.
func NewReplCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "start an interactive rowql shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd, opts)
		},
	}
}

func runRepl(cmd *cobra.Command, opts *RootOptions) error {
	configureTrace(opts)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "rowql - file-oriented query engine")
	fmt.Fprintln(out, "Type 'help' for commands, 'exit' to quit")
	fmt.Fprintln(out)

	var defaultSrc core.Source
	if opts.File != "" {
		src, err := core.OpenSource(opts.File, opts.FileFormat)
		if err != nil {
			return err
		}
		defer src.Close()
		defaultSrc = src
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "rowql> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Fprintln(out, "Goodbye!")
			break
		}
		if input == "help" {
			printReplHelp(out)
			continue
		}
		if strings.HasPrefix(input, "\\format ") {
			opts.Output = strings.TrimSpace(input[len("\\format "):])
			continue
		}

		q, err := core.Parse(input)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		results, err := q.Execute(context.Background(), defaultSrc)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		if err := writeResults(out, opts, results); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
	return scanner.Err()
}

func printReplHelp(out interface{ Write([]byte) (int, error) }) {
	fmt.Fprintln(out, "Available commands:")
	fmt.Fprintln(out, "  SELECT * FROM \"data.json\"                  - query a file")
	fmt.Fprintln(out, "  SELECT name, age FROM \"data.csv\" WHERE age > 30")
	fmt.Fprintln(out, "  SELECT department, COUNT(id) FROM \"data.json\" GROUP BY department")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Meta commands:")
	fmt.Fprintln(out, "  \\format table|json                          - change output format")
	fmt.Fprintln(out, "  help                                         - show this help")
	fmt.Fprintln(out, "  exit, quit                                   - exit the shell")
}
