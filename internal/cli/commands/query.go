package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/blux/internal/cli/output"
	"github.com/leapstack-labs/blux/pkg/core"
	"github.com/leapstack-labs/blux/pkg/session"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
	REPL   bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run a query against the target",
		Long: `Run SQL against the configured target and print the result set.

SQL is taken from the arguments, from --input, or from stdin when it is
piped. With no SQL and a terminal on stdin, or with --repl, an interactive
session starts.`,
		Example: `  # Execute SQL directly
  blux query "SELECT * FROM stage.sales"

  # Output as JSON
  blux query "SELECT * FROM stage.sales" --format json

  # Read SQL from a file against the prod target
  blux query -i report.sql -t prod

  # Interactive mode
  blux query --repl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, markdown, yaml (default: --output)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().BoolVar(&opts.REPL, "repl", false, "Start an interactive session")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cmdCtx := NewCommandContext(cmd)
	if opts.Format != "" {
		cmdCtx.Renderer = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	// Determine SQL source
	var sqlQuery string
	switch {
	case opts.REPL:
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !output.IsTerminal(os.Stdin):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		opts.REPL = true
	}

	sess, cleanup, err := cmdCtx.OpenSession(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.REPL {
		return runQueryREPL(cmd, cmdCtx, sess)
	}
	return executeAndRender(cmd.Context(), cmdCtx.Renderer, sess, sqlQuery)
}

// executeAndRender runs one statement and renders its result set, or a
// short acknowledgement when it returned none.
func executeAndRender(ctx context.Context, r *output.Renderer, sess *session.Session, sqlQuery string) error {
	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return fmt.Errorf("no SQL given")
	}
	cols, rows, err := sess.Query(ctx, sqlQuery)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if cols == nil {
		r.Println("OK")
		return nil
	}
	return renderRows(r, cols, rows)
}

func renderRows(r *output.Renderer, cols core.ColumnSet, rows []core.Row) error {
	data := make([][]any, len(rows))
	for i, row := range rows {
		data[i] = row
	}
	return r.Table(cols.Names(), data)
}
