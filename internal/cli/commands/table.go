package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/blux/internal/cli/config"
	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
	"github.com/leapstack-labs/blux/pkg/introspect"
)

// NewExistsCommand creates the exists command.
func NewExistsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <table>",
		Short: "Check whether a table exists",
		Long: `Check whether a table exists on the target. The table may be
qualified as schema.name; unqualified names use the target's default schema.

Exits with status 1 when the table is absent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := core.ParseTableRef(args[0])
			if err != nil {
				return err
			}
			cmdCtx := NewCommandContext(cmd)
			sess, cleanup, err := cmdCtx.OpenSession(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			ok, err := sess.Exists(cmd.Context(), table)
			if err != nil {
				return err
			}
			if cmdCtx.Renderer.Structured() {
				return cmdCtx.Renderer.Data(map[string]any{"table": table.String(), "exists": ok})
			}
			if !ok {
				return fmt.Errorf("table %s does not exist", table)
			}
			cmdCtx.Renderer.Printf("table %s exists\n", table)
			return nil
		},
	}
}

// NewDropCommand creates the drop command.
func NewDropCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <table>",
		Short: "Drop a table if it exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := core.ParseTableRef(args[0])
			if err != nil {
				return err
			}
			cmdCtx := NewCommandContext(cmd)
			sess, cleanup, err := cmdCtx.OpenSession(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := sess.DropIfExists(cmd.Context(), table); err != nil {
				return err
			}
			cmdCtx.Renderer.Printf("dropped %s\n", table)
			return nil
		},
	}
}

// DDLOptions holds options for the ddl command.
type DDLOptions struct {
	From      string
	Columns   string
	Delimiter string
}

// NewDDLCommand creates the ddl command. It needs a dialect but no
// connection.
func NewDDLCommand() *cobra.Command {
	opts := &DDLOptions{}

	cmd := &cobra.Command{
		Use:   "ddl <table>",
		Short: "Print the CREATE TABLE statement for a set of columns",
		Long: `Print the CREATE TABLE statement blux would issue before loading a
table. Column names come from the header of a delimited file or from
--columns. Every column is typed varchar(255).`,
		Example: `  blux ddl stage.sales --from sales.csv --dialect postgres
  blux ddl sales --columns id,amount,region -t prod`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDDL(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "Read column names from the header of this file")
	cmd.Flags().StringVar(&opts.Columns, "columns", "", "Comma separated column names")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", ",", "Field delimiter of --from")
	cmd.MarkFlagsMutuallyExclusive("from", "columns")
	cmd.MarkFlagsOneRequired("from", "columns")

	return cmd
}

func runDDL(cmd *cobra.Command, name string, opts *DDLOptions) error {
	cmdCtx := NewCommandContext(cmd)
	target, err := cmdCtx.Cfg.RequireTarget()
	if err != nil {
		return err
	}
	dialect := adapter.Canonical(target.Dialect)
	if !adapter.IsRegistered(dialect) {
		return &core.UnsupportedDialectError{Dialect: target.Dialect, Op: "ddl", Available: adapter.ListAdapters()}
	}

	table, err := core.ParseTableRef(name)
	if err != nil {
		return err
	}

	var cols core.ColumnSet
	if opts.From != "" {
		delim, err := parseDelimiter(opts.Delimiter)
		if err != nil {
			return err
		}
		cols, err = readCSVHeader(opts.From, delim)
		if err != nil {
			return err
		}
	} else {
		cols = core.NewColumnSet(splitColumns(opts.Columns)...)
	}
	if len(cols) == 0 {
		return fmt.Errorf("no columns given")
	}

	ins := introspect.New(nil, dialect, introspect.WithDefaultSchema(target.Schema))
	cmdCtx.Renderer.Println(ins.GenerateCreateStatement(table, cols))
	return nil
}

func splitColumns(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// targetDialect reports the configured dialect, or "" when none is set.
func targetDialect(cfg *config.Config) string {
	if cfg.Target == nil {
		return ""
	}
	return cfg.Target.Dialect
}
