package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "exec [SQL]",
		Short: "Execute a statement without printing rows",
		Long: `Execute one statement against the target. Any result set is discarded;
use 'blux query' to see rows.`,
		Example: `  blux exec "TRUNCATE TABLE stage.sales"
  blux exec -i cleanup.sql -t staging`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stmt := strings.Join(args, " ")
			if file != "" {
				content, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
				stmt = string(content)
			}
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				return fmt.Errorf("no SQL given")
			}

			cmdCtx := NewCommandContext(cmd)
			sess, cleanup, err := cmdCtx.OpenSession(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := sess.Execute(cmd.Context(), stmt)
			if err != nil {
				return fmt.Errorf("exec failed: %w", err)
			}
			if res.IsQuery() {
				cmdCtx.Renderer.Printf("OK (%d rows discarded)\n", len(res.Rows))
				return nil
			}
			cmdCtx.Renderer.Println("OK")
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "input", "i", "", "Read SQL from file")
	return cmd
}
