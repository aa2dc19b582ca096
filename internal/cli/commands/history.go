package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var (
		limit int
		table string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled loads",
		Long: `List the loads recorded in the local journal, newest first.

The journal lives at state_path (default .blux/journal.db) and records
every load run through blux, including its warnings and errors.`,
		Example: `  blux history
  blux history --table stage.sales --limit 5 -o json
  blux history show 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, err := cmdCtx.OpenJournal()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			reports, err := store.ListLoads(cmd.Context(), table, limit)
			if err != nil {
				return err
			}
			return cmdCtx.Renderer.Reports(reports)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of loads to list")
	cmd.Flags().StringVar(&table, "table", "", "Only list loads into this table")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one journaled load",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, err := cmdCtx.OpenJournal()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := store.GetLoad(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			return cmdCtx.Renderer.Report(report)
		},
	})

	return cmd
}
