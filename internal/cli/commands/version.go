package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/blux/pkg/adapter"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display blux version and the dialects compiled into this binary.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "blux v%s\n", version)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Bulk loader and query tool for SQL databases")
			if names := adapter.ListAdapters(); len(names) > 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dialects: %s\n", strings.Join(names, ", "))
			}
		},
	}
}
