package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/introspect"
)

// DialectInfo describes one registered dialect.
type DialectInfo struct {
	Name       string `json:"name" yaml:"name"`
	Capability string `json:"capability" yaml:"capability"`
	Exists     bool   `json:"exists" yaml:"exists"`
	Current    bool   `json:"current" yaml:"current"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported dialects",
		Long: `List the dialects compiled into this binary, the bulk path each one
uses, and whether table existence checks are available.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			current := adapter.Canonical(targetDialect(cmdCtx.Cfg))

			infos := ListDialects(current)
			if cmdCtx.Renderer.Structured() {
				return cmdCtx.Renderer.Data(infos)
			}
			rows := make([][]any, len(infos))
			for i, d := range infos {
				marker := ""
				if d.Current {
					marker = "*"
				}
				rows[i] = []any{marker, d.Name, d.Capability, d.Exists}
			}
			return cmdCtx.Renderer.Table([]string{"", "dialect", "bulk path", "exists check"}, rows)
		},
	}
}

// ListDialects describes every registered adapter, sorted by name.
func ListDialects(current string) []DialectInfo {
	names := adapter.ListAdapters()
	infos := make([]DialectInfo, 0, len(names))
	for _, name := range names {
		factory, ok := adapter.Get(name)
		if !ok {
			continue
		}
		_, hasCatalog := introspect.LookupCatalog(name)
		infos = append(infos, DialectInfo{
			Name:       name,
			Capability: factory(nil).Capability().String(),
			Exists:     hasCatalog,
			Current:    name == current,
		})
	}
	return infos
}
