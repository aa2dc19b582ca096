// Package cli provides the command-line interface for blux.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/blux/internal/cli/commands"
	"github.com/leapstack-labs/blux/internal/cli/config"
	"github.com/leapstack-labs/blux/internal/cli/output"
	"github.com/leapstack-labs/blux/pkg/logging"
)

var (
	cfgFile    string
	targetFlag string
	cfg        *config.Config
	closeLog   = func() error { return nil }
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "blux",
		Short: "blux - bulk loader for SQL databases",
		Long: `blux loads delimited files into SQL databases in chunks, checks and
creates target tables, runs ad hoc queries, and sends webhook or email
notifications about the result.

Supported dialects: postgres, mysql, mssql, oracle, sqlite, teradata, duckdb.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			// Load configuration with optional target override and CLI flags
			var err error
			cfg, err = config.LoadConfigWithTarget(cfgFile, targetFlag, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg, cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, configKey{}, cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					logger.Info("using config file", "path", configFile)
				}
				if targetFlag != "" {
					logger.Info("using target", "name", targetFlag)
				}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./blux.yaml)")
	pf.StringVarP(&targetFlag, "target", "t", "", "Named target to use (e.g., dev, staging, prod)")
	pf.String("dialect", "", "Target dialect (postgres, mysql, mssql, oracle, sqlite, teradata, duckdb)")
	pf.String("host", "", "Target host")
	pf.Int("port", 0, "Target port (default: the dialect's standard port)")
	pf.String("database", "", "Target database, or file path for sqlite and duckdb")
	pf.String("user", "", "Target user")
	pf.String("password", "", "Target password")
	pf.String("schema", "", "Default schema for unqualified tables")
	pf.String("extra", "", "Extra driver DSN parameters")
	pf.String("state", "", "Path to the load journal")
	pf.String("log-file", "", "Append logs to this file")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|table|json|csv|markdown|yaml)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, d := range commands.ListDialects("") {
			names = append(names, d.Name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("target", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		loaded, err := config.LoadConfig(cfgFile, nil)
		if err != nil || len(loaded.Targets) == 0 {
			return []string{"dev", "staging", "prod"}, cobra.ShellCompDirectiveNoFileComp
		}
		names := make([]string, 0, len(loaded.Targets))
		for name := range loaded.Targets {
			names = append(names, name)
		}
		slices.Sort(names)
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewExecCommand())
	rootCmd.AddCommand(commands.NewLoadCommand())
	rootCmd.AddCommand(commands.NewExistsCommand())
	rootCmd.AddCommand(commands.NewDropCommand())
	rootCmd.AddCommand(commands.NewDDLCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewNotifyCommand())
	rootCmd.AddCommand(commands.NewDialectsCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// newLogger builds the process logger from the log section. Verbose runs
// log at debug level and mirror to stderr.
func newLogger(c *config.Config, cmd *cobra.Command) (*slog.Logger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger, closer, err := logging.New(logging.Options{
		File:    c.Log.File,
		Level:   level,
		Console: c.Log.Console || c.Verbose,
		Stderr:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	_ = closeLog()
	closeLog = closer
	return logger, nil
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	defer func() { _ = closeLog() }()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	// Return default config if none in context
	return &config.Config{
		StatePath:    config.DefaultStateFile,
		OutputFormat: config.DefaultOutput,
	}
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for blux.

To load completions:

Bash:
  $ source <(blux completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ blux completion bash > /etc/bash_completion.d/blux
  # macOS:
  $ blux completion bash > $(brew --prefix)/etc/bash_completion.d/blux

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ blux completion zsh > "${fpath[1]}/_blux"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ blux completion fish | source

  # To load completions for each session, execute once:
  $ blux completion fish > ~/.config/fish/completions/blux.fish

PowerShell:
  PS> blux completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> blux completion powershell > blux.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
