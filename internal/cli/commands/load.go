package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/blux/pkg/core"
	"github.com/leapstack-labs/blux/pkg/loader"
	"github.com/leapstack-labs/blux/pkg/notify"
)

// LoadOptions holds options for the load command.
type LoadOptions struct {
	File       string
	Delimiter  string
	Create     bool
	ChunkSize  int
	ErrorLimit int
	FailFast   bool
	Notify     bool
}

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	opts := &LoadOptions{}

	cmd := &cobra.Command{
		Use:   "load <table>",
		Short: "Bulk load a delimited file into a table",
		Long: `Bulk load a delimited file with a header line into a table.

The header names the columns. Empty fields load as NULL. With --create the
table is dropped if present and recreated with every column typed
varchar(255) before loading.

Chunk failures are recorded in the report and the load moves on, unless
--fail-fast (or load.policy: fail-fast) is set. A lost connection always
aborts the load.`,
		Example: `  # Load into an existing table
  blux load stage.sales --file sales.csv

  # Recreate the table first, 50k rows per chunk, on the prod target
  blux load stage.sales --file sales.csv --create --chunk-size 50000 -t prod

  # Tab separated input, notify when done
  blux load sales --file sales.tsv --delimiter '\t' --notify`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Delimited file to load (required)")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", ",", `Field delimiter, e.g. ";" or '\t'`)
	cmd.Flags().BoolVar(&opts.Create, "create", false, "Drop and recreate the table before loading")
	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", 0, "Rows per chunk (default: load.chunk_size)")
	cmd.Flags().IntVar(&opts.ErrorLimit, "error-limit", 0, "Native error limit per chunk (default: load.error_limit)")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "Stop at the first failed chunk")
	cmd.Flags().BoolVar(&opts.Notify, "notify", false, "Send the configured notifications when done")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runLoad(cmd *cobra.Command, name string, opts *LoadOptions) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)

	table, err := core.ParseTableRef(name)
	if err != nil {
		return err
	}
	delim, err := parseDelimiter(opts.Delimiter)
	if err != nil {
		return err
	}

	var notifier notify.Notifier
	if opts.Notify {
		notifier, err = buildNotifier(cmdCtx)
		if err != nil {
			return err
		}
	}

	cols, rows, err := readCSV(opts.File, delim)
	if err != nil {
		return err
	}
	cmdCtx.Logger.Debug("read input", "file", opts.File, "columns", len(cols), "rows", len(rows))

	var extra []loader.Option
	if opts.ChunkSize > 0 {
		extra = append(extra, loader.WithChunkSize(opts.ChunkSize))
	}
	if opts.ErrorLimit > 0 {
		extra = append(extra, loader.WithErrorLimit(opts.ErrorLimit))
	}
	if opts.FailFast {
		extra = append(extra, loader.WithPolicy(core.FailFast))
	}

	stopMetrics, err := cmdCtx.SetupMetrics()
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}
	defer stopMetrics()

	sess, cleanup, err := cmdCtx.OpenSession(ctx, extra...)
	if err != nil {
		return err
	}
	defer cleanup()

	var report *core.LoadReport
	if opts.Create {
		report, err = sess.CreateFromRows(ctx, table, cols, rows)
	} else {
		report, err = sess.Load(ctx, table, cols, rows)
	}

	if report != nil {
		if rerr := cmdCtx.Renderer.Report(report); rerr != nil {
			return rerr
		}
		if notifier != nil {
			msg := notify.FromReport(notifyTitle(cmdCtx), report)
			nctx, cancel := notifyContext(cmd)
			defer cancel()
			if nerr := notifier.Notify(nctx, msg); nerr != nil {
				cmdCtx.Renderer.Warn("Warning: notification failed: %v", nerr)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	if report.Failed {
		return fmt.Errorf("load into %s finished with errors", table)
	}
	return nil
}
