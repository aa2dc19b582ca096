package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/blux/internal/cli/config"
	"github.com/leapstack-labs/blux/internal/cli/output"
	"github.com/leapstack-labs/blux/internal/metrics"
	"github.com/leapstack-labs/blux/internal/metrics/datadog"
	"github.com/leapstack-labs/blux/internal/metrics/prompush"
	"github.com/leapstack-labs/blux/internal/state"
	"github.com/leapstack-labs/blux/pkg/loader"
	"github.com/leapstack-labs/blux/pkg/session"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the current configuration or an empty one with
// defaults when nothing was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		StatePath:    config.DefaultStateFile,
		OutputFormat: config.DefaultOutput,
	}
}

// OpenSession connects to the configured target. Loads are journaled when
// the journal can be opened; a journal failure is reported and ignored.
// The returned cleanup closes everything that was opened.
func (c *CommandContext) OpenSession(ctx context.Context, extra ...loader.Option) (*session.Session, func(), error) {
	target, err := c.Cfg.RequireTarget()
	if err != nil {
		return nil, nil, err
	}

	policy, err := c.Cfg.Load.FailurePolicy()
	if err != nil {
		return nil, nil, err
	}
	lopts := []loader.Option{
		loader.WithChunkSize(c.Cfg.Load.ChunkSize),
		loader.WithErrorLimit(c.Cfg.Load.ErrorLimit),
		loader.WithPolicy(policy),
	}
	lopts = append(lopts, extra...)

	opts := []session.Option{
		session.WithLogger(c.Logger),
		session.WithVerbose(c.Cfg.Verbose),
		session.WithLoaderOptions(lopts...),
	}

	store, err := c.OpenJournal()
	if err != nil {
		c.Renderer.Warn("Warning: load journal unavailable: %v", err)
	} else {
		opts = append(opts, session.WithJournal(store))
	}

	c.Logger.Debug("opening session", "target", target.Redacted())
	sess, err := session.Open(ctx, *target, opts...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		_ = sess.Close()
		if store != nil {
			_ = store.Close()
		}
	}
	return sess, cleanup, nil
}

// OpenJournal opens the load journal at the configured state path.
func (c *CommandContext) OpenJournal() (*state.SQLiteStore, error) {
	stateDir := filepath.Dir(c.Cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, err
	}
	return store, nil
}

// SetupMetrics installs the configured metrics backend. The returned func
// flushes it and restores the no-op backend.
func (c *CommandContext) SetupMetrics() (func(), error) {
	m := c.Cfg.Metrics
	var (
		backend metrics.Backend
		closer  func() error
	)
	switch m.Backend {
	case "", "none":
		return func() {}, nil
	case "prometheus":
		b, err := prompush.NewBackend(m.Job, m.Gateway)
		if err != nil {
			return nil, err
		}
		backend = b
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       m.Addr,
			Namespace:  m.Namespace,
			GlobalTags: tagList(m.Tags),
		})
		if err != nil {
			return nil, err
		}
		backend, closer = b, b.Close
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", m.Backend)
	}

	metrics.SetBackend(backend)
	return func() {
		if err := metrics.Flush(); err != nil {
			c.Renderer.Warn("Warning: failed to flush metrics: %v", err)
		}
		if closer != nil {
			_ = closer()
		}
		metrics.SetBackend(nil)
	}, nil
}

func tagList(tags map[string]string) []string {
	out := make([]string, 0, len(tags))
	for k, v := range tags {
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
