package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	sharedcfg "github.com/leapstack-labs/blux/internal/config"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// EnvPrefix prefixes every environment variable blux reads.
// A double underscore separates nesting levels: BLUX_TARGET__HOST.
const EnvPrefix = "BLUX_"

// flagKeys maps persistent flags whose name differs from their config key.
var flagKeys = map[string]string{
	"state":    "state_path",
	"dialect":  "target.dialect",
	"host":     "target.host",
	"port":     "target.port",
	"database": "target.database",
	"user":     "target.user",
	"password": "target.password",
	"schema":   "target.schema",
	"extra":    "target.extra",
	"log-file": "log.file",
}

// selectorFlags choose what to load rather than carrying config values.
var selectorFlags = map[string]bool{
	"config": true,
	"target": true,
}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// findConfigFile finds the config file to use.
// Priority: explicit path > blux.yaml in the project root > blux.yml
func findConfigFile(explicit, projectRoot string) string {
	if explicit != "" {
		return explicit
	}
	return sharedcfg.FindConfigFile(projectRoot)
}

// inferProjectRoot is the directory of an explicit config file, else the
// nearest ancestor of the working directory holding one, else the working
// directory.
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}
	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := sharedcfg.FindProjectRoot(cwd, maxUpwardSearchLevels); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// envKey turns BLUX_TARGET__HOST into target.host.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// flagKey maps a changed flag to its config key.
func flagKey(f *pflag.Flag) string {
	if key, ok := flagKeys[f.Name]; ok {
		return key
	}
	// Transform kebab-case to snake_case for config keys
	return strings.ReplaceAll(f.Name, "-", "_")
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadConfigWithTarget(cfgFile, "", flags)
}

// LoadConfigWithTarget loads configuration and merges the named target of
// the targets map over the base target. An empty targetOverride selects
// default_target.
func LoadConfigWithTarget(cfgFile string, targetOverride string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	projectRoot := inferProjectRoot(cfgFile)

	// Paths given as flags are relative to the working directory, not the
	// project root.
	var flagStatePath string
	if flags != nil && flags.Changed("state") {
		if v, _ := flags.GetString("state"); v != "" {
			flagStatePath, _ = filepath.Abs(v)
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"state_path":       DefaultStateFile,
		"verbose":          false,
		"output":           DefaultOutput,
		"load.chunk_size":  sharedcfg.DefaultChunkSize,
		"load.error_limit": sharedcfg.DefaultErrorLimit,
		"load.policy":      sharedcfg.DefaultPolicy,
		"log.level":        sharedcfg.DefaultLogLevel,
		"metrics.backend":  "none",
		"metrics.job":      sharedcfg.DefaultJob,
		"notify.title":     sharedcfg.DefaultTitle,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = findConfigFile(cfgFile, projectRoot)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (BLUX_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags into their own instance so that flag target fields can
	// be applied after the named target is merged.
	fk := koanf.New(".")
	if flags != nil {
		if err := fk.Load(posflag.ProviderWithFlag(flags, ".", fk, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed || selectorFlags[f.Name] {
				return "", nil
			}
			return flagKey(f), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
		if err := k.Merge(fk); err != nil {
			return nil, fmt.Errorf("failed to merge flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot

	if flagStatePath != "" {
		cfg.StatePath = flagStatePath
	} else {
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	}
	cfg.Log.File = resolvePathRelativeTo(cfg.Log.File, projectRoot)

	// Merge the selected named target over the base target, then let
	// explicit flags win over both.
	name := cfg.DefaultTarget
	if targetOverride != "" {
		name = targetOverride
	}
	if name != "" {
		named, ok := cfg.Targets[name]
		if !ok && targetOverride != "" {
			return nil, fmt.Errorf("unknown target %q (available: %s)", name, strings.Join(targetNames(cfg.Targets), ", "))
		}
		cfg.Target = MergeTargetConfig(cfg.Target, named)
	}
	if fk.Exists("target") {
		var flagTarget TargetConfig
		if err := fk.Unmarshal("target", &flagTarget); err != nil {
			return nil, fmt.Errorf("unable to decode target flags: %w", err)
		}
		cfg.Target = MergeTargetConfig(cfg.Target, &flagTarget)
	}

	if cfg.Target != nil {
		sharedcfg.ApplyTargetDefaults(cfg.Target)
		expandTargetEnvVars(cfg.Target)
		if cfg.Target.Dialect == "sqlite" || cfg.Target.Dialect == "duckdb" {
			cfg.Target.Database = resolvePathRelativeTo(cfg.Target.Database, projectRoot)
		}
	}
	sharedcfg.ApplyLoadDefaults(&cfg.Load)
	expandNotifyEnvVars(&cfg.Notify)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

func targetNames(m map[string]*TargetConfig) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig or LoadConfigWithTarget is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandTargetEnvVars expands environment variables in sensitive target fields.
func expandTargetEnvVars(t *TargetConfig) {
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
	t.Extra = expandEnvVars(t.Extra)
	for key, v := range t.Options {
		t.Options[key] = expandEnvVars(v)
	}
}

func expandNotifyEnvVars(n *NotifyConfig) {
	n.Webhook = expandEnvVars(n.Webhook)
	n.SMTP.Username = expandEnvVars(n.SMTP.Username)
	n.SMTP.Password = expandEnvVars(n.SMTP.Password)
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	merged.Options = make(map[string]string, len(base.Options)+len(override.Options))
	for key, v := range base.Options {
		merged.Options[key] = v
	}

	if override.Dialect != "" {
		merged.Dialect = override.Dialect
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}
	if override.Extra != "" {
		merged.Extra = override.Extra
	}
	for key, v := range override.Options {
		merged.Options[key] = v
	}

	return &merged
}
