// Package config provides configuration management for the blux CLI.
//
// This package extends the shared configuration types from internal/config
// with CLI-specific fields. The shared types are re-exported here via type
// aliases for convenience.
package config

import (
	sharedcfg "github.com/leapstack-labs/blux/internal/config"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = sharedcfg.TargetConfig

// LoadConfig is an alias for the shared loader configuration.
type LoadConfig = sharedcfg.LoadConfig

// LogConfig is an alias for the shared log configuration.
type LogConfig = sharedcfg.LogConfig

// MetricsConfig is an alias for the shared metrics configuration.
type MetricsConfig = sharedcfg.MetricsConfig

// NotifyConfig is an alias for the shared notification configuration.
type NotifyConfig = sharedcfg.NotifyConfig

// Config holds all CLI configuration options.
type Config struct {
	Target        *TargetConfig            `koanf:"target" validate:"-"`
	Targets       map[string]*TargetConfig `koanf:"targets" validate:"-"`
	DefaultTarget string                   `koanf:"default_target"`
	Load          LoadConfig               `koanf:"load"`
	Log           LogConfig                `koanf:"log"`
	Metrics       MetricsConfig            `koanf:"metrics"`
	Notify        NotifyConfig             `koanf:"notify"`
	StatePath     string                   `koanf:"state_path"`
	Verbose       bool                     `koanf:"verbose"`
	OutputFormat  string                   `koanf:"output" validate:"oneof=auto table json csv markdown yaml"`

	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultStateFile = ".blux/journal.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=table, non-TTY=markdown
)
