package config

import (
	"fmt"

	sharedcfg "github.com/leapstack-labs/blux/internal/config"
)

// Validate checks everything except the target, which only commands that
// connect require.
func (c *Config) Validate() error {
	if err := sharedcfg.Validator().Struct(c); err != nil {
		return err
	}
	return c.Metrics.Validate()
}

// RequireTarget returns the target or explains how to configure one.
func (c *Config) RequireTarget() (*TargetConfig, error) {
	if c.Target == nil || c.Target.Dialect == "" {
		return nil, fmt.Errorf("no target configured\nHint: set target.dialect in %s, BLUX_TARGET__DIALECT, or pass --dialect", sharedcfg.ConfigFileName)
	}
	if err := sharedcfg.ValidateTarget(c.Target); err != nil {
		return nil, fmt.Errorf("invalid target configuration: %w", err)
	}
	return c.Target, nil
}
