package config

import (
	"github.com/leapstack-labs/blux/pkg/adapter"
)

// Default configuration values.
const (
	DefaultChunkSize  = 100000
	DefaultErrorLimit = 1
	DefaultPolicy     = "continue"
	DefaultLogLevel   = "info"
	DefaultJob        = "blux"
	DefaultTitle      = "blux load"
)

var defaultPorts = map[string]int{
	"postgres": 5432,
	"mysql":    3306,
	"mssql":    1433,
	"oracle":   1521,
	"teradata": 1025,
}

// DefaultPortForDialect returns the usual listener port of a network
// dialect, or 0 for embedded ones.
func DefaultPortForDialect(dialect string) int {
	return defaultPorts[adapter.Canonical(dialect)]
}

// ApplyTargetDefaults canonicalizes the dialect name and fills the port.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil || t.Dialect == "" {
		return
	}
	t.Dialect = adapter.Canonical(t.Dialect)
	if t.Port == 0 && t.Host != "" {
		t.Port = DefaultPortForDialect(t.Dialect)
	}
}

// ApplyLoadDefaults fills unset loader settings.
func ApplyLoadDefaults(c *LoadConfig) {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ErrorLimit <= 0 {
		c.ErrorLimit = DefaultErrorLimit
	}
	if c.Policy == "" {
		c.Policy = DefaultPolicy
	}
}
