package adapter

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/blux/pkg/core"
)

// Factory builds an unconnected adapter. A nil logger means discard.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
	aliases    = make(map[string]string)
)

// Register adds an adapter factory to the registry, with optional aliases.
// Called by adapter implementations in their init() functions.
func Register(name string, factory Factory, alias ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	name = strings.ToLower(name)
	registry[name] = factory
	for _, a := range alias {
		aliases[strings.ToLower(a)] = name
	}
}

// Canonical resolves an alias to its registered dialect name.
func Canonical(name string) string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return canonicalLocked(name)
}

func canonicalLocked(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if target, ok := aliases[name]; ok {
		return target
	}
	return name
}

// Get retrieves an adapter factory by name or alias.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[canonicalLocked(name)]
	return f, ok
}

// NewAdapter creates an unconnected adapter for params.Dialect.
// Unknown dialects fail before any network call.
func NewAdapter(params core.ConnectionParams, logger *slog.Logger) (Adapter, error) {
	factory, ok := Get(params.Dialect)
	if !ok {
		return nil, &core.UnsupportedDialectError{
			Dialect:   params.Dialect,
			Op:        "connect",
			Available: ListAdapters(),
		}
	}
	return factory(logger), nil
}

// ListAdapters returns all registered dialect names (sorted).
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a dialect or alias is registered.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}
