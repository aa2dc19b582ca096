package adapter

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/leapstack-labs/blux/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	// Register a mock adapter
	Register("test_adapter_internal", func(_ *slog.Logger) Adapter { return nil }, "Test-Alias")

	assert.True(t, IsRegistered("test_adapter_internal"), "test_adapter_internal should be registered after Register()")
	assert.True(t, IsRegistered("test-alias"), "aliases resolve case-insensitively")
	assert.Equal(t, "test_adapter_internal", Canonical("TEST-ALIAS"))

	factory, ok := Get("test_adapter_internal")
	assert.True(t, ok, "Get(test_adapter_internal) should return true after Register()")
	assert.NotNil(t, factory, "Get(test_adapter_internal) should return non-nil factory")

	assert.Contains(t, ListAdapters(), "test_adapter_internal")
	assert.NotContains(t, ListAdapters(), "test-alias", "aliases are not listed")
}

func TestNewAdapter_UnsupportedDialect(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
	}{
		{"empty dialect", ""},
		{"unknown dialect", "db2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAdapter(core.ConnectionParams{Dialect: tt.dialect}, nil)
			require.Error(t, err)

			var ude *core.UnsupportedDialectError
			require.True(t, errors.As(err, &ude), "want UnsupportedDialectError, got %T", err)
			assert.Equal(t, tt.dialect, ude.Dialect)
		})
	}
}

func TestNewAdapter_UsesFactory(t *testing.T) {
	var gotLogger *slog.Logger
	Register("test_factory", func(l *slog.Logger) Adapter {
		gotLogger = l
		return nil
	})

	logger := slog.New(slog.DiscardHandler)
	_, err := NewAdapter(core.ConnectionParams{Dialect: "TEST_FACTORY"}, logger)
	require.NoError(t, err)
	assert.Same(t, logger, gotLogger)
}
