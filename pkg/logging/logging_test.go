package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nested", "blux.log")

	logger, closeFn, err := New(Options{File: path, Level: slog.LevelDebug})
	require.NoError(t, err)

	logger.Debug("chunk loaded", "rows", 10)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "chunk loaded")
	assert.Contains(t, string(data), "rows=10")
	assert.Contains(t, string(data), "source=")
}

func TestNew_ConsoleIsInfoAndAbove(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "blux.log")

	logger, closeFn, err := New(Options{File: path, Level: slog.LevelDebug, Console: true, Stderr: &console})
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	logger.Debug("hidden from console")
	logger.Info("shown on console")

	assert.NotContains(t, console.String(), "hidden from console")
	assert.Contains(t, console.String(), "shown on console")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hidden from console")
	assert.Contains(t, string(data), "shown on console")
}

func TestNew_NoSinks(t *testing.T) {
	logger, closeFn, err := New(Options{})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
	assert.NoError(t, closeFn())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
