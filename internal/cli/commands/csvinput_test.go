package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/blux/pkg/core"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{"", ',', false},
		{",", ',', false},
		{";", ';', false},
		{`\t`, '\t', false},
		{"tab", '\t', false},
		{"|", '|', false},
		{"ab", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDelimiter(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCSV(t *testing.T) {
	path := writeFile(t, "sales.csv", "ID,Region,Amount\n1,north,10\n2,,\"3,5\"\n")

	cols, rows, err := readCSV(path, ',')
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "region", "amount"}, cols.Names())
	assert.Equal(t, []core.Row{
		{"1", "north", "10"},
		{"2", nil, "3,5"},
	}, rows)
}

func TestReadCSV_Tab(t *testing.T) {
	path := writeFile(t, "sales.tsv", "a\tb\nx\ty\n")

	cols, rows, err := readCSV(path, '\t')
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cols.Names())
	assert.Equal(t, []core.Row{{"x", "y"}}, rows)
}

func TestReadCSV_Errors(t *testing.T) {
	_, _, err := readCSV(filepath.Join(t.TempDir(), "missing.csv"), ',')
	require.Error(t, err)

	_, _, err = readCSV(writeFile(t, "empty.csv", ""), ',')
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")

	_, _, err = readCSV(writeFile(t, "ragged.csv", "a,b\n1\n"), ',')
	require.Error(t, err)
}

func TestReadCSVHeader(t *testing.T) {
	cols, err := readCSVHeader(writeFile(t, "h.csv", "Id;Name\n1;x\n"), ';')
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cols.Names())
}
