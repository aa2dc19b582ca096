package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ""
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, core.ConnectionParams{Dialect: "duckdb", Database: dbPath}))
			defer func() { _ = adp.Close() }()

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	_, err := adp.Execute(ctx, "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")

	_, err = adp.Begin(ctx)
	require.Error(t, err)
}

func TestAdapter_Execute(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.ConnectionParams{Dialect: "duckdb"}))
	defer func() { _ = adp.Close() }()

	_, err := adp.Execute(ctx, "CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)

	rs, err := adp.Execute(ctx, "SELECT 42 AS Answer")
	require.NoError(t, err)
	require.True(t, rs.IsQuery())
	assert.Equal(t, []string{"answer"}, rs.Columns.Names())
	require.Len(t, rs.Rows, 1)
}

func TestAdapter_BulkInsert(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.ConnectionParams{Dialect: "duckdb"}))
	defer func() { _ = adp.Close() }()

	_, err := adp.Execute(ctx, "CREATE TABLE people (id VARCHAR, name VARCHAR)")
	require.NoError(t, err)

	tx, err := adp.Begin(ctx)
	require.NoError(t, err)
	out, err := adp.BulkInsert(ctx, tx, adapter.BulkRequest{
		Table:   core.TableRef{Name: "people"},
		Columns: core.NewColumnSet("id", "name"),
		Rows:    []core.Row{{"1", "ada"}, {"2", nil}, {"3", []byte("grace")}},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(3), out.Inserted)
	assert.Equal(t, "APPEND people", out.Statement)

	rs, err := adp.Execute(ctx, "SELECT count(*) AS n, count(name) AS named FROM people")
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
	assert.EqualValues(t, 3, rs.Rows[0][0])
	assert.EqualValues(t, 2, rs.Rows[0][1])
}

func TestAdapter_BulkInsert_MissingTable(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.ConnectionParams{Dialect: "duckdb"}))
	defer func() { _ = adp.Close() }()

	tx, err := adp.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = adp.BulkInsert(ctx, tx, adapter.BulkRequest{
		Table:   core.TableRef{Name: "missing"},
		Columns: core.NewColumnSet("id"),
		Rows:    []core.Row{{"1"}},
	})
	require.Error(t, err)
	assert.False(t, core.IsConnectionError(err))
}

func TestAdapter_BulkInsert_ColumnOrder(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.ConnectionParams{Dialect: "duckdb"}))
	defer func() { _ = adp.Close() }()

	_, err := adp.Execute(ctx, "CREATE TABLE people (name VARCHAR, id VARCHAR, note VARCHAR)")
	require.NoError(t, err)

	tx, err := adp.Begin(ctx)
	require.NoError(t, err)
	out, err := adp.BulkInsert(ctx, tx, adapter.BulkRequest{
		Table:   core.TableRef{Name: "people"},
		Columns: core.NewColumnSet("ID", "Name"),
		Rows:    []core.Row{{"1", "ada"}, {"2", "grace"}},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(2), out.Inserted)

	rs, err := adp.Execute(ctx, "SELECT id, name, note FROM people ORDER BY id")
	require.NoError(t, err)
	require.Len(t, rs.Rows, 2)
	assert.Equal(t, "1", core.FormatValue(rs.Rows[0][0]))
	assert.Equal(t, "ada", core.FormatValue(rs.Rows[0][1]))
	assert.Nil(t, rs.Rows[0][2])
	assert.Equal(t, "grace", core.FormatValue(rs.Rows[1][1]))
}

func TestAdapter_BulkInsert_UnknownColumn(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.ConnectionParams{Dialect: "duckdb"}))
	defer func() { _ = adp.Close() }()

	_, err := adp.Execute(ctx, "CREATE TABLE people (id VARCHAR)")
	require.NoError(t, err)

	tx, err := adp.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = adp.BulkInsert(ctx, tx, adapter.BulkRequest{
		Table:   core.TableRef{Name: "people"},
		Columns: core.NewColumnSet("id", "age"),
		Rows:    []core.Row{{"1", "36"}},
	})
	require.Error(t, err)
	var stmtErr *core.StatementError
	assert.ErrorAs(t, err, &stmtErr)
	assert.Contains(t, err.Error(), `"age"`)
}
