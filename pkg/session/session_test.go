package session

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/blux/internal/testutil"
	_ "github.com/leapstack-labs/blux/pkg/adapters/sqlite"
	"github.com/leapstack-labs/blux/pkg/core"
	"github.com/leapstack-labs/blux/pkg/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memJournal struct {
	reports []*core.LoadReport
	err     error
}

func (j *memJournal) RecordLoad(_ context.Context, r *core.LoadReport) error {
	j.reports = append(j.reports, r)
	return j.err
}

func openSQLite(t *testing.T, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)
	s, err := Open(context.Background(), core.ConnectionParams{Dialect: "sqlite"}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_UnsupportedDialect(t *testing.T) {
	_, err := Open(context.Background(), core.ConnectionParams{Dialect: "db2", Host: "unreachable.invalid"})

	var unsupported *core.UnsupportedDialectError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "db2", unsupported.Dialect)
	assert.Contains(t, unsupported.Available, "sqlite")
}

func TestOpen_MissingDialect(t *testing.T) {
	_, err := Open(context.Background(), core.ConnectionParams{Host: "localhost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid connection params")
}

func TestOpen_InvalidPort(t *testing.T) {
	_, err := Open(context.Background(), core.ConnectionParams{Dialect: "sqlite", Port: 70000})
	require.Error(t, err)
}

func TestSession_CreateFromRowsRoundTrip(t *testing.T) {
	ctx := context.Background()
	journal := &memJournal{}
	s := openSQLite(t, WithJournal(journal), WithLoaderOptions(loader.WithChunkSize(2)))

	table := core.MustParseTableRef("people")
	cols := core.NewColumnSet("ID", "Name")
	rows := []core.Row{{"1", "ada"}, {"2", "grace"}, {"3", "edsger"}}

	report, err := s.CreateFromRows(ctx, table, cols, rows)
	require.NoError(t, err)
	assert.False(t, report.Failed)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 2, report.Chunks)

	gotCols, gotRows, err := s.Query(ctx, "SELECT * FROM people")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, gotCols.Names())
	assert.ElementsMatch(t, rows, gotRows)

	require.Len(t, journal.reports, 1)
	assert.Equal(t, report.ID, journal.reports[0].ID)

	// Running it again replaces the table instead of appending.
	_, err = s.CreateFromRows(ctx, table, cols, rows[:1])
	require.NoError(t, err)
	_, gotRows, err = s.Query(ctx, "SELECT * FROM people")
	require.NoError(t, err)
	assert.Len(t, gotRows, 1)
}

func TestSession_ExistsAndDrop(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	table := core.MustParseTableRef("things")

	ok, err := s.Exists(ctx, table)
	require.NoError(t, err)
	assert.False(t, ok)

	// Dropping a missing table is a no-op.
	require.NoError(t, s.DropIfExists(ctx, table))

	_, err = s.Execute(ctx, s.GenerateCreateStatement(table, core.NewColumnSet("a")))
	require.NoError(t, err)

	ok, err = s.Exists(ctx, table)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.DropIfExists(ctx, table))
	ok, err = s.Exists(ctx, table)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_QueryNonQueryStatement(t *testing.T) {
	s := openSQLite(t)

	cols, rows, err := s.Query(context.Background(), "CREATE TABLE t (a text)")
	require.NoError(t, err)
	assert.Nil(t, cols)
	assert.Empty(t, rows)
}

func TestSession_StatementErrorPropagates(t *testing.T) {
	s := openSQLite(t)

	_, _, err := s.Query(context.Background(), "SELECT * FROM missing_table")
	var stmtErr *core.StatementError
	assert.ErrorAs(t, err, &stmtErr)
}

func TestSession_LoadTable(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	_, err := s.Execute(ctx, `CREATE TABLE t ("a" text)`)
	require.NoError(t, err)

	report, err := s.LoadTable(ctx, "t", core.NewColumnSet("a"), []core.Row{{"x"}, {"y"}})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)

	_, err = s.LoadTable(ctx, "", core.NewColumnSet("a"), nil)
	assert.Error(t, err)
}

func TestSession_JournalFailureDoesNotFailLoad(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, WithJournal(&memJournal{err: errors.New("disk full")}))

	_, err := s.Execute(ctx, `CREATE TABLE t ("a" text)`)
	require.NoError(t, err)

	report, err := s.LoadTable(ctx, "t", core.NewColumnSet("a"), []core.Row{{"x"}})
	require.NoError(t, err)
	assert.False(t, report.Failed)
}

func TestDefaultSchema(t *testing.T) {
	tests := []struct {
		dialect string
		params  core.ConnectionParams
		want    string
	}{
		{"postgres", core.ConnectionParams{}, "public"},
		{"postgres", core.ConnectionParams{Schema: "stage"}, "stage"},
		{"mssql", core.ConnectionParams{}, "dbo"},
		{"duckdb", core.ConnectionParams{}, "main"},
		{"oracle", core.ConnectionParams{User: "SCOTT"}, "SCOTT"},
		{"mysql", core.ConnectionParams{Database: "shop"}, "shop"},
		{"teradata", core.ConnectionParams{Database: "dw"}, "dw"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, defaultSchema(tt.dialect, tt.params))
		})
	}
}
