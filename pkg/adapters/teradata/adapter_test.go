package teradata

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertStatement(t *testing.T) {
	assert.Equal(t, "INSERT INTO sales.orders (?, ?, ?)",
		InsertStatement(core.TableRef{Schema: "sales", Name: "orders"}, 3))
}

func TestBuildConnectParams(t *testing.T) {
	dsn, err := buildConnectParams(core.ConnectionParams{
		Host:     "td.example.com",
		Port:     1025,
		User:     "dbc",
		Password: "dbc",
		Database: "sales",
		Extra:    "?tmode=ANSI&charset=UTF8",
		Options:  map[string]string{"driver": "fake", "logmech": "LDAP"},
	})
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(dsn), &got))
	assert.Equal(t, map[string]string{
		"host":     "td.example.com",
		"dbs_port": "1025",
		"user":     "dbc",
		"password": "dbc",
		"database": "sales",
		"tmode":    "ANSI",
		"charset":  "UTF8",
		"logmech":  "LDAP",
	}, got)
}

func TestConnect_UnknownDriver(t *testing.T) {
	adp := New(nil)
	err := adp.Connect(context.Background(), core.ConnectionParams{
		Dialect: "teradata",
		Host:    "td.example.com",
		Options: map[string]string{"driver": "no-such-driver"},
	})
	require.Error(t, err)
	assert.True(t, core.IsConnectionError(err))
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	adp := New(nil)
	adp.DB = db
	return adp, mock
}

func TestAdapter_DisableAutocommit(t *testing.T) {
	adp, mock := newMockAdapter(t)
	mock.ExpectExec("{fn teradata_nativesql}{fn teradata_autocommit_off}").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, adp.DisableAutocommit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ChunkWithDiagnostics(t *testing.T) {
	adp, mock := newMockAdapter(t)
	ctx := context.Background()
	insert := "INSERT INTO orders (?, ?)"

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(insert)
	prep.ExpectExec().WithArgs("1", "a").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("2", "b").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("{fn teradata_nativesql}{fn teradata_get_warnings}ERRLIMIT 5;" + insert).
		WillReturnRows(sqlmock.NewRows([]string{"w"}).AddRow("").AddRow("7548 warning"))
	mock.ExpectQuery("{fn teradata_nativesql}{fn teradata_get_errors}" + insert).
		WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow("[Error 2801] Duplicate unique prime key error Batched row 2"))
	mock.ExpectQuery("{fn teradata_nativesql}{fn teradata_logon_sequence_number}" + insert).
		WillReturnRows(sqlmock.NewRows([]string{"lsn"}).AddRow("12345"))
	mock.ExpectCommit()

	tx, err := adp.Begin(ctx)
	require.NoError(t, err)

	out, err := adp.BulkInsert(ctx, tx, adapter.BulkRequest{
		Table:   core.TableRef{Name: "orders"},
		Columns: core.NewColumnSet("id", "name"),
		Rows:    []core.Row{{"1", "a"}, {"2", "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Inserted)
	assert.Equal(t, insert, out.Statement)

	warnings, err := adp.Warnings(ctx, tx, out.Statement, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"7548 warning"}, warnings)

	errs, err := adp.Errors(ctx, tx, out.Statement)
	require.NoError(t, err)
	require.Len(t, errs, 1)

	lsn, err := adp.RowOutcomes(ctx, tx, out.Statement)
	require.NoError(t, err)
	assert.Equal(t, []string{"12345"}, lsn)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_DisableAutocommitNotConnected(t *testing.T) {
	err := New(nil).DisableAutocommit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")
}

func TestAdapter_ErrorsDoNotLog(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	adp := New(slog.New(slog.NewTextHandler(&buf, nil)))
	adp.DB = db
	ctx := context.Background()
	insert := "INSERT INTO orders (?)"

	mock.ExpectBegin()
	mock.ExpectQuery("{fn teradata_nativesql}{fn teradata_get_errors}" + insert).
		WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow("[Error 2801] duplicate Batched row 1"))
	mock.ExpectRollback()

	tx, err := adp.Begin(ctx)
	require.NoError(t, err)
	errs, err := adp.Errors(ctx, tx, insert)
	require.NoError(t, err)
	assert.Equal(t, []string{"[Error 2801] duplicate Batched row 1"}, errs)
	require.NoError(t, tx.Rollback())

	assert.Empty(t, buf.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
