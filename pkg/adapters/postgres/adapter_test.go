package postgres

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		params   core.ConnectionParams
		expected string
	}{
		{
			name: "basic connection",
			params: core.ConnectionParams{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				User:     "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			params: core.ConnectionParams{
				Host:     "prod.example.com",
				Port:     5432,
				Database: "proddb",
				User:     "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin",
		},
		{
			name: "defaults",
			params: core.ConnectionParams{
				Database: "mydb",
			},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name: "quoted password and extra options",
			params: core.ConnectionParams{
				Host:     "db.example.com",
				Port:     5433,
				Database: "analytics",
				User:     "analyst",
				Password: "it's secret",
				Options:  map[string]string{"connect_timeout": "5", "application_name": "blux"},
			},
			expected: `host=db.example.com port=5433 dbname=analytics sslmode=disable user=analyst password='it\'s secret' application_name=blux connect_timeout=5`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn := buildPostgresDSN(tt.params)
			assert.Equal(t, tt.expected, dsn)
		})
	}
}

func TestCopyStatement(t *testing.T) {
	tests := []struct {
		name  string
		table core.TableRef
		cols  core.ColumnSet
		want  string
	}{
		{
			name:  "with columns",
			table: core.TableRef{Name: "orders"},
			cols:  core.NewColumnSet("ID", "Amount"),
			want:  `COPY orders ("id", "amount") FROM STDIN WITH (FORMAT text)`,
		},
		{
			name:  "qualified without columns",
			table: core.TableRef{Schema: "sales", Name: "orders"},
			want:  `COPY sales.orders FROM STDIN WITH (FORMAT text)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, copyStatement(tt.table, tt.cols))
		})
	}
}

func TestAdapter_StreamFormat(t *testing.T) {
	f := adapter.StreamFormatOf(New(nil))
	assert.Equal(t, '\t', f.Delimiter)
	assert.Equal(t, `\N`, f.Null)

	var buf strings.Builder
	require.NoError(t, core.WriteDelimited(&buf, f, []core.Row{{"a", nil}, {"b", ""}}))
	assert.Equal(t, "a\t\\N\nb\t\n", buf.String())
}

func TestNew(t *testing.T) {
	adp := New(nil)

	assert.NotNil(t, adp, "New() should return non-nil adapter")
	assert.Nil(t, adp.DB, "DB should be nil before Connect")
	assert.False(t, adp.IsConnected(), "should not be connected initially")
	assert.Equal(t, "postgres", adp.Dialect(), "dialect name should be postgres")
	assert.Equal(t, core.StreamCopy, adp.Capability())

	// Verify interface compliance
	var _ adapter.Adapter = adp
}

func TestAdapter_NotConnected(t *testing.T) {
	tests := []struct {
		name      string
		operation func(ctx context.Context, adp *Adapter) error
		errMsg    string
	}{
		{
			name: "execute without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.Execute(ctx, "SELECT 1")
				return err
			},
			errMsg: "not established",
		},
		{
			name: "begin without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.Begin(ctx)
				return err
			},
			errMsg: "not established",
		},
		{
			name: "bulk insert without stream",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.BulkInsert(ctx, nil, adapter.BulkRequest{Table: core.TableRef{Name: "t"}})
				return err
			},
			errMsg: "requires a stream",
		},
		{
			name: "bulk insert without pinned connection",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.BulkInsert(ctx, nil, adapter.BulkRequest{Table: core.TableRef{Name: "t"}, Stream: strings.NewReader("")})
				return err
			},
			errMsg: "no pinned connection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			err := tt.operation(ctx, adp)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestAdapter_SetSchemaPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adp := New(nil)
	adp.DB = db
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET LOCAL search_path TO "sales"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := adp.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, adp.SetSchemaPath(ctx, tx, "sales"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   adapter.Kind
		wantOK bool
	}{
		{"connection failure", &pgconn.PgError{Code: "08006"}, adapter.KindConnection, true},
		{"auth failure", &pgconn.PgError{Code: "28P01"}, adapter.KindConnection, true},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, adapter.KindConnection, true},
		{"invalid text representation", &pgconn.PgError{Code: "22P02"}, adapter.KindType, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, adapter.KindStatement, true},
		{"syntax error", &pgconn.PgError{Code: "42601"}, adapter.KindStatement, true},
		{"unknown", errors.New("boom"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := classify(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestAdapter_Registry(t *testing.T) {
	for _, name := range []string{"postgres", "postgresql", "PG"} {
		assert.True(t, adapter.IsRegistered(name), "%s should resolve to postgres", name)
	}

	factory, ok := adapter.Get("postgres")
	require.True(t, ok, "should be able to get postgres factory")

	adp := factory(nil)
	pg, ok := adp.(*Adapter)
	assert.True(t, ok, "factory should return *Adapter")
	assert.Equal(t, "postgres", pg.Dialect())
}

func TestAdapter_Close(t *testing.T) {
	// Close should not error even without connection
	adp := New(nil)
	assert.NoError(t, adp.Close())
}
