// Package postgres provides a PostgreSQL backend for blux.
//
// Bulk loads use COPY FROM STDIN in text format through the pgx driver
// connection, so the whole row set streams in one round trip.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
)

// DialectName is the registry name of this backend.
const DialectName = "postgres"

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, Classify: classify},
	}
}

// Dialect returns the SQL dialect for this adapter.
func (a *Adapter) Dialect() string {
	return DialectName
}

// Capability reports the COPY stream path.
func (a *Adapter) Capability() core.Capability {
	return core.StreamCopy
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, params core.ConnectionParams) error {
	a.Logger.Debug("connecting to postgres", slog.String("host", params.Host), slog.String("database", params.Database))
	return a.Open(ctx, "pgx", buildPostgresDSN(params), params)
}

// SetSchemaPath scopes unqualified names in tx to schema. SET LOCAL ends
// with the transaction, so later statements on the pinned connection
// resolve against the server default again.
func (a *Adapter) SetSchemaPath(ctx context.Context, tx adapter.Tx, schema string) error {
	stmt := "SET LOCAL search_path TO " + adapter.DoubleQuoted.QuoteIdent(schema)
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return a.Wrap("set search_path", stmt, err)
	}
	return nil
}

// BulkInsert streams req.Stream into the table with COPY FROM STDIN.
func (a *Adapter) BulkInsert(ctx context.Context, tx adapter.Tx, req adapter.BulkRequest) (core.BulkOutcome, error) {
	if req.Stream == nil {
		return core.BulkOutcome{}, fmt.Errorf("postgres: COPY requires a stream")
	}
	conn, err := adapter.RawConn(tx)
	if err != nil {
		return core.BulkOutcome{}, err
	}

	copySQL := copyStatement(req.Table, req.Columns)
	a.Logger.Debug("copy from stdin", slog.String("sql", copySQL))

	var tag pgconn.CommandTag
	err = conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("postgres: unexpected driver connection %T", driverConn)
		}
		var copyErr error
		tag, copyErr = c.Conn().PgConn().CopyFrom(ctx, req.Stream, copySQL)
		return copyErr
	})
	if err != nil {
		return core.BulkOutcome{Statement: copySQL}, a.Wrap("copy", copySQL, err)
	}
	return core.BulkOutcome{Inserted: tag.RowsAffected(), Statement: copySQL}, nil
}

// StreamFormat is the COPY text format: tab-delimited, \N for NULL.
func (a *Adapter) StreamFormat() core.StreamFormat {
	return core.StreamFormat{Delimiter: '\t', Null: `\N`}
}

// copyStatement builds the COPY text-format statement. Fields equal to
// \N load as NULL; empty fields load as empty strings.
func copyStatement(table core.TableRef, cols core.ColumnSet) string {
	var b strings.Builder
	b.WriteString("COPY ")
	b.WriteString(table.String())
	if len(cols) > 0 {
		b.WriteString(" (")
		b.WriteString(adapter.DoubleQuoted.QuoteColumns(cols))
		b.WriteString(")")
	}
	b.WriteString(" FROM STDIN WITH (FORMAT text)")
	return b.String()
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(params core.ConnectionParams) string {
	// Build key=value format: host=localhost port=5432 user=postgres ...
	host := params.Host
	if host == "" {
		host = "localhost"
	}

	port := params.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := params.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, dsnValue(params.Database), sslmode)

	if params.User != "" {
		dsn += " user=" + dsnValue(params.User)
	}
	if params.Password != "" {
		dsn += " password=" + dsnValue(params.Password)
	}

	keys := make([]string, 0, len(params.Options))
	for k := range params.Options {
		if k != "sslmode" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		dsn += fmt.Sprintf(" %s=%s", k, dsnValue(params.Options[k]))
	}

	return dsn
}

// dsnValue quotes a keyword/value DSN value when it needs it.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// classify maps SQLSTATE classes onto the error taxonomy.
func classify(err error) (adapter.Kind, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "28"),
			strings.HasPrefix(pgErr.Code, "57P"):
			return adapter.KindConnection, true
		case strings.HasPrefix(pgErr.Code, "22"):
			return adapter.KindType, true
		default:
			return adapter.KindStatement, true
		}
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return adapter.KindConnection, true
	}
	return 0, false
}

// Ensure Adapter implements the adapter interfaces it claims.
var (
	_ adapter.Adapter      = (*Adapter)(nil)
	_ adapter.SchemaScoper = (*Adapter)(nil)
)
