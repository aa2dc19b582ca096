// Package mssql provides a Microsoft SQL Server backend for blux.
//
// Each chunk is sent through the TDS bulk-copy protocol (INSERT BULK)
// inside its own transaction.
package mssql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
)

// DialectName is the registry name of this backend.
const DialectName = "mssql"

// Adapter implements the adapter.Adapter interface for SQL Server.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQL Server adapter instance.
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

// Capability reports the chunked bulk-copy path.
func (a *Adapter) Capability() core.Capability {
	return core.NativeBulkChunked
}

// Connect establishes a connection to SQL Server.
func (a *Adapter) Connect(ctx context.Context, params core.ConnectionParams) error {
	dsn, err := buildSQLServerDSN(params)
	if err != nil {
		return err
	}
	a.Logger.Debug("connecting to sqlserver", slog.String("host", params.Host), slog.String("database", params.Database))
	return a.Open(ctx, "sqlserver", dsn, params)
}

// BulkInsert copies one chunk with INSERT BULK.
func (a *Adapter) BulkInsert(ctx context.Context, tx adapter.Tx, req adapter.BulkRequest) (core.BulkOutcome, error) {
	copySQL := mssql.CopyIn(req.Table.String(), mssql.BulkOptions{Tablock: true}, req.Columns.Names()...)

	stmt, err := tx.PrepareContext(ctx, copySQL)
	if err != nil {
		return core.BulkOutcome{Statement: copySQL}, a.Wrap("bulk copy", copySQL, err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range req.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return core.BulkOutcome{Statement: copySQL}, a.Wrap("bulk copy", copySQL, fmt.Errorf("row %d: %w", i+1, err))
		}
	}

	// An argument-less Exec flushes the batch to the server.
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return core.BulkOutcome{Statement: copySQL}, a.Wrap("bulk copy", copySQL, err)
	}
	n, _ := res.RowsAffected()
	return core.BulkOutcome{Inserted: n, Statement: copySQL}, nil
}

// buildSQLServerDSN builds sqlserver://user:pw@host:port?database=db plus
// the query parameters carried in Extra and Options.
func buildSQLServerDSN(params core.ConnectionParams) (string, error) {
	host := params.Host
	if host == "" {
		host = "localhost"
	}
	port := params.Port
	if port == 0 {
		port = 1433
	}

	query, err := url.ParseQuery(strings.TrimPrefix(params.Extra, "?"))
	if err != nil {
		return "", fmt.Errorf("invalid mssql extra parameter %q: %w", params.Extra, err)
	}
	if params.Database != "" {
		query.Set("database", params.Database)
	}
	for k, v := range params.Options {
		query.Set(k, v)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		RawQuery: query.Encode(),
	}
	if params.User != "" {
		u.User = url.UserPassword(params.User, params.Password)
	}
	return u.String(), nil
}

// classify maps SQL Server error numbers onto the error taxonomy.
func classify(err error) (adapter.Kind, bool) {
	var msErr mssql.Error
	if !errors.As(err, &msErr) {
		var msErrPtr *mssql.Error
		if !errors.As(err, &msErrPtr) {
			return 0, false
		}
		msErr = *msErrPtr
	}
	switch msErr.Number {
	case 233, 4060, 10053, 10054, 18456:
		return adapter.KindConnection, true
	case 245, 2628, 8114, 8115, 8152:
		return adapter.KindType, true
	default:
		return adapter.KindStatement, true
	}
}

var _ adapter.Adapter = (*Adapter)(nil)
