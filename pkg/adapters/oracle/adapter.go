// Package oracle provides an Oracle Database backend for blux.
//
// Chunks are inserted with a single array-bound INSERT: every column is
// bound as a slice and the server executes the statement once per element.
package oracle

import (
	"context"
	"errors"
	"log/slog"

	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
	go_ora "github.com/sijms/go-ora/v2"
	"github.com/sijms/go-ora/v2/network"
)

// DialectName is the registry name of this backend.
const DialectName = "oracle"

// Adapter implements the adapter.Adapter interface for Oracle.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new Oracle adapter instance.
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

// Capability reports the chunked array-bind path.
func (a *Adapter) Capability() core.Capability {
	return core.NativeBulkChunked
}

// Connect establishes a connection to Oracle. Database is the service name.
func (a *Adapter) Connect(ctx context.Context, params core.ConnectionParams) error {
	a.Logger.Debug("connecting to oracle", slog.String("host", params.Host), slog.String("service", params.Database))
	return a.Open(ctx, "oracle", buildOracleDSN(params), params)
}

// BulkInsert binds each column of the chunk as an array.
func (a *Adapter) BulkInsert(ctx context.Context, tx adapter.Tx, req adapter.BulkRequest) (core.BulkOutcome, error) {
	stmt := insertStatement(req.Table, req.Columns)
	if len(req.Rows) == 0 {
		return core.BulkOutcome{Statement: stmt}, nil
	}

	res, err := tx.ExecContext(ctx, stmt, columnArrays(req.Columns, req.Rows)...)
	if err != nil {
		return core.BulkOutcome{Statement: stmt}, a.Wrap("array insert", stmt, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		n = int64(len(req.Rows))
	}
	return core.BulkOutcome{Inserted: n, Statement: stmt}, nil
}

// insertStatement quotes upper-cased column names, which match the
// catalog's folded names and survive spaces and reserved words.
func insertStatement(table core.TableRef, cols core.ColumnSet) string {
	return adapter.InsertStatement(table, cols, adapter.UpperQuoted, adapter.PlaceholderColon)
}

// columnArrays pivots rows into one []string per column. Oracle stores
// the empty string as NULL.
func columnArrays(cols core.ColumnSet, rows []core.Row) []any {
	arrays := make([][]string, len(cols))
	for c := range arrays {
		arrays[c] = make([]string, len(rows))
	}
	for r, row := range rows {
		for c := range cols {
			arrays[c][r] = core.FormatValue(row[c])
		}
	}
	args := make([]any, len(arrays))
	for i, arr := range arrays {
		args[i] = arr
	}
	return args
}

func buildOracleDSN(params core.ConnectionParams) string {
	host := params.Host
	if host == "" {
		host = "localhost"
	}
	port := params.Port
	if port == 0 {
		port = 1521
	}
	return go_ora.BuildUrl(host, port, params.Database, params.User, params.Password, params.Options)
}

// classify maps ORA- codes onto the error taxonomy.
func classify(err error) (adapter.Kind, bool) {
	var oraErr *network.OracleError
	if !errors.As(err, &oraErr) {
		return 0, false
	}
	switch oraErr.ErrCode {
	case 1017, 3113, 3114, 3135, 12170, 12514, 12541:
		return adapter.KindConnection, true
	case 1722, 1840, 1841, 1861, 12899:
		return adapter.KindType, true
	default:
		return adapter.KindStatement, true
	}
}

var _ adapter.Adapter = (*Adapter)(nil)
