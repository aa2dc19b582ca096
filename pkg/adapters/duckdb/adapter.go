// Package duckdb provides a DuckDB database adapter for blux.
//
// Chunks are written through the DuckDB appender API on the transaction's
// pinned connection.
package duckdb

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
	"github.com/marcboeker/go-duckdb"
)

// DialectName is the registry name of this backend.
const DialectName = "duckdb"

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
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

// Capability reports the chunked appender path.
func (a *Adapter) Capability() core.Capability {
	return core.NativeBulkChunked
}

// Connect establishes a connection to DuckDB.
// An empty Database opens an in-memory database.
func (a *Adapter) Connect(ctx context.Context, params core.ConnectionParams) error {
	path := params.Database
	if path == "" {
		path = ":memory:"
	}

	p, err := parseParams(params.Options)
	if err != nil {
		return err
	}

	if err := a.Open(ctx, "duckdb", path+params.Extra, params); err != nil {
		return err
	}

	for _, stmt := range p.setupStatements() {
		if _, err := a.DB.ExecContext(ctx, stmt); err != nil {
			_ = a.Close()
			return fmt.Errorf("duckdb setup %q: %w", stmt, err)
		}
	}
	return nil
}

// BulkInsert appends the chunk with an appender. Row values are permuted
// from req.Columns into the table's column order; table columns absent
// from req.Columns are appended as NULL.
func (a *Adapter) BulkInsert(ctx context.Context, tx adapter.Tx, req adapter.BulkRequest) (core.BulkOutcome, error) {
	schema := req.Table.Schema
	if schema == "" {
		schema = "main"
	}
	label := "APPEND " + req.Table.String()

	conn, err := adapter.RawConn(tx)
	if err != nil {
		return core.BulkOutcome{Statement: label}, err
	}

	order, err := tableColumns(ctx, tx, schema, req.Table.Name)
	if err != nil {
		return core.BulkOutcome{Statement: label}, a.Wrap("append", label, err)
	}
	positions, err := columnPositions(order, req.Columns)
	if err != nil {
		return core.BulkOutcome{Statement: label}, a.Wrap("append", label, err)
	}

	var inserted int64
	err = conn.Raw(func(driverConn any) error {
		dc, ok := driverConn.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		app, err := duckdb.NewAppenderFromConn(dc, schema, req.Table.Name)
		if err != nil {
			return err
		}
		for i, row := range req.Rows {
			if err := ctx.Err(); err != nil {
				_ = app.Close()
				return err
			}
			if len(row) != len(req.Columns) {
				_ = app.Close()
				return fmt.Errorf("row %d: %d values for %d columns", i+1, len(row), len(req.Columns))
			}
			if err := app.AppendRow(driverValues(row, positions, len(order))...); err != nil {
				_ = app.Close()
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			inserted++
		}
		return app.Close()
	})
	if err != nil {
		return core.BulkOutcome{Statement: label}, a.Wrap("append", label, err)
	}
	return core.BulkOutcome{Inserted: inserted, Statement: label}, nil
}

const columnsQuery = `SELECT column_name FROM information_schema.columns
WHERE lower(table_schema) = lower(?) AND lower(table_name) = lower(?)
ORDER BY ordinal_position`

// tableColumns returns the lower-cased column names of schema.name in
// table order.
func tableColumns(ctx context.Context, tx adapter.Tx, schema, name string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, columnsQuery, schema, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, core.CanonicalName(c))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s.%s does not exist", schema, name)
	}
	return cols, nil
}

// columnPositions maps each request column to its index in the table.
func columnPositions(order []string, cols core.ColumnSet) ([]int, error) {
	index := make(map[string]int, len(order))
	for i, name := range order {
		index[name] = i
	}
	positions := make([]int, len(cols))
	for i, col := range cols {
		pos, ok := index[col.Name]
		if !ok {
			return nil, fmt.Errorf("column %q not found in table", col.Name)
		}
		positions[i] = pos
	}
	return positions, nil
}

func driverValues(row core.Row, positions []int, width int) []driver.Value {
	out := make([]driver.Value, width)
	for i, v := range row {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		out[positions[i]] = v
	}
	return out
}

func classify(err error) (adapter.Kind, bool) {
	var dErr *duckdb.Error
	if !errors.As(err, &dErr) {
		return 0, false
	}
	switch dErr.Type {
	case duckdb.ErrorTypeConnection, duckdb.ErrorTypeInterrupt, duckdb.ErrorTypeFatal:
		return adapter.KindConnection, true
	case duckdb.ErrorTypeConversion, duckdb.ErrorTypeMismatchType, duckdb.ErrorTypeOutOfRange, duckdb.ErrorTypeInvalidInput:
		return adapter.KindType, true
	default:
		return adapter.KindStatement, true
	}
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
