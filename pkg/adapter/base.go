package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/blux/pkg/core"
)

// errNotConnected is returned when an operation runs before Connect.
var errNotConnected = fmt.Errorf("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Execute and Begin implementations.
type BaseSQLAdapter struct {
	DB       *sql.DB
	Params   core.ConnectionParams
	Logger   *slog.Logger
	Classify Classifier
}

// Open opens the driver, pins the pool to one connection and pings it.
func (b *BaseSQLAdapter) Open(ctx context.Context, driverName, dsn string, params core.ConnectionParams) error {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return &core.ConnectionError{Op: "open " + driverName, Err: err}
	}

	// One session, one connection. An in-memory SQLite database only
	// exists on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &core.ConnectionError{Op: "connect " + driverName, Err: err}
	}

	b.DB = db
	b.Params = params
	b.logger().Debug("connected",
		slog.String("driver", driverName),
		slog.String("host", params.Host),
		slog.String("database", params.Database))
	return nil
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		b.logger().Debug("closing database connection")
		err := b.DB.Close()
		b.DB = nil
		return err
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Execute runs a statement and collects any result set. Column names are
// lower-cased.
func (b *BaseSQLAdapter) Execute(ctx context.Context, stmt string) (*core.ResultSet, error) {
	if b.DB == nil {
		return nil, errNotConnected
	}
	b.logger().Debug("executing statement", slog.String("sql", stmt))

	rows, err := b.DB.QueryContext(ctx, stmt)
	if err != nil {
		return nil, b.Wrap("execute", stmt, err)
	}
	defer func() { _ = rows.Close() }()

	rs, err := ReadResultSet(rows)
	if err != nil {
		return nil, b.Wrap("execute", stmt, err)
	}
	return rs, nil
}

// Begin opens an explicit transaction on a pinned connection.
func (b *BaseSQLAdapter) Begin(ctx context.Context) (Tx, error) {
	if b.DB == nil {
		return nil, errNotConnected
	}
	conn, err := b.DB.Conn(ctx)
	if err != nil {
		return nil, b.Wrap("begin", "", err)
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		_ = conn.Close()
		return nil, b.Wrap("begin", "", err)
	}
	return &SQLTx{Tx: tx, Conn: conn}, nil
}

// Wrap classifies err into the core error taxonomy.
func (b *BaseSQLAdapter) Wrap(op, stmt string, err error) error {
	return Classify(op, stmt, err, b.Classify)
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// ReadResultSet drains rows into a ResultSet. A statement that returns no
// columns yields a ResultSet with nil Columns.
func ReadResultSet(rows *sql.Rows) (*core.ResultSet, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rs := &core.ResultSet{Rows: []core.Row{}}
	if len(names) == 0 {
		return rs, rows.Err()
	}
	rs.Columns = core.NewColumnSet(names...)

	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			// Convert []byte to string for readability
			if raw, ok := v.([]byte); ok {
				values[i] = string(raw)
			}
		}
		rs.Rows = append(rs.Rows, core.Row(values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}
