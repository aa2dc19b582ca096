// Package mysql provides a MySQL / MariaDB backend for blux.
//
// Bulk loads stream through LOAD DATA LOCAL INFILE using the driver's
// registered reader handlers, so no temporary file is written.
package mysql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
)

// DialectName is the registry name of this backend.
const DialectName = "mysql"

// readerSeq names reader handlers uniquely within the process.
var readerSeq atomic.Uint64

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
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

// Capability reports the LOAD DATA stream path.
func (a *Adapter) Capability() core.Capability {
	return core.StreamCopy
}

// StreamFormat uses \N for NULL so empty strings survive the load.
func (a *Adapter) StreamFormat() core.StreamFormat {
	return core.StreamFormat{Delimiter: '\t', Null: `\N`}
}

// Connect establishes a connection to MySQL.
func (a *Adapter) Connect(ctx context.Context, params core.ConnectionParams) error {
	a.Logger.Debug("connecting to mysql", slog.String("host", params.Host), slog.String("database", params.Database))
	return a.Open(ctx, "mysql", buildMySQLDSN(params), params)
}

// BulkInsert streams req.Stream with LOAD DATA LOCAL INFILE.
func (a *Adapter) BulkInsert(ctx context.Context, tx adapter.Tx, req adapter.BulkRequest) (core.BulkOutcome, error) {
	if req.Stream == nil {
		return core.BulkOutcome{}, fmt.Errorf("mysql: LOAD DATA requires a stream")
	}

	name := "blux-" + strconv.FormatUint(readerSeq.Add(1), 10)
	mysql.RegisterReaderHandler(name, func() io.Reader { return req.Stream })
	defer mysql.DeregisterReaderHandler(name)

	stmt := loadDataStatement(name, req.Table, req.Columns)
	a.Logger.Debug("load data", slog.String("sql", stmt))

	res, err := tx.ExecContext(ctx, stmt)
	if err != nil {
		return core.BulkOutcome{Statement: stmt}, a.Wrap("load data", stmt, err)
	}
	n, _ := res.RowsAffected()
	return core.BulkOutcome{Inserted: n, Statement: stmt}, nil
}

func loadDataStatement(reader string, table core.TableRef, cols core.ColumnSet) string {
	stmt := fmt.Sprintf("LOAD DATA LOCAL INFILE 'Reader::%s' INTO TABLE %s CHARACTER SET utf8mb4 "+
		`FIELDS TERMINATED BY '\t' ESCAPED BY '\\' LINES TERMINATED BY '\n'`,
		reader, quoteTable(table))
	if len(cols) > 0 {
		stmt += " (" + adapter.Backticked.QuoteColumns(cols) + ")"
	}
	return stmt
}

func quoteTable(t core.TableRef) string {
	if t.Schema == "" {
		return adapter.Backticked.QuoteIdent(t.Name)
	}
	return adapter.Backticked.QuoteIdent(t.Schema) + "." + adapter.Backticked.QuoteIdent(t.Name)
}

// buildMySQLDSN constructs a go-sql-driver DSN: user:pw@tcp(host:port)/db.
func buildMySQLDSN(params core.ConnectionParams) string {
	host := params.Host
	if host == "" {
		host = "localhost"
	}
	port := params.Port
	if port == 0 {
		port = 3306
	}

	cfg := mysql.NewConfig()
	cfg.User = params.User
	cfg.Passwd = params.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = params.Database
	if len(params.Options) > 0 {
		cfg.Params = make(map[string]string, len(params.Options))
		for k, v := range params.Options {
			cfg.Params[k] = v
		}
	}
	return cfg.FormatDSN()
}

// classify maps MySQL error numbers onto the error taxonomy.
func classify(err error) (adapter.Kind, bool) {
	if errors.Is(err, mysql.ErrInvalidConn) {
		return adapter.KindConnection, true
	}
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return 0, false
	}
	switch myErr.Number {
	case 1040, 1045, 1044, 2002, 2003, 2006, 2013:
		return adapter.KindConnection, true
	case 1264, 1292, 1366, 1406, 1265:
		return adapter.KindType, true
	default:
		return adapter.KindStatement, true
	}
}

var _ adapter.Adapter = (*Adapter)(nil)
