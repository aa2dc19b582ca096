// Package sqlite provides a pure-Go SQLite backend for blux.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DialectName is the registry name of this backend.
const DialectName = "sqlite"

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
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

// Capability reports the chunked prepared-insert path.
func (a *Adapter) Capability() core.Capability {
	return core.NativeBulkChunked
}

// Connect opens the database file named by Database, or an in-memory
// database when it is empty. Options become _pragma parameters.
func (a *Adapter) Connect(ctx context.Context, params core.ConnectionParams) error {
	return a.Open(ctx, "sqlite", buildSQLiteDSN(params), params)
}

// BulkInsert executes one prepared INSERT per row of the chunk.
func (a *Adapter) BulkInsert(ctx context.Context, tx adapter.Tx, req adapter.BulkRequest) (core.BulkOutcome, error) {
	stmt := adapter.InsertStatement(req.Table, req.Columns, adapter.DoubleQuoted, adapter.PlaceholderQuestion)
	n, err := adapter.ExecRows(ctx, tx, stmt, req.Rows)
	if err != nil {
		return core.BulkOutcome{Inserted: n, Statement: stmt}, a.Wrap("insert", stmt, err)
	}
	return core.BulkOutcome{Inserted: n, Statement: stmt}, nil
}

func buildSQLiteDSN(params core.ConnectionParams) string {
	path := params.Database
	if path == "" {
		path = ":memory:"
	}
	dsn := path + params.Extra
	if len(params.Options) == 0 {
		return dsn
	}

	keys := make([]string, 0, len(params.Options))
	for k := range params.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pragmas := make([]string, len(keys))
	for i, k := range keys {
		pragmas[i] = "_pragma=" + url.QueryEscape(fmt.Sprintf("%s(%s)", k, params.Options[k]))
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}

// classify maps SQLite result codes onto the error taxonomy.
func classify(err error) (adapter.Kind, bool) {
	var sErr *sqlite.Error
	if !errors.As(err, &sErr) {
		return 0, false
	}
	switch sErr.Code() & 0xff {
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CORRUPT:
		return adapter.KindConnection, true
	case sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_TOOBIG, sqlite3.SQLITE_RANGE:
		return adapter.KindType, true
	default:
		return adapter.KindStatement, true
	}
}

var _ adapter.Adapter = (*Adapter)(nil)
