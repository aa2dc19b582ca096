// Package adapter provides the backend adapter contract for blux.
//
// This package contains the public contract that all backends must implement,
// the shared database/sql plumbing they embed, and the dialect registry.
// Concrete backends are in pkg/adapters/ subdirectories and register
// themselves from init().
package adapter

import (
	"context"
	"database/sql"
	"io"

	"github.com/leapstack-labs/blux/pkg/core"
)

// Adapter defines the interface that all backends must implement.
// Implementations are not safe for concurrent use; a session serializes
// access to its adapter.
type Adapter interface {
	// Connect opens the single backend session described by params.
	Connect(ctx context.Context, params core.ConnectionParams) error

	// Close closes the session and releases resources.
	Close() error

	// Dialect returns the registered dialect name.
	Dialect() string

	// Capability reports which bulk path the loader must use.
	Capability() core.Capability

	// Execute runs a statement outside any explicit transaction. The
	// result has nil Columns when the statement produced no result set.
	Execute(ctx context.Context, stmt string) (*core.ResultSet, error)

	// Begin opens an explicit transaction.
	Begin(ctx context.Context) (Tx, error)

	// BulkInsert runs the backend's bulk path inside tx. Native-chunked
	// backends read req.Rows; stream-copy backends read req.Stream.
	BulkInsert(ctx context.Context, tx Tx, req BulkRequest) (core.BulkOutcome, error)
}

// Tx is an explicit transaction. Exactly one of Commit or Rollback must be
// called on every path.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	Commit() error
	Rollback() error
}

// BulkRequest is one bulk call.
type BulkRequest struct {
	Table   core.TableRef
	Columns core.ColumnSet
	Rows    []core.Row
	Stream  io.Reader
}

// Diagnoser is implemented by native-chunked backends that expose
// post-insert warning and error channels. stmt is the insert text the
// preceding BulkInsert reported in its outcome.
type Diagnoser interface {
	Warnings(ctx context.Context, tx Tx, stmt string, limit int) ([]string, error)
	Errors(ctx context.Context, tx Tx, stmt string) ([]string, error)
	RowOutcomes(ctx context.Context, tx Tx, stmt string) ([]string, error)
}

// AutocommitDisabler is implemented by backends that need autocommit
// switched off for the session before chunked loading.
type AutocommitDisabler interface {
	DisableAutocommit(ctx context.Context) error
}

// SchemaScoper is implemented by stream-copy backends with a schema
// path. The scope must end when tx commits or rolls back.
type SchemaScoper interface {
	SetSchemaPath(ctx context.Context, tx Tx, schema string) error
}

// StreamFormatter is implemented by stream-copy backends whose stream
// encoding differs from core.DefaultStreamFormat.
type StreamFormatter interface {
	StreamFormat() core.StreamFormat
}

// StreamFormatOf returns the stream encoding an adapter reads.
func StreamFormatOf(a Adapter) core.StreamFormat {
	if f, ok := a.(StreamFormatter); ok {
		return f.StreamFormat()
	}
	return core.DefaultStreamFormat
}
