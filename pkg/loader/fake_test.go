package loader

import (
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
)

var errNotSupported = errors.New("not supported by fake")

type fakeTx struct {
	a *fakeAdapter
}

func (t *fakeTx) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNotSupported
}

func (t *fakeTx) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNotSupported
}

func (t *fakeTx) PrepareContext(context.Context, string) (*sql.Stmt, error) {
	return nil, errNotSupported
}

func (t *fakeTx) Commit() error {
	t.a.commits++
	return t.a.commitErr
}

func (t *fakeTx) Rollback() error {
	t.a.rollbacks++
	return nil
}

// fakeAdapter records every bulk call. failOn maps a 1-based call number
// to the error that call returns.
type fakeAdapter struct {
	capability core.Capability
	failOn     map[int]error
	commitErr  error

	calls     []adapter.BulkRequest
	streams   []string
	begins    int
	commits   int
	rollbacks int
}

func (a *fakeAdapter) Connect(context.Context, core.ConnectionParams) error { return nil }
func (a *fakeAdapter) Close() error                                         { return nil }
func (a *fakeAdapter) Dialect() string                                      { return "fake" }
func (a *fakeAdapter) Capability() core.Capability                          { return a.capability }

func (a *fakeAdapter) Execute(context.Context, string) (*core.ResultSet, error) {
	return &core.ResultSet{}, nil
}

func (a *fakeAdapter) Begin(context.Context) (adapter.Tx, error) {
	a.begins++
	return &fakeTx{a: a}, nil
}

func (a *fakeAdapter) BulkInsert(_ context.Context, _ adapter.Tx, req adapter.BulkRequest) (core.BulkOutcome, error) {
	if req.Stream != nil {
		b, err := io.ReadAll(req.Stream)
		if err != nil {
			return core.BulkOutcome{}, err
		}
		a.streams = append(a.streams, string(b))
		req.Stream = nil
	}
	a.calls = append(a.calls, req)
	if err := a.failOn[len(a.calls)]; err != nil {
		return core.BulkOutcome{}, err
	}
	return core.BulkOutcome{Inserted: int64(len(req.Rows)), Statement: "INSERT"}, nil
}

// diagAdapter adds the native-chunked diagnostic channels. Diagnostics are
// keyed by 1-based chunk number.
type diagAdapter struct {
	fakeAdapter
	warnings map[int][]string
	errs     map[int][]string

	autocommitOff int
	outcomeCalls  []int
}

func (a *diagAdapter) DisableAutocommit(context.Context) error {
	a.autocommitOff++
	return nil
}

func (a *diagAdapter) Warnings(_ context.Context, _ adapter.Tx, _ string, limit int) ([]string, error) {
	w := a.warnings[len(a.calls)]
	if len(w) > limit {
		w = w[:limit]
	}
	return w, nil
}

func (a *diagAdapter) Errors(context.Context, adapter.Tx, string) ([]string, error) {
	return a.errs[len(a.calls)], nil
}

func (a *diagAdapter) RowOutcomes(context.Context, adapter.Tx, string) ([]string, error) {
	a.outcomeCalls = append(a.outcomeCalls, len(a.calls))
	return []string{"lsn-" + string(rune('0'+len(a.calls)))}, nil
}

// streamAdapter is a stream-copy backend with a session schema path.
type streamAdapter struct {
	fakeAdapter
	schemaPath string
}

func (a *streamAdapter) SetSchemaPath(_ context.Context, _ adapter.Tx, schema string) error {
	a.schemaPath = schema
	return nil
}

func makeRows(n int) []core.Row {
	rows := make([]core.Row, n)
	for i := range rows {
		rows[i] = core.Row{i, "v"}
	}
	return rows
}

var twoCols = core.NewColumnSet("id", "val")
