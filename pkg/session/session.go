// Package session is the facade callers hold: one connected backend adapter
// with query, load and introspection operations on top of it.
//
// A Session is not safe for concurrent use. Callers that load from several
// goroutines open one Session each.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
	"github.com/leapstack-labs/blux/pkg/introspect"
	"github.com/leapstack-labs/blux/pkg/loader"
)

// Journal records load reports. internal/state.SQLiteStore implements it.
type Journal interface {
	RecordLoad(ctx context.Context, r *core.LoadReport) error
}

// Session owns exactly one adapter for its lifetime.
type Session struct {
	adapter    adapter.Adapter
	params     core.ConnectionParams
	logger     *slog.Logger
	verbose    bool
	journal    Journal
	loaderOpts []loader.Option
	loader     *loader.Loader
	inspector  *introspect.Introspector
}

var validate = validator.New()

// Open validates params, builds the registered adapter for params.Dialect
// and connects it. Unknown dialects fail before any network call.
func Open(ctx context.Context, params core.ConnectionParams, opts ...Option) (*Session, error) {
	if err := validate.Struct(params); err != nil {
		return nil, fmt.Errorf("invalid connection params: %w", err)
	}
	s := newSession(params, opts)

	a, err := adapter.NewAdapter(params, s.logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, params); err != nil {
		return nil, err
	}
	s.bind(a)
	s.logger.Debug("session opened", "dialect", a.Dialect(), "host", params.Host, "database", params.Database)
	return s, nil
}

// New wraps an adapter the caller already connected.
func New(a adapter.Adapter, params core.ConnectionParams, opts ...Option) *Session {
	if params.Dialect == "" {
		params.Dialect = a.Dialect()
	}
	s := newSession(params, opts)
	s.bind(a)
	return s
}

func newSession(params core.ConnectionParams, opts []Option) *Session {
	s := &Session{
		params: params,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) bind(a adapter.Adapter) {
	s.adapter = a
	lopts := append([]loader.Option{loader.WithLogger(s.logger), loader.WithVerbose(s.verbose)}, s.loaderOpts...)
	s.loader = loader.New(a, lopts...)
	s.inspector = introspect.New(s, a.Dialect(),
		introspect.WithDefaultSchema(defaultSchema(a.Dialect(), s.params)),
		introspect.WithDefaultDatabase(s.params.Database),
		introspect.WithLogger(s.logger),
		introspect.WithVerbose(s.verbose),
	)
}

// defaultSchema is the schema unqualified tables resolve to in catalog
// lookups.
func defaultSchema(dialect string, p core.ConnectionParams) string {
	if p.Schema != "" {
		return p.Schema
	}
	switch dialect {
	case "postgres":
		return "public"
	case "mssql":
		return "dbo"
	case "duckdb":
		return "main"
	case "oracle":
		return p.User
	default:
		return p.Database
	}
}

// Adapter returns the underlying adapter.
func (s *Session) Adapter() adapter.Adapter { return s.adapter }

// Dialect returns the canonical dialect name of the adapter.
func (s *Session) Dialect() string { return s.adapter.Dialect() }

// Params returns the connection parameters the session was built with.
func (s *Session) Params() core.ConnectionParams { return s.params }

// Close closes the adapter.
func (s *Session) Close() error {
	return s.adapter.Close()
}

// Execute runs one statement and returns its result set. Statement failures
// come back as typed errors; they are never swallowed.
func (s *Session) Execute(ctx context.Context, stmt string) (*core.ResultSet, error) {
	if s.verbose {
		s.logger.Info("running sql", "sql", stmt)
	}
	rs, err := s.adapter.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if s.verbose && rs.IsQuery() {
		s.logger.Info("query returned", "rows", len(rs.Rows), "columns", rs.Columns.Names())
	}
	return rs, nil
}

// Query runs stmt and returns its columns and rows. cols is nil when the
// statement produced no result set.
func (s *Session) Query(ctx context.Context, stmt string) (core.ColumnSet, []core.Row, error) {
	rs, err := s.Execute(ctx, stmt)
	if err != nil {
		return nil, nil, err
	}
	return rs.Columns, rs.Rows, nil
}

// Load bulk loads rows into table and journals the report.
func (s *Session) Load(ctx context.Context, table core.TableRef, cols core.ColumnSet, rows []core.Row) (*core.LoadReport, error) {
	report, err := s.loader.Load(ctx, table, cols, rows)
	s.record(ctx, report)
	return report, err
}

// LoadTable is Load with a "schema.name" string.
func (s *Session) LoadTable(ctx context.Context, table string, cols core.ColumnSet, rows []core.Row) (*core.LoadReport, error) {
	ref, err := core.ParseTableRef(table)
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, ref, cols, rows)
}

// Exists reports whether table exists.
func (s *Session) Exists(ctx context.Context, table core.TableRef) (bool, error) {
	return s.inspector.Exists(ctx, table)
}

// DropIfExists drops table when it exists.
func (s *Session) DropIfExists(ctx context.Context, table core.TableRef) error {
	return s.inspector.DropIfExists(ctx, table)
}

// GenerateCreateStatement renders text-typed DDL for table.
func (s *Session) GenerateCreateStatement(table core.TableRef, cols core.ColumnSet) string {
	return s.inspector.GenerateCreateStatement(table, cols)
}

// CreateFromRows replaces table with one shaped by cols and loads rows.
func (s *Session) CreateFromRows(ctx context.Context, table core.TableRef, cols core.ColumnSet, rows []core.Row) (*core.LoadReport, error) {
	report, err := s.inspector.CreateFromRows(ctx, s.loader, table, cols, rows)
	s.record(ctx, report)
	return report, err
}

func (s *Session) record(ctx context.Context, report *core.LoadReport) {
	if s.journal == nil || report == nil {
		return
	}
	if err := s.journal.RecordLoad(ctx, report); err != nil {
		s.logger.Warn("failed to journal load", "id", report.ID, "error", err)
	}
}
