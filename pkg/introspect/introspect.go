// Package introspect answers catalog questions about tables and generates
// naive DDL, parameterized per dialect.
package introspect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
)

// Executor runs one statement.
type Executor interface {
	Execute(ctx context.Context, stmt string) (*core.ResultSet, error)
}

// Loader loads rows into a table. *loader.Loader satisfies it.
type Loader interface {
	Load(ctx context.Context, table core.TableRef, cols core.ColumnSet, rows []core.Row) (*core.LoadReport, error)
}

// Introspector runs catalog queries for one dialect.
type Introspector struct {
	exec            Executor
	dialect         string
	defaultSchema   string
	defaultDatabase string
	logger          *slog.Logger
	verbose         bool
}

// Option configures an Introspector.
type Option func(*Introspector)

// WithDefaultSchema sets the schema used for unqualified tables on
// schema-qualified dialects.
func WithDefaultSchema(schema string) Option {
	return func(i *Introspector) { i.defaultSchema = schema }
}

// WithDefaultDatabase sets the database used for unqualified tables on
// database-qualified dialects.
func WithDefaultDatabase(database string) Option {
	return func(i *Introspector) { i.defaultDatabase = database }
}

// WithLogger sets the logger used when verbose output is on.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Introspector) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithVerbose turns on progress logging.
func WithVerbose(v bool) Option {
	return func(i *Introspector) { i.verbose = v }
}

// New creates an Introspector.
func New(exec Executor, dialect string, opts ...Option) *Introspector {
	i := &Introspector{
		exec:    exec,
		dialect: strings.ToLower(dialect),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ExistsQuery renders the catalog query for table.
func (i *Introspector) ExistsQuery(table core.TableRef) (string, error) {
	c, ok := LookupCatalog(i.dialect)
	if !ok {
		return "", &core.UnsupportedDialectError{Dialect: i.dialect, Op: "exists", Available: Dialects()}
	}

	schema, database := i.defaultSchema, i.defaultDatabase
	if table.Qualified() {
		if c.Qualifier == QualifierDatabase {
			database = table.Schema
		} else {
			schema = table.Schema
		}
	}
	return c.render(schema, table.Name, database), nil
}

// Exists reports whether a table or view named table exists. Query
// failures are returned, never reported as false.
func (i *Introspector) Exists(ctx context.Context, table core.TableRef) (bool, error) {
	if err := table.Validate(); err != nil {
		return false, err
	}
	q, err := i.ExistsQuery(table)
	if err != nil {
		return false, err
	}
	i.log("checking if table or view exists", slog.String("table", table.String()))

	rs, err := i.exec.Execute(ctx, q)
	if err != nil {
		return false, err
	}
	exists := !rs.Empty()
	i.log("table or view lookup done", slog.String("table", table.String()), slog.Bool("exists", exists))
	return exists, nil
}

// GenerateCreateStatement returns a CREATE TABLE with every column typed
// varchar(255). Output depends only on its arguments.
func (i *Introspector) GenerateCreateStatement(table core.TableRef, cols core.ColumnSet) string {
	ids := i.identifiers()
	defs := make([]string, len(cols))
	for n, c := range cols {
		defs[n] = "    " + ids.QuoteIdent(core.CanonicalName(c.Name)) + " varchar(255)"
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", table.String(), strings.Join(defs, ",\n"))
}

func (i *Introspector) identifiers() adapter.Identifiers {
	switch i.dialect {
	case "mysql":
		return adapter.Backticked
	case "oracle":
		return adapter.UpperQuoted
	default:
		return adapter.DoubleQuoted
	}
}

// DropIfExists drops table when it exists. A missing table is a no-op.
func (i *Introspector) DropIfExists(ctx context.Context, table core.TableRef) error {
	exists, err := i.Exists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		i.log("table does not exist", slog.String("table", table.String()))
		return nil
	}
	i.log("dropping table", slog.String("table", table.String()))
	_, err = i.exec.Execute(ctx, "DROP TABLE "+table.String())
	return err
}

// CreateFromRows drops table if present, creates it from cols and loads
// rows through l.
func (i *Introspector) CreateFromRows(ctx context.Context, l Loader, table core.TableRef, cols core.ColumnSet, rows []core.Row) (*core.LoadReport, error) {
	if err := i.DropIfExists(ctx, table); err != nil {
		return nil, err
	}
	ddl := i.GenerateCreateStatement(table, cols)
	i.log("creating table", slog.String("table", table.String()), slog.String("sql", ddl))
	if _, err := i.exec.Execute(ctx, ddl); err != nil {
		return nil, err
	}
	return l.Load(ctx, table, cols, rows)
}

func (i *Introspector) log(msg string, attrs ...any) {
	if i.verbose {
		i.logger.Info(msg, attrs...)
	}
}
