// Package teradata provides a Teradata Vantage backend for blux.
//
// The package does not link a driver. Register one under the name
// "teradata" (or the name given by the "driver" option) with a blank
// import in the main package:
//
//	import _ "github.com/Teradata/gosql-driver/teradatasql"
package teradata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
)

// errNotConnected is returned when an operation runs before Connect.
var errNotConnected = errors.New("database connection not established")

// DialectName is the registry name of this backend.
const DialectName = "teradata"

const (
	defaultDriver = "teradata"
	nativeSQL     = "{fn teradata_nativesql}"
)

// Adapter implements the adapter.Adapter interface for Teradata.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new Teradata adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the SQL dialect for this adapter.
func (a *Adapter) Dialect() string {
	return DialectName
}

// Capability reports the chunked batch-insert path.
func (a *Adapter) Capability() core.Capability {
	return core.NativeBulkChunked
}

// Connect opens a session through the registered Teradata driver.
func (a *Adapter) Connect(ctx context.Context, params core.ConnectionParams) error {
	driverName := params.Options["driver"]
	if driverName == "" {
		driverName = defaultDriver
	}
	dsn, err := buildConnectParams(params)
	if err != nil {
		return err
	}
	a.Logger.Debug("connecting to teradata", slog.String("host", params.Host), slog.String("driver", driverName))
	return a.Open(ctx, driverName, dsn, params)
}

// DisableAutocommit switches the session to explicit commits.
func (a *Adapter) DisableAutocommit(ctx context.Context) error {
	if a.DB == nil {
		return errNotConnected
	}
	stmt := nativeSQL + "{fn teradata_autocommit_off}"
	if _, err := a.DB.ExecContext(ctx, stmt); err != nil {
		return a.Wrap("autocommit off", stmt, err)
	}
	return nil
}

// BulkInsert runs the chunk through one prepared INSERT.
func (a *Adapter) BulkInsert(ctx context.Context, tx adapter.Tx, req adapter.BulkRequest) (core.BulkOutcome, error) {
	stmt := InsertStatement(req.Table, len(req.Columns))
	n, err := adapter.ExecRows(ctx, tx, stmt, req.Rows)
	if err != nil {
		return core.BulkOutcome{Inserted: n, Statement: stmt}, a.Wrap("insert", stmt, err)
	}
	return core.BulkOutcome{Inserted: n, Statement: stmt}, nil
}

// Warnings fetches up to limit warnings raised by the last batch of stmt.
func (a *Adapter) Warnings(ctx context.Context, tx adapter.Tx, stmt string, limit int) ([]string, error) {
	q := fmt.Sprintf("%s{fn teradata_get_warnings}ERRLIMIT %d;%s", nativeSQL, limit, stmt)
	return a.diagnostics(ctx, tx, "get warnings", q)
}

// Errors fetches the errors raised by the last batch of stmt.
func (a *Adapter) Errors(ctx context.Context, tx adapter.Tx, stmt string) ([]string, error) {
	return a.diagnostics(ctx, tx, "get errors", nativeSQL+"{fn teradata_get_errors}"+stmt)
}

// RowOutcomes fetches the logon sequence number of the session that ran
// stmt, which identifies its rows in the error tables.
func (a *Adapter) RowOutcomes(ctx context.Context, tx adapter.Tx, stmt string) ([]string, error) {
	return a.diagnostics(ctx, tx, "logon sequence number", nativeSQL+"{fn teradata_logon_sequence_number}"+stmt)
}

func (a *Adapter) diagnostics(ctx context.Context, tx adapter.Tx, op, query string) ([]string, error) {
	lines, err := adapter.QueryStrings(ctx, tx, query)
	if err != nil {
		return nil, a.Wrap(op, query, err)
	}
	out := lines[:0]
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

// InsertStatement builds the VALUES-less Teradata insert form
// INSERT INTO t (?, ?, ...).
func InsertStatement(table core.TableRef, n int) string {
	return fmt.Sprintf("INSERT INTO %s (%s)", table.String(), adapter.Placeholders(adapter.PlaceholderQuestion, n))
}

// buildConnectParams renders the driver's JSON connection string. Extra
// carries additional parameters as a query string ("?tmode=ANSI&charset=UTF8").
func buildConnectParams(params core.ConnectionParams) (string, error) {
	cp := map[string]string{}
	if params.Host != "" {
		cp["host"] = params.Host
	}
	if params.Port != 0 {
		cp["dbs_port"] = strconv.Itoa(params.Port)
	}
	if params.User != "" {
		cp["user"] = params.User
	}
	if params.Password != "" {
		cp["password"] = params.Password
	}
	if params.Database != "" {
		cp["database"] = params.Database
	}

	extra, err := url.ParseQuery(strings.TrimPrefix(params.Extra, "?"))
	if err != nil {
		return "", fmt.Errorf("invalid teradata extra parameter %q: %w", params.Extra, err)
	}
	for k := range extra {
		cp[k] = extra.Get(k)
	}
	for k, v := range params.Options {
		if k != "driver" {
			cp[k] = v
		}
	}

	b, err := json.Marshal(cp)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var (
	_ adapter.Adapter            = (*Adapter)(nil)
	_ adapter.Diagnoser          = (*Adapter)(nil)
	_ adapter.AutocommitDisabler = (*Adapter)(nil)
)
