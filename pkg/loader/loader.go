// Package loader implements chunked, transactional bulk loading on top of
// an adapter.Adapter.
//
// Native-chunked backends get one transaction per chunk, so a connection
// lost on chunk k leaves chunks 1..k-1 committed. Stream-copy backends get
// the whole input as one delimited stream inside one transaction.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/blux/internal/metrics"
	"github.com/leapstack-labs/blux/pkg/adapter"
	"github.com/leapstack-labs/blux/pkg/core"
)

// Loader loads rows into a table through one adapter. A Loader holds no
// state across Load calls.
type Loader struct {
	adapter    adapter.Adapter
	chunkSize  int
	errorLimit int
	policy     core.FailurePolicy
	logger     *slog.Logger
	verbose    bool
}

// New creates a Loader bound to a connected adapter.
func New(a adapter.Adapter, opts ...Option) *Loader {
	l := &Loader{
		adapter:    a,
		chunkSize:  DefaultChunkSize,
		errorLimit: DefaultErrorLimit,
		policy:     core.ContinueOnError,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load validates rows against cols and loads them into table.
//
// The returned report is always non-nil once validation passed. Statement
// and type failures are recorded in the report; the error return is
// reserved for validation failures and connection loss.
func (l *Loader) Load(ctx context.Context, table core.TableRef, cols core.ColumnSet, rows []core.Row) (*core.LoadReport, error) {
	if err := validate(table, cols, rows); err != nil {
		return nil, err
	}

	report := &core.LoadReport{
		ID:        uuid.NewString(),
		Table:     table.String(),
		Dialect:   l.adapter.Dialect(),
		StartedAt: time.Now(),
	}
	if len(rows) == 0 {
		return report, nil
	}

	var err error
	switch l.adapter.Capability() {
	case core.StreamCopy:
		err = l.loadStream(ctx, report, table, cols, rows)
	default:
		err = l.loadChunked(ctx, report, table, cols, rows)
	}

	if report.HasDiagnostics() {
		report.Failed = true
	}
	report.Duration = time.Since(report.StartedAt)
	metrics.RecordRows(report.Dialect, "attempted", int64(report.Attempted))
	metrics.RecordRows(report.Dialect, "succeeded", int64(report.Succeeded))
	metrics.RecordLoad(report.Dialect, report.Status())

	l.summarize(report)
	return report, err
}

func validate(table core.TableRef, cols core.ColumnSet, rows []core.Row) error {
	if err := table.Validate(); err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) != len(cols) {
			return &core.SchemaMismatchError{Table: table.String(), Row: i, Want: len(cols), Got: len(row)}
		}
	}
	return nil
}

func (l *Loader) loadChunked(ctx context.Context, report *core.LoadReport, table core.TableRef, cols core.ColumnSet, rows []core.Row) error {
	if d, ok := l.adapter.(adapter.AutocommitDisabler); ok {
		if err := d.DisableAutocommit(ctx); err != nil {
			return l.abort(report, err)
		}
		l.debug("autocommit turned off")
	}

	l.debug("attempting to load data",
		slog.String("table", table.String()),
		slog.Any("columns", cols.Names()),
		slog.Int("rows", len(rows)))

	for i, chunk := range Chunk(rows, l.chunkSize) {
		if err := ctx.Err(); err != nil {
			return l.abort(report, &core.ConnectionError{Op: "load", Err: err})
		}

		report.Chunks++
		report.Attempted += len(chunk)

		start := time.Now()
		err := l.runChunk(ctx, report, table, cols, chunk)
		metrics.RecordChunk(report.Dialect, err, time.Since(start))

		if err == nil {
			report.Succeeded += len(chunk)
			l.debug("records attempted", slog.Int("chunk", i+1), slog.Int("attempted", report.Attempted))
			continue
		}
		if core.IsConnectionError(err) {
			return l.abort(report, err)
		}

		report.Errors = append(report.Errors, core.FirstLine(err))
		report.Failed = true
		l.debug("chunk failed", slog.Int("chunk", i+1), slog.String("error", core.FirstLine(err)))
		if l.policy == core.FailFast {
			return nil
		}
	}
	return nil
}

// runChunk inserts one chunk in its own transaction and collects the
// backend's diagnostics before committing.
func (l *Loader) runChunk(ctx context.Context, report *core.LoadReport, table core.TableRef, cols core.ColumnSet, chunk []core.Row) (err error) {
	tx, err := l.adapter.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				l.debug("rollback failed", slog.String("error", rbErr.Error()))
			}
		}
	}()

	out, err := l.adapter.BulkInsert(ctx, tx, adapter.BulkRequest{Table: table, Columns: cols, Rows: chunk})
	if err != nil {
		return err
	}
	report.Warnings = append(report.Warnings, out.Warnings...)
	report.Errors = append(report.Errors, out.Errors...)

	if diag, ok := l.adapter.(adapter.Diagnoser); ok {
		if err = l.collect(ctx, report, diag, tx, out.Statement); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (l *Loader) collect(ctx context.Context, report *core.LoadReport, diag adapter.Diagnoser, tx adapter.Tx, stmt string) error {
	warnings, err := diag.Warnings(ctx, tx, stmt, l.errorLimit)
	if err != nil {
		return err
	}
	report.Warnings = append(report.Warnings, warnings...)

	errs, err := diag.Errors(ctx, tx, stmt)
	if err != nil {
		return err
	}
	report.Errors = append(report.Errors, errs...)
	if !anyNonEmpty(errs) {
		return nil
	}
	for _, e := range errs {
		if e != "" {
			first, _, _ := strings.Cut(core.FirstLine(e), " Batched")
			l.debug("batch error", slog.String("error", first))
		}
	}

	outcomes, err := diag.RowOutcomes(ctx, tx, stmt)
	if err != nil {
		return err
	}
	report.RowOutcomes = append(report.RowOutcomes, outcomes...)
	return nil
}

func (l *Loader) loadStream(ctx context.Context, report *core.LoadReport, table core.TableRef, cols core.ColumnSet, rows []core.Row) error {
	var buf bytes.Buffer
	if err := core.WriteDelimited(&buf, adapter.StreamFormatOf(l.adapter), rows); err != nil {
		return fmt.Errorf("serialize rows: %w", err)
	}

	report.Chunks = 1
	report.Attempted = len(rows)

	start := time.Now()
	err := l.runStream(ctx, table, cols, &buf)
	metrics.RecordChunk(report.Dialect, err, time.Since(start))

	if err != nil {
		if core.IsConnectionError(err) {
			return l.abort(report, err)
		}
		report.Errors = append(report.Errors, core.FirstLine(err))
		report.Failed = true
		l.debug("exception", slog.String("error", core.FirstLine(err)))
		return nil
	}
	report.Succeeded = len(rows)
	return nil
}

func (l *Loader) runStream(ctx context.Context, table core.TableRef, cols core.ColumnSet, stream *bytes.Buffer) (err error) {
	tx, err := l.adapter.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				l.debug("rollback failed", slog.String("error", rbErr.Error()))
			}
		}
	}()

	target := table
	if scoper, ok := l.adapter.(adapter.SchemaScoper); ok && table.Qualified() {
		if err = scoper.SetSchemaPath(ctx, tx, table.Schema); err != nil {
			return err
		}
		target = core.TableRef{Name: table.Name}
	}

	if _, err = l.adapter.BulkInsert(ctx, tx, adapter.BulkRequest{Table: target, Columns: cols, Stream: stream}); err != nil {
		return err
	}
	return tx.Commit()
}

// abort records a hard failure that ends the load.
func (l *Loader) abort(report *core.LoadReport, err error) error {
	report.Failed = true
	report.Errors = append(report.Errors, core.FirstLine(err))
	l.debug("exception", slog.String("error", core.FirstLine(err)))
	return err
}

func (l *Loader) summarize(r *core.LoadReport) {
	if !l.verbose {
		return
	}
	if r.HasDiagnostics() {
		l.logger.Warn("warnings or errors detected",
			slog.String("table", r.Table),
			slog.Any("warnings", r.Warnings),
			slog.Any("errors", r.Errors))
		return
	}
	l.logger.Info("finished, no warnings or errors detected",
		slog.String("table", r.Table),
		slog.Int("rows", r.Succeeded),
		slog.Duration("duration", r.Duration))
}

func (l *Loader) debug(msg string, attrs ...any) {
	if l.verbose {
		l.logger.Info(msg, attrs...)
	}
}

func anyNonEmpty(ss []string) bool {
	for _, s := range ss {
		if s != "" {
			return true
		}
	}
	return false
}
