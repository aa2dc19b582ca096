package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/blux/pkg/core"
)

// timeLayout has a fixed width so started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const loadColumns = `id, dialect, table_name, status, attempted, succeeded, chunks, failed,
	warnings, errors, row_outcomes, started_at, duration_ms`

// RecordLoad stores a finished load report.
func (s *SQLiteStore) RecordLoad(ctx context.Context, r *core.LoadReport) error {
	if s.db == nil {
		return errNotOpened
	}

	warnings, err := encodeList(r.Warnings)
	if err != nil {
		return err
	}
	errs, err := encodeList(r.Errors)
	if err != nil {
		return err
	}
	outcomes, err := encodeList(r.RowOutcomes)
	if err != nil {
		return err
	}

	s.logger.Debug("recording load", slog.String("id", r.ID), slog.String("table", r.Table))
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO loads (`+loadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Dialect, r.Table, r.Status(), r.Attempted, r.Succeeded, r.Chunks, r.Failed,
		warnings, errs, outcomes, r.StartedAt.UTC().Format(timeLayout), r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record load: %w", err)
	}
	return nil
}

// GetLoad retrieves a load report by id.
func (s *SQLiteStore) GetLoad(ctx context.Context, id string) (*core.LoadReport, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+loadColumns+` FROM loads WHERE id = ?`, id)
	r, err := scanLoad(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get load: %w", err)
	}
	return r, nil
}

// ListLoads returns the most recent loads, newest first. A non-empty table
// restricts the list to that target.
func (s *SQLiteStore) ListLoads(ctx context.Context, table string, limit int) ([]*core.LoadReport, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+loadColumns+` FROM loads
		WHERE (? = '' OR table_name = ?)
		ORDER BY started_at DESC LIMIT ?`,
		table, table, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list loads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.LoadReport
	for rows.Next() {
		r, err := scanLoad(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan load: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLoad(sc scanner) (*core.LoadReport, error) {
	var (
		r                        core.LoadReport
		status, startedAt        string
		warnings, errs, outcomes string
		durationMS               int64
	)
	err := sc.Scan(&r.ID, &r.Dialect, &r.Table, &status, &r.Attempted, &r.Succeeded, &r.Chunks, &r.Failed,
		&warnings, &errs, &outcomes, &startedAt, &durationMS)
	if err != nil {
		return nil, err
	}

	if r.Warnings, err = decodeList(warnings); err != nil {
		return nil, err
	}
	if r.Errors, err = decodeList(errs); err != nil {
		return nil, err
	}
	if r.RowOutcomes, err = decodeList(outcomes); err != nil {
		return nil, err
	}
	if r.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return &r, nil
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}
