package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/blux/pkg/core"
)

// SQLTx is a database/sql transaction bound to a pinned connection.
// Adapters that need the driver connection (COPY, appenders) reach it
// through Conn.
type SQLTx struct {
	*sql.Tx
	Conn *sql.Conn
}

// Commit commits the transaction and releases the connection.
func (t *SQLTx) Commit() error {
	err := t.Tx.Commit()
	return errors.Join(err, t.release())
}

// Rollback rolls the transaction back and releases the connection.
func (t *SQLTx) Rollback() error {
	err := t.Tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		err = nil
	}
	return errors.Join(err, t.release())
}

func (t *SQLTx) release() error {
	if t.Conn == nil {
		return nil
	}
	c := t.Conn
	t.Conn = nil
	return c.Close()
}

// RawConn returns the pinned connection behind tx.
func RawConn(tx Tx) (*sql.Conn, error) {
	st, ok := tx.(*SQLTx)
	if !ok || st.Conn == nil {
		return nil, fmt.Errorf("transaction %T has no pinned connection", tx)
	}
	return st.Conn, nil
}

// QueryStrings runs a query inside tx and flattens every row into one
// string, joining non-empty column values with a space.
func QueryStrings(ctx context.Context, tx Tx, query string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	rs, err := ReadResultSet(rows)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		parts := make([]string, 0, len(row))
		for _, v := range row {
			if s := strings.TrimSpace(core.FormatValue(v)); s != "" {
				parts = append(parts, s)
			}
		}
		out = append(out, strings.Join(parts, " "))
	}
	return out, nil
}
