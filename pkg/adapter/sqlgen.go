package adapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/blux/pkg/core"
)

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (MySQL, SQLite, Teradata, DuckDB).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. (PostgreSQL).
	PlaceholderDollar
	// PlaceholderColon uses :1, :2, etc. (Oracle).
	PlaceholderColon
	// PlaceholderAtP uses @p1, @p2, etc. (SQL Server).
	PlaceholderAtP
)

// FormatPlaceholder formats the 1-based parameter index.
func FormatPlaceholder(style PlaceholderStyle, index int) string {
	switch style {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	case PlaceholderColon:
		return ":" + strconv.Itoa(index)
	case PlaceholderAtP:
		return "@p" + strconv.Itoa(index)
	default:
		return "?"
	}
}

// Placeholders returns n comma-separated placeholders.
func Placeholders(style PlaceholderStyle, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = FormatPlaceholder(style, i+1)
	}
	return strings.Join(parts, ", ")
}

// Identifiers defines how identifiers are quoted.
type Identifiers struct {
	Quote    string
	QuoteEnd string
	Escape   string
	// Upper upper-cases names before quoting, matching catalogs that
	// fold unquoted identifiers to upper case.
	Upper bool
}

// Common identifier styles.
var (
	DoubleQuoted = Identifiers{Quote: `"`, QuoteEnd: `"`, Escape: `""`}
	Backticked   = Identifiers{Quote: "`", QuoteEnd: "`", Escape: "``"}
	UpperQuoted  = Identifiers{Quote: `"`, QuoteEnd: `"`, Escape: `""`, Upper: true}
)

// QuoteIdent quotes name, escaping embedded end quotes. The zero value
// leaves names bare.
func (i Identifiers) QuoteIdent(name string) string {
	if i.Upper {
		name = strings.ToUpper(name)
	}
	if i.QuoteEnd == "" {
		return i.Quote + name
	}
	return i.Quote + strings.ReplaceAll(name, i.QuoteEnd, i.Escape) + i.QuoteEnd
}

// QuoteColumns quotes every column name and joins them with ", ".
func (i Identifiers) QuoteColumns(cols core.ColumnSet) string {
	parts := make([]string, len(cols))
	for n, c := range cols {
		parts[n] = i.QuoteIdent(c.Name)
	}
	return strings.Join(parts, ", ")
}

// InsertStatement builds INSERT INTO table (cols) VALUES (placeholders).
func InsertStatement(table core.TableRef, cols core.ColumnSet, ids Identifiers, style PlaceholderStyle) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.String(), ids.QuoteColumns(cols), Placeholders(style, len(cols)))
}

// ParseQualifiedName splits a table reference into schema and name.
// Uses defaultSchema if not specified.
func ParseQualifiedName(table, defaultSchema string) (schema, name string) {
	if s, n, ok := strings.Cut(table, "."); ok {
		return s, n
	}
	return defaultSchema, table
}

// ExecRows prepares stmt inside tx and executes it once per row.
// It returns the number of rows affected.
func ExecRows(ctx context.Context, tx Tx, stmt string, rows []core.Row) (int64, error) {
	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	defer func() { _ = prepared.Close() }()

	var inserted int64
	for i, row := range rows {
		res, err := prepared.ExecContext(ctx, row...)
		if err != nil {
			return inserted, fmt.Errorf("row %d: %w", i+1, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		} else {
			inserted++
		}
	}
	return inserted, nil
}
