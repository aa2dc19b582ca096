package core

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Row is an ordered sequence of untyped scalar values.
type Row []any

// Column is a canonical (lower-cased) column name with its position.
type Column struct {
	Name    string
	Ordinal int
}

// ColumnSet is the ordered column metadata of a row batch or result.
type ColumnSet []Column

var lower = cases.Lower(language.Und)

// CanonicalName lower-cases a column name.
func CanonicalName(name string) string {
	return lower.String(name)
}

// NewColumnSet builds a ColumnSet from raw names.
func NewColumnSet(names ...string) ColumnSet {
	cols := make(ColumnSet, len(names))
	for i, n := range names {
		cols[i] = Column{Name: CanonicalName(n), Ordinal: i}
	}
	return cols
}

// Names returns the column names in order.
func (c ColumnSet) Names() []string {
	names := make([]string, len(c))
	for i, col := range c {
		names[i] = col.Name
	}
	return names
}

// ResultSet is what Execute returns. Columns is nil when the statement
// did not produce a result set.
type ResultSet struct {
	Columns ColumnSet
	Rows    []Row
}

// IsQuery reports whether the statement produced a result set.
func (r *ResultSet) IsQuery() bool {
	return r != nil && r.Columns != nil
}

// Empty reports whether the result holds no rows.
func (r *ResultSet) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// FormatValue renders a scalar as text. Nil renders as "".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
