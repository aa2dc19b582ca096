package core

import (
	"errors"
	"fmt"
	"strings"
)

// ConnectionError is a network, authentication or session-loss failure.
// The loader treats it as unrecoverable and aborts the remaining chunks.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// StatementError is a malformed statement or a constraint violation.
type StatementError struct {
	Op        string
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement error during %s: %v", e.Op, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// TypeError is a value that does not fit its target column.
type TypeError struct {
	Op  string
	Err error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error during %s: %v", e.Op, e.Err)
}

func (e *TypeError) Unwrap() error { return e.Err }

// SchemaMismatchError is raised before any execution when a row's arity
// does not match the column set.
type SchemaMismatchError struct {
	Table string
	Row   int
	Want  int
	Got   int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch loading %s: row %d has %d values, want %d", e.Table, e.Row, e.Got, e.Want)
}

// UnsupportedDialectError is returned when a dialect has no adapter or no
// catalog template.
type UnsupportedDialectError struct {
	Dialect   string
	Op        string
	Available []string
}

func (e *UnsupportedDialectError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unsupported dialect %q", e.Dialect)
	if e.Op != "" {
		fmt.Fprintf(&b, " for %s", e.Op)
	}
	if len(e.Available) > 0 {
		fmt.Fprintf(&b, "\nAvailable dialects: %v", e.Available)
	}
	b.WriteString("\nHint: Check target.dialect in blux.yaml")
	return b.String()
}

// IsConnectionError reports whether err wraps a *ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// FirstLine returns the first line of an error message, the form load
// reports keep.
func FirstLine(err error) string {
	if err == nil {
		return ""
	}
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return msg
}
