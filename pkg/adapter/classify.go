package adapter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/leapstack-labs/blux/pkg/core"
)

// Kind is the taxonomy bucket of a driver error.
type Kind int

const (
	// KindStatement covers malformed SQL and constraint violations.
	KindStatement Kind = iota
	// KindConnection covers network, auth and session loss.
	KindConnection
	// KindType covers values that do not fit their column.
	KindType
)

// Classifier maps a driver-specific error to a Kind. It returns false when
// it does not recognize the error.
type Classifier func(err error) (Kind, bool)

// Classify wraps err in the matching core error type. Errors that already
// belong to the taxonomy are returned unchanged.
func Classify(op, stmt string, err error, c Classifier) error {
	if err == nil {
		return nil
	}
	if isTaxonomy(err) {
		return err
	}

	kind := KindStatement
	if k, ok := classifyWith(c, err); ok {
		kind = k
	} else if IsConnectionLoss(err) {
		kind = KindConnection
	}

	switch kind {
	case KindConnection:
		return &core.ConnectionError{Op: op, Err: err}
	case KindType:
		return &core.TypeError{Op: op, Err: err}
	default:
		return &core.StatementError{Op: op, Statement: stmt, Err: err}
	}
}

func classifyWith(c Classifier, err error) (Kind, bool) {
	if c == nil {
		return 0, false
	}
	return c(err)
}

// IsConnectionLoss reports driver-agnostic signs of a dead session.
func IsConnectionLoss(err error) bool {
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func isTaxonomy(err error) bool {
	var (
		ce *core.ConnectionError
		se *core.StatementError
		te *core.TypeError
		sm *core.SchemaMismatchError
		ud *core.UnsupportedDialectError
	)
	return errors.As(err, &ce) || errors.As(err, &se) || errors.As(err, &te) ||
		errors.As(err, &sm) || errors.As(err, &ud)
}
