package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy_Unwrap(t *testing.T) {
	root := errors.New("driver: bad connection")

	connErr := fmt.Errorf("load chunk 2: %w", &ConnectionError{Op: "bulk insert", Err: root})
	assert.True(t, IsConnectionError(connErr))
	assert.ErrorIs(t, connErr, root)

	stmtErr := &StatementError{Op: "execute", Statement: "SELEC 1", Err: root}
	assert.False(t, IsConnectionError(stmtErr))
	assert.ErrorIs(t, stmtErr, root)
	assert.Contains(t, stmtErr.Error(), "execute")

	typeErr := &TypeError{Op: "bulk insert", Err: root}
	var te *TypeError
	assert.ErrorAs(t, fmt.Errorf("wrap: %w", typeErr), &te)
}

func TestSchemaMismatchError(t *testing.T) {
	err := &SchemaMismatchError{Table: "t", Row: 3, Want: 2, Got: 5}
	assert.Equal(t, "schema mismatch loading t: row 3 has 5 values, want 2", err.Error())
}

func TestUnsupportedDialectError(t *testing.T) {
	err := &UnsupportedDialectError{Dialect: "db2", Op: "exists", Available: []string{"mysql", "postgres"}}
	msg := err.Error()
	assert.Contains(t, msg, `"db2"`)
	assert.Contains(t, msg, "exists")
	assert.Contains(t, msg, "[mysql postgres]")
	assert.Contains(t, msg, "blux.yaml")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "", FirstLine(nil))
	assert.Equal(t, "first", FirstLine(errors.New("first\nsecond")))
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("fail-fast")
	assert.NoError(t, err)
	assert.Equal(t, FailFast, p)

	p, err = ParseFailurePolicy("")
	assert.NoError(t, err)
	assert.Equal(t, ContinueOnError, p)

	_, err = ParseFailurePolicy("sometimes")
	assert.Error(t, err)
}

func TestLoadReport_Status(t *testing.T) {
	r := &LoadReport{}
	assert.Equal(t, StatusSuccess, r.Status())
	assert.False(t, r.HasDiagnostics())

	r.Warnings = []string{""}
	assert.False(t, r.HasDiagnostics(), "empty entries are not diagnostics")

	r.Errors = []string{"2801 duplicate unique prime key"}
	r.Failed = true
	assert.True(t, r.HasDiagnostics())
	assert.Equal(t, StatusFailed, r.Status())
}
