package core

import (
	"fmt"
	"strings"
)

// TableRef names a target table, optionally qualified.
type TableRef struct {
	Schema string
	Name   string
}

// ParseTableRef splits a qualified name on the first ".".
func ParseTableRef(s string) (TableRef, error) {
	s = strings.TrimSpace(s)
	var ref TableRef
	if schema, name, ok := strings.Cut(s, "."); ok {
		ref = TableRef{Schema: schema, Name: name}
	} else {
		ref = TableRef{Name: s}
	}
	if err := ref.Validate(); err != nil {
		return TableRef{}, err
	}
	return ref, nil
}

// MustParseTableRef is like ParseTableRef but panics on error.
func MustParseTableRef(s string) TableRef {
	ref, err := ParseTableRef(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// Validate checks that the name is present.
func (t TableRef) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	return nil
}

// Qualified reports whether the reference carries a schema.
func (t TableRef) Qualified() bool {
	return t.Schema != ""
}

// String renders schema.name, or name when unqualified.
func (t TableRef) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}
