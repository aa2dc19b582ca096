// Package core defines the shared language of blux.
//
// This package contains:
//   - Data model (TableRef, Row, Column, ResultSet, LoadReport)
//   - Connection parameters and backend capability tags
//   - The error taxonomy shared by adapters, loader and introspector
//   - The delimited stream encoding used by stream-copy backends
//
// The Golden Rule: pkg/core imports ONLY stdlib and golang.org/x/text.
// All other packages depend on core, not the reverse.
package core
