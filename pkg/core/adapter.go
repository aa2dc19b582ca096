package core

import "fmt"

// Capability identifies which bulk path a backend supports.
// It is fixed per backend and never changes during a session.
type Capability int

const (
	// NativeBulkChunked backends insert one chunk per call and expose
	// post-insert warning and error channels.
	NativeBulkChunked Capability = iota
	// StreamCopy backends ingest a single delimited stream per call.
	StreamCopy
)

// String returns the string representation of Capability.
func (c Capability) String() string {
	switch c {
	case NativeBulkChunked:
		return "native-bulk-chunked"
	case StreamCopy:
		return "stream-copy"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// FailurePolicy controls what the loader does after a chunk fails with a
// statement or type error.
type FailurePolicy int

const (
	// ContinueOnError records the failure and moves on to the next chunk.
	ContinueOnError FailurePolicy = iota
	// FailFast stops at the first failed chunk.
	FailFast
)

// String returns the string representation of FailurePolicy.
func (p FailurePolicy) String() string {
	if p == FailFast {
		return "fail-fast"
	}
	return "continue"
}

// ParseFailurePolicy parses "continue" or "fail-fast".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "continue", "continue-on-error":
		return ContinueOnError, nil
	case "fail-fast", "failfast", "abort":
		return FailFast, nil
	default:
		return ContinueOnError, fmt.Errorf("unknown failure policy %q (want continue or fail-fast)", s)
	}
}

// ConnectionParams holds everything needed to open a backend session.
type ConnectionParams struct {
	Dialect  string            `koanf:"dialect" validate:"required"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port" validate:"omitempty,min=1,max=65535"`
	Database string            `koanf:"database"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Schema   string            `koanf:"schema"`
	Extra    string            `koanf:"extra"` // driver parameter suffix, e.g. "?tmode=ANSI"
	Options  map[string]string `koanf:"options"`
}

// Redacted returns a copy safe for logging.
func (p ConnectionParams) Redacted() ConnectionParams {
	if p.Password != "" {
		p.Password = "****"
	}
	return p
}

// StreamFormat describes the delimited encoding a stream-copy backend reads.
type StreamFormat struct {
	Delimiter rune
	Null      string
}

// DefaultStreamFormat is tab-delimited with the \N null token, so empty
// strings and NULL stay distinct.
var DefaultStreamFormat = StreamFormat{Delimiter: '\t', Null: `\N`}
