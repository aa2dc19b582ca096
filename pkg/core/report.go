package core

import "time"

// BulkOutcome is what a single bulk call reports.
type BulkOutcome struct {
	Inserted int64
	Warnings []string
	Errors   []string

	// Statement is the insert text the backend ran. Native-chunked
	// diagnostics are keyed on it.
	Statement string
}

// LoadReport is the accounting of one load call. It is owned by the
// loader until returned and must not be mutated afterwards.
type LoadReport struct {
	ID          string
	Table       string
	Dialect     string
	Attempted   int
	Succeeded   int
	Chunks      int
	Warnings    []string
	Errors      []string
	RowOutcomes []string
	Failed      bool
	StartedAt   time.Time
	Duration    time.Duration
}

// HasDiagnostics reports whether any warning or error text was captured.
func (r *LoadReport) HasDiagnostics() bool {
	for _, w := range r.Warnings {
		if w != "" {
			return true
		}
	}
	for _, e := range r.Errors {
		if e != "" {
			return true
		}
	}
	return false
}

// Status returns "SUCCESS" or "FAILLED", the status strings notifications use.
func (r *LoadReport) Status() string {
	if r.Failed {
		return StatusFailed
	}
	return StatusSuccess
}

// Notification status values.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILLED"
)
