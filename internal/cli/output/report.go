package output

import (
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/blux/pkg/core"
)

// ReportView is the rendered shape of a load report.
type ReportView struct {
	ID          string   `json:"id" yaml:"id"`
	Table       string   `json:"table" yaml:"table"`
	Dialect     string   `json:"dialect" yaml:"dialect"`
	Status      string   `json:"status" yaml:"status"`
	Attempted   int      `json:"attempted" yaml:"attempted"`
	Succeeded   int      `json:"succeeded" yaml:"succeeded"`
	Chunks      int      `json:"chunks" yaml:"chunks"`
	Failed      bool     `json:"failed" yaml:"failed"`
	StartedAt   string   `json:"started_at" yaml:"started_at"`
	DurationMS  int64    `json:"duration_ms" yaml:"duration_ms"`
	Warnings    []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors      []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	RowOutcomes []string `json:"row_outcomes,omitempty" yaml:"row_outcomes,omitempty"`
}

// NewReportView converts a report.
func NewReportView(r *core.LoadReport) ReportView {
	return ReportView{
		ID:          r.ID,
		Table:       r.Table,
		Dialect:     r.Dialect,
		Status:      r.Status(),
		Attempted:   r.Attempted,
		Succeeded:   r.Succeeded,
		Chunks:      r.Chunks,
		Failed:      r.Failed,
		StartedAt:   r.StartedAt.UTC().Format(time.RFC3339),
		DurationMS:  r.Duration.Milliseconds(),
		Warnings:    r.Warnings,
		Errors:      r.Errors,
		RowOutcomes: r.RowOutcomes,
	}
}

// Report renders one load report.
func (r *Renderer) Report(report *core.LoadReport) error {
	v := NewReportView(report)
	if r.Structured() {
		return r.Data(v)
	}
	r.KeyValues([][2]string{
		{"ID", v.ID},
		{"Table", v.Table},
		{"Dialect", v.Dialect},
		{"Status", v.Status},
		{"Attempted", strconv.Itoa(v.Attempted)},
		{"Succeeded", strconv.Itoa(v.Succeeded)},
		{"Chunks", strconv.Itoa(v.Chunks)},
		{"Duration", report.Duration.Round(time.Millisecond).String()},
	})
	r.list("Warnings", v.Warnings)
	r.list("Errors", v.Errors)
	r.list("Row outcomes", v.RowOutcomes)
	return nil
}

// Reports renders a list of load reports, newest first.
func (r *Renderer) Reports(reports []*core.LoadReport) error {
	if r.Structured() {
		views := make([]ReportView, len(reports))
		for i, rep := range reports {
			views[i] = NewReportView(rep)
		}
		return r.Data(views)
	}
	cols := []string{"id", "table", "dialect", "status", "succeeded", "attempted", "started_at"}
	rows := make([][]any, len(reports))
	for i, rep := range reports {
		rows[i] = []any{rep.ID, rep.Table, rep.Dialect, rep.Status(), rep.Succeeded, rep.Attempted, rep.StartedAt.UTC().Format(time.RFC3339)}
	}
	return r.Table(cols, rows)
}

func (r *Renderer) list(title string, items []string) {
	var kept []string
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		return
	}
	r.Printf("\n%s:\n", title)
	for _, it := range kept {
		r.Printf("  %s\n", it)
	}
}
