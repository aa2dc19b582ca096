// Package output renders command results for terminals, pipes and scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// OutputMode selects how results are rendered.
type OutputMode string

// Output modes.
const (
	ModeAuto     OutputMode = "auto" // TTY=table, non-TTY=markdown
	ModeTable    OutputMode = "table"
	ModeJSON     OutputMode = "json"
	ModeCSV      OutputMode = "csv"
	ModeMarkdown OutputMode = "markdown"
	ModeYAML     OutputMode = "yaml"
)

// Modes lists the accepted mode names, for flag completion.
var Modes = []string{"auto", "table", "json", "csv", "markdown", "yaml"}

// Mode normalizes a user supplied format name.
func Mode(s string) OutputMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto
	case "table", "text":
		return ModeTable
	case "md", "markdown":
		return ModeMarkdown
	default:
		return OutputMode(strings.ToLower(s))
	}
}

// Renderer writes results to a pair of streams.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	isTTY  bool
	mode   OutputMode
}

// NewRenderer creates a Renderer and detects whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode OutputMode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a Renderer with an explicit TTY state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode OutputMode) *Renderer {
	return &Renderer{out: out, errOut: errOut, isTTY: isTTY, mode: mode}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// EffectiveMode resolves ModeAuto against the TTY state.
func (r *Renderer) EffectiveMode() OutputMode {
	if r.mode != ModeAuto && r.mode != "" {
		return r.mode
	}
	if r.isTTY {
		return ModeTable
	}
	return ModeMarkdown
}

// Structured reports whether the effective mode is machine readable.
func (r *Renderer) Structured() bool {
	m := r.EffectiveMode()
	return m == ModeJSON || m == ModeYAML
}

// Out returns the result stream.
func (r *Renderer) Out() io.Writer { return r.out }

// Println writes a line to the result stream.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to the result stream.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Warn writes a line to the error stream.
func (r *Renderer) Warn(format string, a ...any) {
	_, _ = fmt.Fprintf(r.errOut, format+"\n", a...)
}

// Data writes v as JSON or YAML.
func (r *Renderer) Data(v any) error {
	if r.EffectiveMode() == ModeYAML {
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders a result set. NULLs print as NULL in the text modes.
func (r *Renderer) Table(cols []string, rows [][]any) error {
	mode := r.EffectiveMode()
	if mode == ModeJSON || mode == ModeYAML {
		records := make([]map[string]any, len(rows))
		for i, row := range rows {
			rec := make(map[string]any, len(cols))
			for j, c := range cols {
				if j < len(row) {
					rec[c] = row[j]
				}
			}
			records[i] = rec
		}
		return r.Data(records)
	}

	if len(rows) == 0 && mode != ModeCSV {
		r.Println("(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = displayValue(v, mode)
		}
		t.AppendRow(tr)
	}

	switch mode {
	case ModeCSV:
		r.Println(t.RenderCSV())
	case ModeMarkdown:
		r.Println(t.RenderMarkdown())
	default:
		r.Println(t.Render())
		r.Printf("(%d rows)\n", len(rows))
	}
	return nil
}

func displayValue(v any, mode OutputMode) any {
	if v == nil {
		if mode == ModeCSV {
			return ""
		}
		return "NULL"
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// KeyValues renders label/value pairs as a two column table.
func (r *Renderer) KeyValues(pairs [][2]string) {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	for _, p := range pairs {
		t.AppendRow(table.Row{p[0], p[1]})
	}
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(t.RenderMarkdown())
		return
	}
	r.Println(t.Render())
}
