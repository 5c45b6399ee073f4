// Package format wraps go-pretty tables behind a small builder used by the
// CLI and the digest renderer.
package format

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // Fixed-width terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

// ParseMode maps "table"/"ascii" and "markdown"/"md" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table", "ascii":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	default:
		return ASCII, fmt.Errorf("unknown table format %q", s)
	}
}

// ColumnConfig controls per-column formatting.
type ColumnConfig struct {
	Number     int // 1-based column index
	AlignRight bool
	MaxWidth   int // wrap content beyond this width (0 = unlimited)
}

// Table builds a table once and renders it in the Mode set at creation.
type Table struct {
	writer table.Writer
	mode   Mode
}

// NewTable returns a Table that renders in the given Mode.
func NewTable(m Mode) *Table {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	// headers keep the caller's casing
	w.Style().Format.Header = text.FormatDefault
	return &Table{writer: w, mode: m}
}

// Header sets the column headers.
func (t *Table) Header(cols ...string) {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	t.writer.AppendHeader(row)
}

// Row appends a data row.
func (t *Table) Row(vals ...any) {
	row := make(table.Row, len(vals))
	copy(row, vals)
	t.writer.AppendRow(row)
}

// Columns applies per-column configuration.
func (t *Table) Columns(cfgs ...ColumnConfig) {
	out := make([]table.ColumnConfig, len(cfgs))
	for i, c := range cfgs {
		align := text.AlignDefault
		if c.AlignRight {
			align = text.AlignRight
		}
		out[i] = table.ColumnConfig{Number: c.Number, Align: align, WidthMax: c.MaxWidth}
	}
	t.writer.SetColumnConfigs(out)
}

// String renders the table.
func (t *Table) String() string {
	if t.mode == Markdown {
		return t.writer.RenderMarkdown()
	}
	return t.writer.Render()
}
