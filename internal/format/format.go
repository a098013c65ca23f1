// Package format renders report tables for the terminal, Markdown and CSV.
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
	CSV                  // Comma-separated, for spreadsheets
)

// ParseMode maps a --format flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ascii", "text", "table":
		return ASCII, nil
	case "md", "markdown":
		return Markdown, nil
	case "csv":
		return CSV, nil
	}
	return ASCII, fmt.Errorf("unknown table format %q (want ascii, markdown or csv)", s)
}

// ColumnAlign specifies the horizontal alignment for a column.
type ColumnAlign int

const (
	AlignDefault ColumnAlign = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// ColumnConfig controls per-column formatting.
type ColumnConfig struct {
	Number   int         // 1-based column index
	Align    ColumnAlign // horizontal alignment
	MaxWidth int         // 0 = unlimited
}

// TableBuilder builds a table once and renders it in the Mode chosen at
// creation.
type TableBuilder interface {
	Header(cols ...string)
	// Row appends a data row. Values are converted with fmt.Sprint.
	Row(vals ...any)
	Footer(vals ...any)
	Columns(cfgs ...ColumnConfig)
	// Title is rendered above ASCII tables and ignored otherwise.
	Title(s string)
	String() string
}

// NewTable returns a TableBuilder that renders in the given Mode.
func NewTable(m Mode) TableBuilder {
	w := table.NewWriter()
	if m == ASCII {
		style := table.StyleLight
		style.Format.Header = text.FormatDefault
		style.Format.Footer = text.FormatDefault
		w.SetStyle(style)
	}
	return &prettyAdapter{writer: w, mode: m}
}

type prettyAdapter struct {
	writer table.Writer
	mode   Mode
}

func toRow[T any](vals []T) table.Row {
	row := make(table.Row, len(vals))
	for i, v := range vals {
		row[i] = v
	}
	return row
}

func (a *prettyAdapter) Header(cols ...string) { a.writer.AppendHeader(toRow(cols)) }
func (a *prettyAdapter) Row(vals ...any)       { a.writer.AppendRow(toRow(vals)) }
func (a *prettyAdapter) Footer(vals ...any)    { a.writer.AppendFooter(toRow(vals)) }

func (a *prettyAdapter) Title(s string) {
	if a.mode == ASCII {
		a.writer.SetTitle(s)
	}
}

func (a *prettyAdapter) Columns(cfgs ...ColumnConfig) {
	goCfgs := make([]table.ColumnConfig, len(cfgs))
	for i, c := range cfgs {
		goCfgs[i] = table.ColumnConfig{
			Number:   c.Number,
			Align:    toTextAlign(c.Align),
			WidthMax: c.MaxWidth,
		}
	}
	a.writer.SetColumnConfigs(goCfgs)
}

func (a *prettyAdapter) String() string {
	switch a.mode {
	case Markdown:
		return a.writer.RenderMarkdown()
	case CSV:
		return a.writer.RenderCSV()
	default:
		return a.writer.Render()
	}
}

func toTextAlign(a ColumnAlign) text.Align {
	switch a {
	case AlignLeft:
		return text.AlignLeft
	case AlignRight:
		return text.AlignRight
	case AlignCenter:
		return text.AlignCenter
	default:
		return text.AlignDefault
	}
}
