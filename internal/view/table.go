// Package view holds typed tables shared by the HTML pages, the CSV export
// and the PDF renderer. A table is built once from formatted cells and then
// serialised by whichever surface needs it.
package view

import (
	"encoding/csv"
	"html"
	"html/template"
	"io"
	"net/url"
	"strings"

	"github.com/bobmcallan/markmentum-portal/internal/format"
)

// Align is a horizontal cell alignment.
type Align int

const (
	AlignDefault Align = iota
	AlignLeft
	AlignCenter
	AlignRight
)

func (a Align) class() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	}
	return ""
}

// Kind selects how a cell is drawn.
type Kind int

const (
	// KindText is plain text, optionally on a cell background.
	KindText Kind = iota
	// KindLink is an anchor to Href.
	KindLink
	// KindBadge is a block span filling the cell with BG.
	KindBadge
	// KindPill is a rounded label on BG.
	KindPill
	// KindSpacer is an empty narrow separator column.
	KindSpacer
)

// Cell is one formatted table value.
type Cell struct {
	Text  string
	Kind  Kind
	Href  string
	BG    format.Color
	FG    string
	Align Align
}

// Text returns a plain cell.
func Text(s string) Cell { return Cell{Text: s} }

// Shaded returns a plain cell painted with bg.
func Shaded(s string, bg format.Color) Cell { return Cell{Text: s, BG: bg} }

// Link returns an anchor cell.
func Link(text, href string) Cell { return Cell{Text: text, Kind: KindLink, Href: href} }

// Badge returns a cell drawn from a tint.
func Badge(t format.Tint) Cell {
	return Cell{Text: t.Label, Kind: KindBadge, BG: t.BG, FG: t.FG}
}

// Pill returns a Tape Bias style label.
func Pill(label string, bg format.Color) Cell {
	return Cell{Text: label, Kind: KindPill, BG: bg}
}

// Spacer returns a separator cell.
func Spacer() Cell { return Cell{Kind: KindSpacer} }

// TickerLink builds the deep-dive anchor for a ticker symbol.
func TickerLink(ticker string) Cell {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return Text("")
	}
	return Link(t, DeepDiveHref(t))
}

// DeepDiveHref is the in-portal deep link for a ticker; the server turns it
// into a redirect to the Deep Dive page.
func DeepDiveHref(ticker string) string {
	return "?page=Deep%20Dive&ticker=" + url.QueryEscape(ticker) + "&adv=0&info=0"
}

// Column describes a table column.
type Column struct {
	// Header may contain "\n" for a multi-line heading.
	Header string
	Align  Align
	// Width is a CSS length for the page and inches for the PDF.
	Width  string
	Inches float64
	// Spacer marks a separator column skipped by the CSV export.
	Spacer bool
}

// Col is shorthand for a column with a header and alignment.
func Col(header string, align Align) Column {
	return Column{Header: header, Align: align}
}

// Table is an ordered set of columns and rows of cells.
type Table struct {
	Class   string
	Columns []Column
	Rows    [][]Cell
}

// New creates a table with the given columns.
func New(cols ...Column) *Table {
	return &Table{Class: "tbl", Columns: cols}
}

// Add appends a row. Short rows are padded with empty cells.
func (t *Table) Add(cells ...Cell) {
	if len(cells) < len(t.Columns) {
		cells = append(cells, make([]Cell, len(t.Columns)-len(cells))...)
	}
	t.Rows = append(t.Rows, cells)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Headers returns the column headers in order.
func (t *Table) Headers() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Header
	}
	return out
}

// HTML serialises the table for the pages.
func (t *Table) HTML() template.HTML {
	if t == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<table class="`)
	b.WriteString(html.EscapeString(t.Class))
	b.WriteString(`">`)

	if t.hasWidths() {
		b.WriteString("<colgroup>")
		for _, c := range t.Columns {
			if c.Width != "" {
				b.WriteString(`<col style="width:` + html.EscapeString(c.Width) + `">`)
			} else {
				b.WriteString("<col>")
			}
		}
		b.WriteString("</colgroup>")
	}

	b.WriteString("<thead><tr>")
	for _, c := range t.Columns {
		b.WriteString("<th")
		writeClass(&b, c.Align, c.Spacer)
		b.WriteString(">")
		b.WriteString(strings.ReplaceAll(html.EscapeString(c.Header), "\n", "<br>"))
		b.WriteString("</th>")
	}
	b.WriteString("</tr></thead><tbody>")

	for _, row := range t.Rows {
		b.WriteString("<tr>")
		for j, cell := range row {
			align := cell.Align
			if align == AlignDefault && j < len(t.Columns) {
				align = t.Columns[j].Align
			}
			b.WriteString("<td")
			writeClass(&b, align, cell.Kind == KindSpacer)
			if cell.Kind == KindText && !cell.BG.IsTransparent() {
				b.WriteString(` style="background:` + cell.BG.CSS() + `"`)
			}
			b.WriteString(">")
			writeCell(&b, cell)
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return template.HTML(b.String())
}

func (t *Table) hasWidths() bool {
	for _, c := range t.Columns {
		if c.Width != "" {
			return true
		}
	}
	return false
}

func writeClass(b *strings.Builder, a Align, spacer bool) {
	var classes []string
	if spacer {
		classes = append(classes, "spacer")
	}
	if c := a.class(); c != "" {
		classes = append(classes, c)
	}
	if len(classes) > 0 {
		b.WriteString(` class="` + strings.Join(classes, " ") + `"`)
	}
}

func writeCell(b *strings.Builder, c Cell) {
	text := html.EscapeString(c.Text)
	switch c.Kind {
	case KindLink:
		b.WriteString(`<a class="ticker" href="` + html.EscapeString(c.Href) + `" target="_self" rel="noopener">` + text + `</a>`)
	case KindBadge:
		if c.Text == "" {
			return
		}
		b.WriteString(`<span class="badge" style="background:` + c.BG.CSS())
		if c.FG != "" {
			b.WriteString(";color:" + html.EscapeString(c.FG))
		}
		b.WriteString(`">` + text + `</span>`)
	case KindPill:
		if c.Text == "" {
			return
		}
		b.WriteString(`<span class="pill" style="background:` + c.BG.CSS() + `">` + text + `</span>`)
	case KindSpacer:
	default:
		b.WriteString(text)
	}
}

// WriteCSV writes the visible text of every non-spacer column.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	var keep []int
	var header []string
	for i, c := range t.Columns {
		if c.Spacer {
			continue
		}
		keep = append(keep, i)
		header = append(header, strings.ReplaceAll(c.Header, "\n", " "))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		rec := make([]string, len(keep))
		for k, i := range keep {
			if i < len(row) {
				rec[k] = row[i].Text
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
