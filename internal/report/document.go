package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/bobmcallan/markmentum-portal/internal/data"
	"github.com/bobmcallan/markmentum-portal/internal/view"
)

const (
	ptPerInch = 72.0

	footerFontSize = 7.0
	footerLeading  = 9.0
	footerBaseline = 0.25
	footerMaxLines = 6

	cellPad = 6.0 / ptPerInch
)

// Margins are page margins in inches.
type Margins struct {
	Left, Top, Right, Bottom float64
}

// ContentMargins are used by every module fragment. The bottom margin keeps
// body text clear of the disclaimer footer.
var ContentMargins = Margins{Left: 0.45, Top: 0.50, Right: 0.45, Bottom: 1.0}

// CoverMargins are used by the cover page.
var CoverMargins = Margins{Left: 0.75, Top: 0.75, Right: 0.75, Bottom: 0.75}

var glyphReplacer = strings.NewReplacer(
	"Δ", "Chg",
	"→", "->",
	"≥", ">=",
	"≤", "<=",
	"−", "-",
	"\u26a0\ufe0f", "",
	"\u26a0", "",
	"\ufe0f", "",
)

// Document is a letter-landscape PDF built from headings, paragraphs and
// view tables with the core Helvetica font. Content pages carry the
// disclaimer footer.
type Document struct {
	pdf     *fpdf.Fpdf
	tr      func(string) string
	m       Margins
	pending bool
	dirty   bool
}

// NewDocument starts a document with its first page.
func NewDocument(m Margins, footer bool, disclaimer string) *Document {
	pdf := fpdf.New("L", "in", "Letter", "")
	pdf.SetMargins(m.Left, m.Top, m.Right)
	pdf.SetAutoPageBreak(true, m.Bottom)
	pdf.SetCreator("Markmentum Research", false)

	d := &Document{pdf: pdf, m: m}
	d.tr = pdf.UnicodeTranslatorFromDescriptor("")
	if footer {
		pdf.SetFooterFunc(func() { d.footer(disclaimer) })
	}
	pdf.AddPage()
	return d
}

// Text converts a display string into the core font encoding.
func (d *Document) Text(s string) string {
	return d.tr(glyphReplacer.Replace(data.CleanText(s)))
}

func (d *Document) width() float64 {
	w, _ := d.pdf.GetPageSize()
	return w - d.m.Left - d.m.Right
}

func (d *Document) bottom() float64 {
	_, h := d.pdf.GetPageSize()
	return h - d.m.Bottom
}

// footer draws the disclaimer bottom-up so the last line sits on the baseline.
func (d *Document) footer(disclaimer string) {
	_, h := d.pdf.GetPageSize()
	d.pdf.SetFont("Helvetica", "", footerFontSize)
	d.pdf.SetTextColor(115, 115, 115)
	lines := d.Wrap(d.Text(disclaimer), d.width())
	if len(lines) > footerMaxLines {
		lines = lines[:footerMaxLines]
	}
	for i, ln := range lines {
		y := h - footerBaseline - float64(footerMaxLines-1-i)*footerLeading/ptPerInch
		d.pdf.Text(d.m.Left, y, ln)
	}
	d.pdf.SetTextColor(0, 0, 0)
}

// Wrap splits encoded text into lines no wider than w in the current font.
func (d *Document) Wrap(s string, w float64) []string {
	var (
		lines []string
		cur   string
	)
	for _, word := range strings.Fields(s) {
		next := word
		if cur != "" {
			next = cur + " " + word
		}
		if cur != "" && d.pdf.GetStringWidth(next) > w {
			lines = append(lines, cur)
			cur = word
			continue
		}
		cur = next
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// PageBreak starts a new page before the next content. Consecutive breaks
// and a trailing break produce no blank pages.
func (d *Document) PageBreak() {
	if d.dirty {
		d.pending = true
	}
}

func (d *Document) ensure() {
	if d.pending {
		d.pdf.AddPage()
		d.pending = false
		d.dirty = false
	}
	d.dirty = true
}

// ensureSpace breaks the page when less than h inches remain.
func (d *Document) ensureSpace(h float64) {
	if d.dirty && d.pdf.GetY()+h > d.bottom() {
		d.pending = true
	}
	d.ensure()
}

// Space advances the cursor by pt points.
func (d *Document) Space(pt float64) {
	if !d.dirty || d.pending {
		return
	}
	d.pdf.Ln(pt / ptPerInch)
}

// Title is the large centred heading of a standalone module.
func (d *Document) Title(s string) { d.heading(s, 18, "C", 0, 12) }

// H1 is a centred section title.
func (d *Document) H1(s string) { d.heading(s, 16, "C", 0, 10) }

// H2 is a left-aligned sub-heading. It moves to a new page when the
// heading would be stranded at the bottom.
func (d *Document) H2(s string) {
	d.ensureSpace(1.0)
	d.heading(s, 12, "L", 10, 6)
}

func (d *Document) heading(s string, size float64, align string, before, after float64) {
	d.ensure()
	d.pdf.SetX(d.m.Left)
	if before > 0 && d.pdf.GetY() > d.m.Top+0.01 {
		d.pdf.Ln(before / ptPerInch)
	}
	d.pdf.SetFont("Helvetica", "B", size)
	d.pdf.SetTextColor(26, 26, 26)
	d.pdf.MultiCell(d.width(), size*1.2/ptPerInch, d.Text(s), "", align, false)
	d.pdf.Ln(after / ptPerInch)
	d.pdf.SetTextColor(0, 0, 0)
}

// Para writes body text; "\n" separates lines.
func (d *Document) Para(s string) {
	d.text(s, 9, 12, 0)
}

// Note writes small gray text.
func (d *Document) Note(s string) {
	d.text(s, 8, 11, 128)
}

func (d *Document) text(s string, size, leading float64, gray int) {
	if strings.TrimSpace(s) == "" {
		return
	}
	d.ensure()
	d.pdf.SetFont("Helvetica", "", size)
	d.pdf.SetTextColor(gray, gray, gray)
	d.pdf.SetX(d.m.Left)
	d.pdf.MultiCell(d.width(), leading/ptPerInch, d.Text(s), "", "L", false)
	d.pdf.SetTextColor(0, 0, 0)
}

// Bullets writes an indented bullet list.
func (d *Document) Bullets(items []string) {
	if len(items) == 0 {
		return
	}
	d.ensure()
	const indent = 0.25
	d.pdf.SetFont("Helvetica", "", 9)
	for _, it := range items {
		d.pdf.SetX(d.m.Left + 0.1)
		d.pdf.CellFormat(indent-0.1, 12/ptPerInch, d.tr("•"), "", 0, "L", false, 0, "")
		d.pdf.MultiCell(d.width()-indent, 12/ptPerInch, d.Text(it), "", "L", false)
	}
}

func alignStr(a view.Align) string {
	switch a {
	case view.AlignCenter:
		return "C"
	case view.AlignRight:
		return "R"
	}
	return "L"
}

const (
	headerSize = 8.0
	bodySize   = 8.0
	lineH      = 10.0 / ptPerInch
	bodyRowH   = (bodySize + 8) / ptPerInch
)

// columnWidths honours Column.Inches and sizes the rest to their content,
// shrinking proportionally when the table is wider than the page.
func (d *Document) columnWidths(t *view.Table) []float64 {
	widths := make([]float64, len(t.Columns))
	for j, c := range t.Columns {
		switch {
		case c.Inches > 0:
			widths[j] = c.Inches
			continue
		case c.Spacer:
			widths[j] = 0.1
			continue
		}
		d.pdf.SetFont("Helvetica", "B", headerSize)
		w := 0.0
		for _, ln := range strings.Split(c.Header, "\n") {
			w = max(w, d.pdf.GetStringWidth(d.Text(ln)))
		}
		d.pdf.SetFont("Helvetica", "", bodySize)
		for _, row := range t.Rows {
			if j < len(row) {
				w = max(w, d.pdf.GetStringWidth(d.Text(row[j].Text)))
			}
		}
		widths[j] = min(w+2*cellPad, 3.0)
	}
	total := 0.0
	for _, w := range widths {
		total += w
	}
	if avail := d.width(); total > avail {
		for j := range widths {
			widths[j] *= avail / total
		}
	}
	return widths
}

// fit truncates encoded text to width w.
func (d *Document) fit(s string, w float64) string {
	if d.pdf.GetStringWidth(s) <= w {
		return s
	}
	for len(s) > 0 && d.pdf.GetStringWidth(s+"...") > w {
		s = s[:len(s)-1]
	}
	return s + "..."
}

// Table draws a view table with a shaded header row and a light grid. Cell
// backgrounds are painted over white. The header repeats after a page break.
func (d *Document) Table(t *view.Table) {
	if t == nil || len(t.Columns) == 0 {
		return
	}
	widths := d.columnWidths(t)
	total := 0.0
	for _, w := range widths {
		total += w
	}
	x0 := d.m.Left
	if avail := d.width(); total < avail {
		x0 += (avail - total) / 2
	}

	headerLines := 1
	for _, c := range t.Columns {
		headerLines = max(headerLines, len(strings.Split(c.Header, "\n")))
	}
	headerH := float64(headerLines)*lineH + 12/ptPerInch

	d.ensureSpace(headerH + bodyRowH)
	margin := d.pdf.GetCellMargin()
	defer d.pdf.SetCellMargin(margin)
	d.pdf.SetCellMargin(cellPad)
	d.pdf.SetLineWidth(0.5 / ptPerInch)
	d.pdf.SetDrawColor(217, 217, 217)

	drawHeader := func() {
		y := d.pdf.GetY()
		x := x0
		d.pdf.SetFont("Helvetica", "B", headerSize)
		d.pdf.SetTextColor(26, 26, 26)
		d.pdf.SetFillColor(242, 242, 242)
		for j, c := range t.Columns {
			d.pdf.Rect(x, y, widths[j], headerH, "FD")
			lines := strings.Split(c.Header, "\n")
			top := y + (headerH-float64(len(lines))*lineH)/2
			for i, ln := range lines {
				d.pdf.SetXY(x, top+float64(i)*lineH)
				d.pdf.CellFormat(widths[j], lineH, d.fit(d.Text(ln), widths[j]-2*cellPad), "", 0, "C", false, 0, "")
			}
			x += widths[j]
		}
		d.pdf.SetXY(x0, y+headerH)
		d.pdf.SetTextColor(0, 0, 0)
	}
	drawHeader()

	for _, row := range t.Rows {
		if d.pdf.GetY()+bodyRowH > d.bottom() {
			d.pdf.AddPage()
			drawHeader()
		}
		y := d.pdf.GetY()
		x := x0
		d.pdf.SetFont("Helvetica", "", bodySize)
		for j, c := range t.Columns {
			var cell view.Cell
			if j < len(row) {
				cell = row[j]
			}
			fill := !cell.BG.IsTransparent()
			if fill {
				r, g, b := cell.BG.Blend()
				d.pdf.SetFillColor(r, g, b)
			}
			align := cell.Align
			if align == view.AlignDefault {
				align = c.Align
			}
			border := "1"
			if c.Spacer {
				border = ""
			}
			d.pdf.SetXY(x, y)
			d.pdf.CellFormat(widths[j], bodyRowH, d.fit(d.Text(cell.Text), widths[j]-2*cellPad), border, 0, alignStr(align), fill, 0, "")
			x += widths[j]
		}
		d.pdf.SetXY(d.m.Left, y+bodyRowH)
	}
	d.pdf.SetX(d.m.Left)
}

// Bytes closes the document and returns the encoded PDF.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
