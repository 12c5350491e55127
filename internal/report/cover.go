package report

import (
	"os"

	"github.com/go-pdf/fpdf"
)

const (
	logoWidth  = 7.2
	logoHeight = 0.9
)

// Cover renders the Research Pack title page. The logo is drawn when
// logoPath exists; empty dates are left out. The cover carries no footer.
func Cover(tradingSession, dataAsOf, logoPath string) ([]byte, error) {
	d := NewDocument(CoverMargins, false, "")
	pdf := d.pdf
	pageW, _ := pdf.GetPageSize()

	y := CoverMargins.Top + 0.6
	if logoPath != "" {
		if _, err := os.Stat(logoPath); err == nil {
			pdf.ImageOptions(logoPath, (pageW-logoWidth)/2, y, logoWidth, logoHeight, false, fpdf.ImageOptions{ReadDpi: false}, 0, "")
			if !pdf.Ok() {
				pdf.ClearError()
			}
		}
	}
	y += logoHeight + 1.0

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetXY(CoverMargins.Left, y)
	pdf.CellFormat(d.width(), 0.4, d.Text("Research Pack"), "", 0, "C", false, 0, "")
	y += 0.4 + 12.0/ptPerInch + 0.5

	if tradingSession != "" {
		label := d.Text("Trading Session: ")
		value := d.Text(tradingSession)
		pdf.SetFont("Helvetica", "B", 14)
		lw := pdf.GetStringWidth(label)
		pdf.SetFont("Helvetica", "", 14)
		vw := pdf.GetStringWidth(value)
		x := (pageW - lw - vw) / 2
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetXY(x, y)
		pdf.CellFormat(lw, 0.3, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 14)
		pdf.CellFormat(vw, 0.3, value, "", 0, "L", false, 0, "")
		y += 0.3 + 6.0/ptPerInch
	}
	y += 0.5

	if dataAsOf != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(0x66, 0x66, 0x66)
		pdf.SetXY(CoverMargins.Left, y)
		pdf.CellFormat(d.width(), 0.25, d.Text("Data as of: "+dataAsOf), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	return d.Bytes()
}
