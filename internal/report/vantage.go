package report

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bobmcallan/markmentum-portal/internal/dashboard"
	"github.com/bobmcallan/markmentum-portal/internal/data"
)

// Printer turns a standalone HTML document into a PDF.
type Printer interface {
	PrintHTML(ctx context.Context, html string) ([]byte, error)
}

// PageRenderer renders the Vantage Point page for a render context as a
// standalone HTML document.
type PageRenderer func(rc *dashboard.Context) (string, error)

type vantagePoint struct {
	base
	printer Printer
	render  PageRenderer
}

// NewVantagePoint returns the browser-printed Vantage Point module. Without
// a printer it contributes nothing.
func NewVantagePoint(printer Printer, render PageRenderer) Module {
	return &vantagePoint{
		base: base{
			key:   "vantage_point",
			label: "Vantage Point",
			form: Form{
				Timeframes: []string{"Daily", "Weekly", "Monthly", "Quarterly"},
				Caption:    "Printed from the Vantage Point page by the configured browser.",
			},
		},
		printer: printer,
		render:  render,
	}
}

// Available reports whether a printer is configured.
func (m *vantagePoint) Available() bool {
	return m.printer != nil && m.render != nil
}

func (m *vantagePoint) Preview(rc *dashboard.Context, _ Options) string {
	if !m.Available() {
		return "Vantage Point printing is not configured."
	}
	return previewLine(m.label, nil, func(string) string { return data.AsOf(rc.Named(dashboard.SignalBox)) })
}

func (m *vantagePoint) Build(env *Env, opts Options) ([][]byte, string, error) {
	if !m.Available() {
		return nil, m.key, nil
	}
	tfs := opts.Timeframes
	if len(tfs) == 0 {
		tfs = []string{"Daily"}
	}
	var blobs [][]byte
	for _, tf := range tfs {
		rc := dashboard.NewContext(env.Ctx(), env.Source, url.Values{"tf": {tf}}, env.Logger)
		rc.Location = env.Location
		rc.MemberID = env.MemberID
		html, err := m.render(rc)
		if err != nil {
			return nil, "", fmt.Errorf("failed to render vantage point %s: %w", tf, err)
		}
		pdf, err := m.printer.PrintHTML(env.Ctx(), html)
		if err != nil {
			return nil, "", fmt.Errorf("failed to print vantage point %s: %w", tf, err)
		}
		blobs = append(blobs, pdf)
	}
	return blobs, m.key, nil
}
