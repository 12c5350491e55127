// Package dashboard builds the view models behind each portal page. Builders
// read tables through a Source, format them into view tables and cards, and
// never fail: a missing artifact becomes an informational card.
package dashboard

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/bobmcallan/markmentum-portal/internal/data"
)

// Source is the read side of the artifact store.
type Source interface {
	Graph(ctx context.Context, id int) (*data.Table, error)
	Named(ctx context.Context, name string) (*data.Table, error)
	Text(ctx context.Context, name string) string
	HTML(ctx context.Context, name string) (string, bool)
	Exists(name string) bool
}

// Context is the per-request render context threaded through the builders.
// It is not modified after construction.
type Context struct {
	ctx      context.Context
	Source   Source
	Now      time.Time
	Location *time.Location
	MemberID string
	Query    url.Values
	Logger   *common.Logger
}

// NewContext creates a render context for one request.
func NewContext(ctx context.Context, src Source, query url.Values, logger *common.Logger) *Context {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if query == nil {
		query = url.Values{}
	}
	return &Context{
		ctx:      ctx,
		Source:   src,
		Now:      time.Now(),
		Location: time.UTC,
		MemberID: common.MemberID(ctx),
		Query:    query,
		Logger:   logger,
	}
}

// Ctx returns the request context.
func (rc *Context) Ctx() context.Context { return rc.ctx }

// Param returns a trimmed query parameter.
func (rc *Context) Param(name string) string {
	return strings.TrimSpace(rc.Query.Get(name))
}

// Flag reports whether a checkbox-style query parameter is set.
func (rc *Context) Flag(name string) bool {
	switch strings.ToLower(rc.Param(name)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Graph loads a numbered export. Load errors are logged and yield the empty
// table the store returns alongside them.
func (rc *Context) Graph(id int) *data.Table {
	t, err := rc.Source.Graph(rc.ctx, id)
	if err != nil {
		rc.Logger.Error().Str("file", data.GraphFile(id)).Err(err).Msg("Dataset unavailable")
	}
	return t
}

// Named loads a fixed-name CSV, logging load errors.
func (rc *Context) Named(name string) *data.Table {
	t, err := rc.Source.Named(rc.ctx, name)
	if err != nil {
		rc.Logger.Error().Str("file", name).Err(err).Msg("Dataset unavailable")
	}
	return t
}

// Text loads a commentary file, or "" when absent.
func (rc *Context) Text(name string) string {
	return rc.Source.Text(rc.ctx, name)
}

// HTML loads a raw HTML artifact.
func (rc *Context) HTML(name string) (string, bool) {
	return rc.Source.HTML(rc.ctx, name)
}

// MacroList is the fixed macro ticker list in display order.
var MacroList = []string{
	"SPX", "NDX", "DJI", "RUT",
	"XLB", "XLC", "XLE", "XLF", "XLI", "XLK", "XLP", "XLRE", "XLU", "XLV", "XLY",
	"GLD", "DXY", "TLT", "BTC=F",
}

// CategoryOrder is the preferred display order of categories.
var CategoryOrder = []string{
	"Sector & Style ETFs", "Indices", "Futures", "Currencies", "Commodities",
	"Bonds", "Yields", "Volatility", "Foreign",
	"Communication Services", "Consumer Discretionary", "Consumer Staples",
	"Energy", "Financials", "Health Care", "Industrials", "Information Technology",
	"Materials", "Real Estate", "Utilities", "MR Discretion",
}

// CategoriesPresent returns the categories of t in preferred order. Only
// categories named in CategoryOrder are listed.
func CategoriesPresent(t *data.Table) []string {
	have := make(map[string]bool)
	for _, c := range t.Distinct("Category") {
		have[c] = true
	}
	var out []string
	for _, c := range CategoryOrder {
		if have[c] {
			out = append(out, c)
		}
	}
	return out
}

// pick returns want when it is one of options, otherwise def, otherwise the
// first option.
func pick(want string, options []string, def string) string {
	for _, o := range options {
		if strings.EqualFold(o, want) {
			return o
		}
	}
	for _, o := range options {
		if o == def {
			return o
		}
	}
	if len(options) > 0 {
		return options[0]
	}
	return ""
}

// titled joins a page title and its as-of date.
func titled(title, asOf string) string {
	if asOf == "" {
		return title
	}
	return title + " – " + asOf
}

// Legend is the Tape Bias legend shown under trend tables.
const Legend = "Legend: Buy – Uptrend confirmed · Leaning Bullish – Bullish setup, confirmation pending · " +
	"Neutral – Crosscurrents / mixed trends · Topping / Bottoming – Transition zones where trends may reverse · " +
	"Leaning Bearish – Bearish bias but not fully aligned · Sell – Downtrend confirmed."

// Disclaimer is the footer carried by every page and report page.
const Disclaimer = "© 2026 Markmentum Research LLC. Disclaimer: This content is for informational purposes only. " +
	"Nothing herein constitutes an offer to sell, a solicitation of an offer to buy, or a recommendation regarding any security, " +
	"investment vehicle, or strategy. It does not represent legal, tax, accounting, or investment advice by Markmentum Research LLC " +
	"or its employees. The information is provided without regard to individual objectives or risk parameters and is general, " +
	"non-tailored, and non-specific. Sources are believed to be reliable, but accuracy and completeness are not guaranteed. " +
	"Markmentum Research LLC is not responsible for errors, omissions, or losses arising from use of this material. " +
	"Investments involve risk, and financial markets are subject to fluctuation. Consult your financial professional before " +
	"making investment decisions."
