package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// BrowserPrinter prints HTML to PDF through a remote Chrome DevTools
// endpoint such as a headless-shell container.
type BrowserPrinter struct {
	url     string
	timeout time.Duration
}

// NewBrowserPrinter connects to the DevTools endpoint at url (ws:// or
// http://host:port) for every print.
func NewBrowserPrinter(url string, timeout time.Duration) *BrowserPrinter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BrowserPrinter{url: url, timeout: timeout}
}

// PrintHTML loads html into a fresh tab and prints it landscape on letter
// paper with backgrounds.
func (b *BrowserPrinter) PrintHTML(ctx context.Context, html string) ([]byte, error) {
	if b.url == "" {
		return nil, errors.New("browser url not configured")
	}
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, b.url)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, b.timeout)
	defer timeoutCancel()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithLandscape(true).
				WithPrintBackground(true).
				WithPaperWidth(8.5).
				WithPaperHeight(11).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to print html: %w", err)
	}
	return pdf, nil
}
