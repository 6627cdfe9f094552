package locate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

const DefaultPageLoadTimeout = 30 * time.Second

// BrowserLoader renders pages in a headless browser. Every Load call creates
// a fresh browser context, so concurrent jobs never share a tab.
type BrowserLoader struct {
	Timeout time.Duration
}

var _ PageLoader = (*BrowserLoader)(nil)

func NewBrowserLoader(timeout time.Duration) *BrowserLoader {
	if timeout <= 0 {
		timeout = DefaultPageLoadTimeout
	}
	return &BrowserLoader{Timeout: timeout}
}

// Load navigates to the URL, waits for the document to become ready (the
// navigation itself awaits the page load event, after which network activity
// has quiesced), and snapshots the rendered markup. Exceeding the timeout
// yields ErrPageLoadTimeout.
func (b *BrowserLoader) Load(ctx context.Context, pageURL string) (*Page, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.Timeout)
	defer cancelTimeout()

	var html, location string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrPageLoadTimeout, pageURL)
		}
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	finalURL, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("failed to parse final page URL: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page markup: %w", err)
	}
	return NewPage(doc, finalURL), nil
}
