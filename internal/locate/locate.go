// Package locate resolves a reel page into a direct media URL. The page is
// rendered in a scriptable browser context (the mirror site may construct the
// playable-media reference via client-side script, so a raw markup fetch is
// not enough), then an ordered list of extraction strategies is applied until
// one produces a URL.
package locate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"reelbot"
	"reelbot/generic"
)

var (
	// ErrMediaNotFound means the page rendered fine but no strategy produced a media URL.
	ErrMediaNotFound = errors.New("no media URL found in page")
	// ErrPageLoadTimeout means the page did not finish loading in time. Retriable by the caller.
	ErrPageLoadTimeout = errors.New("page load timed out")
)

// A Page is a rendered document plus the URL it was finally served from,
// which may differ from the requested URL after redirects.
type Page struct {
	doc *goquery.Document
	url *url.URL
}

func NewPage(doc *goquery.Document, finalURL *url.URL) *Page {
	return &Page{doc: doc, url: finalURL}
}

// Attr returns the named attribute of the first element matching the selector.
func (p *Page) Attr(selector, attr string) generic.Option[string] {
	if value, ok := p.doc.Find(selector).Attr(attr); ok {
		return generic.Some(value)
	}
	return generic.None[string]()
}

// Resolve makes a reference from the page absolute. Root-relative references
// resolve against the scheme and host the page was actually served from, not
// against the originally requested host, since redirects may change host.
func (p *Page) Resolve(ref string) (string, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if parsed.IsAbs() {
		return ref, nil
	}
	return p.url.ResolveReference(parsed).String(), nil
}

// A PageLoader renders a URL into a Page. Each Load owns an independent
// browser context, never shared between jobs.
type PageLoader interface {
	Load(ctx context.Context, pageURL string) (*Page, error)
}

type Locator struct {
	loader     PageLoader
	strategies []Strategy
}

// New creates a Locator using the given strategies, or DefaultStrategies if
// none are given.
func New(loader PageLoader, strategies ...Strategy) *Locator {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Locator{loader: loader, strategies: strategies}
}

// Locate loads the page and applies each strategy in priority order, stopping
// at the first hit. Returns ErrMediaNotFound if every strategy comes up empty,
// or ErrPageLoadTimeout if the page never finished loading.
func (l *Locator) Locate(ctx context.Context, pageURL string) (string, error) {
	page, err := l.loader.Load(ctx, pageURL)
	if err != nil {
		return "", err
	}
	logger := reelbot.Logger(ctx)
	for _, strategy := range l.strategies {
		found := strategy.Extract(page)
		if found.IsNone() {
			continue
		}
		ref := strings.TrimSpace(found.Value)
		if ref == "" {
			continue
		}
		mediaURL, err := page.Resolve(ref)
		if err != nil {
			logger.Warn("ignoring unparseable media reference",
				zap.String("strategy", strategy.Name), zap.String("ref", ref))
			continue
		}
		logger.Debug("media URL located",
			zap.String("strategy", strategy.Name), zap.String("media_url", mediaURL))
		return mediaURL, nil
	}
	return "", fmt.Errorf("%w: %s", ErrMediaNotFound, pageURL)
}
