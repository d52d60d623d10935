// internal/browser/http.go
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagehound/pagehound/internal/bulk"
	"github.com/pagehound/pagehound/internal/detect"
)

// defaultUserAgent is sent when no user agent is configured.
const defaultUserAgent = "Mozilla/5.0 (compatible; pagehound/1.0)"

// HTTPLoader fetches pages with plain HTTP requests. It cannot execute
// scripts, so pagination works only through controls that are real links.
type HTTPLoader struct {
	client    *http.Client
	userAgent string
}

// NewHTTPLoader builds a loader around client; pass nil for a default client.
func NewHTTPLoader(client *http.Client, userAgent string) *HTTPLoader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HTTPLoader{client: client, userAgent: userAgent}
}

// Load fetches the URL and parses the response body.
func (l *HTTPLoader) Load(ctx context.Context, pageURL string) (bulk.Page, error) {
	doc, finalURL, err := l.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return &httpPage{loader: l, doc: doc, url: finalURL}, nil
}

func (l *HTTPLoader) fetch(ctx context.Context, pageURL string) (*goquery.Document, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL %q: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse response body: %w", err)
	}
	return doc, resp.Request.URL.String(), nil
}

type httpPage struct {
	loader *HTTPLoader
	doc    *goquery.Document
	url    string
}

func (p *httpPage) URL() string { return p.url }

func (p *httpPage) Document() (*goquery.Document, error) { return p.doc, nil }

// Advance follows the control's href, resolved against the current page URL.
// Click-only controls cannot be advanced without a browser.
func (p *httpPage) Advance(ctx context.Context, control detect.NextControl) (*goquery.Document, error) {
	if control.Href == "" {
		return nil, fmt.Errorf("next-page control is not a link")
	}
	next, err := resolveURL(p.url, control.Href)
	if err != nil {
		return nil, err
	}

	select {
	case <-time.After(bulk.PaginationWait):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	doc, finalURL, err := p.loader.fetch(ctx, next)
	if err != nil {
		return nil, err
	}
	p.doc = doc
	p.url = finalURL
	return doc, nil
}

func (p *httpPage) Close() error { return nil }

func resolveURL(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
