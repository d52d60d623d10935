// internal/browser/chrome.go
//
// Package browser provides the page loaders behind bulk runs: a headless
// Chrome loader for pages that need script execution, and a plain HTTP
// loader for static pages. Both satisfy bulk.Loader.
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/pagehound/pagehound/internal/bulk"
	"github.com/pagehound/pagehound/internal/detect"
	"github.com/pagehound/pagehound/internal/utils"
)

// ChromeConfig controls the shared Chrome allocator.
type ChromeConfig struct {
	Headless    bool
	UserAgent   string
	UserDataDir string
}

// ChromeLoader loads pages in a headless Chrome instance via chromedp. One
// allocator is shared; each Load gets its own tab context.
type ChromeLoader struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	logger      utils.Logger
}

// NewChromeLoader starts the Chrome allocator.
func NewChromeLoader(cfg ChromeConfig, logger utils.Logger) *ChromeLoader {
	if logger == nil {
		logger = utils.NewLogger()
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeLoader{allocCtx: allocCtx, allocCancel: cancel, logger: logger}
}

// Load opens a new tab, navigates to url and waits for the body to be ready.
func (l *ChromeLoader) Load(ctx context.Context, url string) (bulk.Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(l.allocCtx)

	runCtx, runCancel := mergeDeadline(tabCtx, ctx)
	defer runCancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	return &chromePage{ctx: tabCtx, cancel: tabCancel, url: url}, nil
}

// Close shuts the allocator and every remaining tab down.
func (l *ChromeLoader) Close() error {
	l.allocCancel()
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	url    string
}

func (p *chromePage) URL() string { return p.url }

// Document snapshots the live DOM into a goquery document.
func (p *chromePage) Document() (*goquery.Document, error) {
	var html string
	if err := chromedp.Run(p.ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, fmt.Errorf("failed to read page HTML: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}
	return doc, nil
}

// Advance triggers the next-page control in the live tab, preferring a click
// on the control's selector and falling back to navigating its href, then
// waits out the pagination delay before snapshotting the new document.
func (p *chromePage) Advance(ctx context.Context, control detect.NextControl) (*goquery.Document, error) {
	runCtx, runCancel := mergeDeadline(p.ctx, ctx)
	defer runCancel()

	var action chromedp.Action
	switch {
	case control.Selector != "":
		action = chromedp.Click(control.Selector, chromedp.NodeVisible)
	case control.Href != "":
		action = chromedp.Navigate(control.Href)
	default:
		return nil, fmt.Errorf("next-page control has neither selector nor href")
	}

	if err := chromedp.Run(runCtx, action, chromedp.Sleep(bulk.PaginationWait)); err != nil {
		return nil, fmt.Errorf("failed to advance page: %w", err)
	}

	var location string
	if err := chromedp.Run(runCtx, chromedp.Location(&location)); err == nil && location != "" {
		p.url = location
	}
	return p.Document()
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}

// mergeDeadline applies the deadline of outer, if any, to base without
// adopting outer's values.
func mergeDeadline(base, outer context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := outer.Deadline(); ok {
		return context.WithDeadline(base, deadline)
	}
	return context.WithCancel(base)
}
