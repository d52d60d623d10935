// internal/bulk/controller.go
//
// Package bulk runs multi-URL scraping jobs: load each URL in order, extract
// the requested data type, merge into the persistent store, and report
// progress. Runs are strictly sequential; politeness comes from the
// configured request delay, not from concurrency limits.
package bulk

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagehound/pagehound/internal/config"
	"github.com/pagehound/pagehound/internal/detect"
	"github.com/pagehound/pagehound/internal/monitoring"
	"github.com/pagehound/pagehound/internal/session"
	"github.com/pagehound/pagehound/internal/store"
	"github.com/pagehound/pagehound/internal/utils"
	"github.com/pagehound/pagehound/pkg/types"
)

// PaginationWait is how long loaders wait after triggering a next-page
// control before re-reading the document, giving scripted page updates time
// to land.
const PaginationWait = 2000 * time.Millisecond

// Page is one loaded page. Document returns the current DOM snapshot;
// Advance triggers a next-page control and returns the refreshed document
// after the pagination wait.
type Page interface {
	URL() string
	Document() (*goquery.Document, error)
	Advance(ctx context.Context, control detect.NextControl) (*goquery.Document, error)
	Close() error
}

// Loader fetches pages. Implementations decide whether that means a headless
// browser or a plain HTTP round trip.
type Loader interface {
	Load(ctx context.Context, url string) (Page, error)
}

// Request describes one bulk run. SinglePage forces one page per URL even
// when an enabled pagination block is supplied.
type Request struct {
	URLs       []string
	DataType   string // a type key, or "all"/"" for everything
	Pagination types.Pagination
	SinglePage bool
	Trigger    string // "manual" or "schedule", label only
}

// Result summarizes a finished run.
type Result struct {
	Pages   int
	Skipped int
	Store   *types.ScrapedStore
}

// Controller executes bulk runs one page at a time.
type Controller struct {
	loader   Loader
	store    *store.Store
	settings *config.Settings
	metrics  *monitoring.Metrics
	logger   utils.Logger

	// OnProgress fires after each URL of the run, completed counting from 1.
	// OnComplete fires exactly once after the final URL. Either may be nil.
	OnProgress func(types.BulkProgress)
	OnComplete func(types.BulkComplete)
}

// NewController wires a controller. metrics may be nil.
func NewController(loader Loader, st *store.Store, settings *config.Settings, metrics *monitoring.Metrics, logger utils.Logger) *Controller {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Controller{
		loader:   loader,
		store:    st,
		settings: settings,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run processes every URL of the request in order. A URL that fails to load
// or extract is logged and skipped; the run continues with the next URL and
// still reports one progress step for it. Only context cancellation aborts
// the run early.
func (c *Controller) Run(ctx context.Context, req Request) (*Result, error) {
	if len(req.URLs) == 0 {
		return nil, fmt.Errorf("bulk run needs at least one URL")
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if c.settings.RequestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(c.settings.RequestDelay), 1)
	}

	started := time.Now()
	result := &Result{}
	total := len(req.URLs)

	// Pagination applies only when requested and not overridden.
	pagination := req.Pagination
	if req.SinglePage {
		pagination = types.Pagination{}
	}

	for i, url := range req.URLs {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		if !c.settings.AllowsURL(url) {
			c.logger.WithField("url", url).Warn("URL blocked by domain rules, skipping")
			result.Skipped++
		} else if err := c.scrapeURL(ctx, url, req.DataType, pagination, result); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if c.metrics != nil {
				c.metrics.NavigationErrors.Inc()
			}
			c.logger.WithFields(map[string]any{"url": url, "error": err.Error()}).Warn("page failed, skipping")
			result.Skipped++
		}

		if c.OnProgress != nil {
			c.OnProgress(types.BulkProgress{Completed: i + 1, Total: total})
		}
	}

	if c.OnComplete != nil {
		c.OnComplete(types.BulkComplete{Count: total})
	}
	if c.metrics != nil {
		trigger := req.Trigger
		if trigger == "" {
			trigger = "manual"
		}
		c.metrics.BulkRunsTotal.WithLabelValues(trigger).Inc()
		c.metrics.BulkRunDuration.Observe(time.Since(started).Seconds())
	}

	scraped, err := c.store.LoadScraped()
	if err != nil {
		return result, err
	}
	result.Store = scraped
	return result, nil
}

// scrapeURL handles one URL of the run: the initial page plus, when
// pagination is enabled, up to PageCount-1 follow-up pages. Running out of
// next-page controls ends pagination silently.
func (c *Controller) scrapeURL(ctx context.Context, url, dataType string, pagination types.Pagination, result *Result) error {
	loadCtx := ctx
	if c.settings.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, c.settings.NavigationTimeout)
		defer cancel()
	}

	page, err := c.loader.Load(loadCtx, url)
	if err != nil {
		if loadCtx.Err() == context.DeadlineExceeded {
			return &utils.NavigationTimeout{URL: url, Timeout: c.settings.NavigationTimeout}
		}
		return err
	}
	defer page.Close()

	doc, err := page.Document()
	if err != nil {
		return err
	}
	if err := c.extractAndMerge(doc, page.URL(), dataType); err != nil {
		return err
	}
	result.Pages++

	if !pagination.Enabled {
		return nil
	}
	for pageNum := 2; pageNum <= pagination.PageCount; pageNum++ {
		control, ok := detect.FindNextControl(doc, session.StructuralSelector)
		if !ok {
			c.logger.WithField("url", url).Debug("no next-page control, pagination done")
			return nil
		}
		doc, err = page.Advance(ctx, control)
		if err != nil {
			return fmt.Errorf("page %d of %s: %w", pageNum, url, err)
		}
		if err := c.extractAndMerge(doc, page.URL(), dataType); err != nil {
			return err
		}
		result.Pages++
	}
	return nil
}

func (c *Controller) extractAndMerge(doc *goquery.Document, pageURL, dataType string) error {
	data := detect.ExtractForType(doc, dataType, pageURL)
	if c.metrics != nil {
		c.metrics.ObserveExtraction(data)
	}
	if _, err := c.store.MergeBatch(data, pageURL); err != nil {
		return err
	}
	return nil
}
