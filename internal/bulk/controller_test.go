// internal/bulk/controller_test.go
package bulk

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagehound/pagehound/internal/config"
	"github.com/pagehound/pagehound/internal/detect"
	"github.com/pagehound/pagehound/internal/store"
	"github.com/pagehound/pagehound/pkg/types"
)

// fakeLoader serves canned page sequences: Load returns the first document
// for a URL, Advance steps through the rest.
type fakeLoader struct {
	pages map[string][]string // url -> HTML per pagination step
	fail  map[string]bool
	loads int
}

func (l *fakeLoader) Load(_ context.Context, url string) (Page, error) {
	l.loads++
	if l.fail[url] {
		return nil, fmt.Errorf("connection refused: %s", url)
	}
	htmls, ok := l.pages[url]
	if !ok {
		return nil, fmt.Errorf("no such page: %s", url)
	}
	return &fakePage{url: url, htmls: htmls}, nil
}

type fakePage struct {
	url   string
	htmls []string
	step  int
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(p.htmls[p.step]))
}

func (p *fakePage) Advance(_ context.Context, _ detect.NextControl) (*goquery.Document, error) {
	if p.step+1 >= len(p.htmls) {
		return nil, fmt.Errorf("no further pages")
	}
	p.step++
	return p.Document()
}

func (p *fakePage) Close() error { return nil }

func pageWithEmail(email string) string {
	return `<html><body><p>` + email + `</p></body></html>`
}

func pageWithEmailAndNext(email string) string {
	return `<html><body><p>` + email + `</p>
		<div class="pagination"><a href="/next">Next</a></div>
	</body></html>`
}

func testSettings() *config.Settings {
	settings := config.Default()
	settings.RequestDelay = 0
	settings.NavigationTimeout = 0
	return settings
}

func newTestController(t *testing.T, loader Loader, settings *config.Settings) (*Controller, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewController(loader, st, settings, nil, nil), st
}

func TestRunProgressAccounting(t *testing.T) {
	loader := &fakeLoader{pages: map[string][]string{
		"https://a.test": {pageWithEmail("a@a.test")},
		"https://b.test": {pageWithEmail("b@b.test")},
		"https://c.test": {pageWithEmail("c@c.test")},
	}}
	ctrl, st := newTestController(t, loader, testSettings())

	var progress []types.BulkProgress
	var completes []types.BulkComplete
	ctrl.OnProgress = func(p types.BulkProgress) { progress = append(progress, p) }
	ctrl.OnComplete = func(c types.BulkComplete) { completes = append(completes, c) }

	result, err := ctrl.Run(context.Background(), Request{
		URLs: []string{"https://a.test", "https://b.test", "https://c.test"},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	expected := []types.BulkProgress{
		{Completed: 1, Total: 3},
		{Completed: 2, Total: 3},
		{Completed: 3, Total: 3},
	}
	if !reflect.DeepEqual(progress, expected) {
		t.Errorf("expected progress %v, got %v", expected, progress)
	}
	if len(completes) != 1 || completes[0].Count != 3 {
		t.Errorf("expected exactly one complete{3}, got %v", completes)
	}
	if result.Pages != 3 || result.Skipped != 0 {
		t.Errorf("unexpected result: %+v", result)
	}

	scraped, err := st.LoadScraped()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if emails := scraped.TypeList(types.TypeEmails); len(emails) != 3 {
		t.Errorf("expected 3 emails in store, got %v", emails)
	}
	if len(scraped.History) != 3 {
		t.Errorf("expected 3 history entries, got %d", len(scraped.History))
	}
}

func TestRunSkipsFailedURL(t *testing.T) {
	loader := &fakeLoader{
		pages: map[string][]string{
			"https://a.test": {pageWithEmail("a@a.test")},
			"https://c.test": {pageWithEmail("c@c.test")},
		},
		fail: map[string]bool{"https://b.test": true},
	}
	ctrl, st := newTestController(t, loader, testSettings())

	var progress []types.BulkProgress
	ctrl.OnProgress = func(p types.BulkProgress) { progress = append(progress, p) }

	result, err := ctrl.Run(context.Background(), Request{
		URLs: []string{"https://a.test", "https://b.test", "https://c.test"},
	})
	if err != nil {
		t.Fatalf("a failed URL must not fail the run: %v", err)
	}
	if result.Pages != 2 || result.Skipped != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	// The skipped URL still counts one progress step.
	if len(progress) != 3 {
		t.Errorf("expected 3 progress events, got %d", len(progress))
	}

	scraped, _ := st.LoadScraped()
	if emails := scraped.TypeList(types.TypeEmails); len(emails) != 2 {
		t.Errorf("expected 2 emails from the surviving pages, got %v", emails)
	}
}

func TestRunPaginationEndsSilently(t *testing.T) {
	loader := &fakeLoader{pages: map[string][]string{
		"https://a.test": {
			pageWithEmailAndNext("p1@a.test"),
			pageWithEmailAndNext("p2@a.test"),
			pageWithEmail("p3@a.test"), // no next control: pagination ends here
		},
	}}
	ctrl, st := newTestController(t, loader, testSettings())

	result, err := ctrl.Run(context.Background(), Request{
		URLs:       []string{"https://a.test"},
		Pagination: types.Pagination{Enabled: true, PageCount: 10},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Pages != 3 {
		t.Errorf("expected 3 pages scraped, got %d", result.Pages)
	}

	scraped, _ := st.LoadScraped()
	if emails := scraped.TypeList(types.TypeEmails); len(emails) != 3 {
		t.Errorf("expected 3 emails across pages, got %v", emails)
	}
}

func TestRunPaginationRespectsPageCount(t *testing.T) {
	loader := &fakeLoader{pages: map[string][]string{
		"https://a.test": {
			pageWithEmailAndNext("p1@a.test"),
			pageWithEmailAndNext("p2@a.test"),
			pageWithEmailAndNext("p3@a.test"),
		},
	}}
	ctrl, _ := newTestController(t, loader, testSettings())

	result, err := ctrl.Run(context.Background(), Request{
		URLs:       []string{"https://a.test"},
		Pagination: types.Pagination{Enabled: true, PageCount: 2},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Pages != 2 {
		t.Errorf("expected the page count to cap pagination at 2, got %d", result.Pages)
	}
}

func TestRunSinglePageOverridesPagination(t *testing.T) {
	loader := &fakeLoader{pages: map[string][]string{
		"https://a.test": {pageWithEmailAndNext("p1@a.test"), pageWithEmailAndNext("p2@a.test")},
		"https://b.test": {pageWithEmailAndNext("p1@b.test"), pageWithEmailAndNext("p2@b.test")},
		"https://c.test": {pageWithEmailAndNext("p1@c.test"), pageWithEmailAndNext("p2@c.test")},
	}}
	ctrl, st := newTestController(t, loader, testSettings())

	var progress []types.BulkProgress
	var completes []types.BulkComplete
	ctrl.OnProgress = func(p types.BulkProgress) { progress = append(progress, p) }
	ctrl.OnComplete = func(c types.BulkComplete) { completes = append(completes, c) }

	result, err := ctrl.Run(context.Background(), Request{
		URLs:       []string{"https://a.test", "https://b.test", "https://c.test"},
		Pagination: types.Pagination{Enabled: true, PageCount: 5},
		SinglePage: true,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// One page per URL despite the enabled pagination block.
	if result.Pages != 3 {
		t.Errorf("expected 3 pages, got %d", result.Pages)
	}
	expected := []types.BulkProgress{
		{Completed: 1, Total: 3},
		{Completed: 2, Total: 3},
		{Completed: 3, Total: 3},
	}
	if !reflect.DeepEqual(progress, expected) {
		t.Errorf("expected progress %v, got %v", expected, progress)
	}
	if len(completes) != 1 || completes[0].Count != 3 {
		t.Errorf("expected exactly one complete{3}, got %v", completes)
	}

	scraped, _ := st.LoadScraped()
	if emails := scraped.TypeList(types.TypeEmails); len(emails) != 3 {
		t.Errorf("expected only the first page of each URL, got %v", emails)
	}
}

func TestRunBlockedDomainSkipped(t *testing.T) {
	loader := &fakeLoader{pages: map[string][]string{
		"https://ok.test": {pageWithEmail("a@ok.test")},
	}}
	settings := testSettings()
	settings.ExcludedDomains = []string{"blocked.test"}
	ctrl, _ := newTestController(t, loader, settings)

	result, err := ctrl.Run(context.Background(), Request{
		URLs: []string{"https://blocked.test/page", "https://ok.test"},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Pages != 1 || result.Skipped != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if loader.loads != 1 {
		t.Errorf("blocked URL must never be loaded, got %d loads", loader.loads)
	}
}

func TestRunRequiresURLs(t *testing.T) {
	ctrl, _ := newTestController(t, &fakeLoader{}, testSettings())
	if _, err := ctrl.Run(context.Background(), Request{}); err == nil {
		t.Fatal("expected an error for an empty URL list")
	}
}

func TestRunSingleTypeExtraction(t *testing.T) {
	loader := &fakeLoader{pages: map[string][]string{
		"https://a.test": {`<html><body>
			<p>mail@a.test</p>
			<a href="/x">X</a>
		</body></html>`},
	}}
	ctrl, st := newTestController(t, loader, testSettings())

	if _, err := ctrl.Run(context.Background(), Request{
		URLs:     []string{"https://a.test"},
		DataType: types.TypeEmails,
	}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	scraped, _ := st.LoadScraped()
	if len(scraped.TypeList(types.TypeEmails)) != 1 {
		t.Error("expected the requested type to be extracted")
	}
	if len(scraped.TypeList(types.TypeLinks)) != 0 {
		t.Error("expected other types to be left alone")
	}
}
