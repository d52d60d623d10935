// internal/bus/bus.go
//
// Package bus dispatches action-tagged messages between the surfaces of the
// system: extraction, storage, bulk runs, export, scheduling and manual
// selection all communicate through it. Inbound messages get a success or
// failure response; state changes additionally publish outbound events to
// subscribers. An unknown action is a failure response, never a panic.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagehound/pagehound/internal/bulk"
	"github.com/pagehound/pagehound/internal/config"
	"github.com/pagehound/pagehound/internal/detect"
	"github.com/pagehound/pagehound/internal/export"
	"github.com/pagehound/pagehound/internal/schedule"
	"github.com/pagehound/pagehound/internal/session"
	"github.com/pagehound/pagehound/internal/store"
	"github.com/pagehound/pagehound/internal/utils"
	"github.com/pagehound/pagehound/pkg/types"
)

// Message actions.
const (
	ActionDataUpdated          = "dataUpdated"
	ActionBulkScrape           = "bulkScrape"
	ActionExportData           = "exportData"
	ActionBulkData             = "bulkData"
	ActionOpenSidebar          = "openSidebar"
	ActionCloseSidebar         = "closeSidebar"
	ActionSettingsUpdated      = "settingsUpdated"
	ActionScheduleUpdated      = "scheduleUpdated"
	ActionGetScrapedData       = "getScrapedData"
	ActionBulkProgress         = "bulkProgress"
	ActionBulkComplete         = "bulkComplete"
	ActionAutoDetect           = "autoDetect"
	ActionHighlightElements    = "highlightElements"
	ActionStartManualDetection = "startManualDetection"
	ActionManualDetectResult   = "manualDetectionResult"
	ActionExtractWithSelector  = "extractWithSelector"
	ActionStartSelectionMode   = "startSelectionMode"
	ActionStopSelectionMode    = "stopSelectionMode"
	ActionStartExclusionMode   = "startExclusionMode"
	ActionStopExclusionMode    = "stopExclusionMode"
	ActionClearHighlights      = "clearHighlights"
	ActionClearExclusionHL     = "clearExclusionHighlights"
	ActionElementSelected      = "elementSelected"
	ActionElementDeselected    = "elementDeselected"
	ActionElementExcluded      = "elementExcluded"
	ActionElementUnexcluded    = "elementUnexcluded"
	ActionExtractSelectedData  = "extractSelectedData"
	ActionExtractedData        = "extractedData"
	ActionElementClicked       = "elementClicked"
	ActionCapture              = "capture"
)

// settingsKey is the sync-namespace key holding persisted settings.
const settingsKey = "settings"

// Message is one bus message. Only Action is mandatory; the remaining
// fields are populated per action.
type Message struct {
	Action      string            `json:"action"`
	Data        json.RawMessage   `json:"data,omitempty"`
	URL         string            `json:"url,omitempty"`
	URLs        []string          `json:"urls,omitempty"`
	DataType    string            `json:"dataType,omitempty"`
	Format      string            `json:"format,omitempty"`
	Selector    string            `json:"selector,omitempty"`
	ExtractType string            `json:"extractType,omitempty"`
	Value       string            `json:"value,omitempty"`
	Color       string            `json:"color,omitempty"`
	Pagination  *types.Pagination `json:"pagination,omitempty"`
	SinglePage  bool              `json:"singlePage,omitempty"`
	Schedule    *types.Schedule   `json:"schedule,omitempty"`
}

// Response answers one message.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(data any) Response    { return Response{Success: true, Data: data} }
func fail(err error) Response { return Response{Success: false, Error: err.Error()} }

func failf(format string, args ...any) Response {
	return Response{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Subscriber receives outbound events.
type Subscriber func(action string, payload any)

// Bus wires the subsystems together and holds the current page context: the
// most recently loaded document plus its manual selection session.
type Bus struct {
	store      *store.Store
	loader     bulk.Loader
	controller *bulk.Controller
	exporter   *export.Exporter
	scheduler  *schedule.Scheduler
	settings   *config.Settings
	logger     utils.Logger

	mu          sync.Mutex
	subscribers []Subscriber
	doc         *goquery.Document
	docURL      string
	summary     *detect.Summary
	session     *session.Session
}

// New wires a bus. scheduler and exporter may be nil when those surfaces
// are not in use.
func New(st *store.Store, loader bulk.Loader, controller *bulk.Controller, exporter *export.Exporter, scheduler *schedule.Scheduler, settings *config.Settings, logger utils.Logger) *Bus {
	if logger == nil {
		logger = utils.NewLogger()
	}
	b := &Bus{
		store:      st,
		loader:     loader,
		controller: controller,
		exporter:   exporter,
		scheduler:  scheduler,
		settings:   settings,
		logger:     logger,
	}
	if controller != nil {
		controller.OnProgress = func(p types.BulkProgress) { b.Publish(ActionBulkProgress, p) }
		controller.OnComplete = func(c types.BulkComplete) { b.Publish(ActionBulkComplete, c) }
	}
	return b
}

// Subscribe registers an outbound event subscriber.
func (b *Bus) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

// Publish delivers an event to every subscriber.
func (b *Bus) Publish(action string, payload any) {
	b.mu.Lock()
	subs := append([]Subscriber(nil), b.subscribers...)
	b.mu.Unlock()
	for _, sub := range subs {
		sub(action, payload)
	}
}

// Handle dispatches one message and returns its response.
func (b *Bus) Handle(ctx context.Context, msg Message) Response {
	switch msg.Action {
	case ActionGetScrapedData:
		return b.getScrapedData()
	case ActionDataUpdated, ActionBulkData, ActionExtractedData:
		return b.mergeData(msg)
	case ActionBulkScrape:
		return b.bulkScrape(ctx, msg)
	case ActionExportData:
		return b.exportData(msg)
	case ActionCapture:
		return b.capture(msg)
	case ActionSettingsUpdated:
		return b.settingsUpdated(msg)
	case ActionScheduleUpdated:
		return b.scheduleUpdated(msg)
	case ActionAutoDetect:
		return b.autoDetect(ctx, msg)
	case ActionHighlightElements:
		return b.highlightElements(msg)
	case ActionClearHighlights:
		return b.withDoc(func(doc *goquery.Document) { detect.ClearHighlights(doc) })
	case ActionClearExclusionHL:
		return b.withDoc(func(doc *goquery.Document) { detect.ClearExclusionHighlights(doc) })
	case ActionStartManualDetection:
		return b.manualDetect(msg)
	case ActionExtractWithSelector:
		return b.extractWithSelector(ctx, msg)
	case ActionStartSelectionMode:
		return b.withSession(func(s *session.Session) { s.StartSelection() })
	case ActionStopSelectionMode:
		return b.withSession(func(s *session.Session) { s.StopSelection() })
	case ActionStartExclusionMode:
		return b.withSession(func(s *session.Session) { s.StartExclusion() })
	case ActionStopExclusionMode:
		return b.withSession(func(s *session.Session) { s.StopExclusion() })
	case ActionElementClicked:
		return b.elementClicked(msg)
	case ActionExtractSelectedData:
		return b.extractSelected(msg)
	case ActionOpenSidebar, ActionCloseSidebar:
		// UI chrome; acknowledged and republished for any listening surface.
		b.Publish(msg.Action, nil)
		return ok(nil)
	case ActionBulkProgress, ActionBulkComplete,
		ActionElementSelected, ActionElementDeselected,
		ActionElementExcluded, ActionElementUnexcluded,
		ActionManualDetectResult:
		// Outbound-only notifications; republish verbatim.
		b.Publish(msg.Action, msg.Data)
		return ok(nil)
	default:
		return failf("unknown action: %s", msg.Action)
	}
}

func (b *Bus) getScrapedData() Response {
	scraped, err := b.store.LoadScraped()
	if err != nil {
		return fail(err)
	}
	return ok(scraped)
}

// mergeData folds one page's extraction payload into the store and notifies
// subscribers that data changed.
func (b *Bus) mergeData(msg Message) Response {
	var data map[string][]any
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return failf("invalid data payload: %v", err)
	}
	scraped, err := b.store.MergeBatch(data, msg.URL)
	if err != nil {
		return fail(err)
	}
	b.Publish(ActionDataUpdated, scraped)
	return ok(scraped)
}

// bulkScrape starts a bulk run in the background; progress and completion
// arrive as published events.
func (b *Bus) bulkScrape(ctx context.Context, msg Message) Response {
	if b.controller == nil {
		return failf("bulk scraping is not available")
	}
	if len(msg.URLs) == 0 {
		return failf("bulkScrape needs at least one URL")
	}
	req := bulk.Request{URLs: msg.URLs, DataType: msg.DataType, SinglePage: msg.SinglePage, Trigger: "manual"}
	if msg.Pagination != nil {
		req.Pagination = *msg.Pagination
	}
	go func() {
		if _, err := b.controller.Run(context.WithoutCancel(ctx), req); err != nil {
			b.logger.WithField("error", err.Error()).Error("bulk run failed")
		}
	}()
	return ok(map[string]any{"started": true, "total": len(msg.URLs)})
}

func (b *Bus) exportData(msg Message) Response {
	if b.exporter == nil {
		return failf("export is not available")
	}
	scraped, err := b.store.LoadScraped()
	if err != nil {
		return fail(err)
	}
	format := msg.Format
	if format == "" {
		format = b.settings.DefaultExport
	}
	path, err := b.exporter.Export(scraped, msg.DataType, format)
	if err != nil {
		return fail(err)
	}
	return ok(map[string]any{"path": path})
}

// capture stores one context-menu value (selected text, a link or image URL)
// under its type key.
func (b *Bus) capture(msg Message) Response {
	if msg.DataType == "" || msg.Value == "" {
		return failf("capture needs dataType and value")
	}
	if err := b.store.Capture(msg.DataType, msg.Value); err != nil {
		return fail(err)
	}
	b.Publish(ActionDataUpdated, nil)
	return ok(nil)
}

func (b *Bus) settingsUpdated(msg Message) Response {
	updated := *b.settings
	if err := json.Unmarshal(msg.Data, &updated); err != nil {
		return failf("invalid settings payload: %v", err)
	}
	if err := updated.Validate(); err != nil {
		return fail(err)
	}
	*b.settings = updated
	if err := b.store.Set(store.NamespaceSync, settingsKey, &updated); err != nil {
		return fail(err)
	}
	b.Publish(ActionSettingsUpdated, &updated)
	return ok(nil)
}

func (b *Bus) scheduleUpdated(msg Message) Response {
	if msg.Schedule == nil {
		return failf("scheduleUpdated needs a schedule")
	}
	b.settings.Schedule = *msg.Schedule
	if err := b.store.Set(store.NamespaceSync, settingsKey, b.settings); err != nil {
		return fail(err)
	}
	if b.scheduler != nil {
		b.scheduler.Update(*msg.Schedule)
	}
	b.Publish(ActionScheduleUpdated, msg.Schedule)
	return ok(nil)
}

// autoDetect loads the page (when a URL is given) and scans it, making it
// the current page for follow-up highlight/selection actions. Responds with
// the per-type detection counts.
func (b *Bus) autoDetect(ctx context.Context, msg Message) Response {
	if msg.URL != "" {
		if !b.settings.AllowsURL(msg.URL) {
			return failf("URL blocked by domain rules: %s", msg.URL)
		}
		page, err := b.loader.Load(ctx, msg.URL)
		if err != nil {
			return fail(err)
		}
		defer page.Close()
		doc, err := page.Document()
		if err != nil {
			return fail(err)
		}
		b.setCurrentPage(doc, page.URL())
	}

	b.mu.Lock()
	doc, docURL := b.doc, b.docURL
	b.mu.Unlock()
	if doc == nil {
		return failf("no page loaded")
	}

	summary := detect.ScanAll(doc)
	b.mu.Lock()
	b.summary = summary
	b.mu.Unlock()

	data := detect.ExtractForType(doc, msg.DataType, docURL)
	if _, err := b.store.MergeBatch(data, docURL); err != nil {
		return fail(err)
	}
	b.Publish(ActionDataUpdated, nil)
	return ok(summary.Counts())
}

func (b *Bus) highlightElements(msg Message) Response {
	b.mu.Lock()
	summary := b.summary
	b.mu.Unlock()
	if summary == nil {
		return failf("no detection summary; run autoDetect first")
	}
	count := summary.Highlight(msg.DataType, msg.Color)
	return ok(map[string]any{"highlighted": count})
}

func (b *Bus) withDoc(fn func(*goquery.Document)) Response {
	b.mu.Lock()
	doc := b.doc
	b.mu.Unlock()
	if doc == nil {
		return failf("no page loaded")
	}
	fn(doc)
	return ok(nil)
}

func (b *Bus) withSession(fn func(*session.Session)) Response {
	sess, resp := b.currentSession()
	if sess == nil {
		return resp
	}
	fn(sess)
	return ok(nil)
}

func (b *Bus) currentSession() (*session.Session, Response) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.doc == nil {
		return nil, failf("no page loaded")
	}
	if b.session == nil {
		b.session = session.New(b.doc, func(ev session.Event) {
			b.Publish(ev.Action, ev.Element)
		})
	}
	return b.session, Response{}
}

// manualDetect resolves a single picked element and reports its structural
// selector.
func (b *Bus) manualDetect(msg Message) Response {
	sess, resp := b.currentSession()
	if sess == nil {
		return resp
	}
	if msg.Selector == "" {
		return failf("startManualDetection needs a selector")
	}
	b.mu.Lock()
	el := b.doc.Find(msg.Selector).First()
	b.mu.Unlock()
	if el.Length() == 0 {
		return failf("element not found: %s", msg.Selector)
	}
	result := sess.ManualDetect(el)
	b.Publish(ActionManualDetectResult, map[string]any{"selector": result})
	return ok(map[string]any{"selector": result})
}

// extractWithSelector runs an operator-supplied CSS selector against the
// current page and stores the results under the custom-selector type.
func (b *Bus) extractWithSelector(ctx context.Context, msg Message) Response {
	if msg.URL != "" {
		if resp := b.autoLoad(ctx, msg.URL); !resp.Success {
			return resp
		}
	}
	b.mu.Lock()
	doc := b.doc
	b.mu.Unlock()
	if doc == nil {
		return failf("no page loaded")
	}

	records, err := detect.ExtractWithSelector(doc, msg.Selector)
	if err != nil {
		return fail(err)
	}
	if _, err := b.store.StoreRecords(types.TypeCustom, records); err != nil {
		return fail(err)
	}
	b.Publish(ActionDataUpdated, nil)
	return ok(records)
}

// elementClicked toggles membership of the clicked element in the active
// selection or exclusion set.
func (b *Bus) elementClicked(msg Message) Response {
	sess, resp := b.currentSession()
	if sess == nil {
		return resp
	}
	if msg.Selector == "" {
		return failf("elementClicked needs a selector")
	}
	b.mu.Lock()
	el := b.doc.Find(msg.Selector).First()
	b.mu.Unlock()
	if el.Length() == 0 {
		return failf("element not found: %s", msg.Selector)
	}
	event := sess.Click(el)
	if event == nil {
		return failf("no selection mode active")
	}
	return ok(event)
}

// extractSelected extracts the session's selected elements and merges the
// records under the type matching the extraction mode.
func (b *Bus) extractSelected(msg Message) Response {
	sess, resp := b.currentSession()
	if sess == nil {
		return resp
	}
	b.mu.Lock()
	doc, docURL := b.doc, b.docURL
	b.mu.Unlock()

	extractType := msg.ExtractType
	if extractType == "" {
		extractType = session.ExtractText
	}
	records, unresolved := session.ExtractSelected(doc, sess.Selected(), sess.Excluded(), extractType, docURL)

	typeKey := types.TypeCustom
	switch extractType {
	case session.ExtractLinks:
		typeKey = types.TypeLinks
	case session.ExtractImages:
		typeKey = types.TypeImages
	case session.ExtractProducts:
		typeKey = types.TypeProducts
	}
	if len(records) > 0 {
		if _, err := b.store.StoreRecords(typeKey, records); err != nil {
			return fail(err)
		}
	}
	b.Publish(ActionExtractedData, map[string]any{"type": typeKey, "count": len(records)})
	return ok(map[string]any{"records": records, "unresolved": unresolved})
}

func (b *Bus) autoLoad(ctx context.Context, url string) Response {
	if !b.settings.AllowsURL(url) {
		return failf("URL blocked by domain rules: %s", url)
	}
	page, err := b.loader.Load(ctx, url)
	if err != nil {
		return fail(err)
	}
	defer page.Close()
	doc, err := page.Document()
	if err != nil {
		return fail(err)
	}
	b.setCurrentPage(doc, page.URL())
	return ok(nil)
}

// setCurrentPage replaces the current page context, closing any selection
// session bound to the previous document.
func (b *Bus) setCurrentPage(doc *goquery.Document, url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil {
		b.session.Close()
		b.session = nil
	}
	b.doc = doc
	b.docURL = url
	b.summary = nil
}
