// internal/export/export.go
//
// Package export renders the accumulated store into downloadable formats:
// CSV, an HTML table document, pretty JSON, and XLSX, plus database sinks
// for relational and document stores. The tabular formats share one section
// model: a labeled section per populated data type, with fixed columns for
// the well-known types and key-derived columns for everything else.
package export

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pagehound/pagehound/internal/monitoring"
	"github.com/pagehound/pagehound/internal/utils"
	"github.com/pagehound/pagehound/pkg/types"
)

// Supported file formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatHTML = "html"
	FormatXLSX = "xlsx"
)

// Options configures file exports.
type Options struct {
	OutputDir      string
	FilenameFormat string // supports {date}, {time}, {type}, {url}
	CSVDelimiter   rune
	IncludeHeaders bool
	PageURL        string // feeds the {url} placeholder, may be empty
}

// Exporter writes store snapshots to files.
type Exporter struct {
	opts    Options
	metrics *monitoring.Metrics
	logger  utils.Logger
}

// New creates an exporter. metrics may be nil.
func New(opts Options, metrics *monitoring.Metrics, logger utils.Logger) *Exporter {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.FilenameFormat == "" {
		opts.FilenameFormat = "pagehound_data_{date}_{type}"
	}
	if opts.CSVDelimiter == 0 {
		opts.CSVDelimiter = ','
	}
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Exporter{opts: opts, metrics: metrics, logger: logger}
}

// Export renders the store (or the single data type named by typeKey; ""
// or "all" means everything) in the given format and writes it under the
// output directory. Returns the path of the written file.
func (e *Exporter) Export(scraped *types.ScrapedStore, typeKey, format string) (string, error) {
	subset := selectTypes(scraped, typeKey)

	var content []byte
	var err error
	switch format {
	case FormatCSV:
		content, err = e.renderCSV(subset)
	case FormatHTML:
		content, err = renderHTML(subset)
	case FormatJSON:
		content, err = renderJSON(subset)
	case FormatXLSX:
		content, err = renderXLSX(subset)
	default:
		return "", fmt.Errorf("unknown export format: %s", format)
	}
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(e.opts.OutputDir, e.filename(typeKey, e.pageURL(scraped))+"."+format)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	if e.metrics != nil {
		e.metrics.ExportsTotal.WithLabelValues(format).Inc()
	}
	e.logger.WithFields(map[string]any{"path": path, "format": format}).Info("export written")
	return path, nil
}

// pageURL resolves the URL feeding the {url} placeholder: the configured
// override when set, otherwise the most recently scraped page.
func (e *Exporter) pageURL(scraped *types.ScrapedStore) string {
	if e.opts.PageURL != "" {
		return e.opts.PageURL
	}
	if n := len(scraped.History); n > 0 {
		return scraped.History[n-1].URL
	}
	return ""
}

// filename expands the placeholders of the configured filename pattern.
func (e *Exporter) filename(typeKey, pageURL string) string {
	now := time.Now()
	if typeKey == "" {
		typeKey = types.TypeAll
	}
	name := e.opts.FilenameFormat
	name = strings.ReplaceAll(name, "{date}", now.Format("2006-01-02"))
	name = strings.ReplaceAll(name, "{time}", now.Format("15-04-05"))
	name = strings.ReplaceAll(name, "{type}", typeKey)
	name = strings.ReplaceAll(name, "{url}", urlSlug(pageURL))
	return sanitizeFilename(name)
}

func urlSlug(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return sanitizeFilename(rawURL)
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}

// selectTypes narrows the store to one data type, or returns it whole for
// "all". History rides along only on full exports.
func selectTypes(scraped *types.ScrapedStore, typeKey string) *types.ScrapedStore {
	if typeKey == "" || typeKey == types.TypeAll {
		return scraped
	}
	subset := types.NewScrapedStore()
	if list := scraped.TypeList(typeKey); len(list) > 0 {
		subset.SetTypeList(typeKey, list)
	}
	return subset
}

// column maps a record key to its display label.
type column struct {
	Key   string
	Label string
}

// section is one labeled block of the tabular formats. Scalar sections
// (emails, phones) have no columns; each record is a bare value row.
type section struct {
	Key     string
	Label   string
	Columns []column
	Records []any
}

// Fixed layouts for the well-known data types.
var (
	sectionLabels = map[string]string{
		types.TypeEmails:   "Emails",
		types.TypePhones:   "Phone Numbers",
		types.TypeBusiness: "Business Data",
		types.TypeProducts: "Product Data",
		types.TypeLinks:    "Links",
		types.TypeImages:   "Images",
	}
	sectionColumns = map[string][]column{
		types.TypeBusiness: {
			{"name", "Name"}, {"address", "Address"}, {"phone", "Phone"},
			{"website", "Website"}, {"email", "Email"}, {"url", "URL"},
		},
		types.TypeProducts: {
			{"name", "Name"}, {"price", "Price"}, {"image", "Image"}, {"url", "URL"},
		},
		types.TypeLinks: {
			{"href", "URL"}, {"text", "Text"}, {"title", "Title"},
		},
		types.TypeImages: {
			{"src", "URL"}, {"alt", "Alt Text"}, {"width", "Width"}, {"height", "Height"},
		},
	}
)

var titleCaser = cases.Title(language.English)

// sections builds the section list for every populated type, in canonical
// type order.
func sections(scraped *types.ScrapedStore) []section {
	var out []section
	for _, key := range scraped.PopulatedTypes() {
		out = append(out, sectionFor(key, scraped.TypeList(key)))
	}
	return out
}

func sectionFor(key string, records []any) section {
	sec := section{Key: key, Label: sectionLabels[key], Records: records}
	if sec.Label == "" {
		sec.Label = titleCaser.String(key)
	}
	if cols, ok := sectionColumns[key]; ok {
		sec.Columns = cols
		return sec
	}

	// Derive columns from record keys, first-seen order across records.
	var keys []string
	seen := make(map[string]bool)
	for _, rec := range records {
		record, ok := rec.(types.Record)
		if !ok {
			continue
		}
		for _, k := range recordKeys(record) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	for _, k := range keys {
		sec.Columns = append(sec.Columns, column{Key: k, Label: titleCaser.String(k)})
	}
	return sec
}

// recordKeys returns a record's keys in stable sorted order.
func recordKeys(record types.Record) []string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// cell renders one record field as text. Nested structures (specifications,
// list items) become compact JSON.
func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}

// row renders a record against a section's columns. Scalar records yield a
// single cell regardless of columns.
func row(sec section, rec any) []string {
	record, ok := rec.(types.Record)
	if !ok {
		return []string{cell(rec)}
	}
	cells := make([]string, len(sec.Columns))
	for i, col := range sec.Columns {
		cells[i] = cell(record[col.Key])
	}
	return cells
}

func renderJSON(scraped *types.ScrapedStore) ([]byte, error) {
	data, err := json.MarshalIndent(scraped, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode store: %w", err)
	}
	return data, nil
}
