// internal/detect/scan.go
package detect

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/pagehound/pagehound/internal/rules"
	"github.com/pagehound/pagehound/internal/utils"
	"github.com/pagehound/pagehound/pkg/types"
)

// Detection summarizes one data type on a page: how many candidates were
// found and, for element-backed types, live references used for highlighting.
// Elements is nil for the regex-scanned scalar types.
type Detection struct {
	Count    int
	Elements *goquery.Selection
}

// Summary maps each data type key to its detection result. It also carries
// the pagination anchors found on the page.
type Summary struct {
	Types      map[string]Detection
	Pagination *goquery.Selection
}

// Counts flattens the summary for display and transport.
func (s *Summary) Counts() map[string]int {
	counts := make(map[string]int, len(s.Types))
	for key, det := range s.Types {
		counts[key] = det.Count
	}
	return counts
}

// ScanAll runs every record detector once over the document and assembles a
// single detection summary. It does not mutate the page; highlighting is a
// separate, reversible step.
func ScanAll(doc *goquery.Document) *Summary {
	summary := &Summary{Types: make(map[string]Detection, len(types.DataTypeKeys))}

	summary.Types[types.TypeEmails] = Detection{Count: len(DetectEmails(doc))}
	summary.Types[types.TypePhones] = Detection{Count: len(DetectPhones(doc))}

	images := doc.Find("img")
	summary.Types[types.TypeImages] = Detection{Count: images.Length(), Elements: images}

	links := doc.Find("a[href]")
	summary.Types[types.TypeLinks] = Detection{Count: links.Length(), Elements: links}

	lists := doc.Find("ul, ol, table")
	summary.Types[types.TypeLists] = Detection{Count: lists.Length(), Elements: lists}

	for _, key := range []string{
		types.TypeBusiness, types.TypeProducts, types.TypeJobs,
		types.TypeSocial, types.TypeReviews,
	} {
		containers := Containers(doc, key)
		summary.Types[key] = Detection{Count: containers.Length(), Elements: containers}
	}

	summary.Pagination = paginationAnchors(doc)
	return summary
}

// AutoExtract runs every record detector in full-extraction mode and returns
// the raw records per type key. Empty types are omitted.
func AutoExtract(doc *goquery.Document, pageURL string) map[string][]any {
	data := make(map[string][]any)
	for _, key := range types.DataTypeKeys {
		if records := Detect(doc, key, pageURL); len(records) > 0 {
			data[key] = records
		}
	}
	return data
}

// ExtractForType returns the records for one type key, or the full
// auto-extraction result when typeKey is "all".
func ExtractForType(doc *goquery.Document, typeKey, pageURL string) map[string][]any {
	if typeKey == "" || typeKey == types.TypeAll {
		return AutoExtract(doc, pageURL)
	}
	records := Detect(doc, typeKey, pageURL)
	if len(records) == 0 {
		return map[string][]any{}
	}
	return map[string][]any{typeKey: records}
}

// ExtractWithSelector extracts text, html, href and src of every element
// matching an operator-supplied selector. An invalid selector is reported as
// a SelectorError; it never aborts anything beyond this one extraction.
func ExtractWithSelector(doc *goquery.Document, selector string) ([]any, error) {
	if _, err := cascadia.Parse(selector); err != nil {
		return nil, &utils.SelectorError{Selector: selector, Err: err}
	}
	var records []any
	doc.Find(selector).Each(func(_ int, el *goquery.Selection) {
		html, err := goquery.OuterHtml(el)
		if err != nil {
			html = ""
		}
		href, _ := el.Attr("href")
		src, _ := el.Attr("src")
		records = append(records, types.Record{
			"text": trimmedText(el),
			"html": html,
			"href": href,
			"src":  src,
		})
	})
	if records == nil {
		return nil, fmt.Errorf("no elements found with selector: %s", selector)
	}
	return records, nil
}

// paginationAnchors collects the anchors matched by any pagination selector,
// deduplicated across selectors.
func paginationAnchors(doc *goquery.Document) *goquery.Selection {
	combined := doc.Find("")
	for _, sel := range rules.PaginationSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			combined = combined.AddSelection(found)
		}
	}
	return combined
}
