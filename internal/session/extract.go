// internal/session/extract.go
package session

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagehound/pagehound/internal/detect"
	"github.com/pagehound/pagehound/pkg/types"
)

// Extraction modes for operator-selected elements.
const (
	ExtractText     = "text"
	ExtractLinks    = "links"
	ExtractImages   = "images"
	ExtractProducts = "products"
	ExtractCustom   = "custom"
)

// ExtractSelected pulls the live elements named by the selected set, drops
// any that match the exclusion set, and extracts them according to
// extractType. Selector re-resolution is best effort: a selector that no
// longer resolves is reported in unresolved and skipped, never treated as an
// error.
func ExtractSelected(doc *goquery.Document, selected, excluded []types.SelectedElement, extractType, pageURL string) (records []any, unresolved []string) {
	excludedSet := make(map[string]bool, len(excluded))
	for _, ex := range excluded {
		excludedSet[ex.Selector] = true
	}

	var elements []*goquery.Selection
	for _, sel := range selected {
		el := doc.Find(sel.Selector).First()
		if el.Length() == 0 {
			unresolved = append(unresolved, sel.Selector)
			continue
		}
		if excludedSet[StructuralSelector(el)] {
			continue
		}
		elements = append(elements, el)
	}

	for _, el := range elements {
		if record := extractOne(el, extractType, pageURL); record != nil {
			records = append(records, record)
		}
	}
	return records, unresolved
}

func extractOne(el *goquery.Selection, extractType, pageURL string) any {
	selector := StructuralSelector(el)

	switch extractType {
	case ExtractLinks:
		if !is(el, "a") {
			return nil
		}
		href, _ := el.Attr("href")
		return types.Record{
			"href":     href,
			"text":     strings.TrimSpace(el.Text()),
			"selector": selector,
		}

	case ExtractImages:
		if !is(el, "img") {
			return nil
		}
		src, _ := el.Attr("src")
		alt, _ := el.Attr("alt")
		return types.Record{
			"src":      src,
			"alt":      alt,
			"selector": selector,
		}

	case ExtractProducts:
		product := types.Record{
			"name":        detect.ExtractField(el, detect.FieldName, pageURL),
			"price":       detect.ExtractField(el, detect.FieldPrice, pageURL),
			"image":       detect.ExtractField(el, detect.FieldImage, pageURL),
			"url":         detect.ExtractField(el, detect.FieldURL, pageURL),
			"description": detect.ExtractField(el, detect.FieldDescription, pageURL),
			"selector":    selector,
		}
		// The clicked element often is the record itself rather than a
		// wrapper, so its own text stands in for a missing name.
		if product["name"] == "" {
			product["name"] = strings.TrimSpace(el.Text())
		}
		return product

	case ExtractCustom:
		html, err := goquery.OuterHtml(el)
		if err != nil {
			html = ""
		}
		return types.Record{
			"text":     strings.TrimSpace(el.Text()),
			"html":     html,
			"selector": selector,
		}

	default: // ExtractText
		return types.Record{
			"text":     strings.TrimSpace(el.Text()),
			"selector": selector,
		}
	}
}

func is(el *goquery.Selection, tag string) bool {
	if len(el.Nodes) == 0 {
		return false
	}
	return strings.EqualFold(el.Nodes[0].Data, tag)
}
