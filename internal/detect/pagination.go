// internal/detect/pagination.go
package detect

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagehound/pagehound/internal/rules"
)

// NextControl identifies the control that advances to the next page.
// Selector re-locates the element for clicking in a live tab; Href is set
// when the control is a plain link and can be followed directly.
type NextControl struct {
	Selector string
	Href     string
	Text     string
}

// FindNextControl searches the document for a "next page" control using the
// shared pagination heuristics, in order: an anchor with exact text
// "next"/"›"/"»" or aria-label "Next", then an anchor whose text is the
// numeric successor of the currently active page indicator. Returns false
// when no control is found, which callers treat as the natural end of
// pagination rather than a failure.
func FindNextControl(doc *goquery.Document, selectorFor func(*goquery.Selection) string) (NextControl, bool) {
	var control NextControl
	found := false

	for _, sel := range rules.PaginationSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text := strings.ToLower(strings.TrimSpace(el.Text()))
			label, _ := el.Attr("aria-label")
			if rules.NextTexts[text] || label == "Next" {
				control = controlFor(el, selectorFor)
				found = true
				return false
			}
			return true
		})
		if found {
			return control, true
		}
	}

	// Fall back to the link carrying the next page number.
	current := doc.Find(rules.CurrentPageSelector).First()
	if current.Length() == 0 {
		return NextControl{}, false
	}
	currentNum, err := strconv.Atoi(strings.TrimSpace(current.Text()))
	if err != nil {
		return NextControl{}, false
	}
	next := strconv.Itoa(currentNum + 1)
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) == next {
			control = controlFor(a, selectorFor)
			found = true
			return false
		}
		return true
	})
	return control, found
}

func controlFor(el *goquery.Selection, selectorFor func(*goquery.Selection) string) NextControl {
	href, _ := el.Attr("href")
	control := NextControl{
		Href: href,
		Text: strings.TrimSpace(el.Text()),
	}
	if selectorFor != nil {
		control.Selector = selectorFor(el)
	}
	return control
}
