// internal/detect/field.go
package detect

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagehound/pagehound/internal/rules"
)

// FieldKind names an extractable field of a structured record.
type FieldKind string

const (
	FieldName           FieldKind = "name"
	FieldPrice          FieldKind = "price"
	FieldImage          FieldKind = "image"
	FieldURL            FieldKind = "url"
	FieldBrand          FieldKind = "brand"
	FieldDescription    FieldKind = "description"
	FieldRating         FieldKind = "rating"
	FieldAvailability   FieldKind = "availability"
	FieldSpecifications FieldKind = "specifications"
)

// ExtractField tries an ordered list of selector candidates for the given
// field kind inside container, falling back to regex matching over the
// container's text. The first non-empty match wins; a later selector is
// never consulted even if it would yield a better value. It never fails:
// absence of a match yields "" (or an empty map for specifications).
//
// pageURL is used as the fallback value for the url field.
func ExtractField(container *goquery.Selection, kind FieldKind, pageURL string) any {
	switch kind {
	case FieldName:
		return extractName(container)
	case FieldPrice:
		return extractPrice(container)
	case FieldImage:
		return extractImage(container)
	case FieldURL:
		return extractURL(container, pageURL)
	case FieldBrand:
		return extractBrand(container)
	case FieldDescription:
		return extractDescription(container)
	case FieldRating:
		return extractRating(container)
	case FieldAvailability:
		return extractAvailability(container)
	case FieldSpecifications:
		return extractSpecifications(container)
	default:
		return ""
	}
}

// firstText returns the trimmed text of the first candidate selector that
// matches an element with non-empty text.
func firstText(container *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := trimmedText(container.Find(sel).First()); text != "" {
			return text
		}
	}
	return ""
}

func trimmedText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(sel.Text())
}

func extractName(container *goquery.Selection) string {
	if name := firstText(container, rules.ProductNameSelectors); name != "" {
		return name
	}
	// Elements with "title" in their id or class, skipping overly long text.
	var name string
	container.Find(`*[id*="title"], *[class*="title"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text != "" && len(text) < 200 {
			name = text
			return false
		}
		return true
	})
	return name
}

func extractPrice(container *goquery.Selection) string {
	for _, sel := range rules.ProductPriceSelectors {
		el := container.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if m := rules.NumberPattern.FindString(strings.TrimSpace(el.Text())); m != "" {
			return m
		}
	}
	text := container.Text()
	for _, pattern := range rules.PricePatterns {
		if m := pattern.FindString(text); m != "" {
			return rules.PriceStrip.ReplaceAllString(m, "")
		}
	}
	return ""
}

func extractImage(container *goquery.Selection) string {
	for _, sel := range rules.ProductImageSelectors {
		el := container.Find(sel).First()
		if src, ok := el.Attr("src"); ok && src != "" {
			return src
		}
	}
	// Fall back to the largest image in the container, judged by its
	// declared width and height attributes.
	var best string
	bestSize := 0
	container.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		size := attrInt(img, "width") * attrInt(img, "height")
		if size > bestSize {
			bestSize = size
			best = src
		}
	})
	return best
}

func attrInt(sel *goquery.Selection, name string) int {
	v, ok := sel.Attr(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

func extractURL(container *goquery.Selection, pageURL string) string {
	for _, sel := range rules.ProductURLSelectors {
		el := container.Find(sel).First()
		if href, ok := el.Attr("href"); ok && href != "" {
			return href
		}
	}
	return pageURL
}

func extractBrand(container *goquery.Selection) string {
	if brand := firstText(container, rules.ProductBrandSelectors); brand != "" {
		return brand
	}
	text := container.Text()
	for _, pattern := range rules.BrandPatterns {
		if m := pattern.FindString(text); m != "" {
			return rules.BrandStrip.ReplaceAllString(m, "")
		}
	}
	return ""
}

func extractDescription(container *goquery.Selection) string {
	if desc := firstText(container, rules.ProductDescriptionSelectors); desc != "" {
		return desc
	}
	var desc string
	container.Find(`*[id*="description"], *[class*="description"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := strings.TrimSpace(s.Text()); text != "" {
			desc = text
			return false
		}
		return true
	})
	return desc
}

func extractRating(container *goquery.Selection) string {
	for _, sel := range rules.ProductRatingSelectors {
		el := container.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(el.Text())
		if text == "" {
			text, _ = el.Attr("alt")
		}
		if m := rules.RatingNumber.FindString(text); m != "" {
			return m
		}
	}
	text := container.Text()
	for _, pattern := range rules.RatingPatterns {
		if m := pattern.FindString(text); m != "" {
			return rules.RatingStrip.ReplaceAllString(m, "")
		}
	}
	return ""
}

func extractAvailability(container *goquery.Selection) string {
	if avail := firstText(container, rules.ProductAvailabilitySelectors); avail != "" {
		return avail
	}
	text := strings.ToLower(container.Text())
	switch {
	case strings.Contains(text, "in stock") || strings.Contains(text, "available"):
		return "In Stock"
	case strings.Contains(text, "out of stock") || strings.Contains(text, "unavailable"):
		return "Out of Stock"
	case strings.Contains(text, "backorder") || strings.Contains(text, "pre-order"):
		return "Backorder"
	}
	return ""
}

// extractSpecifications scans tables and definition-list structures inside
// the container, building a term→value mapping. A term seen twice keeps its
// first value.
func extractSpecifications(container *goquery.Selection) map[string]any {
	specs := make(map[string]any)

	container.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th")
			if cells.Length() < 2 {
				return
			}
			key := strings.TrimSpace(cells.Eq(0).Text())
			value := strings.TrimSpace(cells.Eq(1).Text())
			if key != "" && value != "" {
				if _, exists := specs[key]; !exists {
					specs[key] = value
				}
			}
		})
	})

	container.Find(rules.SpecListSelectors).Each(func(_ int, list *goquery.Selection) {
		terms := list.Find(rules.SpecTermSelectors)
		values := list.Find(rules.SpecValueSelectors)
		terms.Each(func(i int, term *goquery.Selection) {
			if i >= values.Length() {
				return
			}
			key := strings.TrimSpace(term.Text())
			value := strings.TrimSpace(values.Eq(i).Text())
			if key != "" && value != "" {
				if _, exists := specs[key]; !exists {
					specs[key] = value
				}
			}
		})
	})

	return specs
}
