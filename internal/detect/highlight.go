// internal/detect/highlight.go
package detect

import "github.com/PuerkitoBio/goquery"

// Marker classes applied to highlighted elements. Purely cosmetic; removing
// the class restores the document.
const (
	SelectionHighlightClass = "pagehound-selection-highlight"
	ExclusionHighlightClass = "pagehound-exclusion-highlight"
)

// Highlight colors of the UI palette. Each maps to a marker class.
const (
	SelectionColor = "#4285f4"
	ExclusionColor = "#ea4335"
)

// ClassForColor maps a highlight color to its marker class. An empty color
// means selection; an unrecognized color maps to no class, so highlighting
// with it only strips existing markers.
func ClassForColor(color string) string {
	switch color {
	case "", SelectionColor:
		return SelectionHighlightClass
	case ExclusionColor:
		return ExclusionHighlightClass
	}
	return ""
}

// Highlight marks every element of the summary's detection for the given
// type with the marker class matching color. It has no effect on extraction.
func (s *Summary) Highlight(typeKey, color string) int {
	det, ok := s.Types[typeKey]
	if !ok || det.Elements == nil {
		return 0
	}
	HighlightElements(det.Elements, ClassForColor(color))
	return det.Elements.Length()
}

// HighlightElements swaps any existing marker class for the requested one on
// each element.
func HighlightElements(elements *goquery.Selection, class string) {
	elements.RemoveClass(SelectionHighlightClass, ExclusionHighlightClass)
	if class != "" {
		elements.AddClass(class)
	}
}

// ClearHighlights removes the selection marker class everywhere.
func ClearHighlights(doc *goquery.Document) {
	doc.Find("." + SelectionHighlightClass).RemoveClass(SelectionHighlightClass)
}

// ClearExclusionHighlights removes the exclusion marker class everywhere.
func ClearExclusionHighlights(doc *goquery.Document) {
	doc.Find("." + ExclusionHighlightClass).RemoveClass(ExclusionHighlightClass)
}
