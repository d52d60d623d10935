// internal/session/extract_test.go
package session

import (
	"testing"

	"github.com/pagehound/pagehound/pkg/types"
)

const extractPage = `<html><body>
	<a id="l1" href="/one">One</a>
	<a id="l2" href="/two">Two</a>
	<img id="i1" src="/pic.png" alt="Pic">
	<div id="p1" class="card"><h1>Widget</h1><span class="price">$9.99</span></div>
</body></html>`

func TestExtractSelectedText(t *testing.T) {
	doc := parseDoc(t, extractPage)
	selected := []types.SelectedElement{{Selector: "#l1"}}

	records, unresolved := ExtractSelected(doc, selected, nil, ExtractText, "")
	if len(unresolved) != 0 {
		t.Fatalf("unexpected unresolved selectors: %v", unresolved)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	record := records[0].(types.Record)
	if record["text"] != "One" || record["selector"] != "#l1" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestExtractSelectedLinksSkipsNonAnchors(t *testing.T) {
	doc := parseDoc(t, extractPage)
	selected := []types.SelectedElement{
		{Selector: "#l1"},
		{Selector: "#i1"}, // an image, not a link
	}

	records, _ := ExtractSelected(doc, selected, nil, ExtractLinks, "")
	if len(records) != 1 {
		t.Fatalf("expected only the anchor, got %d records", len(records))
	}
	if records[0].(types.Record)["href"] != "/one" {
		t.Errorf("unexpected record: %v", records[0])
	}
}

func TestExtractSelectedImages(t *testing.T) {
	doc := parseDoc(t, extractPage)
	selected := []types.SelectedElement{{Selector: "#i1"}}

	records, _ := ExtractSelected(doc, selected, nil, ExtractImages, "")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	record := records[0].(types.Record)
	if record["src"] != "/pic.png" || record["alt"] != "Pic" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestExtractSelectedProducts(t *testing.T) {
	doc := parseDoc(t, extractPage)
	selected := []types.SelectedElement{{Selector: "#p1"}}

	records, _ := ExtractSelected(doc, selected, nil, ExtractProducts, "https://example.com")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	record := records[0].(types.Record)
	if record["name"] != "Widget" || record["price"] != "9.99" {
		t.Errorf("unexpected record: %v", record)
	}
	if record["url"] != "https://example.com" {
		t.Errorf("expected page URL fallback, got %v", record["url"])
	}
}

func TestExtractSelectedHonorsExclusions(t *testing.T) {
	doc := parseDoc(t, extractPage)
	selected := []types.SelectedElement{{Selector: "#l1"}, {Selector: "#l2"}}
	excluded := []types.SelectedElement{{Selector: "#l2"}}

	records, _ := ExtractSelected(doc, selected, excluded, ExtractText, "")
	if len(records) != 1 {
		t.Fatalf("expected the excluded element to be dropped, got %d records", len(records))
	}
	if records[0].(types.Record)["text"] != "One" {
		t.Errorf("unexpected record: %v", records[0])
	}
}

func TestExtractSelectedReportsUnresolved(t *testing.T) {
	doc := parseDoc(t, extractPage)
	selected := []types.SelectedElement{
		{Selector: "#l1"},
		{Selector: "#gone"},
	}

	records, unresolved := ExtractSelected(doc, selected, nil, ExtractText, "")
	if len(records) != 1 {
		t.Errorf("resolution is best effort; expected 1 record, got %d", len(records))
	}
	if len(unresolved) != 1 || unresolved[0] != "#gone" {
		t.Errorf("expected #gone reported as unresolved, got %v", unresolved)
	}
}

func TestExtractSelectedCustomIncludesHTML(t *testing.T) {
	doc := parseDoc(t, extractPage)
	selected := []types.SelectedElement{{Selector: "#l1"}}

	records, _ := ExtractSelected(doc, selected, nil, ExtractCustom, "")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	record := records[0].(types.Record)
	if record["html"] == "" {
		t.Error("expected the outer HTML of the element")
	}
}
