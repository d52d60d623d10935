// internal/detect/detector_test.go
package detect

import (
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagehound/pagehound/pkg/types"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse test HTML: %v", err)
	}
	return doc
}

func TestDetectEmails(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<p>Contact sales@example.com or support@example.org.</p>
		<p>Again: sales@example.com</p>
	</body></html>`)

	emails := DetectEmails(doc)
	expected := []string{"sales@example.com", "support@example.org"}
	if !reflect.DeepEqual(emails, expected) {
		t.Errorf("expected %v, got %v", expected, emails)
	}
}

func TestDetectEmailsOrder(t *testing.T) {
	doc := parseDoc(t, `<html><body>z@last.com first@first.com z@last.com</body></html>`)

	emails := DetectEmails(doc)
	expected := []string{"z@last.com", "first@first.com"}
	if !reflect.DeepEqual(emails, expected) {
		t.Errorf("expected first-appearance order %v, got %v", expected, emails)
	}
}

func TestDetectPhonesKeepsFormats(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		Call (555) 123-4567 today, or use 555-123-4567 after hours.
	</body></html>`)

	phones := DetectPhones(doc)
	if len(phones) != 2 {
		t.Fatalf("expected 2 phone numbers, got %d: %v", len(phones), phones)
	}
	// Both renderings of the same number stay distinct.
	if phones[0] != "(555) 123-4567" || phones[1] != "555-123-4567" {
		t.Errorf("unexpected phones: %v", phones)
	}
}

func TestDetectPhonesInternational(t *testing.T) {
	doc := parseDoc(t, `<html><body>+1 (555) 123-4567</body></html>`)

	phones := DetectPhones(doc)
	if len(phones) == 0 {
		t.Fatal("expected at least one phone number")
	}
	if phones[0] != "+1 (555) 123-4567" {
		t.Errorf("expected international format first, got %q", phones[0])
	}
}

func TestDetectLinks(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<a href="/about" title="About us">About</a>
		<a name="anchor-without-href">Skip me</a>
	</body></html>`)

	links := DetectLinks(doc)
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	link := links[0].(types.Record)
	if link["href"] != "/about" || link["text"] != "About" || link["title"] != "About us" {
		t.Errorf("unexpected link record: %v", link)
	}
}

func TestDetectImages(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<img src="/logo.png" alt="Logo" width="100" height="50">
		<img src="/plain.png">
	</body></html>`)

	images := DetectImages(doc)
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}
	first := images[0].(types.Record)
	if first["src"] != "/logo.png" || first["alt"] != "Logo" || first["width"] != "100" || first["height"] != "50" {
		t.Errorf("unexpected image record: %v", first)
	}
	second := images[1].(types.Record)
	if second["width"] != "" || second["height"] != "" {
		t.Errorf("undeclared dimensions should be empty, got %v", second)
	}
}

func TestContainersFirstSelectorWins(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div class="business"><h2>First Corp</h2></div>
		<div class="company"><h2>Second Corp</h2></div>
	</body></html>`)

	containers := Containers(doc, types.TypeBusiness)
	if containers.Length() != 1 {
		t.Fatalf("expected only .business containers, got %d elements", containers.Length())
	}
	if !containers.First().HasClass("business") {
		t.Error("expected the .business element to win")
	}

	records := Detect(doc, types.TypeBusiness, "https://example.com")
	if len(records) != 1 {
		t.Fatalf("expected 1 business record, got %d", len(records))
	}
	if records[0].(types.Record)["name"] != "First Corp" {
		t.Errorf("expected First Corp, got %v", records[0])
	}
}

func TestDetectProductsContainers(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div class="product">
			<h1>Widget</h1>
			<span class="price">$19.99</span>
		</div>
		<div class="product">
			<h1>Gadget</h1>
			<span class="price">$29.99</span>
		</div>
	</body></html>`)

	products := Detect(doc, types.TypeProducts, "https://shop.example.com")
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	first := products[0].(types.Record)
	if first["name"] != "Widget" {
		t.Errorf("expected name Widget, got %v", first["name"])
	}
	if first["price"] != "19.99" {
		t.Errorf("expected price 19.99, got %v", first["price"])
	}
	if first["url"] != "https://shop.example.com" {
		t.Errorf("expected page URL fallback, got %v", first["url"])
	}
}

func TestDetectProductsWholeDocumentFallback(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<h1>Lone Item</h1>
		<span class="price">$5.00</span>
	</body></html>`)

	products := Detect(doc, types.TypeProducts, "")
	if len(products) != 1 {
		t.Fatalf("expected the whole-document fallback record, got %d", len(products))
	}
	if products[0].(types.Record)["name"] != "Lone Item" {
		t.Errorf("unexpected record: %v", products[0])
	}
}

func TestDetectProductsRejectsAnchorless(t *testing.T) {
	doc := parseDoc(t, `<html><body><div class="product"><p>no name, no price</p></div></body></html>`)

	products := Detect(doc, types.TypeProducts, "")
	if len(products) != 0 {
		t.Errorf("expected no records without name or price, got %v", products)
	}
}

func TestDetectJobsRequiresTitle(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div class="job">
			<h2>Go Engineer</h2>
			<span class="company">Acme</span>
			<span class="location">Remote</span>
		</div>
		<div class="job"><span class="company">Titleless Inc</span></div>
	</body></html>`)

	jobs := Detect(doc, types.TypeJobs, "")
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	job := jobs[0].(types.Record)
	if job["title"] != "Go Engineer" || job["company"] != "Acme" || job["location"] != "Remote" {
		t.Errorf("unexpected job record: %v", job)
	}
}

func TestDetectSocial(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<a href="https://twitter.com/acme">Follow us</a>
	</body></html>`)

	profiles := Detect(doc, types.TypeSocial, "")
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}
	profile := profiles[0].(types.Record)
	if profile["platform"] != "Twitter" {
		t.Errorf("expected platform Twitter, got %v", profile["platform"])
	}
	if profile["url"] != "https://twitter.com/acme" {
		t.Errorf("unexpected url: %v", profile["url"])
	}
}

func TestUsernameFromURL(t *testing.T) {
	// The username heuristic grabs the first path-like segment of the full
	// URL, which for absolute URLs is the hostname.
	if got := UsernameFromURL("https://facebook.com/acme"); got != "facebook.com" {
		t.Errorf("expected facebook.com, got %q", got)
	}
	if got := UsernameFromURL("no-slashes"); got != "" {
		t.Errorf("expected empty username, got %q", got)
	}
}

func TestPlatformFromURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.linkedin.com/company/acme", "LinkedIn"},
		{"https://youtube.com/@acme", "YouTube"},
		{"https://example.com/profile", "Unknown"},
	}
	for _, tt := range tests {
		if got := PlatformFromURL(tt.url); got != tt.expected {
			t.Errorf("PlatformFromURL(%q) = %q, want %q", tt.url, got, tt.expected)
		}
	}
}

func TestDetectReviewsRequiresContent(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div class="review">
			<span class="author">Pat</span>
			<span class="rating">4.5</span>
			<p class="content">Great product.</p>
		</div>
		<div class="review"><span class="author">Empty</span></div>
	</body></html>`)

	reviews := Detect(doc, types.TypeReviews, "https://example.com/p")
	if len(reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(reviews))
	}
	review := reviews[0].(types.Record)
	if review["author"] != "Pat" || review["content"] != "Great product." {
		t.Errorf("unexpected review record: %v", review)
	}
}

func TestDetectListsTable(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<table>
			<tr><td>Name</td><td>Qty</td></tr>
			<tr><td>Bolts</td><td>40</td></tr>
		</table>
	</body></html>`)

	lists := Detect(doc, types.TypeLists, "")
	// The parser wraps bare rows in tbody, so the header row matches the row
	// selector and is emitted first, keyed by itself.
	if len(lists) != 2 {
		t.Fatalf("expected 2 table rows, got %d: %v", len(lists), lists)
	}
	row := lists[1].(types.Record)
	if row["Name"] != "Bolts" || row["Qty"] != "40" {
		t.Errorf("unexpected table row: %v", row)
	}
}

func TestDetectListsUnordered(t *testing.T) {
	doc := parseDoc(t, `<html><body><ul><li>one</li><li>two</li></ul></body></html>`)

	lists := Detect(doc, types.TypeLists, "")
	if len(lists) != 1 {
		t.Fatalf("expected 1 list record, got %d", len(lists))
	}
	items := lists[0].(types.Record)["items"].([]any)
	if len(items) != 2 || items[0] != "one" || items[1] != "two" {
		t.Errorf("unexpected items: %v", items)
	}
}

func TestDetectUnknownType(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>anything</p></body></html>`)
	if records := Detect(doc, "bogus", ""); len(records) != 0 {
		t.Errorf("unknown type should yield no records, got %v", records)
	}
}
