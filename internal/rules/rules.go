// internal/rules/rules.go
//
// Package rules holds the shared selector and regex tables consumed by both
// the live detection path and the bulk/background extraction path, so the
// two always behave identically. Selector lists are hand-ordered; the first
// match wins and order is load-bearing.
package rules

import "regexp"

// EmailPattern matches a standard local@domain address.
var EmailPattern = regexp.MustCompile(`[\w.\-]+@[\w.\-]+\.\w+`)

// PhonePatterns cover international and US formats. Matches from earlier
// patterns are kept ahead of later ones; differently formatted renderings of
// the same number are deliberately NOT unified.
var PhonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+\d{1,3}\s?\(\d{3}\)\s?\d{3}[-\s]?\d{4}`), // +1 (123) 456-7890
	regexp.MustCompile(`\(\d{3}\)\s?\d{3}[-\s]?\d{4}`),             // (123) 456-7890
	regexp.MustCompile(`\d{3}[-\s]?\d{3}[-\s]?\d{4}`),              // 123-456-7890
	regexp.MustCompile(`\+\d{1,3}\s?\d{3}[-\s]?\d{3}[-\s]?\d{4}`),  // +1 123-456-7890
}

// Container selector lists per structured data type. Detection stops at the
// first selector yielding at least one element.
var (
	BusinessContainers = []string{
		".business", ".company", ".organization", ".local-business",
		`[itemtype*="Business"]`, `[itemtype*="Organization"]`,
	}

	ProductContainers = []string{
		// Amazon
		`[data-component-type="s-search-result"]`,
		"#dp-container",
		// eBay
		".s-item",
		// General e-commerce
		".product", ".product-card", ".product-item",
		`[data-testid="product-card"]`,
		// Schema.org markup
		`[itemtype*="Product"]`,
	}

	JobContainers = []string{
		".job", ".job-posting", ".career", ".position",
		`[itemtype*="JobPosting"]`,
	}

	SocialContainers = []string{
		`a[href*="facebook.com"]`,
		`a[href*="twitter.com"]`,
		`a[href*="linkedin.com"]`,
		`a[href*="instagram.com"]`,
		`a[href*="youtube.com"]`,
		`a[href*="pinterest.com"]`,
		`a[href*="tiktok.com"]`,
	}

	ReviewContainers = []string{
		".review", ".comment", ".testimonial",
		`[itemtype*="Review"]`, `[itemtype*="Comment"]`,
	}
)

// ProductWildcard is the fallback scan for any element whose id or class
// contains "product", used only when no ProductContainers selector matches.
const ProductWildcard = `*[id*="product"], *[class*="product"]`

// Field selector candidates for product fields.
var (
	ProductNameSelectors = []string{
		"h1",
		".product-title",
		".product-name",
		".item-title",
		".title",
		`[itemprop="name"]`,
		".product__title",
		"#productTitle",
	}

	ProductPriceSelectors = []string{
		".price",
		".product-price",
		".item-price",
		".current-price",
		".sale-price",
		`[itemprop="price"]`,
		".a-price .a-offscreen",
		".a-price-whole",
		".s-item__price",
		".price__value",
		"#priceblock_dealprice",
		"#priceblock_ourprice",
	}

	ProductImageSelectors = []string{
		".product-image",
		".item-image",
		".main-image",
		`[itemprop="image"]`,
		"#landingImage",
		".s-item__image-img",
		".product__image",
		`img[src*="product"]`,
	}

	ProductDescriptionSelectors = []string{
		".product-description",
		".item-description",
		".description",
		`[itemprop="description"]`,
		"#productDescription",
		".feature-bullets",
		".product__description",
		"#feature-bullets ul",
	}

	ProductRatingSelectors = []string{
		".rating",
		".product-rating",
		".item-rating",
		`[itemprop="ratingValue"]`,
		".a-icon-alt",
		".s-item__reviews",
		".review-count",
		".rating__value",
	}

	ProductAvailabilitySelectors = []string{
		".availability",
		".stock",
		".item-availability",
		`[itemprop="availability"]`,
		"#availability",
		".a-color-success",
		".stock-status",
	}

	ProductURLSelectors = []string{
		`a[href*="product"]`,
		`a[href*="item"]`,
		`a[href*="dp/"]`,
		".product-link",
		".item-link",
	}

	ProductBrandSelectors = []string{
		".brand",
		".product-brand",
		".item-brand",
		`[itemprop="brand"]`,
		"#bylineInfo",
		".brand-name",
		".product__brand",
	}
)

// Regex fallbacks applied to a container's full text when no field selector
// matches.
var (
	NumberPattern = regexp.MustCompile(`[\d,.]+`)
	RatingNumber  = regexp.MustCompile(`[\d.]+`)

	PricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$[\d,.]+`),
		regexp.MustCompile(`[\d,.]+\s*USD`),
		regexp.MustCompile(`[\d,.]+\s*€`),
		regexp.MustCompile(`[\d,.]+\s*£`),
		regexp.MustCompile(`(?i)price:\s*[\d,.]+`),
	}
	PriceStrip = regexp.MustCompile(`[^\d,.]`)

	RatingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)rating:\s*[\d.]+`),
		regexp.MustCompile(`(?i)[\d.]+\s*stars?`),
		regexp.MustCompile(`[\d.]+/\d+`),
	}
	RatingStrip = regexp.MustCompile(`[^\d.]`)

	BrandPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)brand:\s*([^\n]+)`),
		regexp.MustCompile(`(?i)by\s+([^\n]+)`),
	}
	BrandStrip = regexp.MustCompile(`(?i)^(?:brand:\s*|by\s+)`)
)

// Field selectors used inside business, job and review containers.
var (
	BusinessNameSelectors    = "h1, h2, h3, .name, .business-name"
	BusinessAddressSelectors = `.address, .location, [itemprop="address"]`
	BusinessPhoneSelectors   = `.phone, [itemprop="telephone"]`
	BusinessWebsiteSelectors = `.website, a[href^="http"]`
	BusinessEmailSelectors   = `.email, [itemprop="email"]`

	JobTitleSelectors       = "h1, h2, h3, .title, .job-title"
	JobCompanySelectors     = `.company, .employer, [itemprop="hiringOrganization"]`
	JobLocationSelectors    = `.location, [itemprop="jobLocation"]`
	JobDescriptionSelectors = `.description, [itemprop="description"]`
	JobDateSelectors        = `.date, [itemprop="datePosted"]`

	ReviewAuthorSelectors  = `.author, .by, [itemprop="author"]`
	ReviewRatingSelectors  = `.rating, [itemprop="ratingValue"]`
	ReviewDateSelectors    = `.date, [itemprop="datePublished"]`
	ReviewContentSelectors = `.content, .text, [itemprop="reviewBody"]`
)

// SocialPlatforms maps URL substrings to platform display names.
var SocialPlatforms = []struct {
	Host string
	Name string
}{
	{"facebook.com", "Facebook"},
	{"twitter.com", "Twitter"},
	{"linkedin.com", "LinkedIn"},
	{"instagram.com", "Instagram"},
	{"youtube.com", "YouTube"},
	{"pinterest.com", "Pinterest"},
	{"tiktok.com", "TikTok"},
}

// SocialUsernamePattern pulls the first path segment out of a profile URL.
var SocialUsernamePattern = regexp.MustCompile(`/([^/]+)(?:/|$)`)

// Pagination heuristics. Anchors matched by PaginationSelectors are checked
// against NextTexts and the Next aria-label/title before falling back to the
// numeric successor of CurrentPageSelector.
var (
	PaginationSelectors = []string{
		".pagination a",
		".pager a",
		".page-numbers a",
		".pagination li a",
		`[class*="pagination"] a`,
		`[aria-label*="pagination"] a`,
		`[role="navigation"] a`,
		".next-page",
		".next",
		`[aria-label="Next"]`,
		`[title="Next"]`,
	}

	NextTexts = map[string]bool{
		"next": true,
		"›":    true,
		"»":    true,
	}

	CurrentPageSelector = `.current, .active, [aria-current="page"]`
)

// Specification container selectors: term/value structures scanned when
// extracting a product's specifications mapping.
var (
	SpecListSelectors  = "dl, .specifications, .features"
	SpecTermSelectors  = "dt, .spec-title, .feature-title"
	SpecValueSelectors = "dd, .spec-value, .feature-value"
)
