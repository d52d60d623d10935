// internal/detect/detector.go
package detect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagehound/pagehound/internal/rules"
	"github.com/pagehound/pagehound/pkg/types"
)

// Detect scans the document for records of the given data type. The result
// holds bare strings for scalar types (emails, phones) and Records for
// everything else. An unknown type key yields an empty list; detection never
// fails.
func Detect(doc *goquery.Document, typeKey, pageURL string) []any {
	switch typeKey {
	case types.TypeEmails:
		return toAny(DetectEmails(doc))
	case types.TypePhones:
		return toAny(DetectPhones(doc))
	case types.TypeLinks:
		return DetectLinks(doc)
	case types.TypeImages:
		return DetectImages(doc)
	case types.TypeLists:
		return DetectLists(doc)
	case types.TypeBusiness:
		return detectBusiness(doc, pageURL)
	case types.TypeProducts:
		return detectProducts(doc, pageURL)
	case types.TypeJobs:
		return detectJobs(doc)
	case types.TypeSocial:
		return detectSocial(doc)
	case types.TypeReviews:
		return detectReviews(doc, pageURL)
	default:
		return nil
	}
}

// DetectEmails returns every email address in the body text, in order of
// first appearance, with exact duplicates removed.
func DetectEmails(doc *goquery.Document) []string {
	return dedupStrings(rules.EmailPattern.FindAllString(bodyText(doc), -1))
}

// DetectPhones applies each phone pattern in turn and concatenates the
// matches, then removes exact-string duplicates. Different formats of the
// same number stay distinct.
func DetectPhones(doc *goquery.Document) []string {
	text := bodyText(doc)
	var phones []string
	for _, pattern := range rules.PhonePatterns {
		phones = append(phones, pattern.FindAllString(text, -1)...)
	}
	return dedupStrings(phones)
}

// DetectLinks returns a record per anchor with an href attribute.
func DetectLinks(doc *goquery.Document) []any {
	var links []any
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		title, _ := a.Attr("title")
		links = append(links, types.Record{
			"href":  href,
			"text":  strings.TrimSpace(a.Text()),
			"title": title,
		})
	})
	return links
}

// DetectImages returns a record per img element. Width and height come from
// the element's attributes and stay empty when undeclared.
func DetectImages(doc *goquery.Document) []any {
	var images []any
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		alt, _ := img.Attr("alt")
		width, _ := img.Attr("width")
		height, _ := img.Attr("height")
		images = append(images, types.Record{
			"src":    src,
			"alt":    alt,
			"width":  width,
			"height": height,
		})
	})
	return images
}

// DetectLists extracts tables as header-keyed row maps and ul/ol lists as
// item arrays.
func DetectLists(doc *goquery.Document) []any {
	var lists []any

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var headers []string
		table.Find("thead th, tr:first-child td").Each(func(_ int, th *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(th.Text()))
		})
		table.Find("tbody tr, tr:not(:first-child)").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() == 0 {
				return
			}
			rowData := types.Record{}
			for i, header := range headers {
				value := ""
				if i < cells.Length() {
					value = strings.TrimSpace(cells.Eq(i).Text())
				}
				rowData[header] = value
			}
			lists = append(lists, rowData)
		})
	})

	doc.Find("ul, ol").Each(func(_ int, list *goquery.Selection) {
		var items []any
		list.Find("li").Each(func(_ int, li *goquery.Selection) {
			items = append(items, strings.TrimSpace(li.Text()))
		})
		if len(items) > 0 {
			lists = append(lists, types.Record{"items": items})
		}
	})

	return lists
}

// Containers finds the record container elements for a structured type. The
// first selector in the type's priority list that yields at least one
// element wins and all further selectors are skipped. For products, a
// wildcard id/class scan serves as a last resort.
func Containers(doc *goquery.Document, typeKey string) *goquery.Selection {
	var selectors []string
	switch typeKey {
	case types.TypeBusiness:
		selectors = rules.BusinessContainers
	case types.TypeProducts:
		selectors = rules.ProductContainers
	case types.TypeJobs:
		selectors = rules.JobContainers
	case types.TypeSocial:
		selectors = rules.SocialContainers
	case types.TypeReviews:
		selectors = rules.ReviewContainers
	default:
		return doc.Find("")
	}
	for _, sel := range selectors {
		if found := doc.Find(sel); found.Length() > 0 {
			return found
		}
	}
	if typeKey == types.TypeProducts {
		return doc.Find(rules.ProductWildcard)
	}
	return doc.Find("")
}

func detectBusiness(doc *goquery.Document, pageURL string) []any {
	var businesses []any
	Containers(doc, types.TypeBusiness).Each(func(_ int, el *goquery.Selection) {
		website, _ := el.Find(rules.BusinessWebsiteSelectors).First().Attr("href")
		business := types.Record{
			"name":    trimmedText(el.Find(rules.BusinessNameSelectors).First()),
			"address": trimmedText(el.Find(rules.BusinessAddressSelectors).First()),
			"phone":   trimmedText(el.Find(rules.BusinessPhoneSelectors).First()),
			"website": website,
			"email":   trimmedText(el.Find(rules.BusinessEmailSelectors).First()),
			"url":     pageURL,
		}
		if business["name"] != "" || business["address"] != "" {
			businesses = append(businesses, business)
		}
	})
	return businesses
}

// detectProducts extracts one record per container; if no container matches
// anywhere, a single record is extracted from the whole document.
func detectProducts(doc *goquery.Document, pageURL string) []any {
	var products []any
	Containers(doc, types.TypeProducts).Each(func(_ int, el *goquery.Selection) {
		if product, ok := ProductRecord(el, pageURL); ok {
			products = append(products, product)
		}
	})
	if len(products) == 0 {
		if product, ok := ProductRecord(doc.Selection, pageURL); ok {
			products = append(products, product)
		}
	}
	return products
}

// ProductRecord extracts a full product record from a container. The record
// is accepted only when at least the name or price anchor field is present.
func ProductRecord(container *goquery.Selection, pageURL string) (types.Record, bool) {
	product := types.Record{
		"name":           ExtractField(container, FieldName, pageURL),
		"price":          ExtractField(container, FieldPrice, pageURL),
		"image":          ExtractField(container, FieldImage, pageURL),
		"description":    ExtractField(container, FieldDescription, pageURL),
		"rating":         ExtractField(container, FieldRating, pageURL),
		"availability":   ExtractField(container, FieldAvailability, pageURL),
		"url":            ExtractField(container, FieldURL, pageURL),
		"brand":          ExtractField(container, FieldBrand, pageURL),
		"specifications": ExtractField(container, FieldSpecifications, pageURL),
	}
	return product, product["name"] != "" || product["price"] != ""
}

func detectJobs(doc *goquery.Document) []any {
	var jobs []any
	Containers(doc, types.TypeJobs).Each(func(_ int, el *goquery.Selection) {
		job := types.Record{
			"title":       trimmedText(el.Find(rules.JobTitleSelectors).First()),
			"company":     trimmedText(el.Find(rules.JobCompanySelectors).First()),
			"location":    trimmedText(el.Find(rules.JobLocationSelectors).First()),
			"description": trimmedText(el.Find(rules.JobDescriptionSelectors).First()),
			"datePosted":  trimmedText(el.Find(rules.JobDateSelectors).First()),
		}
		if job["title"] != "" {
			jobs = append(jobs, job)
		}
	})
	return jobs
}

func detectSocial(doc *goquery.Document) []any {
	var profiles []any
	Containers(doc, types.TypeSocial).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		profiles = append(profiles, types.Record{
			"platform": PlatformFromURL(href),
			"url":      href,
			"username": UsernameFromURL(href),
			"text":     strings.TrimSpace(a.Text()),
		})
	})
	return profiles
}

func detectReviews(doc *goquery.Document, pageURL string) []any {
	var reviews []any
	Containers(doc, types.TypeReviews).Each(func(_ int, el *goquery.Selection) {
		review := types.Record{
			"author":  trimmedText(el.Find(rules.ReviewAuthorSelectors).First()),
			"rating":  trimmedText(el.Find(rules.ReviewRatingSelectors).First()),
			"date":    trimmedText(el.Find(rules.ReviewDateSelectors).First()),
			"content": trimmedText(el.Find(rules.ReviewContentSelectors).First()),
			"url":     pageURL,
		}
		if review["content"] != "" {
			reviews = append(reviews, review)
		}
	})
	return reviews
}

// PlatformFromURL maps a profile URL to its platform display name.
func PlatformFromURL(url string) string {
	for _, platform := range rules.SocialPlatforms {
		if strings.Contains(url, platform.Host) {
			return platform.Name
		}
	}
	return "Unknown"
}

// UsernameFromURL pulls the first path segment out of a profile URL.
func UsernameFromURL(url string) string {
	m := rules.SocialUsernamePattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

func bodyText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return doc.Text()
	}
	return body.Text()
}

func dedupStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}

func toAny(values []string) []any {
	result := make([]any, len(values))
	for i, v := range values {
		result[i] = v
	}
	return result
}
