// pkg/types/types.go
package types

import (
	"encoding/json"
	"fmt"
)

// Data type keys recognized by the detection and storage layers.
const (
	TypeEmails   = "emails"
	TypePhones   = "phones"
	TypeBusiness = "business"
	TypeProducts = "products"
	TypeJobs     = "jobs"
	TypeSocial   = "social"
	TypeReviews  = "reviews"
	TypeLinks    = "links"
	TypeImages   = "images"
	TypeLists    = "lists"
	TypeCustom   = "customSelector"
	TypeAll      = "all"
)

// historyKey is the reserved store key holding scraping history. It lives
// alongside the data type keys in the persisted JSON object.
const historyKey = "scrapingHistory"

// Record is a structured extraction result. Scalar types (emails, phones)
// store bare strings instead; a type key's list therefore holds either
// strings or Records. Leaf values are strings, nested string maps
// (product specifications) or []any (list items), so a Record survives a
// JSON round trip unchanged.
type Record = map[string]any

// DataTypeKeys lists every detectable type key in detection order.
var DataTypeKeys = []string{
	TypeEmails, TypePhones, TypeImages, TypeLinks, TypeLists,
	TypeBusiness, TypeProducts, TypeJobs, TypeSocial, TypeReviews,
}

// HistoryEntry records one completed extraction of one page.
type HistoryEntry struct {
	URL       string   `json:"url"`
	Timestamp int64    `json:"timestamp"`
	DataTypes []string `json:"dataTypes"`
}

// ScrapedStore accumulates deduplicated records per data type plus an
// append-only scraping history. Within a type's list no two entries are
// duplicates under that type's identity rule; the dedup package enforces
// this on every merge.
type ScrapedStore struct {
	Types   map[string][]any
	History []HistoryEntry
}

// NewScrapedStore returns an empty store.
func NewScrapedStore() *ScrapedStore {
	return &ScrapedStore{Types: make(map[string][]any)}
}

// TypeList returns the record list for a type key, creating it lazily.
func (s *ScrapedStore) TypeList(key string) []any {
	if s.Types == nil {
		s.Types = make(map[string][]any)
	}
	return s.Types[key]
}

// SetTypeList replaces the record list for a type key.
func (s *ScrapedStore) SetTypeList(key string, list []any) {
	if s.Types == nil {
		s.Types = make(map[string][]any)
	}
	s.Types[key] = list
}

// AppendHistory adds a history entry. History is append-only and never
// deduplicated.
func (s *ScrapedStore) AppendHistory(entry HistoryEntry) {
	s.History = append(s.History, entry)
}

// PopulatedTypes returns the type keys that hold at least one record, in
// the canonical detection order followed by any remaining keys.
func (s *ScrapedStore) PopulatedTypes() []string {
	var keys []string
	seen := make(map[string]bool)
	for _, k := range DataTypeKeys {
		if len(s.Types[k]) > 0 {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	for k, list := range s.Types {
		if !seen[k] && len(list) > 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

// MarshalJSON renders the store as a single flat object: one member per
// data type plus the scrapingHistory list.
func (s *ScrapedStore) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Types)+1)
	for k, v := range s.Types {
		out[k] = v
	}
	if s.History != nil {
		out[historyKey] = s.History
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON; a store serialized to JSON
// and parsed back deep-equals the original.
func (s *ScrapedStore) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("scraped store: %w", err)
	}
	s.Types = make(map[string][]any, len(raw))
	s.History = nil
	for k, v := range raw {
		if k == historyKey {
			if err := json.Unmarshal(v, &s.History); err != nil {
				return fmt.Errorf("scraping history: %w", err)
			}
			continue
		}
		var list []any
		if err := json.Unmarshal(v, &list); err != nil {
			return fmt.Errorf("type %q: %w", k, err)
		}
		s.Types[k] = list
	}
	return nil
}

// Schedule drives recurring bulk runs.
type Schedule struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Frequency string   `json:"frequency" yaml:"frequency"` // hourly, daily, weekly, monthly
	URLs      []string `json:"urls" yaml:"urls"`
	DataType  string   `json:"dataType" yaml:"data_type"`
	Time      string   `json:"time" yaml:"time"` // HH:MM, local time
	DayOfWeek int      `json:"dayOfWeek" yaml:"day_of_week"`
}

// Pagination configures multi-page bulk scraping of a single URL.
type Pagination struct {
	Enabled   bool `json:"enabled"`
	PageCount int  `json:"pageCount"`
}

// BulkProgress is emitted after each URL of a bulk run completes.
type BulkProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// BulkComplete is emitted once after the final URL of a bulk run.
type BulkComplete struct {
	Count int `json:"count"`
}

// SelectedElement identifies an operator-curated element by its structural
// selector. Type is a label derived from the element's tag name or class.
type SelectedElement struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
	Type     string `json:"type"`
}
