// internal/store/store_test.go
package store

import (
	"encoding/json"
	"testing"

	"github.com/pagehound/pagehound/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t)

	raw, err := s.Get(NamespaceLocal, "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != nil {
		t.Errorf("missing key should yield nil, got %s", raw)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set(NamespaceSync, "k", map[string]any{"n": "v"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	raw, err := s.Get(NamespaceSync, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded["n"] != "v" {
		t.Errorf("unexpected value: %v", decoded)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set(NamespaceSync, "k", "sync-value"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	raw, err := s.Get(NamespaceLocal, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if raw != nil {
		t.Error("key set in sync namespace must not appear in local")
	}
}

func TestMergeBatchAccumulatesAndRecordsHistory(t *testing.T) {
	s := openTestStore(t)

	first := map[string][]any{
		types.TypeEmails: {"a@x.com"},
		types.TypeLinks:  {types.Record{"href": "/a", "text": "A", "title": ""}},
	}
	if _, err := s.MergeBatch(first, "https://example.com/1"); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	second := map[string][]any{
		types.TypeEmails: {"a@x.com", "b@x.com"},
	}
	scraped, err := s.MergeBatch(second, "https://example.com/2")
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	if emails := scraped.TypeList(types.TypeEmails); len(emails) != 2 {
		t.Errorf("expected 2 deduplicated emails, got %v", emails)
	}
	if len(scraped.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(scraped.History))
	}
	entry := scraped.History[0]
	if entry.URL != "https://example.com/1" {
		t.Errorf("unexpected history URL: %s", entry.URL)
	}
	if len(entry.DataTypes) != 2 {
		t.Errorf("expected 2 data types in history, got %v", entry.DataTypes)
	}
	if entry.Timestamp == 0 {
		t.Error("expected a millisecond timestamp")
	}
}

func TestMergeBatchPersists(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.MergeBatch(map[string][]any{types.TypePhones: {"555-123-4567"}}, "u"); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	scraped, err := s.LoadScraped()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if phones := scraped.TypeList(types.TypePhones); len(phones) != 1 || phones[0] != "555-123-4567" {
		t.Errorf("unexpected phones after reload: %v", phones)
	}
}

func TestStoreRecordsNoHistory(t *testing.T) {
	s := openTestStore(t)

	scraped, err := s.StoreRecords(types.TypeCustom, []any{types.Record{"text": "x", "html": "", "href": "", "src": ""}})
	if err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if len(scraped.History) != 0 {
		t.Error("interactive stores must not append history")
	}
	if len(scraped.TypeList(types.TypeCustom)) != 1 {
		t.Errorf("expected 1 custom record, got %v", scraped.TypeList(types.TypeCustom))
	}
}

func TestCaptureDeduplicates(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		if err := s.Capture(types.TypeEmails, "dup@x.com"); err != nil {
			t.Fatalf("capture failed: %v", err)
		}
	}
	scraped, err := s.LoadScraped()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if emails := scraped.TypeList(types.TypeEmails); len(emails) != 1 {
		t.Errorf("expected 1 captured email, got %v", emails)
	}
}

func TestClearScraped(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.MergeBatch(map[string][]any{types.TypeEmails: {"a@x.com"}}, "u"); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if err := s.ClearScraped(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	scraped, err := s.LoadScraped()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(scraped.PopulatedTypes()) != 0 || len(scraped.History) != 0 {
		t.Error("expected an empty store after clear")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("", nil); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}
