// internal/store/store.go
//
// Package store persists the accumulated scraping results and settings in a
// SQLite-backed key-value store with two namespaces: "sync" for settings and
// "local" for scraped data. All mutation of the scraped store goes through a
// single mutex, so
// overlapping extraction flows (a capture firing mid-bulk-run) serialize
// instead of racing on the read-modify-write cycle.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/pagehound/pagehound/internal/dedup"
	"github.com/pagehound/pagehound/internal/utils"
	"github.com/pagehound/pagehound/pkg/types"
)

// Namespaces of the key-value store.
const (
	NamespaceSync  = "sync"
	NamespaceLocal = "local"
)

// scrapedKey is the local-namespace key holding the full ScrapedStore.
const scrapedKey = "scrapedData"

// Store is a durable two-namespace key-value store.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger utils.Logger
}

// Open opens (creating if needed) the store at path. Use ":memory:" for an
// ephemeral store in tests.
func Open(path string, logger utils.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if logger == nil {
		logger = utils.NewLogger()
	}

	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	schema := `CREATE TABLE IF NOT EXISTS kv (
		namespace  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (namespace, key)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Get reads a raw JSON value from a namespace. Missing keys yield (nil,
// nil); an absent key is not an error.
func (s *Store) Get(namespace, key string) (json.RawMessage, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &utils.StorageError{Op: "get", Err: err}
	}
	return json.RawMessage(value), nil
}

// Set writes a value into a namespace, replacing any previous value.
func (s *Store) Set(namespace, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &utils.StorageError{Op: "set", Err: err}
	}
	_, err = s.db.Exec(
		`INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, key, string(data), time.Now().UTC(),
	)
	if err != nil {
		return &utils.StorageError{Op: "set", Err: err}
	}
	return nil
}

// Delete removes a key from a namespace.
func (s *Store) Delete(namespace, key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE namespace = ? AND key = ?`, namespace, key); err != nil {
		return &utils.StorageError{Op: "delete", Err: err}
	}
	return nil
}

// LoadScraped reads the accumulated ScrapedStore, returning an empty store
// when none has been written yet.
func (s *Store) LoadScraped() (*types.ScrapedStore, error) {
	raw, err := s.Get(NamespaceLocal, scrapedKey)
	if err != nil {
		return nil, err
	}
	scraped := types.NewScrapedStore()
	if raw == nil {
		return scraped, nil
	}
	if err := json.Unmarshal(raw, scraped); err != nil {
		return nil, &utils.StorageError{Op: "decode", Err: err}
	}
	return scraped, nil
}

// SaveScraped writes the full ScrapedStore back.
func (s *Store) SaveScraped(scraped *types.ScrapedStore) error {
	return s.Set(NamespaceLocal, scrapedKey, scraped)
}

// MergeBatch merges one page's extraction result into the accumulated store
// under the per-type identity rules and appends a history entry. The whole
// read-modify-write cycle runs under the store mutex.
func (s *Store) MergeBatch(data map[string][]any, pageURL string) (*types.ScrapedStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scraped, err := s.LoadScraped()
	if err != nil {
		return nil, err
	}

	dedup.MergeInto(scraped, data)

	var dataTypes []string
	for _, key := range types.DataTypeKeys {
		if len(data[key]) > 0 {
			dataTypes = append(dataTypes, key)
		}
	}
	for key, records := range data {
		if len(records) > 0 && !contains(dataTypes, key) {
			dataTypes = append(dataTypes, key)
		}
	}
	scraped.AppendHistory(types.HistoryEntry{
		URL:       pageURL,
		Timestamp: time.Now().UnixMilli(),
		DataTypes: dataTypes,
	})

	if err := s.SaveScraped(scraped); err != nil {
		return nil, err
	}
	return scraped, nil
}

// StoreRecords merges records of a single type without touching history,
// used by the interactive extraction paths.
func (s *Store) StoreRecords(typeKey string, records []any) (*types.ScrapedStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scraped, err := s.LoadScraped()
	if err != nil {
		return nil, err
	}
	scraped.SetTypeList(typeKey, dedup.Merge(scraped.TypeList(typeKey), records, typeKey))
	if err := s.SaveScraped(scraped); err != nil {
		return nil, err
	}
	return scraped, nil
}

// Capture stores one bare value under its type key with scalar dedup. Used
// by the context-menu capture path for selected text, link and image URLs.
func (s *Store) Capture(kind, value string) error {
	_, err := s.StoreRecords(kind, []any{value})
	return err
}

// ClearScraped drops all accumulated data and history.
func (s *Store) ClearScraped() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Delete(NamespaceLocal, scrapedKey)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
