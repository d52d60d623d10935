// internal/export/database.go
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pagehound/pagehound/internal/utils"
	"github.com/pagehound/pagehound/pkg/types"
)

// SQL drivers accepted by NewSQLSink.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// SQLSink exports the store into a relational table: one row per record,
// the record itself stored as JSON.
type SQLSink struct {
	db     *sql.DB
	driver string
	table  string
	logger utils.Logger
}

// NewSQLSink connects to a MySQL, PostgreSQL or SQLite database.
func NewSQLSink(driver, dsn, table string, logger utils.Logger) (*SQLSink, error) {
	switch driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}
	if table == "" {
		table = "scraped_records"
	}
	if logger == nil {
		logger = utils.NewLogger()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &SQLSink{db: db, driver: driver, table: table, logger: logger}, nil
}

// Close closes the database connection.
func (s *SQLSink) Close() error { return s.db.Close() }

// Export writes every record of the store inside one transaction, creating
// the target table if needed.
func (s *SQLSink) Export(ctx context.Context, scraped *types.ScrapedStore) (int, error) {
	if err := s.ensureTable(ctx); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.insertQuery())
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	count := 0
	for _, key := range scraped.PopulatedTypes() {
		for _, rec := range scraped.TypeList(key) {
			data, err := json.Marshal(rec)
			if err != nil {
				return count, fmt.Errorf("failed to encode record: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, key, string(data), now); err != nil {
				return count, fmt.Errorf("failed to insert record: %w", err)
			}
			count++
		}
	}

	if err := tx.Commit(); err != nil {
		return count, fmt.Errorf("failed to commit: %w", err)
	}
	s.logger.WithFields(map[string]any{"table": s.table, "records": count}).Info("database export complete")
	return count, nil
}

func (s *SQLSink) ensureTable(ctx context.Context) error {
	textType := "LONGTEXT"
	if s.driver != DriverMySQL {
		textType = "TEXT"
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		data_type   VARCHAR(64) NOT NULL,
		record      %s NOT NULL,
		exported_at TIMESTAMP NOT NULL
	)`, s.table, textType)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (s *SQLSink) insertQuery() string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("INSERT INTO %s (data_type, record, exported_at) VALUES ($1, $2, $3)", s.table)
	}
	return fmt.Sprintf("INSERT INTO %s (data_type, record, exported_at) VALUES (?, ?, ?)", s.table)
}

// ExportTo writes the store to a database destination of the form
// driver://dsn. The driver part picks the sink: mysql and sqlite3 DSNs
// follow the scheme separator; postgres and mongodb drivers take the full
// URL as their DSN.
func ExportTo(ctx context.Context, dest string, scraped *types.ScrapedStore, logger utils.Logger) (int, error) {
	driver, dsn, found := strings.Cut(dest, "://")
	if !found {
		return 0, fmt.Errorf("export destination must look like driver://dsn: %s", dest)
	}

	switch driver {
	case DriverMySQL, DriverSQLite:
		sink, err := NewSQLSink(driver, dsn, "", logger)
		if err != nil {
			return 0, err
		}
		defer sink.Close()
		return sink.Export(ctx, scraped)
	case DriverPostgres:
		sink, err := NewSQLSink(driver, dest, "", logger)
		if err != nil {
			return 0, err
		}
		defer sink.Close()
		return sink.Export(ctx, scraped)
	case "mongodb", "mongodb+srv":
		sink, err := NewMongoSink(ctx, dest, "", "", logger)
		if err != nil {
			return 0, err
		}
		defer sink.Close(ctx)
		return sink.Export(ctx, scraped)
	default:
		return 0, fmt.Errorf("unsupported export destination: %s", driver)
	}
}

// MongoSink exports the store into a MongoDB collection, one document per
// record.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     utils.Logger
}

// NewMongoSink connects to MongoDB.
func NewMongoSink(ctx context.Context, uri, database, collection string, logger utils.Logger) (*MongoSink, error) {
	if database == "" {
		database = "pagehound"
	}
	if collection == "" {
		collection = "scraped_records"
	}
	if logger == nil {
		logger = utils.NewLogger()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger,
	}, nil
}

// Close disconnects the client.
func (s *MongoSink) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// Export inserts every record as {type, record, exportedAt}.
func (s *MongoSink) Export(ctx context.Context, scraped *types.ScrapedStore) (int, error) {
	var docs []interface{}
	now := time.Now().UTC()
	for _, key := range scraped.PopulatedTypes() {
		for _, rec := range scraped.TypeList(key) {
			docs = append(docs, bson.M{
				"type":       key,
				"record":     rec,
				"exportedAt": now,
			})
		}
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return 0, fmt.Errorf("failed to insert records: %w", err)
	}
	s.logger.WithField("records", len(docs)).Info("mongodb export complete")
	return len(docs), nil
}
