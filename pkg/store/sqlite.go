package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mcclellann/lendbook/pkg/models"
	"github.com/sirupsen/logrus"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the ledger document as a single JSON value in an on-device
// SQLite key-value table.
type SQLiteStore struct {
	db     *sql.DB
	now    func() time.Time
	logger *logrus.Logger
}

// NewSQLiteStore opens (or creates) the database file and initializes the schema.
func NewSQLiteStore(dataSourceName string, logger *logrus.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	logger.WithField("dsn", dataSourceName).Info("Database connection established and schema initialized")
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads the document. A missing row or an undecodable value is replaced
// by a fresh empty document, which is written back before returning.
func (s *SQLiteStore) Load() *models.Document {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, DocumentKey).Scan(&value)
	switch {
	case err == sql.ErrNoRows:
		s.logger.Info("No stored ledger found, initializing")
	case err != nil:
		s.logger.WithError(err).Error("Failed to read stored ledger, starting with an empty one")
	default:
		doc, decodeErr := decodeDocument([]byte(value))
		if decodeErr == nil {
			return doc
		}
		s.logger.WithError(decodeErr).Warn("Stored ledger is unreadable, starting with an empty one")
	}

	doc := models.NewDocument(s.now())
	_ = s.Save(doc)
	return doc
}

// Save upserts the encoded document. Failures are logged and returned.
func (s *SQLiteStore) Save(doc *models.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		s.logger.WithError(err).Error("Failed to save document")
		return err
	}

	if err := s.put(string(data)); err != nil {
		s.logger.WithError(err).Error("Failed to save document")
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// put stores value verbatim under the document key.
func (s *SQLiteStore) put(value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		DocumentKey, value, s.now(),
	)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
