// Package localstate keeps the client's last known document on disk,
// so the board starts usable before (or without) the sync server.
package localstate

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ourday-app/ourday/internal/model"
	"github.com/ourday-app/ourday/internal/normalize"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite snapshot database.
type DB struct {
	*sql.DB
}

// DefaultPath returns the default snapshot path (~/.ourday/state.db).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".ourday", "state.db"), nil
}

// Open opens or creates the snapshot database.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to state database: %w", err)
	}

	_, err = sqlDB.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot (
			id       INTEGER PRIMARY KEY CHECK (id = 1),
			document TEXT NOT NULL,
			saved_at TEXT NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}

	return &DB{DB: sqlDB}, nil
}

// OpenDefault opens the snapshot database at the default path.
func OpenDefault() (*DB, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Save stores doc as the single snapshot row.
func (d *DB) Save(doc *model.StateDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	_, err = d.Exec(`
		INSERT INTO snapshot (id, document, saved_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET document = excluded.document, saved_at = excluded.saved_at`,
		string(data), model.Timestamp(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Load returns the stored snapshot run through the normalizer, or a
// fresh empty document when nothing was saved yet. Stored bytes are
// never trusted directly.
func (d *DB) Load() (*model.StateDocument, error) {
	var data string
	err := d.QueryRow(`SELECT document FROM snapshot WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return model.NewStateDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	var raw any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return model.NewStateDocument(), nil
	}
	return normalize.Document(raw), nil
}
