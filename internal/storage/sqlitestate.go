package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const chatStateSchema = `CREATE TABLE IF NOT EXISTS chat_state (
	namespace  TEXT    NOT NULL,
	chat_id    INTEGER NOT NULL,
	payload    TEXT    NOT NULL,
	updated_at TEXT    NOT NULL,
	PRIMARY KEY (namespace, chat_id)
)`

// OpenStateDB opens (creating if needed) the SQLite database holding
// conversation state and ensures its schema.
func OpenStateDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("state db: create dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state db: open: %w", err)
	}
	// Single connection: writes are serialized.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		chatStateSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("state db: %q: %w", stmt, err)
		}
	}
	return db, nil
}

// SQLiteStateStore persists per-chat state as JSON rows so conversations
// survive a restart. Several stores share one table, separated by namespace.
type SQLiteStateStore[T any] struct {
	db        *sql.DB
	namespace string
	now       func() time.Time
}

// NewSQLiteStateStore creates a store over db using the given namespace.
func NewSQLiteStateStore[T any](db *sql.DB, namespace string) *SQLiteStateStore[T] {
	return &SQLiteStateStore[T]{
		db:        db,
		namespace: namespace,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *SQLiteStateStore[T]) Get(chatID int64) (T, bool, error) {
	var zero T
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM chat_state WHERE namespace = ? AND chat_id = ?`,
		s.namespace, chatID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("loading %s state for chat %d: %w", s.namespace, chatID, err)
	}

	var state T
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return zero, false, fmt.Errorf("decoding %s state for chat %d: %w", s.namespace, chatID, err)
	}
	return state, true, nil
}

func (s *SQLiteStateStore[T]) Set(chatID int64, state T) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding %s state for chat %d: %w", s.namespace, chatID, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO chat_state (namespace, chat_id, payload, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, chat_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		s.namespace, chatID, string(payload), s.now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving %s state for chat %d: %w", s.namespace, chatID, err)
	}
	return nil
}

func (s *SQLiteStateStore[T]) Delete(chatID int64) error {
	if _, err := s.db.Exec(
		`DELETE FROM chat_state WHERE namespace = ? AND chat_id = ?`,
		s.namespace, chatID,
	); err != nil {
		return fmt.Errorf("deleting %s state for chat %d: %w", s.namespace, chatID, err)
	}
	return nil
}

// Count returns the number of chats with state in this namespace.
func (s *SQLiteStateStore[T]) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM chat_state WHERE namespace = ?`, s.namespace,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s state: %w", s.namespace, err)
	}
	return n, nil
}
