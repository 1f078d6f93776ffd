// Package kvstore provides the durable key-value slots backing drafts,
// sessions, and connection state. It is the workspace analog of the
// browser's localStorage/sessionStorage pair: a persistent bucket that
// survives restarts and a session bucket that is wiped at session boundaries.
package kvstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Bucket selects the storage scope for a slot.
type Bucket string

const (
	// Persistent slots survive across sessions.
	Persistent Bucket = "persistent"
	// Session slots are cleared by ResetSession.
	Session Bucket = "session"
)

// Store wraps a SQLite database holding key-value slots.
// Writes assume a single active writer; there is no cross-process locking.
type Store struct {
	db *sql.DB
}

// Open opens or creates the slot store at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS slots (
			bucket TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (bucket, key)
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the value stored under a key, and whether the slot exists.
func (s *Store) Get(bucket Bucket, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM slots WHERE bucket = ? AND key = ?`,
		string(bucket), key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading slot %s/%s: %w", bucket, key, err)
	}
	return value, true, nil
}

// Put writes a value to a slot, overwriting any prior value.
func (s *Store) Put(bucket Bucket, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO slots (bucket, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (bucket, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(bucket), key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("writing slot %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Delete removes a slot. Deleting an absent slot is not an error.
func (s *Store) Delete(bucket Bucket, key string) error {
	_, err := s.db.Exec(
		`DELETE FROM slots WHERE bucket = ? AND key = ?`,
		string(bucket), key,
	)
	if err != nil {
		return fmt.Errorf("deleting slot %s/%s: %w", bucket, key, err)
	}
	return nil
}

// ResetSession clears every slot in the session bucket.
func (s *Store) ResetSession() error {
	_, err := s.db.Exec(`DELETE FROM slots WHERE bucket = ?`, string(Session))
	if err != nil {
		return fmt.Errorf("clearing session slots: %w", err)
	}
	return nil
}
