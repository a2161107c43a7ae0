// Package store provides the SQLite-backed shared state store for Arbiter.
//
// The store is a flat key-value table with per-entry expiration plus an
// append-only decision log. It never interprets values; ownership semantics
// for locks live in the lock manager, which passes predicates into the
// conditional operations so the check and the write happen in one
// transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arbiter-dev/arbiter/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one live row in the key-value table.
type Entry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store provides access to the Arbiter SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL mode for better concurrency across processes
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		actor TEXT NOT NULL,
		resource TEXT,
		outcome TEXT NOT NULL,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_expires_at ON entries(expires_at);
	CREATE INDEX IF NOT EXISTS idx_decisions_kind ON decisions(kind);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Key-Value Operations ---

// Get retrieves a live entry by key. Expired and missing entries both
// return nil.
func (s *Store) Get(key string) (*Entry, error) {
	now := time.Now().UTC()
	e := &Entry{}

	err := s.db.QueryRow(
		`SELECT key, value, created_at, expires_at FROM entries WHERE key = ? AND expires_at > ?`,
		key, now,
	).Scan(&e.Key, &e.Value, &e.CreatedAt, &e.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query entry: %w", err)
	}
	return e, nil
}

// Put writes an entry unconditionally, replacing any existing row.
func (s *Store) Put(key string, value []byte, expiresAt time.Time) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO entries (key, value, created_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at, expires_at = excluded.expires_at`,
		key, value, now, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("put entry: %w", err)
	}
	return nil
}

// PutIf writes an entry only when there is no live entry for the key, or
// when the caller's predicate accepts the existing live value. Expired rows
// are purged inside the same transaction, so expiration is atomic with the
// conditional write.
//
// Returns (nil, true) when the write happened, or (existing, false) when
// the predicate rejected the live value.
func (s *Store) PutIf(key string, value []byte, expiresAt time.Time, cond func(existing []byte) bool) ([]byte, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	if _, err := tx.Exec(`DELETE FROM entries WHERE key = ? AND expires_at <= ?`, key, now); err != nil {
		return nil, false, fmt.Errorf("purge expired: %w", err)
	}

	var existing []byte
	err = tx.QueryRow(`SELECT value FROM entries WHERE key = ? AND expires_at > ?`, key, now).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("check existing entry: %w", err)
	}
	if err == nil && !cond(existing) {
		return existing, false, nil
	}

	_, err = tx.Exec(
		`INSERT INTO entries (key, value, created_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, now, expiresAt.UTC(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit transaction: %w", err)
	}
	return nil, true, nil
}

// Delete removes an entry unconditionally.
func (s *Store) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM entries WHERE key = ?`, key)
	return err
}

// DeleteIf removes the live entry for key when the predicate accepts its
// value. Returns whether a row was deleted.
func (s *Store) DeleteIf(key string, cond func(existing []byte) bool) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var existing []byte
	err = tx.QueryRow(`SELECT value FROM entries WHERE key = ? AND expires_at > ?`, key, now).Scan(&existing)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check existing entry: %w", err)
	}
	if !cond(existing) {
		return false, nil
	}

	if _, err := tx.Exec(`DELETE FROM entries WHERE key = ?`, key); err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}

// List returns all live entries whose key starts with prefix, ordered by
// key. An empty prefix returns everything live.
func (s *Store) List(prefix string) ([]Entry, error) {
	now := time.Now().UTC()

	rows, err := s.db.Query(
		`SELECT key, value, created_at, expires_at FROM entries
		 WHERE key LIKE ? ESCAPE '\' AND expires_at > ? ORDER BY key`,
		escapeLike(prefix)+"%", now,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.CreatedAt, &e.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PurgeExpired removes all lapsed entries. The TTL check in every read
// already hides them; this just reclaims rows.
func (s *Store) PurgeExpired() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM entries WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	return res.RowsAffected()
}

// --- Decision Log ---

// RecordDecision appends a coordination decision to the audit log.
func (s *Store) RecordDecision(kind, actor, resource, outcome, details string) (*models.DecisionRecord, error) {
	rec := &models.DecisionRecord{
		ID:        uuid.New().String(),
		Kind:      kind,
		Actor:     actor,
		Resource:  resource,
		Outcome:   outcome,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO decisions (id, kind, actor, resource, outcome, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.Actor, rec.Resource, rec.Outcome, rec.Details, rec.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert decision: %w", err)
	}
	return rec, nil
}

// ListDecisions returns the most recent decision records, newest first.
func (s *Store) ListDecisions(limit int) ([]models.DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, kind, actor, resource, outcome, details, timestamp FROM decisions ORDER BY timestamp DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var recs []models.DecisionRecord
	for rows.Next() {
		var rec models.DecisionRecord
		var resource, details sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Actor, &resource, &rec.Outcome, &details, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if resource.Valid {
			rec.Resource = resource.String
		}
		if details.Valid {
			rec.Details = details.String
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
