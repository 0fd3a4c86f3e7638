// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides a persistent key-value store with optional expiry,
// backed by SQLite. Values are JSON-encoded so arbitrary records round-trip
// across restarts. Expired and corrupt entries are purged lazily on read.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("store is closed")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// STORE
// =============================================================================

// Store is a persistent key-value store with per-entry expiry.
//
// Safe for concurrent use. SQLite only supports one writer at a time, so the
// connection pool is limited to a single connection.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	closed bool
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens (or creates) the store database at path
func Open(path string, opts ...Option) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for SQLite
	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	s := &Store{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// Set stores a value under key with no expiry
func (s *Store) Set(key string, value any) error {
	return s.SetWithTTL(key, value, 0)
}

// SetWithTTL stores a value under key, expiring after ttl.
// A zero or negative ttl means the entry never expires.
func (s *Store) SetWithTTL(key string, value any, ttl time.Duration) error {
	if s.closed {
		return ErrClosed
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %q: %w", key, err)
	}

	now := s.now().UnixMilli()
	var deadline int64
	if ttl > 0 {
		deadline = now + ttl.Milliseconds()
	}

	_, err = s.db.Exec(
		`INSERT INTO entries (key, value, timestamp, expiry) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value,
		                                timestamp = excluded.timestamp,
		                                expiry = excluded.expiry`,
		key, string(data), now, deadline,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// SetForMinutes stores a value under key, expiring after the given number of
// minutes. Zero or negative minutes means the entry never expires.
func (s *Store) SetForMinutes(key string, value any, minutes int) error {
	return s.SetWithTTL(key, value, time.Duration(minutes)*time.Minute)
}

// Expire rewrites the expiry of an existing entry to ttl from now, keeping
// its value. Returns false if the key is absent or already expired.
func (s *Store) Expire(key string, ttl time.Duration) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	if !s.Has(key) {
		return false, nil
	}

	now := s.now().UnixMilli()
	var deadline int64
	if ttl > 0 {
		deadline = now + ttl.Milliseconds()
	}

	res, err := s.db.Exec(
		`UPDATE entries SET timestamp = ?, expiry = ? WHERE key = ?`,
		now, deadline, key,
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return n > 0, nil
}

// Remove deletes the entry for key. Removing a missing key is not an error.
func (s *Store) Remove(key string) error {
	if s.closed {
		return ErrClosed
	}
	if _, err := s.db.Exec(`DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Clear deletes every entry
func (s *Store) Clear() error {
	if s.closed {
		return ErrClosed
	}
	if _, err := s.db.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// ClearPrefix deletes every entry whose key starts with prefix
func (s *Store) ClearPrefix(prefix string) error {
	if s.closed {
		return ErrClosed
	}
	_, err := s.db.Exec(
		`DELETE FROM entries WHERE key LIKE ? ESCAPE '\'`,
		likePrefix(prefix),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// likePrefix escapes LIKE metacharacters in prefix and appends the wildcard
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// GetRaw returns the raw JSON payload for key, or false when the key is
// absent, expired, or corrupt. Expired and corrupt entries are deleted.
func (s *Store) GetRaw(key string) (json.RawMessage, bool) {
	if s.closed {
		return nil, false
	}

	var (
		raw      string
		deadline int64
	)
	err := s.db.QueryRow(
		`SELECT value, expiry FROM entries WHERE key = ?`, key,
	).Scan(&raw, &deadline)
	if err != nil {
		return nil, false
	}

	// An entry expires strictly after its deadline; at the exact deadline
	// millisecond it is still live.
	if deadline > 0 && deadline < s.now().UnixMilli() {
		_ = s.Remove(key)
		return nil, false
	}
	if !json.Valid([]byte(raw)) {
		// Corrupt payloads behave like misses so callers never see
		// half-written state.
		_ = s.Remove(key)
		return nil, false
	}
	return json.RawMessage(raw), true
}

// Has reports whether key holds a live entry
func (s *Store) Has(key string) bool {
	_, ok := s.GetRaw(key)
	return ok
}

// Keys returns the live keys matching prefix, in lexical order.
// Expired entries encountered along the way are deleted.
func (s *Store) Keys(prefix string) ([]string, error) {
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(
		`SELECT key, expiry FROM entries WHERE key LIKE ? ESCAPE '\' ORDER BY key`,
		likePrefix(prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var live, expired []string
	nowMs := s.now().UnixMilli()
	for rows.Next() {
		var (
			key      string
			deadline int64
		)
		if err := rows.Scan(&key, &deadline); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if deadline > 0 && deadline < nowMs {
			expired = append(expired, key)
			continue
		}
		live = append(live, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	for _, key := range expired {
		_ = s.Remove(key)
	}
	return live, nil
}

// PurgeExpired deletes every entry whose deadline has passed and returns the
// number removed. Reads already skip expired entries, so this only reclaims
// space.
func (s *Store) PurgeExpired() (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	res, err := s.db.Exec(
		`DELETE FROM entries WHERE expiry > 0 AND expiry < ?`,
		s.now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return int(n), nil
}

// Get decodes the entry for key into T. The second return is false when the
// key is absent, expired, or does not decode as T.
func Get[T any](s *Store, key string) (T, bool) {
	var zero T
	raw, ok := s.GetRaw(key)
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false
	}
	return v, true
}
