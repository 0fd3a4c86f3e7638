// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// SQLite schema for the key-value store. Values are JSON-encoded; expiry is
// an absolute unix-millisecond deadline, 0 meaning the entry never expires.
const Schema = `
-- Metadata table for schema version
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Entries table: JSON values with write timestamp and optional expiry
CREATE TABLE IF NOT EXISTS entries (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,        -- JSON-encoded payload
    timestamp INTEGER NOT NULL, -- Unix milliseconds at write time
    expiry INTEGER NOT NULL     -- Absolute deadline in unix milliseconds, 0 = never
) WITHOUT ROWID;

CREATE INDEX IF NOT EXISTS idx_entries_expiry ON entries(expiry);
`

// InitMetadata seeds the schema version row
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
