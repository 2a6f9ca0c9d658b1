package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// schema is applied on every open; every statement is idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS servers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		platform TEXT NOT NULL,
		last_synced INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS channels (
		id TEXT PRIMARY KEY,
		server_id TEXT NOT NULL,
		name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_channels_server ON channels(server_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL,
		author_id TEXT NOT NULL,
		author_name TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_channel_created ON messages(channel_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS channel_summaries (
		id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'real',
		summary TEXT NOT NULL,
		message_count INTEGER NOT NULL,
		active_users INTEGER NOT NULL,
		key_topics TEXT NOT NULL DEFAULT '[]',
		generated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_channel ON channel_summaries(channel_id, generated_at)`,
	`CREATE TABLE IF NOT EXISTS server_stats (
		id TEXT PRIMARY KEY,
		server_id TEXT NOT NULL,
		total_messages INTEGER NOT NULL,
		active_users INTEGER NOT NULL,
		active_channels INTEGER NOT NULL,
		pct_messages REAL NOT NULL DEFAULT 0,
		pct_users REAL NOT NULL DEFAULT 0,
		pct_channels REAL NOT NULL DEFAULT 0,
		generated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stats_server ON server_stats(server_id, generated_at)`,
	`CREATE TABLE IF NOT EXISTS monitor_states (
		channel_id TEXT PRIMARY KEY,
		last_observed_count INTEGER NOT NULL DEFAULT 0,
		last_analysis_at INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS user_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		auto_analysis_enabled INTEGER NOT NULL,
		default_email_recipient TEXT NOT NULL DEFAULT '',
		message_threshold INTEGER NOT NULL,
		time_threshold INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
}

// OpenDB opens the sqlite database and creates missing tables
func OpenDB(dbPath string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return db, nil
}

func unixOrZero(t *time.Time) int64 {
	if t == nil || t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func timeOrNil(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms)
	return &t
}
