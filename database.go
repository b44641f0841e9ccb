package main

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite event log. Game state never goes through it.
type DB struct {
	conn *sql.DB
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		participant_id TEXT,
		data TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_type ON analytics_events(event_type, created_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// GetSetting returns a stored setting, or "" if absent
func (db *DB) GetSetting(key string) string {
	var value string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

// SetSetting upserts a setting
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// MatchRow is one finished round read back from the event log
type MatchRow struct {
	WinnerID   string  `json:"winnerId,omitempty"`
	WinnerName string  `json:"winnerName,omitempty"`
	Players    int     `json:"players"`
	Duration   float64 `json:"duration"`
	EndedAt    string  `json:"endedAt"`
}

// RecentMatches returns the latest finished rounds, newest first
func (db *DB) RecentMatches(limit int) ([]MatchRow, error) {
	rows, err := db.conn.Query(`
		SELECT COALESCE(participant_id, ''),
			COALESCE(json_extract(data, '$.winner'), ''),
			COALESCE(json_extract(data, '$.players'), 0),
			COALESCE(json_extract(data, '$.duration'), 0),
			created_at
		FROM analytics_events
		WHERE event_type = ? AND json_valid(data)
		ORDER BY id DESC LIMIT ?
	`, EvtMatchEnd, limit)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	result := make([]MatchRow, 0, limit)
	for rows.Next() {
		var m MatchRow
		if err := rows.Scan(&m.WinnerID, &m.WinnerName, &m.Players, &m.Duration, &m.EndedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return result, nil
}
