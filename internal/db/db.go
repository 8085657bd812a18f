package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection and provides logging methods
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the SQLite database at the specified path
func Open(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db := &DB{
		conn: conn,
		path: path,
	}

	// Initialize schema
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		// Checkpoint the WAL to ensure all data is written to the main database file
		db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return db.conn.Close()
	}
	return nil
}

// Flush forces a WAL checkpoint to write pending changes to the main database file
func (db *DB) Flush() error {
	if db.conn != nil {
		// Use RESTART mode to force checkpoint even if there are active readers
		_, err := db.conn.Exec("PRAGMA wal_checkpoint(RESTART)")
		return err
	}
	return nil
}

// initSchema creates the database tables if they don't exist
func (db *DB) initSchema() error {
	schema := `
	-- Tab lifecycle events (launch, embed, hide, show, close, crash)
	CREATE TABLE IF NOT EXISTS tab_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tab_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		details TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Daemon lifecycle events
	CREATE TABLE IF NOT EXISTS daemon_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		details TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Indexes for common queries
	CREATE INDEX IF NOT EXISTS idx_tab_events_timestamp ON tab_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_tab_events_tab ON tab_events(tab_id);
	CREATE INDEX IF NOT EXISTS idx_daemon_events_timestamp ON daemon_events(timestamp);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// TabEvent represents a tab lifecycle event
type TabEvent struct {
	ID        int64
	TabID     string
	EventType string
	Details   string
	Timestamp time.Time
}

// LogTabEvent logs a tab lifecycle event to the database
func (db *DB) LogTabEvent(tabID, eventType, details string) error {
	// Retry briefly if database is locked (3 attempts, 5ms between)
	// This is best-effort - we don't want to block tab teardown
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		_, err := db.conn.Exec(
			`INSERT INTO tab_events (tab_id, event_type, details, timestamp)
			 VALUES (?, ?, ?, ?)`,
			tabID, eventType, details, time.Now(),
		)
		if err == nil {
			return nil
		}
		// Check if error is SQLITE_BUSY
		if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "SQLITE_BUSY") {
			// Wait briefly and retry
			time.Sleep(5 * time.Millisecond)
			continue
		}
		// Other error, return immediately
		return err
	}
	return fmt.Errorf("failed to log tab event after %d retries: database locked", maxRetries)
}

// LogTabEventAt logs a tab lifecycle event with an explicit timestamp.
func (db *DB) LogTabEventAt(tabID, eventType, details string, ts time.Time) error {
	_, err := db.conn.Exec(
		`INSERT INTO tab_events (tab_id, event_type, details, timestamp)
		 VALUES (?, ?, ?, ?)`,
		tabID, eventType, details, ts,
	)
	return err
}

// DaemonEvent represents a daemon lifecycle event
type DaemonEvent struct {
	ID        int64
	EventType string
	Details   string
	Timestamp time.Time
}

// LogDaemonEvent logs a daemon lifecycle event to the database
func (db *DB) LogDaemonEvent(eventType, details string) error {
	_, err := db.conn.Exec(
		`INSERT INTO daemon_events (event_type, details, timestamp)
		 VALUES (?, ?, ?)`,
		eventType, details, time.Now(),
	)
	return err
}

// GetRecentTabEvents retrieves recent tab events
func (db *DB) GetRecentTabEvents(limit int) ([]TabEvent, error) {
	rows, err := db.conn.Query(
		`SELECT id, tab_id, event_type, details, timestamp
		 FROM tab_events
		 ORDER BY timestamp DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []TabEvent
	for rows.Next() {
		var e TabEvent
		if err := rows.Scan(&e.ID, &e.TabID, &e.EventType, &e.Details, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetRecentDaemonEvents retrieves recent daemon events
func (db *DB) GetRecentDaemonEvents(limit int) ([]DaemonEvent, error) {
	rows, err := db.conn.Query(
		`SELECT id, event_type, details, timestamp
		 FROM daemon_events
		 ORDER BY timestamp DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []DaemonEvent
	for rows.Next() {
		var e DaemonEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.Details, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetLastTabEventPerTab retrieves the most recent event for each tab id
func (db *DB) GetLastTabEventPerTab() ([]TabEvent, error) {
	rows, err := db.conn.Query(
		`SELECT id, tab_id, event_type, details, timestamp
		 FROM tab_events
		 WHERE id IN (
			 SELECT MAX(id)
			 FROM tab_events
			 GROUP BY tab_id
		 )
		 ORDER BY timestamp DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []TabEvent
	for rows.Next() {
		var e TabEvent
		if err := rows.Scan(&e.ID, &e.TabID, &e.EventType, &e.Details, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
