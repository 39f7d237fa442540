package database

import (
	"fmt"
	"os"
	"path/filepath"

	"skullboard/utils"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS guild_configs (
        guild_id TEXT PRIMARY KEY,
        skullboard_channel_id TEXT,
        skull_threshold INTEGER NOT NULL DEFAULT 3,
        skull_emoji TEXT NOT NULL DEFAULT '💀',
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    );`,
	`CREATE TABLE IF NOT EXISTS skulled_messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        guild_id TEXT NOT NULL,
        original_message_id TEXT NOT NULL,
        original_channel_id TEXT NOT NULL,
        skullboard_message_id TEXT,
        reaction_count INTEGER NOT NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    );`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_skulled_messages_original
        ON skulled_messages (guild_id, original_message_id);`,
	`CREATE TABLE IF NOT EXISTS blacklisted_entries (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        guild_id TEXT NOT NULL,
        entry_id TEXT NOT NULL,
        type TEXT NOT NULL CHECK (type IN ('channel', 'category')),
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    );`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_blacklisted_entries_entry
        ON blacklisted_entries (guild_id, entry_id);`,
}

// InitDB opens (creating if needed) the SQLite database at dbPath and applies the schema.
func InitDB(dbPath string) (*sqlx.DB, error) {
	// Ensure the directory for the database file exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlx.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	utils.Info("Database", "Init", "Successfully connected to the database at "+dbPath)
	return db, nil
}

func migrate(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
