package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Config describes the local client database.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// DefaultConfig returns settings for a file next to the binary.
func DefaultConfig() *Config {
	return &Config{
		Path:        "./rentdirect.db",
		BusyTimeout: 5 * time.Second,
	}
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("database path cannot be empty")
	}
	if c.BusyTimeout <= 0 {
		return errors.New("busy timeout must be greater than 0")
	}
	return nil
}

// DSN builds the go-sqlite3 connection string. WAL lets reads proceed
// while the single writer holds the lock.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on",
		c.Path, c.BusyTimeout.Milliseconds())
}

const sqliteOptimizations = `
	PRAGMA synchronous = NORMAL;
	PRAGMA temp_store = MEMORY;
`

// Open opens the database with a single connection, applies pragmas, runs
// the embedded migrations and validates the resulting schema.
func Open(cfg *Config) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(sqliteOptimizations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := NewMigrationManager(db, Migrations()).ApplyMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	if err := NewSchemaValidator(db).Validate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return db, nil
}
