package database

import (
	"fmt"
	"os"
	"path/filepath"

	"studydesk/internal/config"
	"studydesk/internal/desk"
)

// NewDatabaseFromConfig opens the database described by cfg.
// A memory database starts empty and is migrated immediately; a sqlite
// database is opened as-is and must be brought up to date with `migrate`.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, hostID string, clock desk.Clock) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		path, err := DatabasePath(cfg, hostID)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteDatabase(path, clock)
	case "memory":
		db, err := NewSQLiteDatabase(":memory:", clock)
		if err != nil {
			return nil, err
		}
		if err := db.MigrateUp(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating memory database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// DatabasePath returns the file backing a sqlite database config.
func DatabasePath(cfg config.DatabaseConfig, hostID string) (string, error) {
	if cfg.DataDir == "" {
		return "", fmt.Errorf("data_dir required for sqlite database")
	}
	return filepath.Join(cfg.DataDir, hostID+".db"), nil
}
