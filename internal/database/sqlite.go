package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(cfg Config) (*gorm.DB, error) {
	dsn := cfg.DSN
	inMemory := false

	if dsn == "" {
		path := strings.TrimSpace(cfg.Path)
		switch {
		case path == "", strings.EqualFold(path, ":memory:"):
			dsn = "file::memory:?_foreign_keys=1"
			inMemory = true
		default:
			if err := ensureDir(path); err != nil {
				return nil, err
			}
			dsn = fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000", filepath.ToSlash(path))
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; one connection keeps transactions from tripping over
	// each other, and an in-memory database only lives as long as its connection.
	sqlDB.SetMaxOpenConns(1)
	if inMemory {
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}

	return db, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
