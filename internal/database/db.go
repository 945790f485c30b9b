package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config contains database connection options.
type Config struct {
	Driver   string
	Path     string // SQLite database path when Driver == sqlite
	DSN      string // Optional DSN override
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	Options  map[string]string

	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Open initialises a gorm.DB using the provided configuration.
func Open(cfg Config) (*gorm.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))

	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case "", "sqlite":
		db, err = openSQLite(cfg)
	case "postgres", "postgresql":
		db, err = openPostgres(cfg)
	case "mysql":
		db, err = openMySQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if driver != "" && driver != "sqlite" {
		if err := configurePool(db, cfg); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func configurePool(db *gorm.DB, cfg Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return nil
}

// Ping checks that the database answers a trivial query.
func Ping(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
