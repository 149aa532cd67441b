package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/mindspero/mindspero/internal/config"
)

// New creates a new database connection
func New(cfg config.DatabaseConfig) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = sql.Open("sqlite", cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}

		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(time.Hour)

		if err := sqlitePragmas(db, cfg.Path != ":memory:"); err != nil {
			db.Close()
			return nil, err
		}

	case "postgres":
		db, err = sql.Open("postgres", cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres database: %w", err)
		}

		// Set connection pool settings
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// OpenSQLiteMemory opens a private in-memory database on a single connection
func OpenSQLiteMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// every pooled connection would get its own empty database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := sqlitePragmas(db, false); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func sqlitePragmas(db *sql.DB, wal bool) error {
	pragmas := []string{"PRAGMA foreign_keys = ON;", "PRAGMA busy_timeout = 5000;"}
	if wal {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL;")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}
