package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/opensource-finance/lendscore/internal/domain"
)

const defaultSQLitePath = "./lendscore.db"

// sqliteDSN builds a modernc.org/sqlite connection string. The registry is
// read at startup and written by the import command, so WAL keeps readers
// unblocked during an import.
func sqliteDSN(path string) string {
	if path == "" {
		path = defaultSQLitePath
	}
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
}

// openSQLite opens a SQLite database, creating its directory if needed.
func openSQLite(cfg domain.RepositoryConfig) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.SQLitePath); cfg.SQLitePath != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(cfg.SQLitePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return db, nil
}
