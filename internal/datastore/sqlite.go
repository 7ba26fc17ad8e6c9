package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/logger"
)

// SQLiteStore implements DataStore for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// sqliteDSN enables WAL and a busy timeout for file databases.
func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
}

// Open opens the SQLite database and migrates the schema.
func (store *SQLiteStore) Open() error {
	path := store.Settings.Output.SQLite.Path
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return dbError(err, "create_directory", "critical", "path", dir)
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger:  logger.NewGormLoggerAdapter(GetLogger(), 200*time.Millisecond),
		NowFunc: utcNow,
	})
	if err != nil {
		return dbError(err, "open_sqlite", "critical", "path", path)
	}

	// SQLite allows a single writer; one connection keeps in-memory databases shared.
	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "get_sql_db", "critical")
	}
	sqlDB.SetMaxOpenConns(1)

	store.DB = db
	return performAutoMigration(db, "sqlite", path)
}

// Close closes the SQLite database connection.
func (store *SQLiteStore) Close() error {
	return store.closeDB("sqlite")
}
