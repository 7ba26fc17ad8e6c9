package datastore

import (
	"fmt"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/logger"
)

// PostgresStore implements DataStore for PostgreSQL using the lib/pq driver.
type PostgresStore struct {
	DataStore
	Settings *conf.Settings
}

// Open opens the PostgreSQL database and migrates the schema.
func (store *PostgresStore) Open() error {
	s := store.Settings.Output.Postgres
	sslMode := s.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		s.Host, s.Port, s.Username, s.Password, s.Database, sslMode)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        dsn,
	}), &gorm.Config{
		Logger:  logger.NewGormLoggerAdapter(GetLogger(), 200*time.Millisecond),
		NowFunc: utcNow,
	})
	if err != nil {
		return dbError(err, "open_postgres", "critical", "host", s.Host, "database", s.Database)
	}

	store.DB = db
	return performAutoMigration(db, "postgres", fmt.Sprintf("%s:%s/%s", s.Host, s.Port, s.Database))
}

// Close closes the PostgreSQL database connection.
func (store *PostgresStore) Close() error {
	return store.closeDB("postgres")
}
