package datastore

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/logger"
)

// MySQLStore implements DataStore for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// Open opens the MySQL database and migrates the schema.
func (store *MySQLStore) Open() error {
	s := store.Settings.Output.MySQL
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		s.Username, s.Password, s.Host, s.Port, s.Database)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:  logger.NewGormLoggerAdapter(GetLogger(), 200*time.Millisecond),
		NowFunc: utcNow,
	})
	if err != nil {
		return dbError(err, "open_mysql", "critical", "host", s.Host, "database", s.Database)
	}

	store.DB = db
	return performAutoMigration(db, "mysql", fmt.Sprintf("%s:%s/%s", s.Host, s.Port, s.Database))
}

// Close closes the MySQL database connection.
func (store *MySQLStore) Close() error {
	return store.closeDB("mysql")
}
