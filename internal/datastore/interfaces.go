// interfaces.go: the violation store interface and the gorm backed implementation
package datastore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/logger"
	"github.com/tphakala/ppewatch/internal/observability/metrics"
	"github.com/tphakala/ppewatch/internal/violation"
)

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Close() error

	// violations
	Append(ctx context.Context, records []violation.Record) error
	FetchUnnotified(ctx context.Context, limit int) ([]violation.Record, error)
	CountUnnotified(ctx context.Context) (int64, error)
	ViolationsInWindow(ctx context.Context, days int, now time.Time) ([]ViolationGroup, error)

	// delivery bookkeeping
	SaveOutcomes(ctx context.Context, outcomes []DeliveryOutcome) error
	SaveDeliveryHistory(ctx context.Context, history *DeliveryHistory) error
	DeliveryTotalsSince(ctx context.Context, since time.Time) ([]KindTotal, error)
	RecentDeliveryHistory(ctx context.Context, limit int) ([]DeliveryHistory, error)
	OutcomesForBatch(ctx context.Context, batchID string) ([]DeliveryOutcome, error)

	// recipient directory
	UpsertRecipient(ctx context.Context, r *Recipient) error
	GetRecipient(ctx context.Context, chatID string) (*Recipient, error)
	ListRecipients(ctx context.Context, department string) ([]Recipient, error)
	RecipientCountsByDepartment(ctx context.Context) ([]DepartmentCount, error)
}

// Metrics is the collector type recorded by the store
type Metrics = metrics.DatastoreMetrics

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB

	// writeMu serializes append and fetch-and-flip inside one process;
	// row locks cover concurrent processes on MySQL and PostgreSQL.
	writeMu sync.Mutex

	metricsMu sync.RWMutex
	metrics   *Metrics
}

// New creates the store selected by settings. Open must be called before use.
func New(settings *conf.Settings) (Interface, error) {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}, nil
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}, nil
	case settings.Output.Postgres.Enabled:
		return &PostgresStore{Settings: settings}, nil
	default:
		return nil, validationError("no violation store backend enabled", "output", "none")
	}
}

// SetMetrics attaches a metrics collector; nil disables recording.
func (ds *DataStore) SetMetrics(m *Metrics) {
	ds.metricsMu.Lock()
	ds.metrics = m
	ds.metricsMu.Unlock()
}

func (ds *DataStore) getMetrics() *Metrics {
	ds.metricsMu.RLock()
	defer ds.metricsMu.RUnlock()
	return ds.metrics
}

// observe records the outcome of one store operation.
func (ds *DataStore) observe(operation, table string, start time.Time, rows int, err error) {
	m := ds.getMetrics()
	if m == nil {
		return
	}
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		m.RecordDbOperationError(operation, table, "database")
	}
	m.RecordDbOperation(operation, table, status)
	m.RecordDbOperationDuration(operation, table, time.Since(start).Seconds())
	if err == nil {
		m.RecordQueryResultSize(operation, table, rows)
	}
}

func (ds *DataStore) recordTransaction(err error) {
	if m := ds.getMetrics(); m != nil {
		if err != nil {
			m.RecordTransaction("rollback")
		} else {
			m.RecordTransaction("committed")
		}
	}
}

// utcNow keeps gorm managed timestamps comparable across backends.
func utcNow() time.Time {
	return time.Now().UTC()
}

// supportsRowLocks reports whether SELECT ... FOR UPDATE is available.
func (ds *DataStore) supportsRowLocks() bool {
	return ds.DB.Dialector.Name() != "sqlite"
}

// performAutoMigration creates or updates all tables.
func performAutoMigration(db *gorm.DB, dbType, connectionInfo string) error {
	start := time.Now()
	if err := db.AutoMigrate(&Violation{}, &DeliveryOutcome{}, &DeliveryHistory{}, &Recipient{}); err != nil {
		return dbError(fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err), "auto_migrate", "critical",
			"db_type", dbType)
	}

	GetLogger().Debug("database initialized",
		logger.String("db_type", dbType),
		logger.String("connection", connectionInfo),
		logger.Duration("migration_duration", time.Since(start)))
	return nil
}

// closeDB closes the underlying connection pool.
func (ds *DataStore) closeDB(dbType string) error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "get_sql_db", "", "db_type", dbType)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", "", "db_type", dbType)
	}
	return nil
}
