//go:build integration

package datastore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/detection"
	"github.com/tphakala/ppewatch/internal/violation"
)

func setupMySQL(t *testing.T) *MySQLStore {
	t.Helper()
	ctx := t.Context()

	ctr, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("ppewatch"),
		tcmysql.WithUsername("ppewatch"),
		tcmysql.WithPassword("ppewatch"),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	settings := &conf.Settings{}
	settings.Output.MySQL = conf.MySQLSettings{
		Enabled:  true,
		Username: "ppewatch",
		Password: "ppewatch",
		Host:     host,
		Port:     port.Port(),
		Database: "ppewatch",
	}

	store := &MySQLStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMySQL_FetchUnnotifiedUnderRowLocks(t *testing.T) {
	store := setupMySQL(t)
	ctx := t.Context()

	records := make([]violation.Record, 40)
	for i := range records {
		records[i] = makeRecord(time.Now(), "Gate", 0.8, detection.Helmet, detection.Vest)
	}
	require.NoError(t, store.Append(ctx, records))

	// A second store on the same database bypasses the in-process mutex.
	other := &MySQLStore{Settings: store.Settings}
	require.NoError(t, other.Open())
	t.Cleanup(func() { _ = other.Close() })

	var (
		mu   sync.Mutex
		seen = make(map[uint]int)
		wg   sync.WaitGroup
	)
	for _, s := range []*MySQLStore{store, other} {
		wg.Go(func() {
			for {
				batch, err := s.FetchUnnotified(ctx, 5)
				if err != nil {
					continue
				}
				if len(batch) == 0 {
					return
				}
				mu.Lock()
				for _, r := range batch {
					seen[r.ID]++
				}
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Len(t, seen, len(records))
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}

	groups, err := store.ViolationsInWindow(ctx, 1, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, int64(40), groups[0].Count)
}
