package datastore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ppewatch/internal/detection"
	"github.com/tphakala/ppewatch/internal/errors"
	"github.com/tphakala/ppewatch/internal/violation"
)

func TestAppend_AssignsIDsAndRoundTrips(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)
	ctx := t.Context()

	worker := "W-17"
	at := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	rec := makeRecord(at, "Gate A", 0.91, detection.Helmet, detection.Goggles)
	rec.WorkerID = &worker
	records := []violation.Record{rec, makeRecord(at, "Gate B", 0.5, detection.Vest)}

	require.NoError(t, store.Append(ctx, records))
	assert.NotZero(t, records[0].ID)
	assert.Greater(t, records[1].ID, records[0].ID)

	got, err := store.FetchUnnotified(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, records[0].ID, first.ID)
	assert.True(t, first.Timestamp.Equal(at))
	assert.Equal(t, "W-17", first.Worker())
	assert.Equal(t, []string{"no_helmet", "no_goggles"}, first.ViolationTypes())
	assert.Equal(t, "Gate A", first.Location)
	assert.InDelta(t, 0.91, first.Confidence, 1e-9)
	assert.Equal(t, detection.BBox{X1: 100, Y1: 100, X2: 200, Y2: 300}, first.Box)
	assert.True(t, first.Notified)
	assert.Empty(t, got[1].Worker())
}

func TestAppend_RejectsRecordWithoutMissingItems(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)

	err := store.Append(t.Context(), []violation.Record{makeRecord(time.Now(), "Gate A", 0.9)})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	n, err := store.CountUnnotified(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFetchUnnotified_RespectsLimitAndOrder(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)
	ctx := t.Context()

	now := time.Now()
	records := []violation.Record{
		makeRecord(now, "A", 0.9, detection.Helmet),
		makeRecord(now, "B", 0.9, detection.Vest),
		makeRecord(now, "C", 0.9, detection.Goggles),
	}
	require.NoError(t, store.Append(ctx, records))

	batch, err := store.FetchUnnotified(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "A", batch[0].Location)
	assert.Equal(t, "B", batch[1].Location)

	batch, err = store.FetchUnnotified(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "C", batch[0].Location)

	batch, err = store.FetchUnnotified(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestFetchUnnotified_ConcurrentCallersNeverOverlap(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)
	ctx := t.Context()

	const total = 60
	records := make([]violation.Record, total)
	for i := range records {
		records[i] = makeRecord(time.Now(), "Yard", 0.8, detection.Helmet)
	}
	require.NoError(t, store.Append(ctx, records))

	var (
		mu   sync.Mutex
		seen = make(map[uint]int)
		wg   sync.WaitGroup
	)
	for range 6 {
		wg.Go(func() {
			for {
				batch, err := store.FetchUnnotified(ctx, 7)
				if !assert.NoError(t, err) || len(batch) == 0 {
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

	assert.Len(t, seen, total)
	for id, n := range seen {
		assert.Equal(t, 1, n, "violation %d fetched more than once", id)
	}
}

func TestViolationsInWindow_GroupsByTypeAndLocation(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)
	ctx := t.Context()

	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	dayAgo := now.Add(-24 * time.Hour)
	records := []violation.Record{
		makeRecord(dayAgo, "Gate", 0.8, detection.Helmet, detection.Vest),
		makeRecord(now.Add(-2*time.Hour), "Gate", 0.6, detection.Helmet),
		makeRecord(dayAgo, "Dock", 0.7, detection.Goggles),
		makeRecord(now.Add(-10*24*time.Hour), "Gate", 0.9, detection.Helmet),
	}
	require.NoError(t, store.Append(ctx, records))

	groups, err := store.ViolationsInWindow(ctx, 7, now)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, "no_helmet", groups[0].Type)
	assert.Equal(t, "Gate", groups[0].Location)
	assert.Equal(t, int64(2), groups[0].Count)
	assert.InDelta(t, 0.7, groups[0].AvgConfidence, 1e-9)
	assert.True(t, groups[0].FirstSeen.Equal(dayAgo))
	assert.True(t, groups[0].LastSeen.Equal(now.Add(-2*time.Hour)))

	assert.Equal(t, "no_goggles", groups[1].Type)
	assert.Equal(t, "Dock", groups[1].Location)
	assert.Equal(t, "no_vest", groups[2].Type)
	assert.Equal(t, int64(1), groups[2].Count)
}

func TestViolationsInWindow_RejectsNonPositiveDays(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)

	_, err := store.ViolationsInWindow(t.Context(), 0, time.Now())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestViolationsInWindow_FetchDoesNotAffectReport(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)
	ctx := t.Context()

	now := time.Now().UTC()
	require.NoError(t, store.Append(ctx, []violation.Record{makeRecord(now, "Gate", 0.9, detection.Vest)}))
	_, err := store.FetchUnnotified(ctx, 0)
	require.NoError(t, err)

	groups, err := store.ViolationsInWindow(ctx, 1, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(1), groups[0].Count)
}
