package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ppewatch/internal/compliance"
	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/datastore"
	"github.com/tphakala/ppewatch/internal/detection"
	"github.com/tphakala/ppewatch/internal/violation"
)

var reportNow = time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) *datastore.SQLiteStore {
	t.Helper()
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = ":memory:"
	store := &datastore.SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(at time.Time, location string, missing ...detection.Equipment) violation.Record {
	return violation.Record{
		Timestamp:  at,
		Missing:    compliance.NewEquipmentSet(missing...),
		Location:   location,
		Confidence: 0.8,
	}
}

func newTestGenerator(store Store) *Generator {
	g := NewGenerator(store)
	g.now = func() time.Time { return reportNow }
	return g
}

func TestReport_GroupsByTypeAndLocation(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	day := reportNow.Add(-24 * time.Hour)
	require.NoError(t, store.Append(t.Context(), []violation.Record{
		record(day, "Gate-1", detection.Helmet),
		record(day.Add(time.Hour), "Gate-1", detection.Helmet),
		record(day, "Gate-2", detection.Helmet),
	}))

	r, err := newTestGenerator(store).Report(t.Context(), 7)
	require.NoError(t, err)

	require.Len(t, r.Groups, 2)
	assert.Equal(t, "Gate-1", r.Groups[0].Location)
	assert.Equal(t, int64(2), r.Groups[0].Count)
	assert.Equal(t, "Gate-2", r.Groups[1].Location)
	assert.Equal(t, int64(1), r.Groups[1].Count)
	assert.Equal(t, int64(3), r.ByType["no_helmet"])
}

func TestReport_MultiItemRecordCountsPerType(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	require.NoError(t, store.Append(t.Context(), []violation.Record{
		record(reportNow.Add(-time.Hour), "Dock", detection.Helmet, detection.Vest, detection.Goggles),
		record(reportNow.Add(-30*24*time.Hour), "Dock", detection.Helmet),
	}))

	r, err := newTestGenerator(store).Report(t.Context(), 7)
	require.NoError(t, err)

	assert.Len(t, r.Groups, 3)
	assert.Equal(t, int64(3), r.Total)
	assert.Equal(t, map[string]int64{"no_helmet": 1, "no_vest": 1, "no_goggles": 1}, r.ByType)
}

func TestReport_DefaultWindowAndText(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	r, err := newTestGenerator(store).Report(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultWindowDays, r.WindowDays)

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	assert.Contains(t, buf.String(), "No violations recorded.")
}

func TestReport_WriteTextTable(t *testing.T) {
	t.Parallel()
	r := &Report{
		WindowDays:  7,
		GeneratedAt: reportNow,
		Groups: []datastore.ViolationGroup{
			{Type: "no_helmet", Location: "Gate-1", Count: 1234, AvgConfidence: 0.812, FirstSeen: reportNow, LastSeen: reportNow},
		},
		Total: 1234,
	}

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "no_helmet")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "0.81")
}

func TestDeliveryStats(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	ctx := t.Context()
	require.NoError(t, store.SaveDeliveryHistory(ctx, &datastore.DeliveryHistory{BatchID: "b1", Kind: "helmet", Sent: 3, Succeeded: 3}))
	require.NoError(t, store.UpsertRecipient(ctx, &datastore.Recipient{ChatID: "1", Department: "paint", Active: true}))

	g := NewGenerator(store)
	stats, err := g.DeliveryStats(ctx, 7)
	require.NoError(t, err)
	require.Len(t, stats.Kinds, 1)
	assert.Equal(t, int64(3), stats.Kinds[0].Sent)
	require.Len(t, stats.Departments, 1)

	var buf bytes.Buffer
	require.NoError(t, stats.WriteText(&buf))
	assert.Contains(t, buf.String(), "helmet")
	assert.Contains(t, buf.String(), "paint")
}

func TestScheduler_RunOncePublishes(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	require.NoError(t, store.Append(t.Context(), []violation.Record{record(reportNow.Add(-time.Hour), "Gate-1", detection.Vest)}))

	var published string
	s, err := NewScheduler(newTestGenerator(store), "0 8 * * MON", 7, func(_ context.Context, text string) {
		published = text
	})
	require.NoError(t, err)

	s.RunOnce(t.Context())
	assert.Contains(t, published, "no_vest")
	assert.Contains(t, published, "Gate-1")

	_, err = NewScheduler(newTestGenerator(store), "not a schedule", 7, nil)
	require.Error(t, err)
}
