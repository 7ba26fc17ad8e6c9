package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/ppewatch/internal/compliance"
	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/detection"
	"github.com/tphakala/ppewatch/internal/violation"
)

// setupTestDB opens an in-memory SQLite store with the full schema.
func setupTestDB(t *testing.T) *SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = ":memory:"

	store := &SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func makeRecord(at time.Time, location string, confidence float64, missing ...detection.Equipment) violation.Record {
	return violation.Record{
		Timestamp:  at,
		Missing:    compliance.NewEquipmentSet(missing...),
		Location:   location,
		CameraID:   "cam-1",
		Frame:      1,
		Confidence: confidence,
		Box:        detection.BBox{X1: 100, Y1: 100, X2: 200, Y2: 300},
	}
}
