package analysis

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ppewatch/internal/buildinfo"
	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/detection"
)

func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = ":memory:"
	s.Detection.Threshold = 0.3
	s.Detection.Synonyms = conf.SynonymSettings{
		Helmet:  conf.DefaultHelmetLabels,
		Person:  conf.DefaultPersonLabels,
		Vest:    conf.DefaultVestLabels,
		Goggles: conf.DefaultGogglesLabels,
	}
	s.Pipeline.Workers = 2
	s.Pipeline.Location = "Gate-1"
	s.Notification.Enabled = true
	s.Notification.PollInterval = time.Hour
	s.Notification.AdminRecipients = []string{"admin-1"}
	return s
}

func TestMonitor_StoresAndDispatchesPendingViolations(t *testing.T) {
	svc, err := NewServices(testSettings())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	frames := []detection.Frame{
		{Number: 1, Detections: []detection.RawDetection{
			{Label: "person", Confidence: 0.9, BBox: [4]float64{100, 100, 200, 300}},
		}},
		{Number: 2, Detections: []detection.RawDetection{
			{Label: "person", Confidence: 0.9, BBox: [4]float64{100, 100, 200, 300}},
			{Label: "helmet", Confidence: 0.9, BBox: [4]float64{140, 120, 160, 140}},
		}},
	}

	err = Monitor(t.Context(), svc, buildinfo.NewContext("test", ""), detection.NewSliceSource(frames))
	require.NoError(t, err)

	pending, err := svc.Store.CountUnnotified(t.Context())
	require.NoError(t, err)
	assert.Zero(t, pending)

	history, err := svc.Store.RecentDeliveryHistory(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "violations", history[0].Kind)
	// two unbound records, one admin attempt each
	assert.Equal(t, 2, history[0].Sent)
}

func TestNewServices_RequiresBackend(t *testing.T) {
	t.Parallel()

	s := testSettings()
	s.Output.SQLite.Enabled = false
	_, err := NewServices(s)
	require.Error(t, err)
}

func TestOpenSource(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "frames.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"frame":7,"detections":[]}`+"\n"), 0o600))

	src, err := OpenSource(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	f, err := src.Next(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(7), f.Number)

	_, err = OpenSource(filepath.Join(t.TempDir(), "missing.jsonl"))
	require.Error(t, err)
}
