package violation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ppewatch/internal/compliance"
	"github.com/tphakala/ppewatch/internal/detection"
)

func observation(conf float64, missing ...detection.Equipment) compliance.PersonObservation {
	return compliance.PersonObservation{
		Person: detection.Detection{
			Box:        detection.BBox{X1: 10, Y1: 10, X2: 60, Y2: 200},
			Confidence: conf,
			Category:   detection.CategoryPerson,
		},
		Missing: compliance.NewEquipmentSet(missing...),
	}
}

func TestAggregate_OneRecordPerNonCompliantPerson(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	frame := FrameContext{Location: "Gate-1", CameraID: "cam-1", Frame: 42, Time: ts}
	obs := []compliance.PersonObservation{
		observation(0.91, detection.Helmet),
		observation(0.88),
		observation(0.75, detection.Vest, detection.Goggles),
	}
	stats := NewSessionStats()

	records := NewAggregator(nil).Aggregate(context.Background(), obs, frame, stats)

	require.Len(t, records, 2)
	assert.Equal(t, []string{"no_helmet"}, records[0].ViolationTypes())
	assert.InDelta(t, 0.91, records[0].Confidence, 1e-9)
	assert.Equal(t, ts, records[0].Timestamp)
	assert.Equal(t, "Gate-1", records[0].Location)
	assert.Nil(t, records[0].WorkerID)
	assert.Empty(t, records[0].Worker())
	assert.False(t, records[0].Notified)
	assert.Equal(t, []string{"no_vest", "no_goggles"}, records[1].ViolationTypes())

	snap := stats.Snapshot()
	assert.Equal(t, int64(3), snap.Persons)
	assert.Equal(t, int64(1), snap.Compliant)
	assert.Equal(t, int64(2), snap.Violating)
	assert.Equal(t, int64(1), snap.MissingGoggles)
	assert.InDelta(t, 1.0/3.0, snap.ComplianceRate(), 1e-9)
}

func TestAggregate_AllCompliantEmitsNothing(t *testing.T) {
	t.Parallel()

	records := NewAggregator(nil).Aggregate(context.Background(),
		[]compliance.PersonObservation{observation(0.9), observation(0.8)},
		FrameContext{Location: "Dock"}, nil)

	assert.Empty(t, records)
}

func TestAggregate_ResolvesWorker(t *testing.T) {
	t.Parallel()

	resolver := IdentityResolverFunc(func(_ context.Context, o *compliance.PersonObservation, _ FrameContext) (string, bool) {
		if o.Person.Confidence > 0.8 {
			return "worker-7", true
		}
		return "", false
	})
	agg := NewAggregator(resolver)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return fixed }

	records := agg.Aggregate(context.Background(), []compliance.PersonObservation{
		observation(0.9, detection.Helmet),
		observation(0.5, detection.Helmet),
	}, FrameContext{}, nil)

	require.Len(t, records, 2)
	require.NotNil(t, records[0].WorkerID)
	assert.Equal(t, "worker-7", records[0].Worker())
	assert.Nil(t, records[1].WorkerID)
	assert.Equal(t, fixed, records[1].Timestamp, "zero frame time falls back to now")
}

func TestSessionStats_ConcurrentAndMonotonic(t *testing.T) {
	t.Parallel()

	stats := NewSessionStats()
	result := &compliance.FrameResult{Seen: map[detection.Equipment]int{detection.Helmet: 2, detection.Vest: 1}}

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			stats.ObserveFrame(result, 1)
			stats.RecordStored(2)
		})
	}
	wg.Wait()

	snap := stats.Snapshot()
	assert.Equal(t, int64(50), snap.Frames)
	assert.Equal(t, int64(100), snap.HelmetsSeen)
	assert.Equal(t, int64(50), snap.VestsSeen)
	assert.Equal(t, int64(50), snap.Discarded)
	assert.Equal(t, int64(100), snap.Violations)
	assert.Zero(t, snap.ComplianceRate())
}
