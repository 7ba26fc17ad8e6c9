package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/ppewatch/internal/compliance"
	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/datastore"
	"github.com/tphakala/ppewatch/internal/detection"
	"github.com/tphakala/ppewatch/internal/violation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sentMessage struct {
	recipient string
	text      string
}

// fakeSender records messages and fails or panics for chosen recipients.
type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	failFor  map[string]bool
	panicFor map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: map[string]bool{}, panicFor: map[string]bool{}}
}

func (f *fakeSender) Name() string { return "fake" }

func (f *fakeSender) Send(_ context.Context, recipient, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicFor[recipient] {
		panic("transport exploded")
	}
	f.sent = append(f.sent, sentMessage{recipient: recipient, text: text})
	if f.failFor[recipient] {
		return errors.New("recipient unreachable")
	}
	return nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

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

func seedViolations(t *testing.T, store datastore.Interface, workers ...string) []violation.Record {
	t.Helper()
	records := make([]violation.Record, len(workers))
	for i, w := range workers {
		records[i] = violation.Record{
			Timestamp:  time.Date(2026, 4, 1, 9, 0, i, 0, time.UTC),
			Missing:    compliance.NewEquipmentSet(detection.Helmet),
			Location:   "Gate-1",
			CameraID:   "cam-1",
			Confidence: 0.9,
			Box:        detection.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400},
		}
		if w != "" {
			records[i].WorkerID = &w
		}
	}
	require.NoError(t, store.Append(t.Context(), records))
	return records
}
