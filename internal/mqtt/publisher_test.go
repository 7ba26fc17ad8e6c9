package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ppewatch/internal/compliance"
	"github.com/tphakala/ppewatch/internal/detection"
	"github.com/tphakala/ppewatch/internal/violation"
)

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	connected bool
	failTopic string
	messages  []published
}

func (f *fakeClient) Connect(context.Context) error { f.connected = true; return nil }
func (f *fakeClient) IsConnected() bool             { return f.connected }
func (f *fakeClient) Disconnect()                   { f.connected = false }

func (f *fakeClient) Publish(_ context.Context, topic string, payload []byte) error {
	if topic == f.failTopic {
		return errors.New("broker rejected message")
	}
	f.messages = append(f.messages, published{topic: topic, payload: payload})
	return nil
}

func testRecords() []violation.Record {
	worker := "W-3"
	return []violation.Record{
		{
			ID:         1,
			Timestamp:  time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
			WorkerID:   &worker,
			Missing:    compliance.NewEquipmentSet(detection.Helmet, detection.Vest),
			Location:   "Gate 1/North",
			Confidence: 0.77,
			Box:        detection.BBox{X1: 1, Y1: 2, X2: 3, Y2: 4},
		},
		{ID: 2, Missing: compliance.NewEquipmentSet(detection.Goggles), Location: "Dock #2"},
	}
}

func TestPublisher_PublishesOneEventPerRecord(t *testing.T) {
	t.Parallel()
	c := &fakeClient{connected: true}
	p := NewPublisher(c, "ppewatch/violations/")

	n := p.PublishViolations(t.Context(), testRecords())
	assert.Equal(t, 2, n)
	require.Len(t, c.messages, 2)
	assert.Equal(t, "ppewatch/violations/gate_1_north", c.messages[0].topic)
	assert.Equal(t, "ppewatch/violations/dock_2", c.messages[1].topic)

	var ev ViolationEvent
	require.NoError(t, json.Unmarshal(c.messages[0].payload, &ev))
	assert.Equal(t, uint(1), ev.ID)
	assert.Equal(t, "W-3", ev.WorkerID)
	assert.Equal(t, []string{"no_helmet", "no_vest"}, ev.Missing)
	assert.Equal(t, [4]float64{1, 2, 3, 4}, ev.BBox)
}

func TestPublisher_SkipsWhenDisconnectedAndContinuesOnError(t *testing.T) {
	t.Parallel()
	c := &fakeClient{}
	p := NewPublisher(c, "ppe")
	assert.Zero(t, p.PublishViolations(t.Context(), testRecords()))

	c.connected = true
	c.failTopic = "ppe/gate_1_north"
	assert.Equal(t, 1, p.PublishViolations(t.Context(), testRecords()))
}

func TestSanitizeTopicSegment(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "unknown", SanitizeTopicSegment(" +# "))
	assert.Equal(t, "main_entrance", SanitizeTopicSegment("Main Entrance"))
}
