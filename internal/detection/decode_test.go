package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_Aliases(t *testing.T) {
	t.Parallel()

	line := `{"frame":3,"camera_id":"cam-9","timestamp":"2026-03-01T08:00:00.5Z","detections":[
		{"class":"Hard Hat","score":0.8,"box":{"x1":10,"y1":20,"x2":30,"y2":40}},
		{"name":"person","conf":0.7,"xyxy":[1,2,3,4]}]}`

	f, err := decodeFrame([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.Number)
	assert.Equal(t, "cam-9", f.CameraID)
	assert.Equal(t, 500, f.Time.Nanosecond()/1e6)
	require.Len(t, f.Detections, 2)

	assert.Equal(t, "Hard Hat", f.Detections[0].Label)
	assert.InDelta(t, 0.8, f.Detections[0].Confidence, 1e-9)
	assert.Equal(t, [4]float64{10, 20, 30, 40}, f.Detections[0].BBox)

	assert.Equal(t, "person", f.Detections[1].Label)
	assert.Equal(t, [4]float64{1, 2, 3, 4}, f.Detections[1].BBox)
}

func TestDecodeFrame_NullDetections(t *testing.T) {
	t.Parallel()

	f, err := decodeFrame([]byte(`{"frame":1,"detections":null}`))
	require.NoError(t, err)
	assert.Empty(t, f.Detections)

	f, err = decodeFrame([]byte(`{"frame":2}`))
	require.NoError(t, err)
	assert.Empty(t, f.Detections)
}

func TestDecodeFrame_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"not json", `nope`},
		{"bad time", `{"time":"yesterday"}`},
		{"detections not array", `{"detections":{"label":"person"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := decodeFrame([]byte(tt.line))
			assert.Error(t, err)
		})
	}
}

func TestDecodeFrame_BadDetectionKeepsFrame(t *testing.T) {
	t.Parallel()

	line := `{"frame":5,"detections":[
		{"label":"person","confidence":0.9,"bbox":[100,100,200,300]},
		{"label":"vest","confidence":0.8,"bbox":[1,2,3]},
		{"label":"helmet","confidence":0.8},
		{"label":"goggles","confidence":0.8,"bbox":"1,2,3,4"},
		{"label":"vest","confidence":0.7,"bbox":{"x1":120,"y1":180,"x2":180,"y2":240}}]}`

	f, err := decodeFrame([]byte(line))
	require.NoError(t, err)
	require.Len(t, f.Detections, 2)
	assert.Equal(t, "person", f.Detections[0].Label)
	assert.Equal(t, "vest", f.Detections[1].Label)
	assert.Equal(t, 3, f.Skipped)
}
