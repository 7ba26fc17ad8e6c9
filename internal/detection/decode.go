package detection

import (
	"fmt"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/ppewatch/internal/logger"
)

// Key aliases accepted from detector outputs. The first present key wins.
var (
	labelKeys      = []string{"label", "class", "name"}
	confidenceKeys = []string{"confidence", "score", "conf"}
	bboxKeys       = []string{"bbox", "box", "xyxy"}
	cameraKeys     = []string{"camera", "camera_id"}
	timeKeys       = []string{"time", "timestamp"}
)

// decodeFrame parses one JSON frame line. Boxes may be given as
// [x1,y1,x2,y2] or as {"x1":..,"y1":..,"x2":..,"y2":..}. A detection that
// cannot be decoded is dropped and counted in Frame.Skipped.
func decodeFrame(data []byte) (*Frame, error) {
	obj, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return nil, err
	}

	f := &Frame{
		CameraID: firstString(obj, cameraKeys...),
		Location: firstString(obj, "location"),
	}
	if n, err := obj.GetInt64("frame"); err == nil {
		f.Number = n
	}
	if ts := firstString(obj, timeKeys...); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("invalid time %q: %w", ts, err)
		}
		f.Time = t
	}

	v, err := obj.GetValue("detections")
	if err != nil || v.Null() == nil {
		return f, nil
	}
	items, err := obj.GetObjectArray("detections")
	if err != nil {
		return nil, fmt.Errorf("detections: %w", err)
	}

	f.Detections = make([]RawDetection, 0, len(items))
	for i, item := range items {
		raw, err := decodeDetection(item)
		if err != nil {
			// one bad box must not cost the rest of the frame
			f.Skipped++
			GetLogger().Debug("skipping undecodable detection",
				logger.Int("index", i),
				logger.Error(err))
			continue
		}
		f.Detections = append(f.Detections, raw)
	}
	return f, nil
}

func decodeDetection(obj *jason.Object) (RawDetection, error) {
	raw := RawDetection{Label: firstString(obj, labelKeys...)}

	for _, k := range confidenceKeys {
		if c, err := obj.GetFloat64(k); err == nil {
			raw.Confidence = c
			break
		}
	}

	for _, k := range bboxKeys {
		v, err := obj.GetValue(k)
		if err != nil {
			continue
		}
		box, err := decodeBox(v)
		if err != nil {
			return raw, fmt.Errorf("%s: %w", k, err)
		}
		raw.BBox = box
		return raw, nil
	}
	return raw, fmt.Errorf("missing bounding box")
}

func decodeBox(v *jason.Value) ([4]float64, error) {
	var box [4]float64

	if arr, err := v.Array(); err == nil {
		if len(arr) != len(box) {
			return box, fmt.Errorf("expected 4 coordinates, got %d", len(arr))
		}
		for i, c := range arr {
			f, err := c.Float64()
			if err != nil {
				return box, fmt.Errorf("coordinate %d: %w", i, err)
			}
			box[i] = f
		}
		return box, nil
	}

	obj, err := v.Object()
	if err != nil {
		return box, fmt.Errorf("must be an array or object")
	}
	for i, k := range []string{"x1", "y1", "x2", "y2"} {
		f, err := obj.GetFloat64(k)
		if err != nil {
			return box, fmt.Errorf("%s: %w", k, err)
		}
		box[i] = f
	}
	return box, nil
}

func firstString(obj *jason.Object, keys ...string) string {
	for _, k := range keys {
		if s, err := obj.GetString(k); err == nil && s != "" {
			return s
		}
	}
	return ""
}
