package detection

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tphakala/ppewatch/internal/errors"
	"github.com/tphakala/ppewatch/internal/logger"
)

// maxLineSize bounds one JSON frame; crowded frames carry a few hundred boxes
const maxLineSize = 4 * 1024 * 1024

// RawDetection is one box as reported by the external detector
type RawDetection struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"` // x1, y1, x2, y2
}

// Frame is the detector output for one video frame
type Frame struct {
	Number     int64          `json:"frame"`
	CameraID   string         `json:"camera,omitempty"`
	Location   string         `json:"location,omitempty"`
	Time       time.Time      `json:"time"`
	Detections []RawDetection `json:"detections"`

	// Skipped counts detections dropped while decoding the line
	Skipped int `json:"-"`
}

// Source yields frames until it is exhausted or the context is cancelled.
// Next returns io.EOF when no frames remain.
type Source interface {
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// JSONLSource reads one JSON-encoded Frame per line. Common detector key
// aliases are accepted, see decodeFrame.
type JSONLSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int64
	now     func() time.Time
	log     logger.Logger
}

// NewJSONLSource wraps r. If r is an io.Closer it is closed by Close.
func NewJSONLSource(r io.Reader) *JSONLSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	s := &JSONLSource{scanner: scanner, now: time.Now, log: GetLogger()}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Next returns the next frame. Lines that fail to decode are logged and skipped.
func (s *JSONLSource) Next(ctx context.Context) (*Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, errors.New(err).
					Component("detection").
					Category(errors.CategoryFileIO).
					Context("line", s.line).
					Build()
			}
			return nil, io.EOF
		}
		s.line++

		data := s.scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		f, err := decodeFrame(data)
		if err != nil {
			s.log.Warn("skipping undecodable frame",
				logger.Int64("line", s.line),
				logger.Error(err))
			continue
		}
		if f.Number == 0 {
			f.Number = s.line
		}
		if f.Time.IsZero() {
			f.Time = s.now()
		}
		return f, nil
	}
}

// Close releases the underlying reader
func (s *JSONLSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// SliceSource replays frames from memory
type SliceSource struct {
	frames []Frame
	pos    int
}

// NewSliceSource returns a source over frames
func NewSliceSource(frames []Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

func (s *SliceSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return &f, nil
}

func (s *SliceSource) Close() error { return nil }

// Interpret classifies and validates the raw detections of a frame. Below
// threshold and unmatched labels are dropped; malformed boxes are discarded
// with a debug log. The second return value counts discarded detections.
func Interpret(c *Classifier, raws []RawDetection, threshold float64, log logger.Logger) (dets []Detection, discarded int) {
	dets = make([]Detection, 0, len(raws))
	for i := range raws {
		raw := &raws[i]
		if raw.Confidence < threshold {
			continue
		}
		category, ok := c.Classify(raw.Label)
		if !ok {
			continue
		}
		box := BBox{X1: raw.BBox[0], Y1: raw.BBox[1], X2: raw.BBox[2], Y2: raw.BBox[3]}
		d, err := NewDetection(raw.Label, category, box, raw.Confidence)
		if err != nil {
			discarded++
			if log != nil {
				log.Debug("discarding detection", logger.Error(err))
			}
			continue
		}
		dets = append(dets, d)
	}
	return dets, discarded
}

// String renders a frame identifier for logs
func (f *Frame) String() string {
	return fmt.Sprintf("%s#%d", f.CameraID, f.Number)
}
