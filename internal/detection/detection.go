// Package detection holds the per-frame object detection model: raw detector
// output, the category classifier that interprets labels, and the sources that
// feed frames into the pipeline.
//
// A Detection lives for one frame only and is never persisted.
package detection

import (
	"math"

	"github.com/tphakala/ppewatch/internal/errors"
)

// Category is the interpreted meaning of a raw detector label
type Category int

const (
	CategoryNone Category = iota
	CategoryPerson
	CategoryHelmetPresent
	CategoryHelmetAbsent
	CategoryVestPresent
	CategoryVestAbsent
	CategoryGogglesPresent
	CategoryGogglesAbsent
)

func (c Category) String() string {
	switch c {
	case CategoryPerson:
		return "person"
	case CategoryHelmetPresent:
		return "helmet"
	case CategoryHelmetAbsent:
		return "no_helmet"
	case CategoryVestPresent:
		return "vest"
	case CategoryVestAbsent:
		return "no_vest"
	case CategoryGogglesPresent:
		return "goggles"
	case CategoryGogglesAbsent:
		return "no_goggles"
	default:
		return "none"
	}
}

// Equipment is a kind of protective equipment
type Equipment string

const (
	Helmet  Equipment = "helmet"
	Vest    Equipment = "vest"
	Goggles Equipment = "goggles"
)

// AllEquipment lists equipment in evaluation order
var AllEquipment = []Equipment{Helmet, Vest, Goggles}

// ViolationType is the report key for missing equipment, e.g. "no_helmet"
func (e Equipment) ViolationType() string {
	return "no_" + string(e)
}

// ParseEquipment maps "helmet" or "no_helmet" style names to Equipment
func ParseEquipment(s string) (Equipment, bool) {
	for _, e := range AllEquipment {
		if s == string(e) || s == e.ViolationType() {
			return e, true
		}
	}
	return "", false
}

// Equipment returns the equipment a category refers to and whether the
// category asserts its presence. Person and None return ok=false.
func (c Category) Equipment() (e Equipment, present, ok bool) {
	switch c {
	case CategoryHelmetPresent:
		return Helmet, true, true
	case CategoryHelmetAbsent:
		return Helmet, false, true
	case CategoryVestPresent:
		return Vest, true, true
	case CategoryVestAbsent:
		return Vest, false, true
	case CategoryGogglesPresent:
		return Goggles, true, true
	case CategoryGogglesAbsent:
		return Goggles, false, true
	}
	return "", false, false
}

// Point is a pixel coordinate; y grows downward
type Point struct {
	X, Y float64
}

// Distance returns the Euclidean distance between two points
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// BBox is an axis-aligned bounding box in pixel coordinates
type BBox struct {
	X1, Y1, X2, Y2 float64
}

// Width of the box
func (b BBox) Width() float64 { return b.X2 - b.X1 }

// Height of the box
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Center returns the box midpoint
func (b BBox) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Valid reports whether the box has non-negative extent and finite coordinates
func (b BBox) Valid() bool {
	for _, v := range []float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.X2 >= b.X1 && b.Y2 >= b.Y1
}

// Detection is a classified object in one frame
type Detection struct {
	Box        BBox
	Confidence float64
	Category   Category
	Label      string // raw label as reported by the detector
}

// Center of the detection's box
func (d *Detection) Center() Point {
	return d.Box.Center()
}

// NewDetection validates geometry and confidence. A malformed box or an
// out-of-range confidence yields a geometry error and the detection is discarded.
func NewDetection(label string, category Category, box BBox, confidence float64) (Detection, error) {
	if !box.Valid() {
		return Detection{}, errors.Newf("malformed bounding box for %q: (%.1f,%.1f)-(%.1f,%.1f)",
			label, box.X1, box.Y1, box.X2, box.Y2).
			Component("detection").
			Category(errors.CategoryGeometry).
			Context("label", label).
			Build()
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return Detection{}, errors.Newf("confidence %v for %q outside [0,1]", confidence, label).
			Component("detection").
			Category(errors.CategoryDetection).
			Context("label", label).
			Build()
	}
	return Detection{Box: box, Confidence: confidence, Category: category, Label: label}, nil
}
