package compliance

import "github.com/tphakala/ppewatch/internal/detection"

// Search region constants, in pixels and fractions of person box height
const (
	helmetMarginX    = 20.0
	helmetBandBottom = 0.4
	helmetMaxDist    = 100.0

	vestMarginX    = 10.0
	vestBandTop    = 0.2
	vestBandBottom = 0.8

	gogglesMarginX    = 15.0
	gogglesBandTop    = 0.1
	gogglesBandBottom = 0.4
)

// Region is an inclusive rectangle
type Region struct {
	X1, Y1, X2, Y2 float64
}

// Contains reports whether p lies inside the region, bounds included
func (r Region) Contains(p detection.Point) bool {
	return p.X >= r.X1 && p.X <= r.X2 && p.Y >= r.Y1 && p.Y <= r.Y2
}

// SearchRegion returns the area of a person box where e is expected
func SearchRegion(person detection.BBox, e detection.Equipment) Region {
	h := person.Height()
	switch e {
	case detection.Helmet:
		return Region{
			X1: person.X1 - helmetMarginX, X2: person.X2 + helmetMarginX,
			Y1: person.Y1, Y2: person.Y1 + helmetBandBottom*h,
		}
	case detection.Vest:
		return Region{
			X1: person.X1 - vestMarginX, X2: person.X2 + vestMarginX,
			Y1: person.Y1 + vestBandTop*h, Y2: person.Y1 + vestBandBottom*h,
		}
	case detection.Goggles:
		return Region{
			X1: person.X1 - gogglesMarginX, X2: person.X2 + gogglesMarginX,
			Y1: person.Y1 + gogglesBandTop*h, Y2: person.Y1 + gogglesBandBottom*h,
		}
	}
	return Region{}
}

// qualifies reports whether item can satisfy e for person. Helmets must also
// sit above the person's center and within helmetMaxDist of it.
func qualifies(person, item *detection.Detection, e detection.Equipment) (float64, bool) {
	pc, ic := person.Center(), item.Center()
	if !SearchRegion(person.Box, e).Contains(ic) {
		return 0, false
	}
	dist := pc.Distance(ic)
	if e == detection.Helmet {
		if ic.Y >= pc.Y || dist >= helmetMaxDist {
			return 0, false
		}
	}
	return dist, true
}
