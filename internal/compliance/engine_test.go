package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ppewatch/internal/detection"
)

func det(cat detection.Category, x1, y1, x2, y2 float64) detection.Detection {
	return detection.Detection{
		Box:        detection.BBox{X1: x1, Y1: y1, X2: x2, Y2: y2},
		Confidence: 0.9,
		Category:   cat,
		Label:      cat.String(),
	}
}

// person box (100,100)-(200,300): center (150,200), height 200
var (
	person       = det(detection.CategoryPerson, 100, 100, 200, 300)
	helmetOnHead = det(detection.CategoryHelmetPresent, 140, 120, 160, 140) // center (150,130)
	vestOnTorso  = det(detection.CategoryVestPresent, 120, 180, 180, 240)   // center (150,210)
	gogglesOnEye = det(detection.CategoryGogglesPresent, 140, 135, 160, 145)
)

func TestEvaluateFrame_FullyCompliant(t *testing.T) {
	t.Parallel()

	obs := NewEngine().EvaluateFrame([]detection.Detection{person, helmetOnHead, vestOnTorso, gogglesOnEye})

	require.Len(t, obs, 1)
	assert.True(t, obs[0].Compliant())
	assert.Equal(t, person, obs[0].Person)
}

func TestEvaluateFrame_PersonAloneMissesEverything(t *testing.T) {
	t.Parallel()

	obs := NewEngine().EvaluateFrame([]detection.Detection{person})

	require.Len(t, obs, 1)
	assert.Equal(t, NewEquipmentSet(detection.Helmet, detection.Vest, detection.Goggles), obs[0].Missing)
	assert.Equal(t, "helmet,vest,goggles", obs[0].Missing.String())
}

func TestEvaluateFrame_UnionOfMissing(t *testing.T) {
	t.Parallel()

	obs := NewEngine().EvaluateFrame([]detection.Detection{vestOnTorso, person})

	require.Len(t, obs, 1)
	assert.True(t, obs[0].Missing.Has(detection.Helmet))
	assert.False(t, obs[0].Missing.Has(detection.Vest))
	assert.True(t, obs[0].Missing.Has(detection.Goggles))
}

func TestEvaluateFrame_HelmetRules(t *testing.T) {
	t.Parallel()

	tall := det(detection.CategoryPerson, 0, 0, 100, 400) // center (50,200)

	tests := []struct {
		name    string
		person  detection.Detection
		helmet  detection.Detection
		matched bool
	}{
		{"inside region", person, helmetOnHead, true},
		{"outside horizontal margin", person, det(detection.CategoryHelmetPresent, 225, 120, 245, 140), false},
		{"on right boundary", person, det(detection.CategoryHelmetPresent, 210, 120, 230, 140), true},
		{"below head band", person, det(detection.CategoryHelmetPresent, 140, 190, 160, 210), false},
		{"too far from center", tall, det(detection.CategoryHelmetPresent, 40, 40, 60, 60), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			obs := NewEngine().EvaluateFrame([]detection.Detection{tt.person, tt.helmet})
			require.Len(t, obs, 1)
			assert.Equal(t, !tt.matched, obs[0].Missing.Has(detection.Helmet))
		})
	}
}

func TestNearestHelmet(t *testing.T) {
	t.Parallel()

	far := det(detection.CategoryHelmetPresent, 170, 100, 190, 120) // center (180,110)

	got, ok := nearestHelmet(&person, []*detection.Detection{&far, &helmetOnHead})
	require.True(t, ok)
	assert.Equal(t, helmetOnHead.Box, got.Box)

	_, ok = nearestHelmet(&person, []*detection.Detection{&vestOnTorso})
	assert.False(t, ok)
}

// Person (100,100)-(200,400) has its center at (150,250). A helmet centered
// at (150,110) sits inside the head band but 140 px from that center, beyond
// the 100 px limit, so it does not count.
func TestEvaluateFrame_TallPersonHelmetBeyondDistanceLimit(t *testing.T) {
	t.Parallel()

	tall := det(detection.CategoryPerson, 100, 100, 200, 400)
	helmet := det(detection.CategoryHelmetPresent, 140, 100, 160, 120) // center (150,110)
	require.True(t, SearchRegion(tall.Box, detection.Helmet).Contains(helmet.Center()))
	require.InDelta(t, 140.0, tall.Center().Distance(helmet.Center()), 1e-9)

	obs := NewEngine().EvaluateFrame([]detection.Detection{tall, helmet})
	require.Len(t, obs, 1)
	assert.True(t, obs[0].Missing.Has(detection.Helmet))

	// the same helmet on a 200 px tall person is within reach
	short := det(detection.CategoryPerson, 100, 100, 200, 300)
	obs = NewEngine().EvaluateFrame([]detection.Detection{short, helmet})
	require.Len(t, obs, 1)
	assert.False(t, obs[0].Missing.Has(detection.Helmet))

	// removing it makes the helmet missing again
	obs = NewEngine().EvaluateFrame([]detection.Detection{short})
	require.Len(t, obs, 1)
	assert.True(t, obs[0].Missing.Has(detection.Helmet))
}

func TestEvaluateFrame_VestAndGogglesRegions(t *testing.T) {
	t.Parallel()

	// vest band y in [140,260], goggles band y in [120,180]
	lowVest := det(detection.CategoryVestPresent, 140, 270, 160, 290)
	highGoggles := det(detection.CategoryGogglesPresent, 140, 100, 160, 110)

	obs := NewEngine().EvaluateFrame([]detection.Detection{person, helmetOnHead, lowVest, highGoggles})

	require.Len(t, obs, 1)
	assert.Equal(t, NewEquipmentSet(detection.Vest, detection.Goggles), obs[0].Missing)
}

func TestEvaluateFrame_SharedHelmet(t *testing.T) {
	t.Parallel()

	left := det(detection.CategoryPerson, 100, 100, 200, 300)  // center (150,200)
	right := det(detection.CategoryPerson, 210, 100, 310, 300) // center (260,200)
	shared := det(detection.CategoryHelmetPresent, 190, 120, 210, 140)
	dets := []detection.Detection{left, right, shared}

	permissive := NewEngine().EvaluateFrame(dets)
	require.Len(t, permissive, 2)
	assert.False(t, permissive[0].Missing.Has(detection.Helmet))
	assert.False(t, permissive[1].Missing.Has(detection.Helmet))

	strict := NewEngine(WithAssignment(AssignmentStrict)).EvaluateFrame(dets)
	require.Len(t, strict, 2)
	assert.False(t, strict[0].Missing.Has(detection.Helmet), "nearer person keeps the helmet")
	assert.True(t, strict[1].Missing.Has(detection.Helmet))
}

func TestEvaluateFrame_EdgeCases(t *testing.T) {
	t.Parallel()

	engine := NewEngine()

	assert.Empty(t, engine.EvaluateFrame(nil))
	assert.Empty(t, engine.EvaluateFrame([]detection.Detection{helmetOnHead, vestOnTorso}))

	malformed := det(detection.CategoryPerson, 200, 100, 100, 300)
	assert.Empty(t, engine.EvaluateFrame([]detection.Detection{malformed}))

	result := engine.Evaluate([]detection.Detection{
		person, helmetOnHead,
		det(detection.CategoryVestAbsent, 120, 180, 180, 240),
	})
	require.Len(t, result.Observations, 1)
	assert.True(t, result.Observations[0].Missing.Has(detection.Vest), "absent detections never satisfy a person")
	assert.Equal(t, 1, result.Seen[detection.Helmet])
	assert.Equal(t, 1, result.Absent[detection.Vest])
}

func TestEquipmentSet(t *testing.T) {
	t.Parallel()

	s := ParseEquipmentSet("goggles, no_helmet,gloves")
	assert.Equal(t, NewEquipmentSet(detection.Helmet, detection.Goggles), s)
	assert.Equal(t, []detection.Equipment{detection.Helmet, detection.Goggles}, s.Items())
	assert.True(t, EquipmentSet(0).Empty())
	assert.Equal(t, AssignmentStrict, ParseAssignment("strict"))
	assert.Equal(t, "permissive", ParseAssignment("anything").String())
}
