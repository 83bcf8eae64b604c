package correlate

import(
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/tiepoint/pkg/emath"
)

func texture(x, y float64) float64 {
	return 1000 +
		200*math.Sin(0.31*x) +
		150*math.Cos(0.23*y) +
		120*math.Sin(0.17*(x+y)) +
		90*math.Cos(0.41*x-0.29*y) +
		60*math.Sin(0.53*x*0.7+0.61*y)
}

// sampled renders the texture with its (0,0) moved to (ox,oy)
func sampled(w, h int, ox, oy float64) emath.FloatGrid {
	g := emath.NewFloatGrid(w, h)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			g.Set(x, y, texture(float64(x)-ox, float64(y)-oy))
		}
	}
	return g
}

// pair returns a 21x21 template, and a 41x41 search block in which the
// template's content is displaced by (dx,dy) from center.
func pair(dx, dy float64) (emath.FloatGrid, emath.FloatGrid) {
	search := sampled(41, 41, 0, 0)
	tmpl := sampled(21, 21, -(10+dx), -(10+dy))
	return tmpl, search
}

func TestParseTechnique(t *testing.T) {
	tech, err := ParseTechnique("phase")
	require.NoError(t, err)
	assert.Equal(t, Phase, tech)
	assert.Equal(t, "ncc", NCC.String())
	_, err = ParseTechnique("mutualinfo")
	assert.Error(t, err)
}

func TestIntegerShift(t *testing.T) {
	for _, tech := range []Technique{NCC, Phase} {
		t.Run(tech.String(), func(t *testing.T) {
			tmpl, search := pair(3, -2)
			m := New(tech).Correlate(tmpl, search, 0.8, nil)
			require.True(t, m.OK, m.String())
			assert.InDelta(t, 3.0, m.Offset.X, 0.1)
			assert.InDelta(t, -2.0, m.Offset.Y, 0.1)
			assert.InDelta(t, 1.0, m.Confidence, 1e-6)
		})
	}
}

func TestSubPixelShift(t *testing.T) {
	for _, tech := range []Technique{NCC, Phase} {
		t.Run(tech.String(), func(t *testing.T) {
			tmpl, search := pair(2.3, -1.6)
			m := New(tech).Correlate(tmpl, search, 0.8, nil)
			require.True(t, m.OK, m.String())
			assert.InDelta(t, 2.3, m.Offset.X, 0.35)
			assert.InDelta(t, -1.6, m.Offset.Y, 0.35)
		})
	}
}

func TestFlatTemplate(t *testing.T) {
	tmpl := emath.NewFloatGrid(21, 21)
	tmpl.Fill(7)
	_, search := pair(0, 0)
	for _, tech := range []Technique{NCC, Phase} {
		assert.False(t, New(tech).Correlate(tmpl, search, 0, nil).OK, tech.String())
	}
}

func TestTemplateWithNoData(t *testing.T) {
	tmpl, search := pair(1, 1)
	nd := 0.0
	tmpl.Set(4, 4, nd)
	for _, tech := range []Technique{NCC, Phase} {
		assert.False(t, New(tech).Correlate(tmpl, search, 0, &nd).OK, tech.String())
	}
}

func TestSearchNoDataAwayFromMatch(t *testing.T) {
	tmpl, search := pair(-2, 1)
	nd := 0.0
	// Blank out a stripe on the far right of the search block
	for y:=0; y<41; y++ {
		for x:=38; x<41; x++ {
			search.Set(x, y, nd)
		}
	}
	for _, tech := range []Technique{NCC, Phase} {
		m := New(tech).Correlate(tmpl, search, 0.8, &nd)
		require.True(t, m.OK, tech.String())
		assert.InDelta(t, -2.0, m.Offset.X, 0.1)
		assert.InDelta(t, 1.0, m.Offset.Y, 0.1)
	}
}

func TestThresholdRejectsNoise(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	tmpl := emath.NewFloatGrid(21, 21)
	for i := range tmpl.Values() {
		tmpl.Values()[i] = rnd.Float64()
	}
	search := emath.NewFloatGrid(41, 41)
	for i := range search.Values() {
		search.Values()[i] = rnd.Float64()
	}

	for _, tech := range []Technique{NCC, Phase} {
		m := New(tech).Correlate(tmpl, search, 0.95, nil)
		assert.False(t, m.OK, tech.String())
	}
}

func TestPeakOnBorderIsRejected(t *testing.T) {
	// Content displaced by the full search radius: the peak sits on the edge
	tmpl, search := pair(10, 0)
	for _, tech := range []Technique{NCC, Phase} {
		m := New(tech).Correlate(tmpl, search, 0.5, nil)
		assert.False(t, m.OK, tech.String())
		assert.True(t, m.Offset.IsNaN(), tech.String())
		assert.True(t, m.Confidence > 0.5, tech.String())
	}
}

func TestUnscoredHasNaNOffset(t *testing.T) {
	flat := emath.NewFloatGrid(21, 21)
	flat.Fill(7)
	_, search := pair(0, 0)
	for _, tech := range []Technique{NCC, Phase} {
		m := New(tech).Correlate(flat, search, 0, nil)
		assert.True(t, m.Offset.IsNaN(), tech.String())
		assert.Equal(t, 0.0, m.Confidence, tech.String())
	}
}

func TestNoiseStillHasOffset(t *testing.T) {
	// A weak match is still a scored match
	tmpl, search := pair(1, -1)
	for _, tech := range []Technique{NCC, Phase} {
		m := New(tech).Correlate(tmpl, search, 1.01, nil)
		assert.False(t, m.OK, tech.String())
		assert.False(t, m.Offset.IsNaN(), tech.String())
	}
}

func TestResidualShift(t *testing.T) {
	a := sampled(21, 21, 0, 0)

	d, ok := residualShift(&a, &a)
	require.True(t, ok)
	assert.InDelta(t, 0.0, d.X, 1e-9)
	assert.InDelta(t, 0.0, d.Y, 1e-9)

	b := sampled(21, 21, 0.25, -0.3)
	d, ok = residualShift(&a, &b)
	require.True(t, ok)
	assert.InDelta(t, 0.25, d.X, 0.2)
	assert.InDelta(t, -0.3, d.Y, 0.2)
	assert.True(t, d.X > 0 && d.Y < 0, d.String())
}

func TestFourierSurfaceMatchesArea(t *testing.T) {
	tmpl, search := pair(2, 3)
	nd := 0.0
	search.Set(0, 0, nd)

	want, ok := nccSurface(&tmpl, &search, &nd)
	require.True(t, ok)
	got, ok := fourierSurface(&tmpl, &search, &nd)
	require.True(t, ok)
	require.Equal(t, want.w, got.w)
	require.Equal(t, want.h, got.h)
	for i := range want.scores {
		if math.IsInf(want.scores[i], -1) {
			assert.True(t, math.IsInf(got.scores[i], -1), "position %d", i)
			continue
		}
		assert.InDelta(t, want.scores[i], got.scores[i], 1e-6, "position %d", i)
	}
}

func TestSearchSmallerThanTemplate(t *testing.T) {
	tmpl, search := pair(0, 0)
	small, err := search.SubGrid(image.Rect(0, 0, 10, 10))
	require.NoError(t, err)
	for _, tech := range []Technique{NCC, Phase} {
		assert.False(t, New(tech).Correlate(tmpl, small, 0, nil).OK)
	}
}

func TestEqualSizedBlocks(t *testing.T) {
	// Equal sizes leave a single position to score, which is on the border
	tmpl, _ := pair(0, 0)
	m := AreaCorrelator{}.Correlate(tmpl, tmpl, 0, nil)
	assert.False(t, m.OK)
	assert.InDelta(t, 1.0, m.Confidence, 1e-9)
}
