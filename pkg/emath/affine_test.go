package emath

import(
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoTransformRoundTrip(t *testing.T) {
	gt := [6]float64{500000, 10, 0, 4200000, 0, -10}
	m := FromGeoTransform(gt)
	assert.Equal(t, gt, m.GeoTransform())

	p := m.Apply(Point2D{3, 4})
	assert.Equal(t, Point2D{500030, 4199960}, p)
}

func TestInvert(t *testing.T) {
	tests := []struct{
		name string
		m    Aff3
	}{
		{"identity", Identity()},
		{"north-up", FromGeoTransform([6]float64{100, 2, 0, 50, 0, -2})},
		{"rotated", FromGeoTransform([6]float64{-7, 0.5, 0.25, 3, -0.1, -0.75})},
		{"scaled+translated", Identity().Translate(4, -9).Scale(3, 0.5)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv, err := tc.m.Invert()
			require.NoError(t, err)

			for _, p := range []Point2D{{0, 0}, {1, 2}, {-40.5, 17.25}} {
				back := inv.Apply(tc.m.Apply(p))
				assert.InDelta(t, p.X, back.X, 1e-9)
				assert.InDelta(t, p.Y, back.Y, 1e-9)
			}
		})
	}
}

func TestInvertSingular(t *testing.T) {
	_, err := Aff3{1, 2, 0, 2, 4, 0}.Invert()
	assert.Error(t, err)
}

func TestMultComposesRightFirst(t *testing.T) {
	m := Identity().Translate(10, 0).Scale(2, 2)
	// Scale first, then translate
	assert.Equal(t, Point2D{12, 2}, m.Apply(Point2D{1, 1}))
}
