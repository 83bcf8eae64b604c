package emath

import(
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvexHull(t *testing.T) {
	pts := []Point2D{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {2, 2}, {1, 3}, {2, 0}, {4, 4}}
	hull := ConvexHull(pts)
	assert.ElementsMatch(t, []Point2D{{0, 0}, {4, 0}, {4, 4}, {0, 4}}, hull)
}

func TestInsideHull(t *testing.T) {
	hull := ConvexHull([]Point2D{{0, 0}, {4, 0}, {4, 4}, {0, 4}})

	tests := []struct{
		name string
		p    Point2D
		tol  float64
		want bool
	}{
		{"center", Point2D{2, 2}, 0, true},
		{"on edge", Point2D{4, 2}, 0, true},
		{"just outside", Point2D{4.5, 2}, 0, false},
		{"just outside, with tolerance", Point2D{4.5, 2}, 1, true},
		{"far away", Point2D{40, 40}, 1, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InsideHull(hull, tc.p, tc.tol))
		})
	}
}

func TestInsideDegenerateHull(t *testing.T) {
	seg := ConvexHull([]Point2D{{0, 0}, {2, 0}, {1, 0}})
	assert.Len(t, seg, 2)
	assert.True(t, InsideHull(seg, Point2D{1, 0.5}, 1))
	assert.False(t, InsideHull(seg, Point2D{1, 3}, 1))

	assert.False(t, InsideHull(nil, Point2D{}, 100))
}

func TestTrimmedMeanVector(t *testing.T) {
	vs := []Point2D{}
	for i:=0; i<8; i++ {
		vs = append(vs, Point2D{3, -2})
	}
	vs = append(vs, Point2D{50, 50}) // gross outlier, trimmed from the top
	vs = append(vs, Point2D{0, 0})   // zero match, trimmed from the bottom

	mean, kept := TrimmedMeanVector(vs, 0.1)
	assert.Len(t, kept, 8)
	assert.InDelta(t, 3.0, mean.X, 1e-12)
	assert.InDelta(t, -2.0, mean.Y, 1e-12)

	mean, kept = TrimmedMeanVector(vs[:3], 0.1)
	assert.Len(t, kept, 3)
	assert.InDelta(t, 3.0, mean.X, 1e-12)
}
