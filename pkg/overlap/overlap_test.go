package overlap

import(
	"errors"
	"fmt"
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/tiepoint/pkg/emath"
	"github.com/abworrall/tiepoint/pkg/raster"
)

func meta(x0, y0 float64, cols, rows int) raster.Metadata {
	return raster.Metadata{
		Cols: cols,
		Rows: rows,
		GeoTransform: [6]float64{x0, 2, 0, y0, 0, -2},
		Bands: 1,
	}
}

// mapBox is the map footprint of window `w` of a raster
func mapBox(m raster.Metadata, w image.Rectangle) [2]emath.Point2D {
	return [2]emath.Point2D{
		m.PixelToMap(emath.Point2D{X: float64(w.Min.X), Y: float64(w.Min.Y)}),
		m.PixelToMap(emath.Point2D{X: float64(w.Max.X), Y: float64(w.Max.Y)}),
	}
}

func TestMinBox(t *testing.T) {
	a := meta(100, 500, 50, 40)
	b := meta(120, 480, 50, 40) // 10 cols right, 10 rows down

	res, err := ComputeOverlap(a, b, MinBox)
	require.NoError(t, err)
	assert.True(t, res.Exists)
	assert.Equal(t, image.Rect(10, 10, 50, 40), res.SubA)
	assert.Equal(t, image.Rect(0, 0, 40, 30), res.SubB)
	assert.True(t, res.PadA.IsZero())
	assert.True(t, res.PadB.IsZero())
	assert.Equal(t, mapBox(a, res.SubA), mapBox(b, res.SubB))
}

func TestMaxBox(t *testing.T) {
	a := meta(100, 500, 50, 40)
	b := meta(120, 480, 50, 40)

	res, err := ComputeOverlap(a, b, MaxBox)
	require.NoError(t, err)
	assert.True(t, res.Exists)
	assert.Equal(t, a.Bounds(), res.SubA)
	assert.Equal(t, b.Bounds(), res.SubB)
	assert.Equal(t, Padding{image.Point{0, 0}, image.Point{10, 10}}, res.PadA)
	assert.Equal(t, Padding{image.Point{10, 10}, image.Point{0, 0}}, res.PadB)

	// Once padded, both rasters cover the same footprint
	pa := a.Window(image.Rect(-res.PadA.UpperLeft.X, -res.PadA.UpperLeft.Y, a.Cols+res.PadA.LowerRight.X, a.Rows+res.PadA.LowerRight.Y))
	pb := b.Window(image.Rect(-res.PadB.UpperLeft.X, -res.PadB.UpperLeft.Y, b.Cols+res.PadB.LowerRight.X, b.Rows+res.PadB.LowerRight.Y))
	assert.Equal(t, pa, pb)
}

func TestNoOverlap(t *testing.T) {
	a := meta(0, 0, 10, 10)
	b := meta(20, 0, 10, 10) // starts exactly where a ends

	for _, mode := range []Mode{MinBox, MaxBox} {
		res, err := ComputeOverlap(a, b, mode)
		require.NoError(t, err)
		assert.False(t, res.Exists, mode.String())
	}
}

func TestOverlapNeedsSharedGSD(t *testing.T) {
	a := meta(0, 0, 10, 10)
	b := meta(0, 0, 10, 10)
	b.GeoTransform[1] = 3
	_, err := ComputeOverlap(a, b, MinBox)
	assert.Error(t, err)

	b = meta(0, 0, 10, 10)
	b.GeoTransform[2] = 0.1
	_, err = ComputeOverlap(a, b, MinBox)
	assert.Error(t, err)
}

func TestOverlapSymmetry(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	for i:=0; i<200; i++ {
		a := meta(float64(rnd.Intn(200)-100)*2, float64(rnd.Intn(200)-100)*2, 1+rnd.Intn(120), 1+rnd.Intn(120))
		b := meta(float64(rnd.Intn(200)-100)*2, float64(rnd.Intn(200)-100)*2, 1+rnd.Intn(120), 1+rnd.Intn(120))

		ab, err := ComputeOverlap(a, b, MinBox)
		require.NoError(t, err)
		ba, err := ComputeOverlap(b, a, MinBox)
		require.NoError(t, err)

		require.Equal(t, ab.Exists, ba.Exists)
		if !ab.Exists {
			continue
		}
		assert.Equal(t, mapBox(a, ab.SubA), mapBox(a, ba.SubB))
		assert.Equal(t, mapBox(b, ab.SubB), mapBox(b, ba.SubA))
		assert.Equal(t, mapBox(a, ab.SubA), mapBox(b, ab.SubB))
	}
}

func TestPadRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))

	for i:=0; i<50; i++ {
		g := emath.NewFloatGrid(1+rnd.Intn(20), 1+rnd.Intn(20))
		for j := range g.Values() {
			g.Values()[j] = rnd.Float64()
		}
		p := Padding{
			UpperLeft:  image.Point{rnd.Intn(6), rnd.Intn(6)},
			LowerRight: image.Point{rnd.Intn(6), rnd.Intn(6)},
		}

		padded, err := Pad(g, p, -1)
		require.NoError(t, err)
		assert.Equal(t, g.Dx()+p.UpperLeft.X+p.LowerRight.X, padded.Dx())

		back, err := RemovePad(padded, p)
		require.NoError(t, err)
		assert.Equal(t, g, back)
	}
}

func TestPadFillsBorder(t *testing.T) {
	g := emath.NewFloatGrid(2, 1)
	g.Fill(5)
	padded, err := Pad(g, Padding{image.Point{1, 1}, image.Point{0, 1}}, 9)
	require.NoError(t, err)
	assert.Equal(t, []float64{
		9, 9, 9,
		9, 5, 5,
		9, 9, 9,
	}, padded.Values())

	_, err = Pad(g, Padding{UpperLeft: image.Point{-1, 0}}, 0)
	assert.Error(t, err)
}

func TestRemovePadTooMuch(t *testing.T) {
	g := emath.NewFloatGrid(4, 4)
	_, err := RemovePad(g, Padding{image.Point{2, 0}, image.Point{3, 0}})
	assert.True(t, errors.Is(err, raster.ErrWindow))

	_, err = RemovePad(g, Padding{image.Point{2, 2}, image.Point{2, 2}})
	assert.Error(t, err)

	_, err = RemovePad(g, Padding{LowerRight: image.Point{X: 0, Y: 4}})
	assert.True(t, errors.Is(err, raster.ErrWindow))

	left, err := RemovePad(g, Padding{image.Point{X: 1, Y: 0}, image.Point{X: 2, Y: 3}})
	require.NoError(t, err)
	assert.Equal(t, 1, left.Dx())
	assert.Equal(t, 1, left.Dy())

	r, err := raster.NewRaster(meta(0, 0, 4, 4), g)
	require.NoError(t, err)
	_, err = RemovePadRaster(r, Padding{image.Point{X: 2, Y: 0}, image.Point{X: 3, Y: 0}})
	assert.True(t, errors.Is(err, raster.ErrWindow))
}

func TestPadRasterMovesOrigin(t *testing.T) {
	r, err := raster.NewRaster(meta(100, 500, 4, 3), emath.NewFloatGrid(4, 3))
	require.NoError(t, err)

	p := Padding{image.Point{1, 2}, image.Point{3, 0}}
	padded, err := PadRaster(r, p, 0)
	require.NoError(t, err)
	assert.Equal(t, emath.Point2D{X: 98, Y: 504}, padded.Meta.Origin())
	assert.Equal(t, 8, padded.Meta.Cols)
	assert.Equal(t, 5, padded.Meta.Rows)

	back, err := RemovePadRaster(padded, p)
	require.NoError(t, err)
	assert.Equal(t, r, back)
}

func TestCrop(t *testing.T) {
	r, err := raster.NewRaster(meta(0, 0, 10, 10), emath.NewFloatGrid(10, 10))
	require.NoError(t, err)

	c, err := Crop(r, image.Rect(2, 3, 6, 9))
	require.NoError(t, err)
	assert.Equal(t, emath.Point2D{X: 4, Y: -6}, c.Meta.Origin())

	_, err = Crop(r, image.Rect(5, 5, 11, 8))
	assert.True(t, errors.Is(err, raster.ErrWindow))
}

func TestPadForDivisor(t *testing.T) {
	assert.Equal(t, Padding{LowerRight: image.Point{3, 0}}, PadForDivisor(13, 8, 4))
	assert.True(t, PadForDivisor(16, 8, 4).IsZero())
	assert.True(t, PadForDivisor(7, 5, 1).IsZero())
}

func ExampleComputeOverlap() {
	a := meta(100, 500, 50, 40)
	b := meta(120, 480, 50, 40)

	res, _ := ComputeOverlap(a, b, MinBox)
	fmt.Println(res.SubA, res.SubB)
	// Output: (10,10)-(50,40) (0,0)-(40,30)
}
