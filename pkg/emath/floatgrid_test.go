package emath

import(
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rampGrid(w, h int) FloatGrid {
	g := NewFloatGrid(w, h)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			g.Set(x, y, float64(y*w + x))
		}
	}
	return g
}

func TestNewFloatGridFromValues(t *testing.T) {
	_, err := NewFloatGridFromValues(3, 2, []float64{1, 2, 3})
	assert.Error(t, err)

	g, err := NewFloatGridFromValues(3, 2, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Dx())
	assert.Equal(t, 2, g.Dy())
	assert.Equal(t, 6.0, g.Get(2, 1))
}

func TestSubGridAndPaste(t *testing.T) {
	g := rampGrid(6, 5)

	sub, err := g.SubGrid(image.Rect(2, 1, 5, 3))
	require.NoError(t, err)
	assert.Equal(t, []float64{8, 9, 10, 14, 15, 16}, sub.Values())

	_, err = g.SubGrid(image.Rect(4, 4, 7, 5))
	assert.Error(t, err)

	dst := NewFloatGrid(4, 4)
	dst.Paste(sub, 2, 3)
	assert.Equal(t, 8.0, dst.Get(2, 3))
	assert.Equal(t, 9.0, dst.Get(3, 3))
	assert.Equal(t, 0.0, dst.Get(1, 3))
}

func TestSobelOnRamp(t *testing.T) {
	// Horizontal ramp: d/dx = 1 everywhere inside, d/dy = 0
	g := NewFloatGrid(8, 8)
	for y:=0; y<8; y++ {
		for x:=0; x<8; x++ {
			g.Set(x, y, float64(x))
		}
	}
	gx, gy := g.Sobel()
	assert.InDelta(t, 1.0, gx.Get(4, 4), 1e-12)
	assert.InDelta(t, 0.0, gy.Get(4, 4), 1e-12)

	mag, avg := g.CalculateGradients()
	assert.InDelta(t, 1.0, mag.Get(3, 3), 1e-12)
	assert.True(t, avg > 0.5)
}

func TestHarrisPrefersCorners(t *testing.T) {
	// A bright square on a dark background; its corners beat its edges
	g := NewFloatGrid(32, 32)
	for y:=10; y<22; y++ {
		for x:=10; x<22; x++ {
			g.Set(x, y, 100)
		}
	}
	R := g.HarrisResponse(0.04)
	assert.Greater(t, R.Get(10, 10), R.Get(16, 10))
	assert.Greater(t, R.Get(10, 10), R.Get(16, 16))
}

func TestFindMaxMinAtPercentileSkipsNoData(t *testing.T) {
	g := rampGrid(10, 10)
	nd := 0.0
	lo, hi := g.FindMaxMinAtPercentile(0.0, 1.0, &nd)
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 99.0, hi)
}

func TestToImg(t *testing.T) {
	g := rampGrid(40, 30)
	fn := filepath.Join(t.TempDir(), "ramp.png")
	require.NoError(t, g.ToImg("ramp", fn, nil))
	assert.FileExists(t, fn)
}
