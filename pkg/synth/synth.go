// Package synth makes deterministic textured scenes, and pairs of them
// offset by a known number of pixels.
package synth

import(
	"fmt"
	"math"
	"math/rand"

	"github.com/abworrall/tiepoint/pkg/emath"
	"github.com/abworrall/tiepoint/pkg/raster"
)

// NoData is what ShiftedPair fills uncovered pixels with. Textures never
// produce it.
const NoData = 0.0

type octave struct {
	cell int
	amp  float64
}

var octaves = []octave{{37, 600}, {13, 280}, {5, 120}}

// Texture is a smooth random surface, a sum of octaves of value noise.
// Values lie in [100, 1100]; the same seed gives the same surface.
func Texture(cols, rows int, seed int64) emath.FloatGrid {
	g := emath.NewFloatGrid(cols, rows)
	g.Fill(100)
	rng := rand.New(rand.NewSource(seed))
	for _, o := range octaves {
		addNoise(&g, o, rng)
	}
	return g
}

func smooth(t float64) float64 { return t * t * (3 - 2*t) }

func addNoise(g *emath.FloatGrid, o octave, rng *rand.Rand) {
	lw, lh := g.Dx()/o.cell+2, g.Dy()/o.cell+2
	lattice := make([]float64, lw*lh)
	for i := range lattice {
		lattice[i] = rng.Float64()
	}
	at := func(x, y int) float64 { return lattice[y*lw+x] }

	for y:=0; y<g.Dy(); y++ {
		ly, fy := y/o.cell, smooth(float64(y%o.cell)/float64(o.cell))
		for x:=0; x<g.Dx(); x++ {
			lx, fx := x/o.cell, smooth(float64(x%o.cell)/float64(o.cell))
			top := at(lx, ly)*(1-fx) + at(lx+1, ly)*fx
			bot := at(lx, ly+1)*(1-fx) + at(lx+1, ly+1)*fx
			g.Set(x, y, g.Get(x, y) + o.amp*(top*(1-fy)+bot*fy))
		}
	}
}

// Meta is the metadata of a plain single band scene; GSD (1,1) at the
// origin, no projection, and NoData as its no-data value.
func Meta(cols, rows int) raster.Metadata {
	return raster.Metadata{
		Cols:         cols,
		Rows:         rows,
		GeoTransform: raster.DefaultGeoTransform,
		BitsPerPixel: 16,
		Bands:        1,
		NoData:       raster.Float64Ptr(NoData),
	}
}

// Shift moves the pixels of `g` by (dx,dy); pixel (x,y) of the result
// is pixel (x-dx, y-dy) of the source, or NoData if that is off the edge.
func Shift(g emath.FloatGrid, dx, dy int) emath.FloatGrid {
	out := g.NewFromThis()
	out.Fill(NoData)
	for y:=0; y<g.Dy(); y++ {
		sy := y - dy
		if sy < 0 || sy >= g.Dy() { continue }
		for x:=0; x<g.Dx(); x++ {
			sx := x - dx
			if sx < 0 || sx >= g.Dx() { continue }
			out.Set(x, y, g.Get(sx, sy))
		}
	}
	return out
}

// ShiftedPair returns an input scene and a reference scene that holds
// the same texture moved by (dx,dy) pixels, with NoData along the edges
// it uncovers. Both take their geometry from `meta`. A feature at input
// pixel (x,y) sits at reference pixel (x+dx, y+dy).
func ShiftedPair(meta raster.Metadata, dx, dy int, seed int64) (raster.Raster, raster.Raster, error) {
	if meta.Cols <= 0 || meta.Rows <= 0 {
		return raster.Raster{}, raster.Raster{}, fmt.Errorf("bad scene size %dx%d", meta.Cols, meta.Rows)
	}
	if abs(dx) >= meta.Cols || abs(dy) >= meta.Rows {
		return raster.Raster{}, raster.Raster{}, fmt.Errorf("shift (%d,%d) leaves no overlap", dx, dy)
	}
	meta.Bands = 1
	meta.NoData = raster.Float64Ptr(NoData)

	tex := Texture(meta.Cols, meta.Rows, seed)
	in, err := raster.NewRaster(meta, tex)
	if err != nil {
		return raster.Raster{}, raster.Raster{}, err
	}
	ref, err := raster.NewRaster(meta, Shift(tex, dx, dy))
	return in, ref, err
}

func abs(i int) int { return int(math.Abs(float64(i))) }
