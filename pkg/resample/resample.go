// Package resample maps a source raster onto a destination grid, through
// a per-pixel map of source coordinates. It has no state; any number of
// calls can run at once.
package resample

import(
	"fmt"
	"math"
	"strings"

	"github.com/abworrall/tiepoint/pkg/emath"
)

type Method int

const(
	Nearest Method = iota
	Bilinear
	Bicubic
	Area
)

func (m Method)String() string {
	switch m {
	case Nearest:  return "nearest"
	case Bilinear: return "bilinear"
	case Bicubic:  return "bicubic"
	case Area:     return "area"
	}
	return fmt.Sprintf("method(%d)", int(m))
}

func ListMethods() string { return "nearest, bilinear, bicubic, area" }

func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "nearest", "near": return Nearest, nil
	case "bilinear":        return Bilinear, nil
	case "bicubic", "cubic": return Bicubic, nil
	case "area", "average": return Area, nil
	}
	return Nearest, fmt.Errorf("no resampling method named '%s'", s)
}

// Options carries the optional no-data values. Destination pixels that
// can't be computed keep DstNoData (or SrcNoData, or zero).
type Options struct {
	SrcNoData *float64
	DstNoData *float64
}

func (o Options)fill() float64 {
	if o.DstNoData != nil { return *o.DstNoData }
	if o.SrcNoData != nil { return *o.SrcNoData }
	return 0
}

func (o Options)isNoData(v float64) bool {
	return o.SrcNoData != nil && v == *o.SrcNoData
}

type sampleFunc func(src *emath.FloatGrid, m *CoordMap, x, y int, o Options) (float64, bool)

func samplerFor(method Method) (sampleFunc, error) {
	switch method {
	case Nearest:  return sampleNearest, nil
	case Bilinear: return sampleBilinear, nil
	case Bicubic:  return sampleBicubic, nil
	case Area:     return sampleArea, nil
	}
	return nil, fmt.Errorf("no resampling method %d", int(method))
}

// Resample builds the destination described by `m`, pulling each pixel
// from `src` with `method`. Map entries holding NaN are skipped.
func Resample(src emath.FloatGrid, m CoordMap, method Method, o Options) (emath.FloatGrid, error) {
	if err := m.Validate(); err != nil {
		return emath.FloatGrid{}, err
	}
	sample, err := samplerFor(method)
	if err != nil {
		return emath.FloatGrid{}, err
	}

	dst := emath.NewFloatGrid(m.Cols, m.Rows)
	dst.Fill(o.fill())
	if src.Dx() == 0 || src.Dy() == 0 {
		return dst, nil
	}

	for y:=0; y<m.Rows; y++ {
		for x:=0; x<m.Cols; x++ {
			if m.IsNaN(x, y) {
				continue
			}
			if v, ok := sample(&src, &m, x, y, o); ok {
				dst.Set(x, y, v)
			}
		}
	}

	return dst, nil
}

// Scale resamples `src` onto a dstCols x dstRows grid covering the same footprint.
func Scale(src emath.FloatGrid, dstCols, dstRows int, method Method, o Options) (emath.FloatGrid, error) {
	return Resample(src, ScaleMap(src.Dx(), src.Dy(), dstCols, dstRows), method, o)
}

// Reduce shrinks `src` by an integer factor, averaging each factor x
// factor block and ignoring no-data cells. It matches Scale with Area
// when the dimensions divide, and is a lot quicker.
func Reduce(src emath.FloatGrid, factor int, noData *float64) (emath.FloatGrid, error) {
	if factor < 1 {
		return emath.FloatGrid{}, fmt.Errorf("reduction factor %d", factor)
	}
	o := Options{SrcNoData: noData, DstNoData: noData}
	w, h := src.Dx()/factor, src.Dy()/factor
	dst := emath.NewFloatGrid(w, h)
	dst.Fill(o.fill())

	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			sum, n := 0.0, 0
			for j:=0; j<factor; j++ {
				for i:=0; i<factor; i++ {
					v := src.Get(x*factor+i, y*factor+j)
					if o.isNoData(v) { continue }
					sum += v
					n++
				}
			}
			if n > 0 {
				dst.Set(x, y, sum/float64(n))
			}
		}
	}
	return dst, nil
}

func sampleNearest(src *emath.FloatGrid, m *CoordMap, x, y int, o Options) (float64, bool) {
	sx, sy := m.At(x, y)
	ix := int(math.Floor(sx + 0.5))
	iy := int(math.Floor(sy + 0.5))
	if !src.In(ix, iy) {
		return 0, false
	}
	v := src.Get(ix, iy)
	return v, !o.isNoData(v)
}

func bilinearAt(src *emath.FloatGrid, sx, sy float64, o Options) (float64, bool) {
	x0 := math.Floor(sx)
	y0 := math.Floor(sy)
	fx := sx - x0
	fy := sy - y0
	ix, iy := int(x0), int(y0)

	taps := [4]struct{ x, y int; w float64 }{
		{ix,   iy,   (1-fx)*(1-fy)},
		{ix+1, iy,   fx*(1-fy)},
		{ix,   iy+1, (1-fx)*fy},
		{ix+1, iy+1, fx*fy},
	}

	sum, wsum := 0.0, 0.0
	for _, t := range taps {
		if t.w == 0 || !src.In(t.x, t.y) {
			continue
		}
		v := src.Get(t.x, t.y)
		if o.isNoData(v) {
			continue
		}
		sum += v * t.w
		wsum += t.w
	}

	if wsum < 1e-12 {
		return 0, false
	}
	return sum / wsum, true
}

func sampleBilinear(src *emath.FloatGrid, m *CoordMap, x, y int, o Options) (float64, bool) {
	sx, sy := m.At(x, y)
	return bilinearAt(src, sx, sy, o)
}

// Catmull-Rom, i.e. cubic convolution with a = -0.5
func cubicWeight(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t <= 1: return 1.5*t*t*t - 2.5*t*t + 1
	case t < 2:  return -0.5*t*t*t + 2.5*t*t - 4*t + 2
	}
	return 0
}

func sampleBicubic(src *emath.FloatGrid, m *CoordMap, x, y int, o Options) (float64, bool) {
	sx, sy := m.At(x, y)
	x0 := math.Floor(sx)
	y0 := math.Floor(sy)
	fx := sx - x0
	fy := sy - y0
	ix, iy := int(x0), int(y0)

	if !src.In(ix-1, iy-1) || !src.In(ix+2, iy+2) {
		return 0, false
	}

	wx := [4]float64{cubicWeight(1+fx), cubicWeight(fx), cubicWeight(1-fx), cubicWeight(2-fx)}
	wy := [4]float64{cubicWeight(1+fy), cubicWeight(fy), cubicWeight(1-fy), cubicWeight(2-fy)}

	// Rows first, then down the column of row results
	val := 0.0
	for j:=0; j<4; j++ {
		row := 0.0
		for i:=0; i<4; i++ {
			v := src.Get(ix-1+i, iy-1+j)
			if o.isNoData(v) {
				return 0, false
			}
			row += wx[i] * v
		}
		val += wy[j] * row
	}
	return val, true
}

// spanEpsilon keeps source pixels whose centers sit right on the edge of
// a footprint out of it, so float noise in a 1:1 map can't pull in a
// neighbour.
const spanEpsilon = 1e-6

// span returns the source index range [lo,hi] covered by a destination
// pixel whose coordinate is `c`, given the coordinate `next` of its
// neighbour. The footprint is c +/- half the step, and a source pixel
// counts if its center falls inside it. If none does, the range is the
// nearest pixel.
func span(c, next float64) (int, int) {
	half := math.Abs(next - c) / 2
	lo := int(math.Floor(c - half + spanEpsilon)) + 1
	hi := int(math.Ceil(c + half - spanEpsilon)) - 1
	if hi < lo {
		lo = int(math.Round(c))
		hi = lo
	}
	return lo, hi
}

func sampleArea(src *emath.FloatGrid, m *CoordMap, x, y int, o Options) (float64, bool) {
	sx, sy := m.At(x, y)
	nx, _ := m.neighbour(x, y, 1, 0)
	_, ny := m.neighbour(x, y, 0, 1)

	xlo, xhi := span(sx, nx)
	ylo, yhi := span(sy, ny)

	if xlo == xhi && ylo == yhi {
		return bilinearAt(src, sx, sy, o)
	}

	clampTo := func(v, hi int) int {
		if v < 0 { return 0 }
		if v > hi { return hi }
		return v
	}
	if xhi < 0 || yhi < 0 || xlo >= src.Dx() || ylo >= src.Dy() {
		return 0, false
	}
	xlo, xhi = clampTo(xlo, src.Dx()-1), clampTo(xhi, src.Dx()-1)
	ylo, yhi = clampTo(ylo, src.Dy()-1), clampTo(yhi, src.Dy()-1)

	sum, n := 0.0, 0
	for j:=ylo; j<=yhi; j++ {
		for i:=xlo; i<=xhi; i++ {
			v := src.Get(i, j)
			if o.isNoData(v) { continue }
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
