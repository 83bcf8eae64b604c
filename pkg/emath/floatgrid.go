package emath

import(
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
)

// A FloatGrid is a grid of floats, with some operations. It holds one
// band of pixel values.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

// NewFloatGridFromValues wraps `vals` (row-major, `w` per row) without copying.
func NewFloatGridFromValues(w, h int, vals []float64) (FloatGrid, error) {
	if w <= 0 || h <= 0 || len(vals) != w*h {
		return FloatGrid{}, fmt.Errorf("grid %dx%d needs %d values, got %d", w, h, w*h, len(vals))
	}
	return FloatGrid{stride: w, values: vals}, nil
}

func (g1 *FloatGrid)NewFromThis() FloatGrid  { return NewFloatGrid(g1.Dx(), g1.Dy()) }
func (fg *FloatGrid)Set(x, y int, v float64) { fg.values[fg.stride*y + x] = v }
func (fg *FloatGrid)Get(x, y int) float64    { return fg.values[fg.stride*y + x] }
func (fg *FloatGrid)Dx() int                 { return fg.stride }
func (fg *FloatGrid)Values() []float64       { return fg.values }
func (fg *FloatGrid)Bounds() image.Rectangle { return image.Rect(0, 0, fg.Dx(), fg.Dy()) }
func (fg *FloatGrid)In(x, y int) bool        { return x >= 0 && y >= 0 && x < fg.Dx() && y < fg.Dy() }

func (fg *FloatGrid)Dy() int {
	if fg.stride == 0 { return 0 }
	return len(fg.values) / fg.stride
}

func (fg *FloatGrid)Fill(v float64) {
	for i := range fg.values {
		fg.values[i] = v
	}
}

// SubGrid copies out the rectangle `r`, which must lie inside the grid.
func (g1 *FloatGrid)SubGrid(r image.Rectangle) (FloatGrid, error) {
	if r.Empty() || !r.In(g1.Bounds()) {
		return FloatGrid{}, fmt.Errorf("subgrid %v outside %v", r, g1.Bounds())
	}
	g2 := NewFloatGrid(r.Dx(), r.Dy())
	for y:=0; y<r.Dy(); y++ {
		row := g1.values[g1.stride*(r.Min.Y+y) + r.Min.X:]
		copy(g2.values[g2.stride*y:g2.stride*(y+1)], row[:r.Dx()])
	}
	return g2, nil
}

// Paste copies all of `src` into this grid, with its origin at (x0,y0). Parts
// that fall outside are dropped.
func (g1 *FloatGrid)Paste(src FloatGrid, x0, y0 int) {
	for y:=0; y<src.Dy(); y++ {
		for x:=0; x<src.Dx(); x++ {
			if g1.In(x0+x, y0+y) {
				g1.Set(x0+x, y0+y, src.Get(x, y))
			}
		}
	}
}

// Count returns how many cells hold exactly `v`.
func (fg *FloatGrid)Count(v float64) int {
	n := 0
	for _, val := range fg.values {
		if val == v { n++ }
	}
	return n
}

func (g1 FloatGrid)GaussianBlur() FloatGrid {
	width := g1.Dx()
	height := g1.Dy()
	g2 := g1.NewFromThis()
	if width < 2 || height < 2 {
		copy(g2.values, g1.values)
		return g2
	}

	T  := g1.NewFromThis()

	//--- X blur, build up in T
	for y:=0; y<height; y++ {
		for x:=1; x<width-1; x++ {
			t := 2.0*g1.Get(x,y)
			t += g1.Get(x-1,y)
			t += g1.Get(x+1,y)
			T.Set(x, y, t/4.0)
		}
		T.Set(0, y,       (3.0*g1.Get(0,      y) + g1.Get(1,      y)) / 4.0)
		T.Set(width-1, y, (3.0*g1.Get(width-1,y) + g1.Get(width-2,y)) / 4.0)
	}

	//--- Y blur, read from T and generate output
	for x:=0; x<width; x++ {
		for y:=1; y<height-1; y++ {
			t := 2.0*T.Get(x,y)
			t += T.Get(x,y-1)
			t += T.Get(x,y+1)
			g2.Set(x, y, t/4.0)
		}
		g2.Set(x, 0,        (3.0*T.Get(x,       0) + T.Get(x,       1)) / 4.0)
		g2.Set(x, height-1, (3.0*T.Get(x,height-1) + T.Get(x,height-2)) / 4.0)
	}

	return g2
}

// Sobel returns the horizontal and vertical Sobel derivatives. Edge
// cells are computed as if the grid were clamped, H(-1)=H(0).
func (H *FloatGrid)Sobel() (FloatGrid, FloatGrid) {
	width := H.Dx()
	height := H.Dy()
	Gx := H.NewFromThis()
	Gy := H.NewFromThis()

	clamp := func(v, hi int) int {
		if v < 0 { return 0 }
		if v > hi { return hi }
		return v
	}

	for y:=0; y<height; y++ {
		n := clamp(y-1, height-1)
		s := clamp(y+1, height-1)
		for x:=0; x<width; x++ {
			w := clamp(x-1, width-1)
			e := clamp(x+1, width-1)

			gx := (H.Get(e,n) + 2*H.Get(e,y) + H.Get(e,s)) - (H.Get(w,n) + 2*H.Get(w,y) + H.Get(w,s))
			gy := (H.Get(w,s) + 2*H.Get(x,s) + H.Get(e,s)) - (H.Get(w,n) + 2*H.Get(x,n) + H.Get(e,n))
			Gx.Set(x, y, gx/8.0)
			Gy.Set(x, y, gy/8.0)
		}
	}

	return Gx, Gy
}

// CalculateGradients returns the Sobel gradient magnitude, and its mean
// over the grid.
func (H *FloatGrid)CalculateGradients() (FloatGrid, float64) {
	Gx, Gy := H.Sobel()
	G := H.NewFromThis()
	avgGrad := 0.0

	for i := range G.values {
		gx, gy := Gx.values[i], Gy.values[i]
		G.values[i] = math.Sqrt(gx*gx + gy*gy)
		avgGrad += G.values[i]
	}

	if len(G.values) == 0 { return G, 0 }
	return G, (avgGrad / float64(len(G.values)))
}

// HarrisResponse computes the Harris corner measure det(M) - k*trace(M)^2,
// where M is the structure tensor of Sobel gradients smoothed with two
// passes of GaussianBlur.
func (H *FloatGrid)HarrisResponse(k float64) FloatGrid {
	Gx, Gy := H.Sobel()
	Ixx := H.NewFromThis()
	Iyy := H.NewFromThis()
	Ixy := H.NewFromThis()

	for i := range Gx.values {
		gx, gy := Gx.values[i], Gy.values[i]
		Ixx.values[i] = gx*gx
		Iyy.values[i] = gy*gy
		Ixy.values[i] = gx*gy
	}

	Ixx = Ixx.GaussianBlur().GaussianBlur()
	Iyy = Iyy.GaussianBlur().GaussianBlur()
	Ixy = Ixy.GaussianBlur().GaussianBlur()

	R := H.NewFromThis()
	for i := range R.values {
		a, b, c := Ixx.values[i], Iyy.values[i], Ixy.values[i]
		tr := a + b
		R.values[i] = (a*b - c*c) - k*tr*tr
	}
	return R
}

// FindMaxMinAtPercentile returns the values found at the two
// percentiles (0.0-1.0), skipping cells that hold the no-data value.
func (I *FloatGrid)FindMaxMinAtPercentile(minPrct, maxPrct float64, noData *float64) (float64, float64) {
	vI := []float64{}

	for i:=0 ; i<len(I.values) ; i++ {
		val := I.values[i]
		if noData != nil && val == *noData { continue }
		if math.IsNaN(val) { continue }
		vI = append(vI, val)
	}

	if len(vI) == 0 { return 0, 0 }
	sort.Float64s(vI)

	iMin := int(minPrct * float64(len(vI)))
	iMax := int(maxPrct * float64(len(vI)))
	if iMin < 0        { iMin = 0 }
	if iMax >= len(vI) { iMax = len(vI)-1 }

	return vI[iMin], vI[iMax]
}

// ToImage stretches the grid into an 8-bit gray image between the 1st and
// 99th percentiles, gamma scaling the gray to look normal for human vision.
// No-data cells come out black.
func (fg *FloatGrid)ToImage(noData *float64) *image.RGBA {
	min, max := fg.FindMaxMinAtPercentile(0.01, 0.99, noData)
	if max <= min { max = min + 1 }

	img := image.NewRGBA(image.Rectangle{Max:image.Point{fg.Dx(), fg.Dy()}})
	for y:=0; y<fg.Dy(); y++ {
		for x:=0; x<fg.Dx(); x++ {
			lum := fg.Get(x,y)
			if noData != nil && lum == *noData {
				img.Set(x, y, color.RGBA{0, 0, 0, 0xFF})
				continue
			}
			f := (lum - min) / (max - min)
			if f < 0 { f = 0 }
			if f > 1 { f = 1 }
			gray := uint8(GammaExpand_F64(f) * 255.0)
			img.Set(x, y, color.RGBA{gray, gray, gray, 0xFF})
		}
	}
	return img
}

// ToImg saves the grid as a grayscale PNG, with a title
func (fg *FloatGrid)ToImg(title, filename string, noData *float64) error {
	dc := gg.NewContextForImage(fg.ToImage(noData))
	dc.SetRGB(1, 0.2, 0.2)
	dc.DrawString(title, 10, 20)
	return dc.SavePNG(filename)
}
