// Package overlap works out the common pixel grid of two geo-referenced
// rasters, and pads or crops them onto it.
package overlap

import(
	"fmt"
	"image"
	"math"

	"github.com/abworrall/tiepoint/pkg/raster"
)

type Mode int

const(
	MinBox Mode = iota // intersection
	MaxBox             // union
)

func (m Mode)String() string {
	if m == MaxBox { return "maxbox" }
	return "minbox"
}

// Padding is how many pixels to add on each side; X counts columns, Y rows.
type Padding struct {
	UpperLeft  image.Point
	LowerRight image.Point
}

func (p Padding)IsZero() bool {
	return p.UpperLeft == image.Point{} && p.LowerRight == image.Point{}
}

// A Result says which window of each raster to read, and how to pad each
// window, so that both end up on the same pixel grid.
type Result struct {
	SubA, SubB image.Rectangle
	PadA, PadB Padding
	Exists     bool // false if the rasters don't intersect
}

func (r Result)String() string {
	if !r.Exists {
		return "no overlap"
	}
	return fmt.Sprintf("A%v pad%v, B%v pad%v", r.SubA, r.PadA, r.SubB, r.PadB)
}

// sameGSD compares pixel sizes to within a millionth of a pixel.
func sameGSD(a, b raster.Metadata) bool {
	ga, gb := a.GSD(), b.GSD()
	return math.Abs(ga.X-gb.X) <= 1e-6*math.Abs(ga.X) && math.Abs(ga.Y-gb.Y) <= 1e-6*math.Abs(ga.Y)
}

// ComputeOverlap puts both origins into pixel units of A's pixel size
// (which B must share), and takes either the intersection or the union of
// the two footprints. Sub-pixel differences between the origins are
// rounded away. No overlap is not an error; see Result.Exists.
func ComputeOverlap(a, b raster.Metadata, mode Mode) (Result, error) {
	res := Result{}
	if !sameGSD(a, b) {
		return res, fmt.Errorf("overlap needs a shared gsd, got %s and %s", a.GSD(), b.GSD())
	}
	for _, m := range []raster.Metadata{a, b} {
		if m.GeoTransform[2] != 0 || m.GeoTransform[4] != 0 {
			return res, fmt.Errorf("overlap needs north-up rasters, geotransform %v", m.GeoTransform)
		}
	}

	gsd := a.GSD()
	dx := int(math.Round((b.Origin().X - a.Origin().X) / gsd.X))
	dy := int(math.Round((b.Origin().Y - a.Origin().Y) / gsd.Y))

	// All in A's pixel frame from here on
	boxA := image.Rect(0, 0, a.Cols, a.Rows)
	boxB := image.Rect(dx, dy, dx+b.Cols, dy+b.Rows)
	inter := boxA.Intersect(boxB)
	res.Exists = !inter.Empty()

	switch mode {
	case MinBox:
		if !res.Exists {
			return res, nil
		}
		res.SubA = inter
		res.SubB = inter.Sub(image.Point{dx, dy})

	case MaxBox:
		union := boxA.Union(boxB)
		res.SubA = a.Bounds()
		res.SubB = b.Bounds()
		res.PadA = Padding{
			UpperLeft:  boxA.Min.Sub(union.Min),
			LowerRight: union.Max.Sub(boxA.Max),
		}
		res.PadB = Padding{
			UpperLeft:  boxB.Min.Sub(union.Min),
			LowerRight: union.Max.Sub(boxB.Max),
		}

	default:
		return res, fmt.Errorf("unknown overlap mode %d", int(mode))
	}

	return res, nil
}

// PadForDivisor returns the lower-right padding that makes cols and rows
// multiples of `div`.
func PadForDivisor(cols, rows, div int) Padding {
	up := func(v int) int {
		if r := v % div; r != 0 {
			return div - r
		}
		return 0
	}
	return Padding{LowerRight: image.Point{up(cols), up(rows)}}
}
