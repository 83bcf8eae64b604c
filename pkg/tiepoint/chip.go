package tiepoint

import(
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/abworrall/tiepoint/pkg/emath"
	"github.com/abworrall/tiepoint/pkg/raster"
)

type ChipMethod int

const(
	GridChips   ChipMethod = iota // a regular lattice
	SobelChips                    // strongest edge response in each grid cell
	HarrisChips                   // strongest corner response in each grid cell
	FixedChips                    // at supplied locations
)

func (m ChipMethod)String() string {
	switch m {
	case GridChips:   return "grid"
	case SobelChips:  return "sobel"
	case HarrisChips: return "harris"
	case FixedChips:  return "fixed"
	}
	return fmt.Sprintf("chipmethod(%d)", int(m))
}

func ListChipMethods() string { return "grid, sobel, harris, fixed" }

func ParseChipMethod(s string) (ChipMethod, error) {
	switch strings.ToLower(s) {
	case "grid", "":  return GridChips, nil
	case "sobel":     return SobelChips, nil
	case "harris":    return HarrisChips, nil
	case "fixed":     return FixedChips, nil
	}
	return GridChips, fmt.Errorf("no chip method named '%s'", s)
}

// A Chip is a square patch of the input scene, to be looked for in the
// reference scene.
type Chip struct {
	ID      int
	Method  ChipMethod
	Pix     emath.FloatGrid  // emptied once the chip has been correlated
	Pixel   image.Point      // top-left, in scene pixels
	Center  emath.Point2D    // map coords of the center of the center pixel
	Corners [4]emath.Point2D // map coords of the UL, UR, LR, LL corners
}

func (c Chip)String() string {
	return fmt.Sprintf("chip[%d %s @%v %s]", c.ID, c.Method, c.Pixel, c.Center)
}

// ChipParams configure all of the chip generators; each only reads the
// fields it needs.
type ChipParams struct {
	Size        int             // side, in pixels; odd, so there is a center pixel
	GridSize    int             // lattice spacing, in pixels
	GridOrigin  image.Point     // where this scene sits in a bigger frame, so lattices from neighbouring tiles line up
	Locations   []emath.Point2D // map coords in the scene's projection, for FixedChips
	NoData      *float64
	MinResponse float64         // SobelChips/HarrisChips ignore cells whose best response is below this
}

// GenerateChips builds the chips for a scene with the given method.
func GenerateChips(method ChipMethod, p ChipParams, scene raster.Raster) ([]Chip, error) {
	if p.Size < 3 || p.Size%2 == 0 {
		return nil, fmt.Errorf("chip size %d must be odd, and at least 3", p.Size)
	}
	if method != FixedChips && p.GridSize <= 0 {
		return nil, fmt.Errorf("grid size %d must be positive", p.GridSize)
	}

	var centers []image.Point
	switch method {
	case GridChips:
		centers = gridCenters(scene, p)
	case SobelChips:
		g, avg := scene.Pix.CalculateGradients()
		centers = strongestPerCell(scene, p, g, math.Max(p.MinResponse, avg))
	case HarrisChips:
		centers = strongestPerCell(scene, p, scene.Pix.HarrisResponse(0.04), math.Max(p.MinResponse, 0))
	case FixedChips:
		var err error
		if centers, err = fixedCenters(scene, p); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("no chip method %d", int(method))
	}

	chips := []Chip{}
	for _, c := range centers {
		if chip, ok := cutChip(scene, p, c); ok {
			chip.ID = len(chips)
			chip.Method = method
			chips = append(chips, chip)
		}
	}
	return chips, nil
}

// cells splits [0,n) along the lattice of `step`, offset by `origin`;
// ranges are [start,end), before clipping start is a lattice point.
func cells(n, origin, step int) [][2]int {
	first := -(((origin % step) + step) % step)
	out := [][2]int{}
	for s := first; s < n; s += step {
		out = append(out, [2]int{s, s + step})
	}
	return out
}

func gridCenters(scene raster.Raster, p ChipParams) []image.Point {
	pts := []image.Point{}
	for _, ry := range cells(scene.Meta.Rows, p.GridOrigin.Y, p.GridSize) {
		for _, rx := range cells(scene.Meta.Cols, p.GridOrigin.X, p.GridSize) {
			pts = append(pts, image.Point{rx[0] + p.GridSize/2, ry[0] + p.GridSize/2})
		}
	}
	return pts
}

// strongestPerCell picks, in each grid cell, the pixel with the largest
// response where a whole chip would fit.
func strongestPerCell(scene raster.Raster, p ChipParams, response emath.FloatGrid, floor float64) []image.Point {
	half := p.Size / 2
	fits := image.Rect(half, half, scene.Meta.Cols-half, scene.Meta.Rows-half)
	pts := []image.Point{}

	for _, ry := range cells(scene.Meta.Rows, p.GridOrigin.Y, p.GridSize) {
		for _, rx := range cells(scene.Meta.Cols, p.GridOrigin.X, p.GridSize) {
			cell := image.Rect(rx[0], ry[0], rx[1], ry[1]).Intersect(fits)
			best, bestAt := floor, image.Point{-1, -1}
			for y := cell.Min.Y; y < cell.Max.Y; y++ {
				for x := cell.Min.X; x < cell.Max.X; x++ {
					if v := response.Get(x, y); v > best {
						best, bestAt = v, image.Point{x, y}
					}
				}
			}
			if bestAt.X >= 0 {
				pts = append(pts, bestAt)
			}
		}
	}
	return pts
}

func fixedCenters(scene raster.Raster, p ChipParams) ([]image.Point, error) {
	pts := []image.Point{}
	for _, loc := range p.Locations {
		if loc.IsNaN() {
			continue
		}
		px, err := scene.Meta.MapToPixelIndex(loc)
		if err != nil {
			return nil, err
		}
		pts = append(pts, image.Point{int(math.Round(px.X)), int(math.Round(px.Y))})
	}
	return pts, nil
}

// cutChip extracts the chip centered on `c`, if it fits on the scene and
// holds no no-data pixels.
func cutChip(scene raster.Raster, p ChipParams, c image.Point) (Chip, bool) {
	half := p.Size / 2
	r := image.Rect(c.X-half, c.Y-half, c.X+half+1, c.Y+half+1)
	if !r.In(scene.Meta.Bounds()) {
		return Chip{}, false
	}
	pix, err := scene.Pix.SubGrid(r)
	if err != nil {
		return Chip{}, false
	}
	if p.NoData != nil && pix.Count(*p.NoData) > 0 {
		return Chip{}, false
	}

	m := scene.Meta
	corner := func(x, y int) emath.Point2D {
		return m.PixelToMap(emath.Point2D{X: float64(x), Y: float64(y)})
	}
	return Chip{
		Pix:    pix,
		Pixel:  r.Min,
		Center: m.PixelCenterToMap(c.X, c.Y),
		Corners: [4]emath.Point2D{
			corner(r.Min.X, r.Min.Y),
			corner(r.Max.X, r.Min.Y),
			corner(r.Max.X, r.Max.Y),
			corner(r.Min.X, r.Max.Y),
		},
	}, true
}
