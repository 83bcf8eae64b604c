package resample

import(
	"fmt"
	"math"

	"github.com/abworrall/tiepoint/pkg/emath"
	"github.com/abworrall/tiepoint/pkg/geoproj"
	"github.com/abworrall/tiepoint/pkg/raster"
)

// A CoordMap gives, for each destination pixel, the source coordinate to
// sample, in pixel-index units (integers are pixel centers). A NaN entry
// means "leave this destination pixel alone".
type CoordMap struct {
	Cols, Rows int
	X, Y       []float64
}

func NewCoordMap(cols, rows int) CoordMap {
	return CoordMap{
		Cols: cols,
		Rows: rows,
		X: make([]float64, cols*rows),
		Y: make([]float64, cols*rows),
	}
}

func (m *CoordMap)At(x, y int) (float64, float64) {
	i := y*m.Cols + x
	return m.X[i], m.Y[i]
}

func (m *CoordMap)Set(x, y int, sx, sy float64) {
	i := y*m.Cols + x
	m.X[i], m.Y[i] = sx, sy
}

func (m *CoordMap)SetNaN(x, y int) {
	m.Set(x, y, math.NaN(), math.NaN())
}

func (m *CoordMap)IsNaN(x, y int) bool {
	sx, sy := m.At(x, y)
	return math.IsNaN(sx) || math.IsNaN(sy)
}

func (m CoordMap)Validate() error {
	if m.Cols < 0 || m.Rows < 0 || len(m.X) != m.Cols*m.Rows || len(m.Y) != m.Cols*m.Rows {
		return fmt.Errorf("coordinate map %dx%d has %d/%d entries", m.Cols, m.Rows, len(m.X), len(m.Y))
	}
	return nil
}

// neighbour returns the coordinate of the pixel at (x+dx, y+dy). Past the
// last row/col (or next to a NaN) it extrapolates from the other side, and
// failing that assumes a unit step.
func (m *CoordMap)neighbour(x, y, dx, dy int) (float64, float64) {
	sx, sy := m.At(x, y)
	nx, ny := x+dx, y+dy
	if nx < m.Cols && ny < m.Rows && !m.IsNaN(nx, ny) {
		return m.At(nx, ny)
	}
	px, py := x-dx, y-dy
	if px >= 0 && py >= 0 && !m.IsNaN(px, py) {
		qx, qy := m.At(px, py)
		return 2*sx - qx, 2*sy - qy
	}
	return sx + float64(dx), sy + float64(dy)
}

// IdentityMap maps each pixel onto itself.
func IdentityMap(cols, rows int) CoordMap {
	m := NewCoordMap(cols, rows)
	for y:=0; y<rows; y++ {
		for x:=0; x<cols; x++ {
			m.Set(x, y, float64(x), float64(y))
		}
	}
	return m
}

// ScaleMap covers the same footprint at a different size: the edges of
// the two grids line up, so pixel centers map as (i+0.5)*s - 0.5.
func ScaleMap(srcCols, srcRows, dstCols, dstRows int) CoordMap {
	m := NewCoordMap(dstCols, dstRows)
	if dstCols == 0 || dstRows == 0 {
		return m
	}
	sx := float64(srcCols) / float64(dstCols)
	sy := float64(srcRows) / float64(dstRows)
	for y:=0; y<dstRows; y++ {
		for x:=0; x<dstCols; x++ {
			m.Set(x, y, (float64(x)+0.5)*sx - 0.5, (float64(y)+0.5)*sy - 0.5)
		}
	}
	return m
}

// ReprojectionMap builds the map that pulls a raster described by `src`
// onto the grid `dst`, which may be in another projection. Destination
// pixels that land outside the source are NaN.
func ReprojectionMap(src, dst raster.Metadata, t geoproj.Transformer) (CoordMap, error) {
	m := NewCoordMap(dst.Cols, dst.Rows)
	inv, err := src.Affine().Invert()
	if err != nil {
		return m, fmt.Errorf("source transform: %v", err)
	}

	row := make([]emath.Point2D, dst.Cols)
	for y:=0; y<dst.Rows; y++ {
		for x:=0; x<dst.Cols; x++ {
			row[x] = dst.PixelCenterToMap(x, y)
		}
		pts, err := t.Transform(dst.Projection, src.Projection, row)
		if err != nil {
			return m, err
		}
		for x, p := range pts {
			if p.IsNaN() {
				m.SetNaN(x, y)
				continue
			}
			px := inv.Apply(p).Sub(emath.Point2D{X: 0.5, Y: 0.5})
			if px.X < -0.5 || px.Y < -0.5 || px.X > float64(src.Cols)-0.5 || px.Y > float64(src.Rows)-0.5 {
				m.SetNaN(x, y)
				continue
			}
			m.Set(x, y, px.X, px.Y)
		}
	}
	return m, nil
}

// Reproject resamples `src` onto the grid `dst`. Pixels outside the
// source footprint get the no-data value, which is src's, or 0.
func Reproject(src raster.Raster, dst raster.Metadata, t geoproj.Transformer, method Method) (raster.Raster, error) {
	m, err := ReprojectionMap(src.Meta, dst, t)
	if err != nil {
		return raster.Raster{}, err
	}

	nd := raster.Float64Ptr(src.Meta.NoDataOr(0))
	pix, err := Resample(src.Pix, m, method, Options{SrcNoData: src.Meta.NoData, DstNoData: nd})
	if err != nil {
		return raster.Raster{}, err
	}

	meta := dst
	meta.NoData = nd
	meta.Bands = 1
	meta.BitsPerPixel = src.Meta.BitsPerPixel
	return raster.NewRaster(meta, pix)
}

// Rescale resamples `src` so its pixel size becomes exactly `gsd`, with
// the same origin. The footprint is rounded to whole pixels of the new
// size; output pixels whose centers fall past the source's far edge get
// the no-data value.
func Rescale(src raster.Raster, gsd emath.Point2D, method Method) (raster.Raster, error) {
	cur := src.Meta.GSD()
	if gsd.X == 0 || gsd.Y == 0 || cur.X == 0 || cur.Y == 0 {
		return raster.Raster{}, fmt.Errorf("rescale %s to gsd %s: zero pixel size", src.Meta, gsd)
	}
	stepX, stepY := math.Abs(gsd.X/cur.X), math.Abs(gsd.Y/cur.Y)
	cols := int(math.Round(float64(src.Meta.Cols) / stepX))
	rows := int(math.Round(float64(src.Meta.Rows) / stepY))
	if cols < 1 || rows < 1 {
		return raster.Raster{}, fmt.Errorf("rescale %s to gsd %s leaves nothing", src.Meta, gsd)
	}

	maxX, maxY := float64(src.Meta.Cols)-0.5, float64(src.Meta.Rows)-0.5
	m := NewCoordMap(cols, rows)
	for y:=0; y<rows; y++ {
		for x:=0; x<cols; x++ {
			sx, sy := (float64(x)+0.5)*stepX - 0.5, (float64(y)+0.5)*stepY - 0.5
			if sx > maxX+1e-9 || sy > maxY+1e-9 {
				m.SetNaN(x, y)
				continue
			}
			m.Set(x, y, sx, sy)
		}
	}

	pix, err := Resample(src.Pix, m, method, Options{SrcNoData: src.Meta.NoData, DstNoData: src.Meta.NoData})
	if err != nil {
		return raster.Raster{}, err
	}

	meta := src.Meta
	meta.Cols, meta.Rows = cols, rows
	meta.GeoTransform[1] = math.Copysign(math.Abs(gsd.X), cur.X)
	meta.GeoTransform[5] = math.Copysign(math.Abs(gsd.Y), cur.Y)
	meta.GeoTransform[2] *= stepY
	meta.GeoTransform[4] *= stepX
	return raster.NewRaster(meta, pix)
}
