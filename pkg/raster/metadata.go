package raster

import(
	"fmt"
	"image"

	"github.com/abworrall/tiepoint/pkg/emath"
)

// Metadata describes a geo-referenced raster. It is never changed
// once read; the methods that adjust it return copies.
type Metadata struct {
	Rows         int        `yaml:"rows"`
	Cols         int        `yaml:"cols"`
	GeoTransform [6]float64 `yaml:"geotransform"` // [x0, dx, rx, y0, ry, dy], as GDAL
	Projection   string     `yaml:"projection"`
	BitsPerPixel int        `yaml:"bitsperpixel"`
	Bands        int        `yaml:"bands"`
	NoData       *float64   `yaml:"nodata,omitempty"`
}

// DefaultGeoTransform maps pixels 1:1 onto map units, as GDAL does for
// rasters with no geo-referencing.
var DefaultGeoTransform = [6]float64{0, 1, 0, 0, 0, 1}

func (m Metadata)String() string {
	nd := "none"
	if m.NoData != nil { nd = fmt.Sprintf("%g", *m.NoData) }
	return fmt.Sprintf("%dx%d, %d band(s) @%dbpp, gsd%s, origin%s, nodata:%s",
		m.Cols, m.Rows, m.Bands, m.BitsPerPixel, m.GSD(), m.Origin(), nd)
}

// GSD returns the pixel size; X is the column size, Y the row size
// (negative for north-up rasters).
func (m Metadata)GSD() emath.Point2D     { return emath.Point2D{X: m.GeoTransform[1], Y: m.GeoTransform[5]} }
func (m Metadata)Origin() emath.Point2D  { return emath.Point2D{X: m.GeoTransform[0], Y: m.GeoTransform[3]} }
func (m Metadata)Affine() emath.Aff3     { return emath.FromGeoTransform(m.GeoTransform) }
func (m Metadata)Bounds() image.Rectangle { return image.Rect(0, 0, m.Cols, m.Rows) }

// PixelToMap maps a continuous pixel coordinate (pixel corners on
// integers) to map coordinates.
func (m Metadata)PixelToMap(p emath.Point2D) emath.Point2D {
	return m.Affine().Apply(p)
}

// PixelCenterToMap gives the map coordinate of the center of pixel (x,y).
func (m Metadata)PixelCenterToMap(x, y int) emath.Point2D {
	return m.PixelToMap(emath.Point2D{X: float64(x) + 0.5, Y: float64(y) + 0.5})
}

// MapToPixel is the inverse of PixelToMap.
func (m Metadata)MapToPixel(p emath.Point2D) (emath.Point2D, error) {
	inv, err := m.Affine().Invert()
	if err != nil {
		return emath.Point2D{}, err
	}
	return inv.Apply(p), nil
}

// MapToPixelIndex returns the continuous coordinate in pixel-index
// units, where (x,y) is the center of pixel (x,y).
func (m Metadata)MapToPixelIndex(p emath.Point2D) (emath.Point2D, error) {
	px, err := m.MapToPixel(p)
	if err != nil {
		return px, err
	}
	return px.Sub(emath.Point2D{X: 0.5, Y: 0.5}), nil
}

// Window returns the metadata of the sub-raster `r`; the origin moves,
// the pixel size stays.
func (m Metadata)Window(r image.Rectangle) Metadata {
	o := m.PixelToMap(emath.Point2D{X: float64(r.Min.X), Y: float64(r.Min.Y)})
	w := m
	w.Cols = r.Dx()
	w.Rows = r.Dy()
	w.GeoTransform[0] = o.X
	w.GeoTransform[3] = o.Y
	return w
}

// Resized returns the metadata for the same footprint sampled onto a
// cols x rows grid.
func (m Metadata)Resized(cols, rows int) Metadata {
	sx := float64(m.Cols) / float64(cols)
	sy := float64(m.Rows) / float64(rows)
	r := m
	r.Cols, r.Rows = cols, rows
	r.GeoTransform[1] *= sx
	r.GeoTransform[2] *= sy
	r.GeoTransform[4] *= sx
	r.GeoTransform[5] *= sy
	return r
}

// Reduced returns the metadata of the raster shrunk by an integer factor
// in both dimensions; the footprint is unchanged if the dimensions divide.
func (m Metadata)Reduced(factor int) Metadata {
	r := m
	r.Cols, r.Rows = m.Cols/factor, m.Rows/factor
	for _, i := range []int{1, 2, 4, 5} {
		r.GeoTransform[i] *= float64(factor)
	}
	return r
}

// NoDataOr returns the no-data value, or `def` if there isn't one.
func (m Metadata)NoDataOr(def float64) float64 {
	if m.NoData == nil { return def }
	return *m.NoData
}

func (m Metadata)Validate() error {
	if m.Rows <= 0 || m.Cols <= 0 {
		return fmt.Errorf("bad dimensions %dx%d", m.Cols, m.Rows)
	}
	if m.Affine().Det() == 0 {
		return fmt.Errorf("singular geotransform %v", m.GeoTransform)
	}
	return nil
}

// A Raster is one band of pixels, plus the metadata that places it.
type Raster struct {
	Meta Metadata
	Pix  emath.FloatGrid
}

func NewRaster(meta Metadata, pix emath.FloatGrid) (Raster, error) {
	if pix.Dx() != meta.Cols || pix.Dy() != meta.Rows {
		return Raster{}, fmt.Errorf("pixels are %dx%d, metadata says %dx%d", pix.Dx(), pix.Dy(), meta.Cols, meta.Rows)
	}
	return Raster{Meta: meta, Pix: pix}, nil
}

// IsNoData reports whether v is this raster's no-data value.
func (r Raster)IsNoData(v float64) bool {
	return r.Meta.NoData != nil && v == *r.Meta.NoData
}

// Float64Ptr is a helper for building optional no-data values.
func Float64Ptr(f float64) *float64 { return &f }
