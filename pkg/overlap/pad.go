package overlap

import(
	"fmt"
	"image"

	"github.com/abworrall/tiepoint/pkg/emath"
	"github.com/abworrall/tiepoint/pkg/raster"
)

// Pad grows the grid by the given amounts, filling the new cells with `fill`.
func Pad(g emath.FloatGrid, p Padding, fill float64) (emath.FloatGrid, error) {
	for _, v := range []int{p.UpperLeft.X, p.UpperLeft.Y, p.LowerRight.X, p.LowerRight.Y} {
		if v < 0 {
			return emath.FloatGrid{}, fmt.Errorf("negative padding %v", p)
		}
	}

	out := emath.NewFloatGrid(g.Dx()+p.UpperLeft.X+p.LowerRight.X, g.Dy()+p.UpperLeft.Y+p.LowerRight.Y)
	out.Fill(fill)
	out.Paste(g, p.UpperLeft.X, p.UpperLeft.Y)
	return out, nil
}

// RemovePad undoes Pad. It fails if there would be nothing left.
// image.Rect would quietly swap inverted bounds, so the sizes are
// checked before the rectangle is built.
func RemovePad(g emath.FloatGrid, p Padding) (emath.FloatGrid, error) {
	if p.UpperLeft.X < 0 || p.UpperLeft.Y < 0 || p.LowerRight.X < 0 || p.LowerRight.Y < 0 ||
		p.UpperLeft.X+p.LowerRight.X >= g.Dx() || p.UpperLeft.Y+p.LowerRight.Y >= g.Dy() {
		return emath.FloatGrid{}, fmt.Errorf("can't remove %v from %dx%d: %w", p, g.Dx(), g.Dy(), raster.ErrWindow)
	}
	r := image.Rect(p.UpperLeft.X, p.UpperLeft.Y, g.Dx()-p.LowerRight.X, g.Dy()-p.LowerRight.Y)
	return g.SubGrid(r)
}

// PadRaster pads the pixels and moves the origin to match.
func PadRaster(r raster.Raster, p Padding, fill float64) (raster.Raster, error) {
	pix, err := Pad(r.Pix, p, fill)
	if err != nil {
		return raster.Raster{}, err
	}
	meta := r.Meta.Window(image.Rect(-p.UpperLeft.X, -p.UpperLeft.Y, r.Meta.Cols+p.LowerRight.X, r.Meta.Rows+p.LowerRight.Y))
	return raster.NewRaster(meta, pix)
}

// RemovePadRaster is the inverse of PadRaster.
func RemovePadRaster(r raster.Raster, p Padding) (raster.Raster, error) {
	pix, err := RemovePad(r.Pix, p)
	if err != nil {
		return raster.Raster{}, err
	}
	meta := r.Meta.Window(image.Rect(p.UpperLeft.X, p.UpperLeft.Y, r.Meta.Cols-p.LowerRight.X, r.Meta.Rows-p.LowerRight.Y))
	return raster.NewRaster(meta, pix)
}

// Crop cuts the window `w` out of the raster.
func Crop(r raster.Raster, w image.Rectangle) (raster.Raster, error) {
	if w.Empty() || !w.In(r.Meta.Bounds()) {
		return raster.Raster{}, fmt.Errorf("crop %v of %v: %w", w, r.Meta.Bounds(), raster.ErrWindow)
	}
	pix, err := r.Pix.SubGrid(w)
	if err != nil {
		return raster.Raster{}, err
	}
	return raster.NewRaster(r.Meta.Window(w), pix)
}
