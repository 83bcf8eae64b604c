package coreg

import(
	"image"
	"math"

	"github.com/pkg/errors"

	"github.com/abworrall/tiepoint/pkg/emath"
	"github.com/abworrall/tiepoint/pkg/geoproj"
	"github.com/abworrall/tiepoint/pkg/raster"
	"github.com/abworrall/tiepoint/pkg/resample"
)

// prepareInput returns a version of the input scene with the reference's
// projection and pixel size. If it already has both it is returned as
// is; otherwise it is reprojected or rescaled into the scratch dir.
func (p *Pipeline)prepareInput(wd *raster.WorkDir, path string, in, ref raster.Metadata) (string, raster.Metadata, error) {
	method, _ := p.cfg.GetResampler()

	sameProj := geoproj.Same(in.Projection, ref.Projection)
	if sameProj && sameGSD(in.GSD(), ref.GSD()) {
		return path, in, nil
	}

	src, err := raster.LoadAll(p.svc.Library, path)
	if err != nil {
		return "", in, errors.Wrapf(err, "load %s", path)
	}
	src.Meta.NoData = in.NoData

	var out raster.Raster
	if !sameProj {
		if p.svc.Projection == nil {
			return "", in, configErrorf("scenes are in different projections, and there is no transformer")
		}
		grid, err := ReprojectedGrid(p.svc.Projection, in, ref)
		if err != nil {
			return "", in, errors.Wrap(err, "reprojected grid")
		}
		p.log.Infof("reprojecting input onto %s (%s)", grid, method)
		if out, err = resample.Reproject(src, grid, p.svc.Projection, method); err != nil {
			return "", in, errors.Wrap(err, "reproject")
		}
	} else {
		p.log.Infof("rescaling input from gsd %s to %s (%s)", in.GSD(), ref.GSD(), method)
		if out, err = resample.Rescale(src, ref.GSD(), method); err != nil {
			return "", in, errors.Wrap(err, "rescale")
		}
	}

	outPath := wd.Path("prepared-input.tif")
	if err := raster.SaveRaster(p.svc.Library, outPath, out); err != nil {
		return "", in, errors.Wrap(err, "save prepared input")
	}
	return outPath, out.Meta, nil
}

func sameGSD(a, b emath.Point2D) bool {
	return math.Abs(a.X-b.X) <= 1e-6*math.Abs(b.X) && math.Abs(a.Y-b.Y) <= 1e-6*math.Abs(b.Y)
}

// edgeSamples is how many points along each edge of a scene are used to
// find its footprint in another projection.
const edgeSamples = 16

// ReprojectedGrid finds the part of the reference's pixel grid (extended
// past its edges as needed) that covers the footprint of `in`.
func ReprojectedGrid(t geoproj.Transformer, in, ref raster.Metadata) (raster.Metadata, error) {
	pts := []emath.Point2D{}
	w, h := float64(in.Cols), float64(in.Rows)
	for i:=0; i<=edgeSamples; i++ {
		f := float64(i) / edgeSamples
		for _, px := range []emath.Point2D{{X: f * w, Y: 0}, {X: f * w, Y: h}, {X: 0, Y: f * h}, {X: w, Y: f * h}} {
			pts = append(pts, in.PixelToMap(px))
		}
	}

	mapped, err := t.Transform(in.Projection, ref.Projection, pts)
	if err != nil {
		return raster.Metadata{}, err
	}

	inv, err := ref.Affine().Invert()
	if err != nil {
		return raster.Metadata{}, err
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, m := range mapped {
		if m.IsNaN() {
			continue
		}
		px := inv.Apply(m)
		minX, maxX = math.Min(minX, px.X), math.Max(maxX, px.X)
		minY, maxY = math.Min(minY, px.Y), math.Max(maxY, px.Y)
	}
	if math.IsInf(minX, 1) {
		return raster.Metadata{}, errors.New("input footprint doesn't project into the reference")
	}

	r := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
	grid := ref.Window(r)
	grid.NoData = in.NoData
	grid.Bands = 1
	return grid, nil
}
