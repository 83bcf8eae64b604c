package coreg

import(
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/abworrall/tiepoint/pkg/correlate"
	"github.com/abworrall/tiepoint/pkg/emath"
	"github.com/abworrall/tiepoint/pkg/geoproj"
	"github.com/abworrall/tiepoint/pkg/logger"
	"github.com/abworrall/tiepoint/pkg/overlap"
	"github.com/abworrall/tiepoint/pkg/pyramid"
	"github.com/abworrall/tiepoint/pkg/raster"
	"github.com/abworrall/tiepoint/pkg/tiepoint"
	"github.com/abworrall/tiepoint/pkg/tiling"
	"github.com/abworrall/tiepoint/pkg/workpool"
)

// Services are the outside collaborators of a run. Projection is only
// needed when the scenes are in different projections, or for fixed
// chip locations.
type Services struct {
	Library    raster.Library
	Projection geoproj.Transformer
	Log        logger.ILogger
}

// TileReport is what happened in one tile.
type TileReport struct {
	Index   int                   `yaml:"index"`
	Core    string                `yaml:"core"`
	Region  string                `yaml:"region"`
	Good    int                   `yaml:"good"`
	Shift   emath.Point2D         `yaml:"shift"`
	Skipped bool                  `yaml:"skipped"`
	Levels  []pyramid.LevelReport `yaml:"levels"`
}

// Outcome is the result of a run.
type Outcome struct {
	RunID         string
	OverlapExists bool
	Overlap       overlap.Result
	Grid          raster.Metadata   // the aligned, padded grid that was tiled
	Results       []tiepoint.Result // good GCPs from all tiles, without duplicates
	Duplicates    int               // dropped because a neighbouring tile had them first
	Shift         emath.Point2D     // robust shift over Results, reference pixels
	ShiftSkipped  bool              // too few Results to compute Shift
	Tiles         []TileReport
}

// A Pipeline owns one validated config. It can be run more than once;
// each run gets its own scratch dir.
type Pipeline struct {
	cfg  Config
	svc  Services
	log  logger.ILogger
	pool *workpool.Pool
}

func New(cfg Config, svc Services) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if svc.Library == nil {
		return nil, configErrorf("no raster library")
	}
	if svc.Log == nil {
		svc.Log = &logger.NullLogger{}
	}
	pool, err := workpool.New(cfg.Threads, svc.Log)
	if err != nil {
		return nil, configErrorf("%v", err)
	}
	return &Pipeline{cfg: cfg, svc: svc, log: svc.Log, pool: pool}, nil
}

func (p *Pipeline)Config() Config { return p.cfg }

// aligned is the pair of scenes cut down to their common footprint, on
// the reference's pixel grid, and padded to divide by the pyramid.
type aligned struct {
	inPath, refPath string
	meta            raster.Metadata
}

// Run registers the input scene against the reference. No overlap
// between the scenes is not an error, and neither is finding no good
// matches; the outcome says so. Tiles are done one after the other, and
// any failure in one of them fails the whole run. The context is checked
// between tiles; a tile that has started always finishes.
func (p *Pipeline)Run(ctx context.Context, inputPath, refPath string) (Outcome, error) {
	wd, err := raster.NewWorkDir(p.cfg.WorkDir)
	if err != nil {
		return Outcome{}, configErrorf("%v", err)
	}
	defer func() {
		if err := wd.Cleanup(); err != nil {
			p.log.Errorf("%v", err)
		}
	}()

	out := Outcome{RunID: strings.TrimPrefix(filepath.Base(wd.Root), "tiepoint-")}
	p.log.Infof("run %s: %s against %s", out.RunID, inputPath, refPath)

	if err := ctx.Err(); err != nil {
		return out, err
	}

	al, ov, err := p.align(wd, inputPath, refPath)
	if err != nil {
		return out, err
	}
	out.Overlap = ov
	out.OverlapExists = ov.Exists
	if !ov.Exists {
		p.log.Infof("run %s: scenes don't overlap, nothing to do", out.RunID)
		return out, nil
	}
	out.Grid = al.meta

	params, err := p.refineParams()
	if err != nil {
		return out, err
	}

	tiles, err := tiling.Partition(al.meta.Cols, al.meta.Rows, p.cfg.TileSize, 2*p.cfg.ChipSize)
	if err != nil {
		return out, invariantError(err, "partition")
	}
	p.log.Infof("run %s: %dx%d aligned, %d tile(s)", out.RunID, al.meta.Cols, al.meta.Rows, len(tiles))

	refiner := pyramid.NewRefiner(tiepoint.Services{
		Log:        p.log,
		Correlator: mustCorrelator(p.cfg),
		Projection: p.svc.Projection,
		Pool:       p.pool,
	}, p.svc.Library)

	merged := []tiepoint.Result{}
	for _, tile := range tiles {
		if err := ctx.Err(); err != nil {
			return out, errors.Wrapf(err, "before tile %d", tile.Index)
		}
		rep, good, err := p.runTile(refiner, params, wd, al, tile)
		if err != nil {
			return out, errors.Wrapf(err, "tile %d", tile.Index)
		}
		out.Tiles = append(out.Tiles, rep)
		merged = append(merged, good...)
	}

	gsd := al.meta.GSD()
	out.Results, out.Duplicates = tiepoint.Dedupe(merged, gsd)
	out.Shift, out.ShiftSkipped = pyramid.RobustAverageShift(out.Results, gsd, p.cfg.MinGoodMatches)

	if out.ShiftSkipped {
		p.log.Infof("run %s: %d GCPs, too few for a shift", out.RunID, len(out.Results))
	} else {
		p.log.Infof("run %s: %d GCPs (%d dupes), shift %s px", out.RunID, len(out.Results), out.Duplicates, out.Shift)
	}
	return out, nil
}

func mustCorrelator(c Config) correlate.Correlator {
	cor, _ := c.GetCorrelator() // Validate has already checked it
	return cor
}

// align brings the input onto the reference grid, cuts both down to the
// common footprint, pads them to divide by the coarsest pyramid level's
// reduction, and saves them into the scratch dir.
func (p *Pipeline)align(wd *raster.WorkDir, inputPath, refPath string) (aligned, overlap.Result, error) {
	lib := p.svc.Library

	inMeta, err := lib.LoadMetadata(inputPath)
	if err != nil {
		return aligned{}, overlap.Result{}, errors.Wrapf(err, "load %s", inputPath)
	}
	refMeta, err := lib.LoadMetadata(refPath)
	if err != nil {
		return aligned{}, overlap.Result{}, errors.Wrapf(err, "load %s", refPath)
	}
	inMeta, refMeta = p.withNoData(inMeta), p.withNoData(refMeta)
	p.log.Debugf("input: %s", inMeta)
	p.log.Debugf("reference: %s", refMeta)

	inputPath, inMeta, err = p.prepareInput(wd, inputPath, inMeta, refMeta)
	if err != nil {
		return aligned{}, overlap.Result{}, err
	}

	ov, err := overlap.ComputeOverlap(inMeta, refMeta, overlap.MinBox)
	if err != nil {
		return aligned{}, ov, errors.Wrap(err, "overlap")
	}
	p.log.Debugf("overlap: %s", ov)
	if !ov.Exists {
		return aligned{}, ov, nil
	}

	in, err := p.loadWindow(inputPath, inMeta, ov.SubA)
	if err != nil {
		return aligned{}, ov, err
	}
	ref, err := p.loadWindow(refPath, refMeta, ov.SubB)
	if err != nil {
		return aligned{}, ov, err
	}

	// Same footprint and pixel size, so put them on the exact same grid
	in.Meta.GeoTransform = ref.Meta.GeoTransform
	in.Meta.Projection = ref.Meta.Projection

	fill := noDataFill(in.Meta, ref.Meta)
	in.Meta.NoData, ref.Meta.NoData = raster.Float64Ptr(fill), raster.Float64Ptr(fill)

	pad := overlap.PadForDivisor(ref.Meta.Cols, ref.Meta.Rows, pyramid.MaxReduction(p.cfg.PyramidLevels))
	if in, err = overlap.PadRaster(in, pad, fill); err != nil {
		return aligned{}, ov, invariantError(err, "pad input")
	}
	if ref, err = overlap.PadRaster(ref, pad, fill); err != nil {
		return aligned{}, ov, invariantError(err, "pad reference")
	}

	al := aligned{
		inPath:  wd.Path("aligned-input.tif"),
		refPath: wd.Path("aligned-reference.tif"),
		meta:    ref.Meta,
	}
	if err := raster.SaveRaster(lib, al.inPath, in); err != nil {
		return aligned{}, ov, errors.Wrap(err, "save aligned input")
	}
	if err := raster.SaveRaster(lib, al.refPath, ref); err != nil {
		return aligned{}, ov, errors.Wrap(err, "save aligned reference")
	}
	return al, ov, nil
}

func (p *Pipeline)withNoData(m raster.Metadata) raster.Metadata {
	if p.cfg.NoData != nil {
		m.NoData = raster.Float64Ptr(*p.cfg.NoData)
	}
	return m
}

// noDataFill is the value padding and gaps are filled with; the
// reference's no-data value, else the input's, else 0.
func noDataFill(in, ref raster.Metadata) float64 {
	if ref.NoData != nil {
		return *ref.NoData
	}
	return in.NoDataOr(0)
}

func (p *Pipeline)loadWindow(path string, meta raster.Metadata, w image.Rectangle) (raster.Raster, error) {
	r, err := raster.LoadRaster(p.svc.Library, path, 1, w)
	if err != nil {
		if errors.Is(err, raster.ErrWindow) {
			return r, invariantError(err, path)
		}
		return r, errors.Wrapf(err, "load %s", path)
	}
	r.Meta.NoData = meta.NoData
	return r, nil
}

func (p *Pipeline)refineParams() (pyramid.Params, error) {
	method, _ := p.cfg.GetChipMethod()
	gp := tiepoint.Params{
		Method:        method,
		Chip:          tiepoint.ChipParams{Size: p.cfg.ChipSize, GridSize: p.cfg.GridSize},
		SearchRadius:  p.cfg.SearchRadius,
		Threshold:     p.cfg.Threshold,
		HullRejection: p.cfg.HullRejection,
		HullTolerance: p.cfg.HullTolerance,
	}
	if method == tiepoint.FixedChips {
		locs, err := tiepoint.LoadFixedLocations(p.cfg.FixedLocationsFile)
		if err != nil {
			return pyramid.Params{}, err
		}
		gp.FixedLatLon = locs
	}
	return pyramid.Params{
		Levels:         p.cfg.PyramidLevels,
		MinGoodMatches: p.cfg.MinGoodMatches,
		RefineRadius:   p.cfg.RefineRadius,
		Generator:      gp,
	}, nil
}

// runTile cuts the tile's region out of both aligned scenes, pads it so
// the pyramid divides, refines it, and throws its files away.
func (p *Pipeline)runTile(refiner *pyramid.Refiner, params pyramid.Params, wd *raster.WorkDir, al aligned, tile tiling.Tile) (TileReport, []tiepoint.Result, error) {
	rep := TileReport{Index: tile.Index, Core: fmt.Sprint(tile.Core), Region: fmt.Sprint(tile.Region)}

	twd, err := wd.Sub(fmt.Sprintf("tile-%04d", tile.Index))
	if err != nil {
		return rep, nil, err
	}
	defer func() {
		if err := twd.Cleanup(); err != nil {
			p.log.Errorf("%v", err)
		}
	}()

	fill := al.meta.NoDataOr(0)
	pad := overlap.PadForDivisor(tile.Region.Dx(), tile.Region.Dy(), pyramid.MaxReduction(params.Levels))
	paths := []string{twd.Path("input.tif"), twd.Path("reference.tif")}
	for i, src := range []string{al.inPath, al.refPath} {
		r, err := p.loadWindow(src, al.meta, tile.Region)
		if err != nil {
			return rep, nil, err
		}
		if r, err = overlap.PadRaster(r, pad, fill); err != nil {
			return rep, nil, invariantError(err, "pad tile")
		}
		if err := raster.SaveRaster(p.svc.Library, paths[i], r); err != nil {
			return rep, nil, errors.Wrapf(err, "save %s", paths[i])
		}
	}

	// Chips sit on a lattice anchored on the whole grid, so the tiles'
	// overlaps produce the very same chips, which dedupe can spot
	params.Generator.Chip.GridOrigin = tile.Region.Min

	res, err := refiner.Run(params, paths[0], paths[1], twd)
	if err != nil {
		if errors.Is(err, pyramid.ErrDivisibility) {
			return rep, nil, invariantError(err, "tile pyramid")
		}
		return rep, nil, err
	}

	good := tiepoint.GoodOnly(res.Results)
	rep.Good, rep.Shift, rep.Skipped, rep.Levels = len(good), res.Shift, res.Skipped, res.Levels
	p.log.Infof("tile %d %v: %d good, shift %s", tile.Index, tile.Core, len(good), res.Shift)
	return rep, good, nil
}
