package pyramid

import(
	"fmt"
	"image"

	"github.com/pkg/errors"

	"github.com/abworrall/tiepoint/pkg/emath"
	"github.com/abworrall/tiepoint/pkg/logger"
	"github.com/abworrall/tiepoint/pkg/raster"
	"github.com/abworrall/tiepoint/pkg/tiepoint"
)

type Params struct {
	Levels         int
	MinGoodMatches int
	RefineRadius   int // search radius once a coarser level has produced a shift

	// Generator is the finest level's setup. Threshold is the base
	// threshold, SearchRadius the radius at the coarsest level, and
	// HullRejection only ever applies at level 0.
	Generator tiepoint.Params
}

func (p Params)Validate() error {
	if p.Levels < 1 {
		return fmt.Errorf("pyramid needs at least one level, got %d", p.Levels)
	}
	if p.MinGoodMatches < 1 {
		return fmt.Errorf("min good matches must be positive, got %d", p.MinGoodMatches)
	}
	if p.RefineRadius < 0 {
		return fmt.Errorf("refine radius %d must not be negative", p.RefineRadius)
	}
	return p.Generator.Validate()
}

// LevelReport says what happened at one level of the pyramid.
type LevelReport struct {
	Level        int           `yaml:"level"`
	Reduction    int           `yaml:"reduction"`
	Threshold    float64       `yaml:"threshold"`
	SearchRadius int           `yaml:"search_radius"`
	Offset       emath.Point2D `yaml:"offset"`  // shift the searches were centered on, this level's pixels
	Chips        int           `yaml:"chips"`
	Results      int           `yaml:"results"`
	Good         int           `yaml:"good"`
	HullRejected int           `yaml:"hull_rejected"`
	Shift        emath.Point2D `yaml:"shift"`   // robust residual shift, this level's pixels
	Skipped      bool          `yaml:"skipped"`
	Retried      bool          `yaml:"retried"`
}

func (r LevelReport)String() string {
	s := fmt.Sprintf("L%d (x%d) thresh:%.3f radius:%d offset:%s, %d chips, %d/%d good",
		r.Level, r.Reduction, r.Threshold, r.SearchRadius, r.Offset, r.Chips, r.Good, r.Results)
	if r.Skipped {
		return s + ", skipped"
	}
	return s + ", shift " + r.Shift.String()
}

// Outcome is what the refiner hands back.
type Outcome struct {
	Results     []tiepoint.Result // level 0 results; the good ones carry the full shift
	Accumulated emath.Point2D     // integer shift carried down to level 0, in its pixels
	Shift       emath.Point2D     // robust shift of the final results, level 0 pixels
	Skipped     bool              // too few good final results to compute Shift
	Levels      []LevelReport     // coarsest first
}

// A Refiner runs the tie point generator over a pyramid, from coarse to
// fine, each level's search centered on the shift found by the levels
// above it.
type Refiner struct {
	svc tiepoint.Services
	lib raster.Library
	log logger.ILogger
}

func NewRefiner(svc tiepoint.Services, lib raster.Library) *Refiner {
	if svc.Log == nil {
		svc.Log = &logger.NullLogger{}
	}
	svc.Loader = lib
	return &Refiner{svc: svc, lib: lib, log: svc.Log}
}

// Run refines the scene pair at inputPath/refPath, which must have the
// same pixel grid and divide by the pyramid's biggest reduction. The
// pyramid files go into `wd`, and are gone again when Run returns.
//
// Too few good matches is not an error: a level that has them is
// skipped, and the outcome may have no good results at all.
func (r *Refiner)Run(p Params, inputPath, refPath string, wd *raster.WorkDir) (Outcome, error) {
	if err := p.Validate(); err != nil {
		return Outcome{}, err
	}

	inLevels, err := Build(r.lib, inputPath, p.Levels, wd, "input")
	if err != nil {
		return Outcome{}, errors.Wrap(err, "input pyramid")
	}
	defer Cleanup(r.lib, inLevels)

	refLevels, err := Build(r.lib, refPath, p.Levels, wd, "reference")
	if err != nil {
		return Outcome{}, errors.Wrap(err, "reference pyramid")
	}
	defer Cleanup(r.lib, refLevels)

	if inLevels[0].Meta.Cols != refLevels[0].Meta.Cols || inLevels[0].Meta.Rows != refLevels[0].Meta.Rows {
		return Outcome{}, fmt.Errorf("input is %dx%d, reference %dx%d: %w",
			inLevels[0].Meta.Cols, inLevels[0].Meta.Rows, refLevels[0].Meta.Cols, refLevels[0].Meta.Rows,
			raster.ErrWindow)
	}

	out := Outcome{}
	acc := emath.Point2D{}
	radius := p.Generator.SearchRadius
	var final []tiepoint.Result

	for L := p.Levels-1; L >= 0; L-- {
		gp := p.Generator
		gp.Threshold = p.Generator.Threshold / float64(L+1)
		gp.SearchRadius = radius
		gp.Offset = acc
		gp.HullRejection = p.Generator.HullRejection && L == 0
		red := inLevels[L].Reduction
		gp.Chip.GridOrigin = image.Point{floorDiv(p.Generator.Chip.GridOrigin.X, red), floorDiv(p.Generator.Chip.GridOrigin.Y, red)}

		rep := LevelReport{Level: L, Reduction: red, Threshold: gp.Threshold, SearchRadius: radius, Offset: acc}

		gen, err := tiepoint.GenerateFromFiles(r.svc, gp, inLevels[L].Path, refLevels[L].Path)
		if err != nil {
			return Outcome{}, errors.Wrapf(err, "pyramid level %d", L)
		}

		// At the finest level, have one more go with a looser threshold
		if L == 0 && p.Levels > 1 && gen.Good < p.MinGoodMatches {
			gp.Threshold /= 2
			r.log.Debugf("level 0: only %d good, retrying with threshold %.3f", gen.Good, gp.Threshold)
			if gen, err = tiepoint.GenerateFromFiles(r.svc, gp, inLevels[L].Path, refLevels[L].Path); err != nil {
				return Outcome{}, errors.Wrapf(err, "pyramid level %d, retry", L)
			}
			rep.Threshold = gp.Threshold
			rep.Retried = true
		}

		rep.Chips, rep.Results, rep.Good, rep.HullRejected = gen.Chips, len(gen.Results), gen.Good, gen.HullRejected
		rep.Shift, rep.Skipped = RobustAverageShift(gen.Results, refLevels[L].Meta.GSD(), p.MinGoodMatches)

		if L > 0 {
			if rep.Skipped {
				acc = acc.Scale(2)
				radius *= 2
			} else {
				acc = acc.Add(rep.Shift.Round()).Scale(2)
				radius = p.RefineRadius
			}
		} else {
			final = gen.Results
		}

		r.log.Debugf("refine: %s", rep)
		out.Levels = append(out.Levels, rep)
	}

	gsd := refLevels[0].Meta.GSD()
	tiepoint.ApplyShift(final, acc, gsd)
	out.Results = final
	out.Accumulated = acc
	out.Shift, out.Skipped = RobustAverageShift(final, gsd, p.MinGoodMatches)

	if tiepoint.CountGood(final) == 0 {
		r.log.Infof("refine: no good matches at any level")
	}
	return out, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
