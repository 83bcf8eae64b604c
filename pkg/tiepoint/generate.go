// Package tiepoint finds candidate GCPs between an input scene and a
// reference scene that already share a pixel grid: it cuts chips from the
// input, looks for each one in the reference, and filters the matches.
package tiepoint

import(
	"fmt"
	"image"
	"math"

	"github.com/pkg/errors"

	"github.com/abworrall/tiepoint/pkg/correlate"
	"github.com/abworrall/tiepoint/pkg/emath"
	"github.com/abworrall/tiepoint/pkg/geoproj"
	"github.com/abworrall/tiepoint/pkg/logger"
	"github.com/abworrall/tiepoint/pkg/raster"
	"github.com/abworrall/tiepoint/pkg/workpool"
)

// Services are the collaborators a generator is handed; it keeps none of
// them beyond the call.
type Services struct {
	Log        logger.ILogger
	Loader     raster.Loader
	Correlator correlate.Correlator
	Projection geoproj.Transformer // only needed for FixedChips with lat/lon locations
	Pool       *workpool.Pool
}

type Params struct {
	Method ChipMethod
	Chip   ChipParams

	// FixedLatLon holds WGS84 (lat,lon) pairs; when set they are projected
	// into the input scene and replace Chip.Locations.
	FixedLatLon []emath.Point2D

	SearchRadius  int           // pixels of slack around the expected position, each way
	Threshold     float64       // matches scoring below this are kept, but marked bad
	HullRejection bool
	HullTolerance float64       // pixels
	Offset        emath.Point2D // expected displacement, in pixels; searches are centered on it
}

func (p Params)Validate() error {
	if p.Chip.Size < 3 || p.Chip.Size%2 == 0 {
		return fmt.Errorf("chip size %d must be odd, and at least 3", p.Chip.Size)
	}
	if p.SearchRadius < 0 {
		return fmt.Errorf("search radius %d must not be negative", p.SearchRadius)
	}
	if !(p.Threshold > 0 && p.Threshold <= 1) {
		return fmt.Errorf("threshold %g must be in (0,1]", p.Threshold)
	}
	if p.HullTolerance < 0 {
		return fmt.Errorf("hull tolerance %g must not be negative", p.HullTolerance)
	}
	if p.Offset.IsNaN() {
		return fmt.Errorf("offset is NaN")
	}
	return nil
}

// Output is everything one pass of the generator learned.
type Output struct {
	Results      []Result
	Chips        int
	Duplicates   int
	HullRejected int
	Good         int
}

func (o Output)String() string {
	return fmt.Sprintf("%d chips, %d results (%d good), %d dupes, %d outside hull",
		o.Chips, len(o.Results), o.Good, o.Duplicates, o.HullRejected)
}

// GenerateFromFiles loads band 1 of both scenes, and runs Generate.
func GenerateFromFiles(svc Services, p Params, inputPath, refPath string) (Output, error) {
	if svc.Loader == nil {
		return Output{}, fmt.Errorf("no raster loader")
	}
	input, err := raster.LoadAll(svc.Loader, inputPath)
	if err != nil {
		return Output{}, errors.Wrapf(err, "load input %s", inputPath)
	}
	ref, err := raster.LoadAll(svc.Loader, refPath)
	if err != nil {
		return Output{}, errors.Wrapf(err, "load reference %s", refPath)
	}
	return Generate(svc, p, input, ref)
}

// Generate cuts chips from `input` and correlates each one against
// `reference`, in parallel over the pool. The scenes must share a
// projection and a GSD. No chips is not an error; the output is empty.
func Generate(svc Services, p Params, input, reference raster.Raster) (Output, error) {
	if err := p.Validate(); err != nil {
		return Output{}, err
	}
	if svc.Correlator == nil || svc.Pool == nil {
		return Output{}, fmt.Errorf("generator needs a correlator and a pool")
	}
	log := svc.Log
	if log == nil {
		log = &logger.NullLogger{}
	}

	if !geoproj.Same(input.Meta.Projection, reference.Meta.Projection) {
		return Output{}, fmt.Errorf("scenes are in different projections")
	}
	gsd := reference.Meta.GSD()
	if !sameGSD(input.Meta.GSD(), gsd) {
		return Output{}, fmt.Errorf("scenes have different GSDs: %s vs %s", input.Meta.GSD(), gsd)
	}

	if p.Chip.NoData == nil {
		p.Chip.NoData = input.Meta.NoData
	}
	if len(p.FixedLatLon) > 0 {
		if svc.Projection == nil || input.Meta.Projection == "" {
			return Output{}, fmt.Errorf("lat/lon chip locations need a projected input scene")
		}
		locs, err := geoproj.LatLonToMap(svc.Projection, input.Meta.Projection, p.FixedLatLon)
		if err != nil {
			return Output{}, errors.Wrap(err, "project chip locations")
		}
		p.Chip.Locations = locs
	}

	chips, err := GenerateChips(p.Method, p.Chip, input)
	if err != nil {
		return Output{}, errors.Wrap(err, "generate chips")
	}
	out := Output{Chips: len(chips)}
	if len(chips) == 0 {
		log.Infof("no %s chips in %s", p.Method, input.Meta)
		out.Results = []Result{}
		return out, nil
	}

	noData := reference.Meta.NoData
	if noData == nil {
		noData = p.Chip.NoData
	}

	results := make([]Result, len(chips))
	svc.Pool.Run(fmt.Sprintf("correlate %d %s chips", len(chips), p.Method), len(chips), func(i int) {
		results[i] = correlateChip(svc.Correlator, p, chips[i], reference, noData)
	})

	out.Results, out.Duplicates = Dedupe(results, gsd)
	if p.HullRejection {
		out.HullRejected = RejectOutsideHull(out.Results, gsd, p.HullTolerance)
	}
	out.Good = CountGood(out.Results)

	log.Debugf("generate: %s", out)
	return out, nil
}

func sameGSD(a, b emath.Point2D) bool {
	return math.Abs(a.X-b.X) <= 1e-6*math.Abs(b.X) && math.Abs(a.Y-b.Y) <= 1e-6*math.Abs(b.Y)
}

// correlateChip looks for the chip in a search window of the reference,
// centered where p.Offset says it should be. The reported match has
// p.Offset taken back out, so results from different passes can be
// compared in the same frame. The chip's pixels are dropped afterwards.
func correlateChip(c correlate.Correlator, p Params, chip Chip, ref raster.Raster, noData *float64) (res Result) {
	res = Result{Chip: chip, Matched: emath.NaNPoint()}
	for i := range res.Corners {
		res.Corners[i] = emath.NaNPoint()
	}
	defer func() { res.Chip.Pix = emath.FloatGrid{} }()

	exp, err := ref.Meta.MapToPixelIndex(chip.Center)
	if err != nil || exp.IsNaN() {
		return res
	}
	at := exp.Add(p.Offset).Round()
	cx, cy := int(at.X), int(at.Y)
	half := p.Chip.Size/2 + p.SearchRadius
	win := image.Rect(cx-half, cy-half, cx+half+1, cy+half+1)
	if !win.In(ref.Meta.Bounds()) {
		return res
	}
	search, err := ref.Pix.SubGrid(win)
	if err != nil {
		return res
	}

	m := c.Correlate(chip.Pix, search, p.Threshold, noData)
	res.Confidence = m.Confidence
	if m.Offset.IsNaN() {
		return res
	}

	idx := at.Add(m.Offset).Sub(p.Offset)
	res.Matched = ref.Meta.PixelToMap(idx.Add(emath.Point2D{X: 0.5, Y: 0.5}))
	moved := res.Matched.Sub(chip.Center)
	for i := range res.Corners {
		res.Corners[i] = chip.Corners[i].Add(moved)
	}
	res.Good = m.OK
	return res
}
