package coreg

import(
	"fmt"
	"math"

	"github.com/codahale/hdrhistogram"
	"gonum.org/v1/gonum/mat"

	"github.com/abworrall/tiepoint/pkg/emath"
	"github.com/abworrall/tiepoint/pkg/tiepoint"
)

// Quantiles summarize a distribution.
type Quantiles struct {
	N   int64   `yaml:"n"`
	P50 float64 `yaml:"p50"`
	P90 float64 `yaml:"p90"`
	P99 float64 `yaml:"p99"`
	Max float64 `yaml:"max"`
}

// AffineFit is the least squares affine from input map coordinates to
// reference map coordinates, over the GCPs.
type AffineFit struct {
	GeoTransform [6]float64 `yaml:"geotransform"` // GDAL order, as applied to input map coords
	RMSE         float64    `yaml:"rmse_px"`      // residual, in reference pixels
	N            int        `yaml:"n"`
}

// A Report is the summary of a run that gets written next to the GCPs.
type Report struct {
	RunID         string        `yaml:"run_id"`
	Input         string        `yaml:"input"`
	Reference     string        `yaml:"reference"`
	OverlapExists bool          `yaml:"overlap_exists"`
	Overlap       string        `yaml:"overlap"`
	Grid          string        `yaml:"grid,omitempty"`
	GCPs          int           `yaml:"gcps"`
	Duplicates    int           `yaml:"duplicates"`
	Shift         emath.Point2D `yaml:"shift_px"`
	ShiftSkipped  bool          `yaml:"shift_skipped"`
	ShiftLength   Quantiles     `yaml:"shift_length_px"`
	Confidence    Quantiles     `yaml:"confidence"`
	Fit           *AffineFit    `yaml:"fit,omitempty"`
	Tiles         []TileReport  `yaml:"tiles"`
	Config        Config        `yaml:"config"`
}

// histogram precision: values are recorded in thousandths
const histScale = 1000.0

func quantiles(vals []float64) Quantiles {
	q := Quantiles{}
	if len(vals) == 0 {
		return q
	}
	h := hdrhistogram.New(0, 1e9, 3)
	for _, v := range vals {
		if err := h.RecordValue(int64(math.Round(math.Abs(v) * histScale))); err != nil {
			continue
		}
	}
	q.N = h.TotalCount()
	q.P50 = float64(h.ValueAtQuantile(50)) / histScale
	q.P90 = float64(h.ValueAtQuantile(90)) / histScale
	q.P99 = float64(h.ValueAtQuantile(99)) / histScale
	q.Max = float64(h.Max()) / histScale
	return q
}

// FitAffine solves, by least squares, for the affine that takes each
// result's chip center onto its match. It needs three GCPs that aren't
// all in a line.
func FitAffine(results []tiepoint.Result, gsd emath.Point2D) (AffineFit, error) {
	n := len(results)
	if n < 3 {
		return AffineFit{}, fmt.Errorf("affine fit needs 3 GCPs, have %d", n)
	}

	// Centered on the first point, to keep the normal equations well scaled
	o := results[0].Chip.Center
	a := mat.NewDense(n, 3, nil)
	b := mat.NewDense(n, 2, nil)
	for i, r := range results {
		c := r.Chip.Center.Sub(o)
		m := r.Matched.Sub(o)
		a.SetRow(i, []float64{c.X, c.Y, 1})
		b.SetRow(i, []float64{m.X, m.Y})
	}

	var x mat.Dense
	if err := x.Solve(a, b); err != nil {
		return AffineFit{}, fmt.Errorf("affine fit: %v", err)
	}

	// x holds [a b c] for X in column 0 and Y in column 1
	local := emath.Aff3{
		x.At(0, 0), x.At(1, 0), x.At(2, 0),
		x.At(0, 1), x.At(1, 1), x.At(2, 1),
	}
	if d := math.Abs(local.Det()); !(d > 1e-12) {
		return AffineFit{}, fmt.Errorf("affine fit: GCPs are degenerate")
	}
	full := emath.Identity().Translate(o.X, o.Y).Mult(local).Mult(emath.Identity().Translate(-o.X, -o.Y))

	sum := 0.0
	for _, r := range results {
		d := full.Apply(r.Chip.Center).Sub(r.Matched).Div(gsd)
		sum += d.X*d.X + d.Y*d.Y
	}

	return AffineFit{
		GeoTransform: full.GeoTransform(),
		RMSE:         math.Sqrt(sum / float64(n)),
		N:            n,
	}, nil
}

// NewReport summarizes an outcome.
func NewReport(cfg Config, inputPath, refPath string, o Outcome) Report {
	r := Report{
		RunID:         o.RunID,
		Input:         inputPath,
		Reference:     refPath,
		OverlapExists: o.OverlapExists,
		Overlap:       o.Overlap.String(),
		GCPs:          len(o.Results),
		Duplicates:    o.Duplicates,
		Shift:         o.Shift,
		ShiftSkipped:  o.ShiftSkipped,
		Tiles:         o.Tiles,
		Config:        cfg,
	}
	if !o.OverlapExists {
		return r
	}
	r.Grid = o.Grid.String()

	gsd := o.Grid.GSD()
	lens, confs := []float64{}, []float64{}
	for _, res := range o.Results {
		lens = append(lens, res.Displacement(gsd).Len())
		confs = append(confs, res.Confidence)
	}
	r.ShiftLength = quantiles(lens)
	r.Confidence = quantiles(confs)

	if fit, err := FitAffine(o.Results, gsd); err == nil {
		r.Fit = &fit
	}
	return r
}
