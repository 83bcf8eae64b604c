// Package correlate finds where a small template block sits inside a
// larger search block, to sub-pixel precision.
package correlate

import(
	"fmt"
	"math"
	"strings"

	"github.com/abworrall/tiepoint/pkg/emath"
)

type Technique int

const(
	NCC   Technique = iota // area based, normalized cross correlation
	Phase                  // Fourier domain phase correlation
)

func (t Technique)String() string {
	if t == Phase { return "phase" }
	return "ncc"
}

func ParseTechnique(s string) (Technique, error) {
	switch strings.ToLower(s) {
	case "ncc", "area": return NCC, nil
	case "phase", "fft": return Phase, nil
	}
	return NCC, fmt.Errorf("no correlator named '%s'", s)
}

// A Match is the outcome of one correlation. Offset is where the
// template's best match sits, relative to the template being centered
// in the search block; X is columns, Y rows. When no position could be
// scored, or the best one is on the edge of the search block, Offset is
// NaN.
type Match struct {
	OK         bool
	Offset     emath.Point2D
	Confidence float64
}

func (m Match)String() string {
	return fmt.Sprintf("match[ok:%v %s conf:%.3f]", m.OK, m.Offset, m.Confidence)
}

// A Correlator compares a template against a search block at least as
// big. Matches below `threshold` come back with OK false. Implementations
// hold no state and are safe for concurrent use.
type Correlator interface {
	Correlate(template, search emath.FloatGrid, threshold float64, noData *float64) Match
}

func New(t Technique) Correlator {
	if t == Phase {
		return PhaseCorrelator{}
	}
	return AreaCorrelator{}
}

// centerOffset is where the template's top-left sits when centered.
func centerOffset(template, search *emath.FloatGrid) (int, int) {
	return (search.Dx() - template.Dx()) / 2, (search.Dy() - template.Dy()) / 2
}

func hasNoData(g *emath.FloatGrid, noData *float64) bool {
	if noData == nil {
		return false
	}
	return g.Count(*noData) > 0
}

// zeroMean returns the template minus its mean, and its L2 norm.
func zeroMean(g *emath.FloatGrid) ([]float64, float64) {
	vals := g.Values()
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	out := make([]float64, len(vals))
	norm := 0.0
	for i, v := range vals {
		out[i] = v - mean
		norm += out[i] * out[i]
	}
	return out, math.Sqrt(norm)
}

// subPixel fits a parabola through three samples around a peak, and
// returns the peak's fractional position in [-0.5, 0.5].
func subPixel(l, c, r float64) float64 {
	denom := l - 2*c + r
	if denom >= 0 || math.IsInf(l, 0) || math.IsInf(r, 0) {
		return 0
	}
	d := (l - r) / (2 * denom)
	return math.Max(-0.5, math.Min(0.5, d))
}
