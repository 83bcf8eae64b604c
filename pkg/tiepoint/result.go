package tiepoint

import(
	"fmt"
	"math"

	"github.com/abworrall/tiepoint/pkg/emath"
)

// A Result is one candidate GCP: where a chip from the input scene was
// found in the reference scene.
type Result struct {
	Chip       Chip
	Matched    emath.Point2D    // reference map coords of the chip center
	Corners    [4]emath.Point2D // the chip corners, moved along with the center
	Confidence float64
	Good       bool
}

func (r Result)String() string {
	return fmt.Sprintf("gcp[%d %s -> %s, conf:%.3f, good:%v]", r.Chip.ID, r.Chip.Center, r.Matched, r.Confidence, r.Good)
}

// Displacement is how far the match moved from the chip, in pixels of size `gsd`.
func (r Result)Displacement(gsd emath.Point2D) emath.Point2D {
	return r.Matched.Sub(r.Chip.Center).Div(gsd)
}

func CountGood(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Good { n++ }
	}
	return n
}

func GoodOnly(results []Result) []Result {
	out := []Result{}
	for _, r := range results {
		if r.Good {
			out = append(out, r)
		}
	}
	return out
}

// Displacements returns the displacement of every good result.
func Displacements(results []Result, gsd emath.Point2D) []emath.Point2D {
	ds := []emath.Point2D{}
	for _, r := range results {
		if r.Good {
			ds = append(ds, r.Displacement(gsd))
		}
	}
	return ds
}

// centerKey quantizes a chip center to a thousandth of a pixel, which
// absorbs float noise between tiles whose transforms were derived
// separately.
func centerKey(c, gsd emath.Point2D) [2]int64 {
	return [2]int64{
		int64(math.Round(c.X / math.Abs(gsd.X) * 1000)),
		int64(math.Round(c.Y / math.Abs(gsd.Y) * 1000)),
	}
}

// Dedupe drops results whose chip center has already been seen,
// keeping the earliest one. It returns the survivors and the number
// dropped.
func Dedupe(results []Result, gsd emath.Point2D) ([]Result, int) {
	seen := map[[2]int64]bool{}
	out := make([]Result, 0, len(results))
	for _, r := range results {
		k := centerKey(r.Chip.Center, gsd)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out, len(results) - len(out)
}

// ApplyShift moves the match of every good result by `shift` pixels.
func ApplyShift(results []Result, shift, gsd emath.Point2D) {
	d := shift.Mul(gsd)
	for i := range results {
		if !results[i].Good {
			continue
		}
		results[i].Matched = results[i].Matched.Add(d)
		for j := range results[i].Corners {
			results[i].Corners[j] = results[i].Corners[j].Add(d)
		}
	}
}

// RejectOutsideHull marks as bad any good result whose displacement falls
// outside the convex hull of the central displacements (those kept by the
// trimmed mean), allowing `tol` pixels of slack. It returns how many
// results it rejected.
func RejectOutsideHull(results []Result, gsd emath.Point2D, tol float64) int {
	idx := []int{}
	ds := []emath.Point2D{}
	for i, r := range results {
		if r.Good {
			idx = append(idx, i)
			ds = append(ds, r.Displacement(gsd))
		}
	}
	if len(ds) == 0 {
		return 0
	}

	_, kept := emath.TrimmedMeanVector(ds, 0.1)
	core := make([]emath.Point2D, len(kept))
	for i, k := range kept {
		core[i] = ds[k]
	}
	hull := emath.ConvexHull(core)

	n := 0
	for i, d := range ds {
		if !emath.InsideHull(hull, d, tol) {
			results[idx[i]].Good = false
			n++
		}
	}
	return n
}
