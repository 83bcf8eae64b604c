package pyramid

import(
	"github.com/abworrall/tiepoint/pkg/emath"
	"github.com/abworrall/tiepoint/pkg/tiepoint"
)

// TrimFraction is how much of each end of the displacement list, sorted
// by length, the robust average ignores.
const TrimFraction = 0.1

// RobustAverageShift averages the displacements (in pixels of size
// `gsd`) of the good results, leaving out the shortest and longest 10%.
// With fewer than minGood good results it gives up, and reports skipped.
func RobustAverageShift(results []tiepoint.Result, gsd emath.Point2D, minGood int) (emath.Point2D, bool) {
	ds := tiepoint.Displacements(results, gsd)
	if len(ds) == 0 || len(ds) < minGood {
		return emath.Point2D{}, true
	}
	avg, _ := emath.TrimmedMeanVector(ds, TrimFraction)
	return avg, false
}
