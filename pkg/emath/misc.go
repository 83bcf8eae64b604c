package emath

import(
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Some functions that only operate on basic types, that are useful

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
// `f` is assumed to be in the range [0,1]
func GammaExpand_F64(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055 * math.Pow(f, 1.0/2.4) - 0.055
}

// TrimmedMeanVector sorts the vectors by descending length, drops
// floor(n*frac) entries from each end, and averages what is left. With
// too few vectors to trim, all of them are averaged. It returns the
// mean and the kept indices (into `vs`, in sorted order).
func TrimmedMeanVector(vs []Point2D, frac float64) (Point2D, []int) {
	if len(vs) == 0 {
		return Point2D{}, nil
	}

	idx := make([]int, len(vs))
	for i := range idx { idx[i] = i }
	sort.SliceStable(idx, func(a, b int) bool {
		return vs[idx[a]].Len() > vs[idx[b]].Len()
	})

	k := int(math.Floor(float64(len(vs)) * frac))
	kept := idx[k:len(idx)-k]

	xs := make([]float64, len(kept))
	ys := make([]float64, len(kept))
	for i, j := range kept {
		xs[i] = vs[j].X
		ys[i] = vs[j].Y
	}

	return Point2D{stat.Mean(xs, nil), stat.Mean(ys, nil)}, kept
}
