package emath

import(
	"math"
	"sort"
)

func cross(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// ConvexHull returns the hull of `pts` in counter-clockwise order (for
// a y-up frame), using Andrew's monotone chain. Collinear points are
// dropped. Fewer than three distinct points come back as they are,
// de-duplicated.
func ConvexHull(pts []Point2D) []Point2D {
	ps := make([]Point2D, len(pts))
	copy(ps, pts)
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].X != ps[j].X { return ps[i].X < ps[j].X }
		return ps[i].Y < ps[j].Y
	})

	uniq := ps[:0]
	for i, p := range ps {
		if i == 0 || p != ps[i-1] {
			uniq = append(uniq, p)
		}
	}
	ps = uniq
	if len(ps) < 3 {
		return ps
	}

	hull := make([]Point2D, 0, 2*len(ps))
	for _, p := range ps {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(ps)-2; i >= 0; i-- {
		p := ps[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	return hull[:len(hull)-1]
}

func distToSegment(p, a, b Point2D) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(a.Add(ab.Scale(t)))
}

// InsideHull reports whether `p` lies inside the hull (as returned by
// ConvexHull), or within `tol` of its boundary. Degenerate hulls (a
// point or a segment) only use the distance test.
func InsideHull(hull []Point2D, p Point2D, tol float64) bool {
	switch len(hull) {
	case 0:
		return false
	case 1:
		return p.Dist(hull[0]) <= tol
	}

	minDist := math.MaxFloat64
	inside := len(hull) >= 3
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		if d := distToSegment(p, a, b); d < minDist {
			minDist = d
		}
		if cross(a, b, p) < 0 {
			inside = false
		}
	}

	return inside || minDist <= tol
}
