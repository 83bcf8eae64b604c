package correlate

import(
	"image"
	"math"

	"github.com/abworrall/tiepoint/pkg/emath"
)

// AreaCorrelator slides the template over every position in the search
// block, scoring each with the normalized cross correlation. Positions
// that would touch no-data are not scored.
type AreaCorrelator struct{}

// scoreSurface holds the NCC at every template position; -Inf where
// there is no score.
type scoreSurface struct {
	w, h   int
	scores []float64
}

func (s *scoreSurface)at(u, v int) float64 {
	if u < 0 || v < 0 || u >= s.w || v >= s.h {
		return math.Inf(-1)
	}
	return s.scores[v*s.w + u]
}

// integral builds a summed area table with an extra leading row and col.
func integral(w, h int, f func(x, y int) float64) []float64 {
	tab := make([]float64, (w+1)*(h+1))
	for y:=0; y<h; y++ {
		rowSum := 0.0
		for x:=0; x<w; x++ {
			rowSum += f(x, y)
			tab[(y+1)*(w+1) + x+1] = tab[y*(w+1) + x+1] + rowSum
		}
	}
	return tab
}

func boxSum(tab []float64, w, x0, y0, x1, y1 int) float64 {
	s := w + 1
	return tab[y1*s + x1] - tab[y0*s + x1] - tab[y1*s + x0] + tab[y0*s + x0]
}

func nccSurface(template, search *emath.FloatGrid, noData *float64) (*scoreSurface, bool) {
	tw, th := template.Dx(), template.Dy()
	sw, sh := search.Dx(), search.Dy()
	if tw == 0 || th == 0 || sw < tw || sh < th || hasNoData(template, noData) {
		return nil, false
	}

	tz, tnorm := zeroMean(template)
	if tnorm < 1e-9 {
		return nil, false // flat template, nothing to lock on to
	}

	sum := integral(sw, sh, func(x, y int) float64 { return search.Get(x, y) })
	sumSq := integral(sw, sh, func(x, y int) float64 { v := search.Get(x, y); return v*v })
	bad := integral(sw, sh, func(x, y int) float64 {
		if noData != nil && search.Get(x, y) == *noData { return 1 }
		return 0
	})

	n := float64(tw * th)
	surf := &scoreSurface{w: sw-tw+1, h: sh-th+1}
	surf.scores = make([]float64, surf.w*surf.h)
	sv := search.Values()

	for v:=0; v<surf.h; v++ {
		for u:=0; u<surf.w; u++ {
			i := v*surf.w + u
			surf.scores[i] = math.Inf(-1)

			if boxSum(bad, sw, u, v, u+tw, v+th) > 0.5 {
				continue
			}
			s1 := boxSum(sum, sw, u, v, u+tw, v+th)
			s2 := boxSum(sumSq, sw, u, v, u+tw, v+th)
			varS := s2 - s1*s1/n
			if varS < 1e-9 {
				continue
			}

			cross := 0.0
			for y:=0; y<th; y++ {
				row := sv[(v+y)*sw + u:]
				trow := tz[y*tw:]
				for x:=0; x<tw; x++ {
					cross += trow[x] * row[x]
				}
			}
			surf.scores[i] = cross / (tnorm * math.Sqrt(varS))
		}
	}

	return surf, true
}

// peakOf refines the integer peak at (u,v) of the surface. A peak on
// the edge of the surface can't be trusted to be a real maximum.
func peakOf(surf *scoreSurface, u, v int) (emath.Point2D, bool) {
	if u == 0 || v == 0 || u == surf.w-1 || v == surf.h-1 {
		return emath.Point2D{}, false
	}
	c := surf.at(u, v)
	dx := subPixel(surf.at(u-1, v), c, surf.at(u+1, v))
	dy := subPixel(surf.at(u, v-1), c, surf.at(u, v+1))
	return emath.Point2D{X: float64(u) + dx, Y: float64(v) + dy}, true
}

func (AreaCorrelator)Correlate(template, search emath.FloatGrid, threshold float64, noData *float64) Match {
	failed := Match{Offset: emath.NaNPoint()}
	surf, ok := nccSurface(&template, &search, noData)
	if !ok {
		return failed
	}

	bu, bv, best := -1, -1, math.Inf(-1)
	for v:=0; v<surf.h; v++ {
		for u:=0; u<surf.w; u++ {
			if s := surf.at(u, v); s > best {
				bu, bv, best = u, v, s
			}
		}
	}
	if bu < 0 {
		return failed
	}

	peak, ok := peakOf(surf, bu, bv)
	if !ok {
		failed.Confidence = best
		return failed
	}

	cu, cv := centerOffset(&template, &search)
	return Match{
		OK:         best >= threshold,
		Offset:     peak.Sub(emath.Point2D{X: float64(cu), Y: float64(cv)}),
		Confidence: best,
	}
}

// nccAt scores the template at one integer position of the search block.
func nccAt(template, search *emath.FloatGrid, u, v int, noData *float64) (float64, bool) {
	r := image.Rect(u, v, u+template.Dx(), v+template.Dy())
	if !r.In(search.Bounds()) {
		return 0, false
	}
	win, err := search.SubGrid(r)
	if err != nil || hasNoData(&win, noData) {
		return 0, false
	}
	surf, ok := nccSurface(template, &win, noData)
	if !ok || math.IsInf(surf.at(0, 0), -1) {
		return 0, false
	}
	return surf.at(0, 0), true
}
