package correlate

import(
	"image"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/abworrall/tiepoint/pkg/emath"
)

// PhaseCorrelator works in the Fourier domain, in two steps. First the
// cross term of the NCC is found at every template position at once, from
// the product of the search spectrum with the conjugate template
// spectrum; normalizing each position by the local search energy gives
// the NCC surface, and its peak the integer offset. Then the template
// and the equally sized search block at that offset are phase correlated
// (Hann windowed, with a regularized cross-power spectrum), and the
// peak of that surface gives the sub-pixel part. The confidence is the
// NCC at the integer peak, so thresholds mean the same thing for both
// correlators.
type PhaseCorrelator struct{}

// whitenFloor regularizes the cross-power spectrum: bins weaker than this
// fraction of the strongest are attenuated rather than whitened, since
// their phase is mostly window leakage.
const whitenFloor = 0.01

// fft2 transforms a w x h row-major grid in place, rows then columns.
// The gonum FFT objects keep work buffers, so each call makes its own.
func fft2(data []complex128, w, h int, inverse bool) {
	rowFFT := fourier.NewCmplxFFT(w)
	colFFT := fourier.NewCmplxFFT(h)

	in := make([]complex128, w)
	out := make([]complex128, w)
	for y:=0; y<h; y++ {
		copy(in, data[y*w:(y+1)*w])
		if inverse {
			rowFFT.Sequence(out, in)
		} else {
			rowFFT.Coefficients(out, in)
		}
		copy(data[y*w:(y+1)*w], out)
	}

	in = make([]complex128, h)
	out = make([]complex128, h)
	for x:=0; x<w; x++ {
		for y:=0; y<h; y++ {
			in[y] = data[y*w + x]
		}
		if inverse {
			colFFT.Sequence(out, in)
		} else {
			colFFT.Coefficients(out, in)
		}
		for y:=0; y<h; y++ {
			data[y*w + x] = out[y]
		}
	}
}

// crossCorrelate returns the circular cross correlation
// c(u,v) = sum a(x+u,y+v) b(x,y) of two w x h grids, unscaled.
func crossCorrelate(a, b []complex128, w, h int) []float64 {
	fft2(a, w, h, false)
	fft2(b, w, h, false)
	for i := range a {
		a[i] *= cmplx.Conj(b[i])
	}
	fft2(a, w, h, true)

	out := make([]float64, w*h)
	scale := float64(w * h)
	for i := range a {
		out[i] = real(a[i]) / scale
	}
	return out
}

// fourierSurface is nccSurface computed with FFTs. The template sits at
// the origin of a zero block, so positions that keep it inside the
// search block never wrap around.
func fourierSurface(template, search *emath.FloatGrid, noData *float64) (*scoreSurface, bool) {
	tw, th := template.Dx(), template.Dy()
	sw, sh := search.Dx(), search.Dy()
	if tw == 0 || th == 0 || sw < tw || sh < th || hasNoData(template, noData) {
		return nil, false
	}
	tz, tnorm := zeroMean(template)
	if tnorm < 1e-9 {
		return nil, false
	}

	sv := search.Values()
	mean, n := 0.0, 0
	for _, v := range sv {
		if noData != nil && v == *noData { continue }
		mean += v
		n++
	}
	if n == 0 {
		return nil, false
	}
	mean /= float64(n)

	// The template is zero mean, so taking the search mean out leaves
	// the cross term alone; no-data cells go to zero, and any position
	// touching one is dropped below anyway.
	a := make([]complex128, sw*sh)
	for i, v := range sv {
		if noData != nil && v == *noData { continue }
		a[i] = complex(v-mean, 0)
	}
	b := make([]complex128, sw*sh)
	for y:=0; y<th; y++ {
		for x:=0; x<tw; x++ {
			b[y*sw + x] = complex(tz[y*tw + x], 0)
		}
	}
	cross := crossCorrelate(a, b, sw, sh)

	sum := integral(sw, sh, func(x, y int) float64 { return search.Get(x, y) })
	sumSq := integral(sw, sh, func(x, y int) float64 { v := search.Get(x, y); return v*v })
	bad := integral(sw, sh, func(x, y int) float64 {
		if noData != nil && search.Get(x, y) == *noData { return 1 }
		return 0
	})

	np := float64(tw * th)
	surf := &scoreSurface{w: sw-tw+1, h: sh-th+1}
	surf.scores = make([]float64, surf.w*surf.h)
	for v:=0; v<surf.h; v++ {
		for u:=0; u<surf.w; u++ {
			i := v*surf.w + u
			surf.scores[i] = math.Inf(-1)
			if boxSum(bad, sw, u, v, u+tw, v+th) > 0.5 {
				continue
			}
			s1 := boxSum(sum, sw, u, v, u+tw, v+th)
			s2 := boxSum(sumSq, sw, u, v, u+tw, v+th)
			varS := s2 - s1*s1/np
			if varS < 1e-9 {
				continue
			}
			surf.scores[i] = cross[v*sw + u] / (tnorm * math.Sqrt(varS))
		}
	}
	return surf, true
}

func hann(i, n int) float64 {
	return 0.5 * (1 - math.Cos(2*math.Pi*(float64(i)+0.5)/float64(n)))
}

// windowed returns the grid minus its mean, Hann windowed, as complex.
func windowed(g *emath.FloatGrid) []complex128 {
	w, h := g.Dx(), g.Dy()
	z, _ := zeroMean(g)
	out := make([]complex128, w*h)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			out[y*w + x] = complex(z[y*w + x] * hann(x, w) * hann(y, h), 0)
		}
	}
	return out
}

// residualShift phase correlates two equally sized blocks that are
// already aligned to the nearest pixel, and returns how far b's content
// sits from a's. The answer is in [-0.5, 0.5] on each axis; if the
// phase peak isn't at the origin the blocks weren't aligned after all.
func residualShift(a, b *emath.FloatGrid) (emath.Point2D, bool) {
	w, h := a.Dx(), a.Dy()
	fa := windowed(a)
	fb := windowed(b)
	fft2(fa, w, h, false)
	fft2(fb, w, h, false)

	peak := 0.0
	for i := range fb {
		fb[i] *= cmplx.Conj(fa[i])
		peak = math.Max(peak, cmplx.Abs(fb[i]))
	}
	if peak < 1e-12 {
		return emath.Point2D{}, false
	}
	floor := whitenFloor * peak
	for i := range fb {
		fb[i] /= complex(cmplx.Abs(fb[i]) + floor, 0)
	}
	fft2(fb, w, h, true)

	r := func(x, y int) float64 {
		x = (x%w + w) % w
		y = (y%h + h) % h
		return real(fb[y*w + x])
	}
	c := r(0, 0)
	if c < r(1, 0) || c < r(-1, 0) || c < r(0, 1) || c < r(0, -1) {
		return emath.Point2D{}, false
	}
	return emath.Point2D{X: subPixel(r(-1, 0), c, r(1, 0)), Y: subPixel(r(0, -1), c, r(0, 1))}, true
}

func (PhaseCorrelator)Correlate(template, search emath.FloatGrid, threshold float64, noData *float64) Match {
	failed := Match{Offset: emath.NaNPoint()}
	surf, ok := fourierSurface(&template, &search, noData)
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

	// Same edge rule as the area correlator
	if bu == 0 || bv == 0 || bu == surf.w-1 || bv == surf.h-1 {
		failed.Confidence = best
		return failed
	}

	conf, ok := nccAt(&template, &search, bu, bv, noData)
	if !ok {
		return failed
	}
	block, err := search.SubGrid(image.Rect(bu, bv, bu+template.Dx(), bv+template.Dy()))
	if err != nil {
		return failed
	}

	// Fall back to the integer peak if the blocks won't phase correlate
	frac, ok := residualShift(&template, &block)
	if !ok {
		frac = emath.Point2D{}
	}

	cu, cv := centerOffset(&template, &search)
	return Match{
		OK:         conf >= threshold,
		Offset:     emath.Point2D{X: float64(bu-cu) + frac.X, Y: float64(bv-cv) + frac.Y},
		Confidence: conf,
	}
}
