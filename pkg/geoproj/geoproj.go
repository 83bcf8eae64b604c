// Package geoproj transforms coordinates between map projections,
// described by proj4 strings.
package geoproj

import(
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ctessum/geom/proj"

	"github.com/abworrall/tiepoint/pkg/emath"
)

// WGS84 is geographic lon/lat, in decimal degrees.
const WGS84 = "+proj=longlat +datum=WGS84 +no_defs"

// A Transformer moves a batch of points from one projection to another.
type Transformer interface {
	Transform(src, dst string, pts []emath.Point2D) ([]emath.Point2D, error)
}

// Same reports whether two projection strings describe the same thing,
// ignoring whitespace and term order. Empty means "not geo-referenced",
// and matches anything.
func Same(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	return normalize(a) == normalize(b)
}

func normalize(s string) string {
	terms := strings.Fields(s)
	seen := map[string]bool{}
	out := []string{}
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return strings.Join(out, " ")
}

// Proj4 is a Transformer backed by ctessum/geom/proj. Parsed spatial
// references and transforms are cached, so it can be shared.
type Proj4 struct {
	mu     sync.Mutex
	xforms map[[2]string]proj.Transformer
}

func NewProj4() *Proj4 {
	return &Proj4{xforms: map[[2]string]proj.Transformer{}}
}

func (p *Proj4)transformer(src, dst string) (proj.Transformer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := [2]string{src, dst}
	if t, exists := p.xforms[key]; exists {
		return t, nil
	}

	srcSR, err := parse(src)
	if err != nil {
		return nil, err
	}
	dstSR, err := parse(dst)
	if err != nil {
		return nil, err
	}
	t, err := srcSR.NewTransform(dstSR)
	if err != nil {
		return nil, fmt.Errorf("transform '%s' -> '%s': %v", src, dst, err)
	}
	if t == nil {
		// The two strings describe the same reference
		t = func(x, y float64) (float64, float64, error) { return x, y, nil }
	}

	p.xforms[key] = t
	return t, nil
}

// parse only accepts projections the library can actually transform;
// proj.Parse alone takes any +proj name.
func parse(s string) (*proj.SR, error) {
	sr, err := proj.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parse projection '%s': %v", s, err)
	}
	if _, _, err := sr.Transformers(); err != nil {
		return nil, fmt.Errorf("unsupported projection '%s': %v", s, err)
	}
	return sr, nil
}

// Validate checks that a projection string can be used for transforms.
// The empty string means "not geo-referenced" and is fine.
func Validate(s string) error {
	if s == "" {
		return nil
	}
	_, err := parse(s)
	return err
}

// Transform converts `pts` from `src` to `dst`. Geographic coordinates
// are (lon, lat) in degrees. Points that fail to transform come back
// as NaN, so a batch with a few points off the edge of a projection's
// domain still goes through.
func (p *Proj4)Transform(src, dst string, pts []emath.Point2D) ([]emath.Point2D, error) {
	out := make([]emath.Point2D, len(pts))
	if Same(src, dst) {
		copy(out, pts)
		return out, nil
	}

	t, err := p.transformer(src, dst)
	if err != nil {
		return nil, err
	}

	for i, pt := range pts {
		if pt.IsNaN() {
			out[i] = pt
			continue
		}
		x, y, err := t(pt.X, pt.Y)
		if err != nil {
			out[i] = emath.NaNPoint()
			continue
		}
		out[i] = emath.Point2D{X: x, Y: y}
	}
	return out, nil
}

// LatLonToMap converts WGS84 (lat, lon) pairs into map coordinates of `dst`.
func LatLonToMap(t Transformer, dst string, latlons []emath.Point2D) ([]emath.Point2D, error) {
	lonlats := make([]emath.Point2D, len(latlons))
	for i, ll := range latlons {
		lonlats[i] = emath.Point2D{X: ll.Y, Y: ll.X}
	}
	return t.Transform(WGS84, dst, lonlats)
}
