package emath

// Affine transformations, used to map between pixel and map coordinates

import(
	"fmt"
	"math"

	"golang.org/x/image/math/f64"  // Will be "image/math/f64" at some point
)

// Use a local type so we can hang methods off it. The layout is
// row-major [a b c; d e f], mapping (x,y) to (ax+by+c, dx+ey+f).
type Aff3 f64.Aff3

// Cut-n-pasted from image@0.7.0/draw/scale:matMul
func (p Aff3)Mult(q Aff3) Aff3 {
	return Aff3{
		p[3*0+0]*q[3*0+0] + p[3*0+1]*q[3*1+0],
		p[3*0+0]*q[3*0+1] + p[3*0+1]*q[3*1+1],
		p[3*0+0]*q[3*0+2] + p[3*0+1]*q[3*1+2] + p[3*0+2],
		p[3*1+0]*q[3*0+0] + p[3*1+1]*q[3*1+0],
		p[3*1+0]*q[3*0+1] + p[3*1+1]*q[3*1+1],
		p[3*1+0]*q[3*0+2] + p[3*1+1]*q[3*1+2] + p[3*1+2],
	}
}

func Identity() Aff3 {
	return Aff3{1, 0, 0,   0, 1, 0}
}

func (m1 Aff3)Translate(tx, ty float64) Aff3 {
	return m1.Mult(Aff3{1, 0, tx,   0, 1, ty})
}

func (m1 Aff3)Scale(sx, sy float64) Aff3 {
	return m1.Mult(Aff3{sx, 0, 0,   0, sy, 0})
}

// FromGeoTransform builds the pixel->map transform from the six
// coefficients in the usual GDAL order: [x0, dx, rx, y0, ry, dy].
func FromGeoTransform(gt [6]float64) Aff3 {
	return Aff3{gt[1], gt[2], gt[0],   gt[4], gt[5], gt[3]}
}

// GeoTransform is the inverse of FromGeoTransform.
func (m Aff3)GeoTransform() [6]float64 {
	return [6]float64{m[2], m[0], m[1],   m[5], m[3], m[4]}
}

func (m Aff3)Apply(p Point2D) Point2D {
	return Point2D{
		X: m[0]*p.X + m[1]*p.Y + m[2],
		Y: m[3]*p.X + m[4]*p.Y + m[5],
	}
}

func (m Aff3)Det() float64 {
	return m[0]*m[4] - m[1]*m[3]
}

// Invert returns the transform that undoes `m`. It fails if the
// linear part is singular.
func (m Aff3)Invert() (Aff3, error) {
	det := m.Det()
	if math.Abs(det) < 1e-300 {
		return Aff3{}, fmt.Errorf("affine %s is singular", m)
	}
	a :=  m[4] / det
	b := -m[1] / det
	d := -m[3] / det
	e :=  m[0] / det
	return Aff3{
		a, b, -(a*m[2] + b*m[5]),
		d, e, -(d*m[2] + e*m[5]),
	}, nil
}

func (m Aff3)String() string {
	return fmt.Sprintf("[%g %g %g; %g %g %g]", m[0], m[1], m[2], m[3], m[4], m[5])
}
