package emath

import(
	"fmt"
	"math"
)

// A Point2D is used for pixel coordinates (X is the column, Y the
// row) and for map coordinates (X easting / longitude, Y northing /
// latitude).
type Point2D struct {
	X, Y float64
}

func (p Point2D)Add(q Point2D) Point2D        { return Point2D{p.X + q.X, p.Y + q.Y} }
func (p Point2D)Sub(q Point2D) Point2D        { return Point2D{p.X - q.X, p.Y - q.Y} }
func (p Point2D)Scale(f float64) Point2D      { return Point2D{p.X * f, p.Y * f} }
func (p Point2D)Mul(q Point2D) Point2D        { return Point2D{p.X * q.X, p.Y * q.Y} }
func (p Point2D)Div(q Point2D) Point2D        { return Point2D{p.X / q.X, p.Y / q.Y} }
func (p Point2D)Len() float64                 { return math.Hypot(p.X, p.Y) }
func (p Point2D)Dist(q Point2D) float64       { return p.Sub(q).Len() }
func (p Point2D)Round() Point2D               { return Point2D{math.Round(p.X), math.Round(p.Y)} }
func (p Point2D)IsNaN() bool                  { return math.IsNaN(p.X) || math.IsNaN(p.Y) }

func (p Point2D)String() string {
	return fmt.Sprintf("(%.3f,%.3f)", p.X, p.Y)
}

// NaNPoint is the "no coordinate" sentinel.
func NaNPoint() Point2D {
	return Point2D{math.NaN(), math.NaN()}
}
