package waves

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// positionTolerance is the absolute tolerance, in meters, used for
// boundary equality checks on positions and distances. Model space is
// tens of kilometers across, so a tenth of a millimeter is well below
// anything visible.
const positionTolerance = 1e-4

// Vec2 is a point or direction in model space. X is the horizontal
// position and Y the altitude, both in meters.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Norm returns the Euclidean norm of the vector.
func (v Vec2) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// IsUnit reports whether the vector has unit length within tolerance.
func (v Vec2) IsUnit() bool {
	return scalar.EqualWithinAbs(v.Norm(), 1.0, 1e-6)
}

// UnitFromAngle returns the unit vector at the given angle, measured in
// radians counterclockwise from the positive X axis.
func UnitFromAngle(angle float64) Vec2 {
	return Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
}

// segmentIntersection finds the intersection of segment p1->p2 with
// segment p3->p4. On success it returns the intersection point and the
// distance from p1 to that point along the first segment. Collinear
// overlaps are treated as non-intersecting, which is fine for this
// model: waves are never horizontal and layers always are.
func segmentIntersection(p1, p2, p3, p4 Vec2) (Vec2, float64, bool) {
	d1 := p2.Sub(p1)
	d2 := p4.Sub(p3)

	denom := d1.X*d2.Y - d1.Y*d2.X
	if denom == 0 {
		return Vec2{}, 0, false
	}

	diff := p3.Sub(p1)
	t := (diff.X*d2.Y - diff.Y*d2.X) / denom
	u := (diff.X*d1.Y - diff.Y*d1.X) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Vec2{}, 0, false
	}

	point := p1.Add(d1.Scale(t))
	return point, t * d1.Norm(), true
}

// wrapAngle maps an angle into [0, 2π).
func wrapAngle(angle float64) float64 {
	wrapped := math.Mod(angle, 2*math.Pi)
	if wrapped < 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped
}
