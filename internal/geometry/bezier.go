package geometry

import "math"

const (
	curveDefaultOffset = 200.0
	curveSegments      = 32
)

// Bezier is a cubic curve from P0 to P3.
type Bezier struct {
	P0, C1, C2, P3 Point
}

// ConnectionCurve routes a connection from an out port to an in port. When
// the target lies left of the source the curve loops vertically around.
func ConnectionCurve(out, in Point) Bezier {
	xDistance := in.X - out.X
	horizontal := math.Min(curveDefaultOffset, math.Abs(xDistance))
	vertical := 0.0
	ratioX := 0.5
	if xDistance <= 0 {
		yDistance := in.Y - out.Y + 20
		sign := 1.0
		if yDistance < 0 {
			sign = -1.0
		}
		vertical = math.Min(curveDefaultOffset, math.Abs(yDistance)) * sign
		ratioX = 1.0
	}
	horizontal *= ratioX
	return Bezier{
		P0: out,
		C1: Point{out.X + horizontal, out.Y + vertical},
		C2: Point{in.X - horizontal, in.Y - vertical},
		P3: in,
	}
}

func (b Bezier) At(t float64) Point {
	u := 1 - t
	a := u * u * u
	bb := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return Point{
		X: a*b.P0.X + bb*b.C1.X + c*b.C2.X + d*b.P3.X,
		Y: a*b.P0.Y + bb*b.C1.Y + c*b.C2.Y + d*b.P3.Y,
	}
}

// Polyline samples the curve into n segments.
func (b Bezier) Polyline(n int) []Point {
	if n < 1 {
		n = 1
	}
	pts := make([]Point, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = b.At(float64(i) / float64(n))
	}
	return pts
}

func (b Bezier) Bounds() Rect {
	pts := b.Polyline(curveSegments)
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		lo = Point{math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)}
		hi = Point{math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)}
	}
	return RectFromPoints(lo, hi)
}

// Distance approximates the distance from p to the curve.
func (b Bezier) Distance(p Point) float64 {
	pts := b.Polyline(curveSegments)
	best := math.Inf(1)
	for i := 1; i < len(pts); i++ {
		best = math.Min(best, segmentDistance(p, pts[i-1], pts[i]))
	}
	return best
}

// IntersectsRect reports whether any part of the sampled curve lies in r.
func (b Bezier) IntersectsRect(r Rect) bool {
	if !b.Bounds().Intersects(r) {
		return false
	}
	for _, p := range b.Polyline(curveSegments) {
		if r.Contains(p) {
			return true
		}
	}
	return false
}

func segmentDistance(p, a, b Point) float64 {
	ab := b.Sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y
	if lenSq == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / lenSq
	t = math.Max(0, math.Min(1, t))
	return p.Dist(a.Add(ab.Scale(t)))
}
