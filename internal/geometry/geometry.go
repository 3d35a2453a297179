// Package geometry derives the pixel layout of nodes, ports and connections.
// Everything here is a pure function of its inputs; callers own caching.
package geometry

import "math"

type Point struct {
	X, Y float64
}

func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

func (p Point) Scale(f float64) Point {
	return Point{p.X * f, p.Y * f}
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

type Size struct {
	W, H float64
}

func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X, Y, W, H float64
}

func R(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// RectFromPoints returns the normalized rectangle spanned by two corners.
func RectFromPoints(a, b Point) Rect {
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

func (r Rect) Min() Point    { return Point{r.X, r.Y} }
func (r Rect) Max() Point    { return Point{r.X + r.W, r.Y + r.H} }
func (r Rect) Center() Point { return Point{r.X + r.W/2, r.Y + r.H/2} }
func (r Rect) Size() Size    { return Size{r.W, r.H} }

func (r Rect) IsZero() bool {
	return r.W == 0 && r.H == 0
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.X+o.W && o.X <= r.X+r.W && r.Y <= o.Y+o.H && o.Y <= r.Y+r.H
}

// Union returns the smallest rectangle covering r and o. A zero rect is
// treated as empty.
func (r Rect) Union(o Rect) Rect {
	if r.IsZero() {
		return o
	}
	if o.IsZero() {
		return r
	}
	minX, minY := math.Min(r.X, o.X), math.Min(r.Y, o.Y)
	maxX, maxY := math.Max(r.X+r.W, o.X+o.W), math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

func (r Rect) Translate(d Point) Rect {
	return Rect{X: r.X + d.X, Y: r.Y + d.Y, W: r.W, H: r.H}
}

// Pad grows r by m on every side.
func (r Rect) Pad(m float64) Rect {
	return Rect{X: r.X - m, Y: r.Y - m, W: r.W + 2*m, H: r.H + 2*m}
}
