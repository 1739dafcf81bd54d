// Package geometry computes where connectors meet node boundaries.
//
// Every function here is total: degenerate inputs such as zero-size boxes or
// coincident points fall back to the node center, so callers always get a
// renderable point.
package geometry

import (
	"fmt"
	"math"
	"strings"
)

// Point is a position in scene coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Rect is an axis-aligned box anchored at its top-left corner.
type Rect struct {
	X, Y, Width, Height float64
}

// Center returns the midpoint of the box.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Inset shrinks the box by d on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, Width: r.Width - 2*d, Height: r.Height - 2*d}
}

// Contains reports whether p lies inside the box or on its border.
// Boxes with negative extent contain nothing.
func (r Rect) Contains(p Point) bool {
	if r.Width < 0 || r.Height < 0 {
		return false
	}
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Shape is the closed set of node outlines.
type Shape int

const (
	Rectangle Shape = iota
	Ellipse
	RoundedRect
)

var shapeNames = map[Shape]string{
	Rectangle:   "rectangle",
	Ellipse:     "ellipse",
	RoundedRect: "rounded_rect",
}

// String returns the wire name of the shape.
func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// ParseShape maps a shape name to its tag. Matching ignores case and accepts
// "rect", "rounded" and "roundedrect" as aliases.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "rectangle", "rect":
		return Rectangle, nil
	case "ellipse":
		return Ellipse, nil
	case "rounded_rect", "roundedrect", "rounded":
		return RoundedRect, nil
	default:
		return Rectangle, fmt.Errorf("unknown shape %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) {
	if _, ok := shapeNames[s]; !ok {
		return nil, fmt.Errorf("unknown shape %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(text []byte) error {
	parsed, err := ParseShape(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Anchor returns the point where the line from center toward target leaves
// the outline of the given shape.
func Anchor(rect Rect, center, target Point, shape Shape) Point {
	switch shape {
	case Rectangle:
		return rectangleAnchor(rect, center, target)
	case Ellipse:
		return ellipseAnchor(rect, center, target)
	case RoundedRect:
		return roundedRectAnchor(rect, center, target)
	default:
		return center
	}
}

// rectangleAnchor tests the box sides in the order top, right, bottom, left
// and returns the first bounded hit.
func rectangleAnchor(rect Rect, center, target Point) Point {
	topLeft := Point{X: rect.X, Y: rect.Y}
	topRight := Point{X: rect.X + rect.Width, Y: rect.Y}
	bottomRight := Point{X: rect.X + rect.Width, Y: rect.Y + rect.Height}
	bottomLeft := Point{X: rect.X, Y: rect.Y + rect.Height}

	sides := [4][2]Point{
		{topLeft, topRight},
		{topRight, bottomRight},
		{bottomRight, bottomLeft},
		{bottomLeft, topLeft},
	}
	for _, side := range sides {
		if p, ok := SegmentIntersection(center, target, side[0], side[1]); ok {
			return p
		}
	}
	return center
}

func ellipseAnchor(rect Rect, center, target Point) Point {
	a := rect.Width / 2
	b := rect.Height / 2
	if a <= 0 || b <= 0 {
		return center
	}

	dx := target.X - center.X
	dy := target.Y - center.Y
	if dx == 0 && dy == 0 {
		return center
	}

	t := 1 / math.Hypot(dx/a, dy/b)
	return Point{X: center.X + t*dx, Y: center.Y + t*dy}
}

// roundedRectAnchor approximates the rounded outline. The corner arcs are
// not intersected; a miss on the inset box falls back to the full box.
func roundedRectAnchor(rect Rect, center, target Point) Point {
	radius := math.Min(rect.Width, rect.Height) / 4
	inner := rect.Inset(radius)

	p := rectangleAnchor(inner, center, target)
	if inner.Contains(p) {
		return p
	}
	return rectangleAnchor(rect, center, target)
}

// SegmentIntersection returns the crossing point of segments p1-p2 and p3-p4.
// Parallel, collinear and degenerate segments report no intersection.
func SegmentIntersection(p1, p2, p3, p4 Point) (Point, bool) {
	d1 := p2.Sub(p1)
	d2 := p4.Sub(p3)

	denom := d1.X*d2.Y - d1.Y*d2.X
	if denom == 0 {
		return Point{}, false
	}

	diff := p3.Sub(p1)
	t := (diff.X*d2.Y - diff.Y*d2.X) / denom
	u := (diff.X*d1.Y - diff.Y*d1.X) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Point{}, false
	}
	return Point{X: p1.X + t*d1.X, Y: p1.Y + t*d1.Y}, true
}

// DistanceToSegment returns the distance from p to the closest point of a-b.
func DistanceToSegment(p, a, b Point) float64 {
	d := b.Sub(a)
	lenSq := d.X*d.X + d.Y*d.Y
	if lenSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}

	t := ((p.X-a.X)*d.X + (p.Y-a.Y)*d.Y) / lenSq
	t = math.Max(0, math.Min(1, t))
	closest := Point{X: a.X + t*d.X, Y: a.Y + t*d.Y}
	return math.Hypot(p.X-closest.X, p.Y-closest.Y)
}

// ContainsPoint reports whether p is inside the outline of shape drawn in
// rect. Rounded corners are treated as square, matching Anchor.
func ContainsPoint(rect Rect, shape Shape, p Point) bool {
	if !rect.Contains(p) {
		return false
	}
	if shape != Ellipse {
		return true
	}

	a := rect.Width / 2
	b := rect.Height / 2
	if a <= 0 || b <= 0 {
		return false
	}
	c := rect.Center()
	dx := (p.X - c.X) / a
	dy := (p.Y - c.Y) / b
	return dx*dx+dy*dy <= 1
}
