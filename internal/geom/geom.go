// Package geom holds the small value types shared by the layout, viewport
// and selection code. Coordinates are float64, y grows downwards.
package geom

import "math"

// Size is a width/height pair.
type Size struct {
	W float64
	H float64
}

// Empty reports whether either dimension is non-positive.
func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

// Scale multiplies both dimensions by f.
func (s Size) Scale(f float64) Size {
	return Size{W: s.W * f, H: s.H * f}
}

// Primary returns the extent along the scroll axis.
func (s Size) Primary(horizontal bool) float64 {
	if horizontal {
		return s.W
	}
	return s.H
}

// Cross returns the extent perpendicular to the scroll axis.
func (s Size) Cross(horizontal bool) float64 {
	if horizontal {
		return s.H
	}
	return s.W
}

// Point is a position.
type Point struct {
	X float64
	Y float64
}

// Primary returns the scroll-axis component.
func (p Point) Primary(horizontal bool) float64 {
	if horizontal {
		return p.X
	}
	return p.Y
}

// Rect is an axis-aligned box. Right and Bottom are exclusive.
type Rect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Empty reports whether the rect covers no area.
func (r Rect) Empty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Right && p.Y >= r.Top && p.Y < r.Bottom
}

// Union returns the smallest rect covering r and o. An empty operand is ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		Left:   math.Min(r.Left, o.Left),
		Top:    math.Min(r.Top, o.Top),
		Right:  math.Max(r.Right, o.Right),
		Bottom: math.Max(r.Bottom, o.Bottom),
	}
}

// Scale multiplies every edge by f.
func (r Rect) Scale(f float64) Rect {
	return Rect{Left: r.Left * f, Top: r.Top * f, Right: r.Right * f, Bottom: r.Bottom * f}
}

// Translate moves r by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{Left: r.Left + dx, Top: r.Top + dy, Right: r.Right + dx, Bottom: r.Bottom + dy}
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: (r.Left + r.Right) / 2, Y: (r.Top + r.Bottom) / 2}
}
