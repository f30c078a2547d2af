// Package vec provides the 2D vector math used for positions and headings.
package vec

import "math"

// Vec2 is a 2D point or direction in world space.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Len2 returns the squared length. Cheaper than Len when only
// comparing distances.
func (v Vec2) Len2() float64 {
	return v.X*v.X + v.Y*v.Y
}

func (v Vec2) Len() float64 {
	return math.Sqrt(v.Len2())
}

// Dist2 returns the squared distance between two points.
func (v Vec2) Dist2(o Vec2) float64 {
	return v.Sub(o).Len2()
}

// Angle returns the heading from v toward o in radians.
func (v Vec2) Angle(o Vec2) float64 {
	d := o.Sub(v)
	return math.Atan2(d.Y, d.X)
}
