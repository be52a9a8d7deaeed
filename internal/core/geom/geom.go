package geom

import "math"

// Vec2 is a 2D vector in world units (meters).
type Vec2 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Len() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64  { return math.Hypot(o.X-v.X, o.Y-v.Y) }
func (v Vec2) IsZero() bool         { return v.X == 0 && v.Y == 0 }

// Rotate rotates v counter-clockwise by angle radians.
func (v Vec2) Rotate(angle float64) Vec2 {
	cos, sin := math.Cos(angle), math.Sin(angle)
	return Vec2{v.X*cos - v.Y*sin, v.X*sin + v.Y*cos}
}

// Normalize returns the unit vector, or the zero vector when v is (near) zero.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l < 1e-9 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Bounds is an axis-aligned rectangle.
type Bounds struct {
	MinX float64 `yaml:"minX"`
	MaxX float64 `yaml:"maxX"`
	MinY float64 `yaml:"minY"`
	MaxY float64 `yaml:"maxY"`
}

func (b Bounds) Contains(p Vec2) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Transform is a 2D pose: position, rotation in radians and per-axis scale.
type Transform struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Angle  float64 `yaml:"angle"`
	ScaleX float64 `yaml:"scaleX"`
	ScaleY float64 `yaml:"scaleY"`
}

// Identity is the neutral transform.
var Identity = Transform{ScaleX: 1, ScaleY: 1}

func (t Transform) Position() Vec2 { return Vec2{t.X, t.Y} }

// Combine composes a local transform under a parent world transform.
// The local offset is scaled by the parent scale, rotated by the parent angle and translated;
// angles add and scales multiply.
func Combine(parent, local Transform) Transform {
	off := Vec2{local.X * parent.ScaleX, local.Y * parent.ScaleY}.Rotate(parent.Angle)
	return Transform{
		X:      parent.X + off.X,
		Y:      parent.Y + off.Y,
		Angle:  parent.Angle + local.Angle,
		ScaleX: parent.ScaleX * local.ScaleX,
		ScaleY: parent.ScaleY * local.ScaleY,
	}
}

// WorldToLocal is the exact inverse of Combine: Combine(parent, WorldToLocal(w, parent)) == w.
// Zero parent scale components are treated as 1 to keep the result finite.
func WorldToLocal(world, parent Transform) Transform {
	sx, sy := nonZero(parent.ScaleX), nonZero(parent.ScaleY)
	off := Vec2{world.X - parent.X, world.Y - parent.Y}.Rotate(-parent.Angle)
	return Transform{
		X:      off.X / sx,
		Y:      off.Y / sy,
		Angle:  world.Angle - parent.Angle,
		ScaleX: world.ScaleX / sx,
		ScaleY: world.ScaleY / sy,
	}
}

// Normalized fills zero scale components with 1. Scene documents often omit scale.
func (t Transform) Normalized() Transform {
	if t.ScaleX == 0 {
		t.ScaleX = 1
	}
	if t.ScaleY == 0 {
		t.ScaleY = 1
	}
	return t
}

// ApproxEqual reports whether two transforms match within eps on every component.
func ApproxEqual(a, b Transform, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps &&
		math.Abs(a.Y-b.Y) <= eps &&
		math.Abs(a.Angle-b.Angle) <= eps &&
		math.Abs(a.ScaleX-b.ScaleX) <= eps &&
		math.Abs(a.ScaleY-b.ScaleY) <= eps
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
