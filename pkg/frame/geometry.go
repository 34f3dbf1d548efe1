package frame

// Pos2 is a position in logical points.
type Pos2 struct {
	X float32 `msgpack:"x"`
	Y float32 `msgpack:"y"`
}

// Add returns p translated by v.
func (p Pos2) Add(v Vec2) Pos2 {
	return Pos2{X: p.X + v.X, Y: p.Y + v.Y}
}

// Sub returns the vector from o to p.
func (p Pos2) Sub(o Pos2) Vec2 {
	return Vec2{X: p.X - o.X, Y: p.Y - o.Y}
}

// ToVec2 returns p as an offset from the origin.
func (p Pos2) ToVec2() Vec2 {
	return Vec2{X: p.X, Y: p.Y}
}

// Vec2 is a displacement or size in logical points.
type Vec2 struct {
	X float32 `msgpack:"x"`
	Y float32 `msgpack:"y"`
}

// Neg returns -v.
func (v Vec2) Neg() Vec2 {
	return Vec2{X: -v.X, Y: -v.Y}
}

// Rect is an axis-aligned rectangle spanning Min to Max.
type Rect struct {
	Min Pos2 `msgpack:"min"`
	Max Pos2 `msgpack:"max"`
}

// RectFromMinSize builds a Rect from its top-left corner and size.
func RectFromMinSize(min Pos2, size Vec2) Rect {
	return Rect{Min: min, Max: min.Add(size)}
}

// Everything is a clip rect that never clips.
var Everything = Rect{
	Min: Pos2{X: -1e9, Y: -1e9},
	Max: Pos2{X: 1e9, Y: 1e9},
}

// Width returns the horizontal extent.
func (r Rect) Width() float32 { return r.Max.X - r.Min.X }

// Height returns the vertical extent.
func (r Rect) Height() float32 { return r.Max.Y - r.Min.Y }

// Size returns the extent as a vector.
func (r Rect) Size() Vec2 { return Vec2{X: r.Width(), Y: r.Height()} }

// Contains reports whether p lies inside r (min inclusive, max exclusive).
func (r Rect) Contains(p Pos2) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}

// Translate returns r moved by v.
func (r Rect) Translate(v Vec2) Rect {
	return Rect{Min: r.Min.Add(v), Max: r.Max.Add(v)}
}

// Color32 is a straight RGBA color.
type Color32 struct {
	R uint8 `msgpack:"r"`
	G uint8 `msgpack:"g"`
	B uint8 `msgpack:"b"`
	A uint8 `msgpack:"a"`
}

// Common colors.
var (
	Transparent = Color32{}
	Black       = Color32{A: 255}
	White       = Color32{R: 255, G: 255, B: 255, A: 255}
	Gray        = Color32{R: 160, G: 160, B: 160, A: 255}
	Red         = Color32{R: 255, A: 255}
	Green       = Color32{G: 255, A: 255}
	Blue        = Color32{B: 255, A: 255}
)

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color32 {
	return Color32{R: r, G: g, B: b, A: 255}
}

// Stroke describes an outline.
type Stroke struct {
	Width float32 `msgpack:"w"`
	Color Color32 `msgpack:"c"`
}
