package frame

// ShapeKind discriminates the Shape variants.
type ShapeKind uint8

const (
	ShapeNoop   ShapeKind = 0x00 // Paints nothing
	ShapeRect   ShapeKind = 0x01 // Filled and/or stroked rectangle
	ShapeCircle ShapeKind = 0x02 // Filled and/or stroked circle
	ShapePath   ShapeKind = 0x03 // Polyline or polygon
	ShapeText   ShapeKind = 0x04 // Laid out text run
	ShapeImage  ShapeKind = 0x05 // Textured rectangle
)

// String returns the string representation of the shape kind.
func (k ShapeKind) String() string {
	switch k {
	case ShapeNoop:
		return "Noop"
	case ShapeRect:
		return "Rect"
	case ShapeCircle:
		return "Circle"
	case ShapePath:
		return "Path"
	case ShapeText:
		return "Text"
	case ShapeImage:
		return "Image"
	default:
		return "Unknown"
	}
}

// Shape is a tagged union. Exactly the field matching Kind is set.
type Shape struct {
	Kind   ShapeKind    `msgpack:"k"`
	Rect   *RectShape   `msgpack:"r,omitempty"`
	Circle *CircleShape `msgpack:"c,omitempty"`
	Path   *PathShape   `msgpack:"p,omitempty"`
	Text   *TextShape   `msgpack:"t,omitempty"`
	Image  *ImageShape  `msgpack:"i,omitempty"`
}

// RectShape fills and strokes an axis-aligned rectangle.
type RectShape struct {
	Rect     Rect    `msgpack:"rect"`
	Rounding float32 `msgpack:"rounding"`
	Fill     Color32 `msgpack:"fill"`
	Stroke   Stroke  `msgpack:"stroke"`
}

// CircleShape fills and strokes a circle.
type CircleShape struct {
	Center Pos2    `msgpack:"center"`
	Radius float32 `msgpack:"radius"`
	Fill   Color32 `msgpack:"fill"`
	Stroke Stroke  `msgpack:"stroke"`
}

// PathShape is an open polyline or a closed, optionally filled polygon.
type PathShape struct {
	Points []Pos2  `msgpack:"points"`
	Closed bool    `msgpack:"closed"`
	Fill   Color32 `msgpack:"fill"`
	Stroke Stroke  `msgpack:"stroke"`
}

// TextShape positions a text run. Job is the portable description; Galley is
// the realized layout built against local fonts and never serialized.
type TextShape struct {
	Pos    Pos2       `msgpack:"pos"`
	Job    *LayoutJob `msgpack:"job"`
	Galley *Galley    `msgpack:"-"`
	// Underline is drawn below the run when Width > 0.
	Underline Stroke `msgpack:"underline"`
}

// TextureID names an image previously made available to the viewer.
type TextureID uint64

// ImageShape paints a texture region into Rect.
type ImageShape struct {
	Texture TextureID `msgpack:"texture"`
	Rect    Rect      `msgpack:"rect"`
	UV      Rect      `msgpack:"uv"`
	Tint    Color32   `msgpack:"tint"`
}

// ClippedShape is one draw item: a shape and the rectangle it is clipped to.
type ClippedShape struct {
	ClipRect Rect  `msgpack:"clip"`
	Shape    Shape `msgpack:"shape"`
}

// NewRect returns a rect shape.
func NewRect(r Rect, rounding float32, fill Color32, stroke Stroke) Shape {
	return Shape{Kind: ShapeRect, Rect: &RectShape{Rect: r, Rounding: rounding, Fill: fill, Stroke: stroke}}
}

// NewCircle returns a circle shape.
func NewCircle(center Pos2, radius float32, fill Color32, stroke Stroke) Shape {
	return Shape{Kind: ShapeCircle, Circle: &CircleShape{Center: center, Radius: radius, Fill: fill, Stroke: stroke}}
}

// NewPath returns a path shape. The points slice is retained.
func NewPath(points []Pos2, closed bool, fill Color32, stroke Stroke) Shape {
	return Shape{Kind: ShapePath, Path: &PathShape{Points: points, Closed: closed, Fill: fill, Stroke: stroke}}
}

// NewText returns a text shape without a realized galley.
func NewText(pos Pos2, job *LayoutJob) Shape {
	return Shape{Kind: ShapeText, Text: &TextShape{Pos: pos, Job: job}}
}

// NewImage returns an image shape.
func NewImage(tex TextureID, r, uv Rect, tint Color32) Shape {
	return Shape{Kind: ShapeImage, Image: &ImageShape{Texture: tex, Rect: r, UV: uv, Tint: tint}}
}

// VisualBounds returns an approximate bounding box, used for clipping tests
// and coordinate translation checks.
func (s Shape) VisualBounds() (Rect, bool) {
	switch s.Kind {
	case ShapeRect:
		return s.Rect.Rect, true
	case ShapeCircle:
		c := s.Circle
		return Rect{
			Min: Pos2{X: c.Center.X - c.Radius, Y: c.Center.Y - c.Radius},
			Max: Pos2{X: c.Center.X + c.Radius, Y: c.Center.Y + c.Radius},
		}, true
	case ShapePath:
		if len(s.Path.Points) == 0 {
			return Rect{}, false
		}
		r := Rect{Min: s.Path.Points[0], Max: s.Path.Points[0]}
		for _, p := range s.Path.Points[1:] {
			r.Min.X = min(r.Min.X, p.X)
			r.Min.Y = min(r.Min.Y, p.Y)
			r.Max.X = max(r.Max.X, p.X)
			r.Max.Y = max(r.Max.Y, p.Y)
		}
		return r, true
	case ShapeText:
		if s.Text.Galley == nil {
			return Rect{Min: s.Text.Pos, Max: s.Text.Pos}, true
		}
		return RectFromMinSize(s.Text.Pos, s.Text.Galley.Size), true
	case ShapeImage:
		return s.Image.Rect, true
	default:
		return Rect{}, false
	}
}

// Translate returns a copy of s moved by v. Variant payloads are copied,
// never mutated in place, so frames sharing a shape stay intact.
func (s Shape) Translate(v Vec2) Shape {
	out := Shape{Kind: s.Kind}
	switch s.Kind {
	case ShapeRect:
		r := *s.Rect
		r.Rect = r.Rect.Translate(v)
		out.Rect = &r
	case ShapeCircle:
		c := *s.Circle
		c.Center = c.Center.Add(v)
		out.Circle = &c
	case ShapePath:
		p := *s.Path
		p.Points = make([]Pos2, len(s.Path.Points))
		for i, pt := range s.Path.Points {
			p.Points[i] = pt.Add(v)
		}
		out.Path = &p
	case ShapeText:
		t := *s.Text
		t.Pos = t.Pos.Add(v)
		out.Text = &t
	case ShapeImage:
		img := *s.Image
		img.Rect = img.Rect.Translate(v)
		out.Image = &img
	}
	return out
}
