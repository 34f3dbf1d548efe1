package frame

// CursorIcon is the pointer cursor requested by the UI.
type CursorIcon uint8

const (
	CursorDefault   CursorIcon = 0
	CursorPointer   CursorIcon = 1
	CursorText      CursorIcon = 2
	CursorGrab      CursorIcon = 3
	CursorGrabbing  CursorIcon = 4
	CursorCrosshair CursorIcon = 5
	CursorNone      CursorIcon = 6
)

var cursorNames = [...]string{"default", "pointer", "text", "grab", "grabbing", "crosshair", "none"}

func (c CursorIcon) String() string {
	if int(c) < len(cursorNames) {
		return cursorNames[c]
	}
	return "unknown"
}

// OpenURL asks the viewer to open a link.
type OpenURL struct {
	URL    string `msgpack:"url"`
	NewTab bool   `msgpack:"new_tab"`
}

// IMEOutput tells the viewer where the text cursor is, so a platform input
// method can place its candidate window.
type IMEOutput struct {
	Rect       Rect `msgpack:"rect"`
	CursorRect Rect `msgpack:"cursor_rect"`
}

// AccessNode is one node of an accessibility tree update.
type AccessNode struct {
	ID       uint64   `msgpack:"id"`
	Role     string   `msgpack:"role"`
	Label    string   `msgpack:"label"`
	Bounds   Rect     `msgpack:"bounds"`
	Children []uint64 `msgpack:"children"`
}

// AccessUpdate is an accessibility tree delta.
type AccessUpdate struct {
	Nodes []AccessNode `msgpack:"nodes"`
	Focus uint64       `msgpack:"focus"`
}

// PlatformOutput carries the non-visual results of a UI pass. It travels
// inline with every update and is never deduplicated.
type PlatformOutput struct {
	CopiedText    string        `msgpack:"copied_text"`
	Cursor        CursorIcon    `msgpack:"cursor"`
	OpenURL       *OpenURL      `msgpack:"open_url,omitempty"`
	IME           *IMEOutput    `msgpack:"ime,omitempty"`
	Accessibility *AccessUpdate `msgpack:"access,omitempty"`
}

// Frame is one rendered scene: draw items in paint order plus the platform
// output of the pass that produced them.
type Frame struct {
	Shapes         []ClippedShape `msgpack:"shapes"`
	Platform       PlatformOutput `msgpack:"platform"`
	PixelsPerPoint float32        `msgpack:"ppp"`
}

// Len returns the number of draw items.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Shapes)
}

// WithoutShapes returns a copy of f carrying every field except the draw
// items. The copy shares PlatformOutput pointers with f.
func (f *Frame) WithoutShapes() *Frame {
	return &Frame{
		Shapes:         []ClippedShape{},
		Platform:       f.Platform,
		PixelsPerPoint: f.PixelsPerPoint,
	}
}

// Clone returns a copy of f with its own item slice. Shapes themselves are
// shared; frames are immutable once produced.
func (f *Frame) Clone() *Frame {
	out := *f
	out.Shapes = make([]ClippedShape, len(f.Shapes))
	copy(out.Shapes, f.Shapes)
	return &out
}

// Translate returns a copy of f with every draw item and its clip rect moved
// by v. IME rectangles move too; other platform output is position-free.
func (f *Frame) Translate(v Vec2) *Frame {
	out := *f
	out.Shapes = make([]ClippedShape, len(f.Shapes))
	for i, cs := range f.Shapes {
		clip := cs.ClipRect
		if clip != Everything {
			clip = clip.Translate(v)
		}
		out.Shapes[i] = ClippedShape{ClipRect: clip, Shape: cs.Shape.Translate(v)}
	}
	if f.Platform.IME != nil {
		ime := IMEOutput{
			Rect:       f.Platform.IME.Rect.Translate(v),
			CursorRect: f.Platform.IME.CursorRect.Translate(v),
		}
		out.Platform.IME = &ime
	}
	return &out
}
