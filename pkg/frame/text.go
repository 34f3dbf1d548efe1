package frame

// Align is horizontal alignment of laid out rows.
type Align uint8

const (
	AlignLeft   Align = 0
	AlignCenter Align = 1
	AlignRight  Align = 2
)

// TextFormat styles one section of a LayoutJob.
type TextFormat struct {
	FontSize   float32 `msgpack:"size"`
	Color      Color32 `msgpack:"color"`
	Background Color32 `msgpack:"bg"`
	Monospace  bool    `msgpack:"mono"`
}

// LayoutSection applies Format to Text[ByteStart:ByteEnd].
type LayoutSection struct {
	ByteStart int        `msgpack:"start"`
	ByteEnd   int        `msgpack:"end"`
	Format    TextFormat `msgpack:"format"`
}

// LayoutJob is the portable request for laying out text: the text, its
// styling and the wrap constraints. It is what crosses the wire for text.
type LayoutJob struct {
	Text     string          `msgpack:"text"`
	Sections []LayoutSection `msgpack:"sections"`
	// WrapWidth is the maximum row width in points; 0 disables wrapping.
	WrapWidth float32 `msgpack:"wrap"`
	Halign    Align   `msgpack:"halign"`
}

// SimpleJob returns a single-section job covering all of text.
func SimpleJob(text string, size float32, color Color32, wrapWidth float32) *LayoutJob {
	return &LayoutJob{
		Text: text,
		Sections: []LayoutSection{{
			ByteStart: 0,
			ByteEnd:   len(text),
			Format:    TextFormat{FontSize: size, Color: color},
		}},
		WrapWidth: wrapWidth,
	}
}

// Glyph is one positioned glyph inside a Galley, relative to the row origin.
type Glyph struct {
	ID      uint32
	X       float32
	Y       float32
	Advance float32
	// Cluster is the rune index the glyph was shaped from.
	Cluster int
	// Section indexes the LayoutJob section that styles this glyph.
	Section int
}

// Row is one laid out line.
type Row struct {
	Glyphs []Glyph
	Rect   Rect
}

// Galley is a realized text layout. It depends on the fonts available where
// it was built and is therefore rebuilt locally from Job on each side.
type Galley struct {
	Job  *LayoutJob
	Rows []Row
	Size Vec2
}
