// Package ui is a small immediate-mode toolkit that turns an application
// callback and an input snapshot into a Frame.
//
// The host keeps one Context per viewer. Every pass the application callback
// runs from scratch against the current input and emits draw items; state
// that must survive between passes lives in the application or in the
// viewer's userdata store (Context.Data).
//
// Run reports whether the pass needs to reach the viewer. A pass repaints on
// the first run, when the viewer's surface changes, when the application
// calls RequestRepaint, or when the produced frame differs from the previous
// one. Input that changes nothing visible does not repaint.
package ui

import (
	"github.com/vango-dev/remoteui/pkg/contenthash"
	"github.com/vango-dev/remoteui/pkg/frame"
	"github.com/vango-dev/remoteui/pkg/layout"
	"github.com/vango-dev/remoteui/pkg/userdata"
)

// maxGalleys bounds the host-side layout cache; it is reset when full.
const maxGalleys = 1024

// App is the application callback run once per pass.
type App func(*Context)

// Output is the result of one pass.
type Output struct {
	Frame   *frame.Frame
	Repaint bool
	// Err is the first text layout error of the pass, if any. The frame is
	// still complete; text that failed to lay out has no galley.
	Err error
}

// Context is the persistent per-viewer toolkit state. It is not safe for
// concurrent use.
type Context struct {
	layouter layout.Layouter
	data     *userdata.Store
	galleys  *contenthash.Cache[*frame.Galley]

	passes     uint64
	prev       contenthash.Key
	prevScreen frame.Rect
	pointer    frame.Pos2
	hasPointer bool
	down       bool

	// Per pass.
	input    *frame.Input
	screen   frame.Rect
	clip     frame.Rect
	shapes   []frame.ClippedShape
	platform frame.PlatformOutput
	repaint  bool
	err      error
}

// NewContext creates a context laying text out with l. l may be nil, in
// which case text shapes carry no galley and measure as empty.
func NewContext(l layout.Layouter) *Context {
	return &Context{
		layouter: l,
		data:     userdata.NewStore(),
		galleys:  contenthash.New[*frame.Galley](),
	}
}

// Data returns the per-viewer store.
func (c *Context) Data() *userdata.Store {
	return c.data
}

// Passes returns the number of completed passes.
func (c *Context) Passes() uint64 {
	return c.passes
}

// Run runs app against in and returns the produced frame.
func (c *Context) Run(in *frame.Input, app App) Output {
	if in == nil {
		in = &frame.Input{}
	}
	c.begin(in)
	app(c)
	return c.end()
}

func (c *Context) begin(in *frame.Input) {
	c.input = in
	c.screen = frame.Rect{}
	if in.ScreenRect != nil {
		c.screen = *in.ScreenRect
	} else {
		c.screen = c.prevScreen
	}
	c.clip = c.screen
	if c.clip == (frame.Rect{}) {
		c.clip = frame.Everything
	}
	c.shapes = nil
	c.platform = frame.PlatformOutput{}
	c.repaint = false
	c.err = nil

	for _, ev := range in.Events {
		switch ev.Kind {
		case frame.EventPointerMoved:
			c.pointer, c.hasPointer = ev.Pos, true
		case frame.EventPointerButton:
			c.pointer, c.hasPointer = ev.Pos, true
			if ev.Button == frame.ButtonPrimary {
				c.down = ev.Pressed
			}
		case frame.EventPointerGone:
			c.hasPointer, c.down = false, false
		}
	}
}

func (c *Context) end() Output {
	ppp := c.input.PixelsPerPoint
	if ppp <= 0 {
		ppp = 1
	}
	f := &frame.Frame{
		Shapes:         c.shapes,
		Platform:       c.platform,
		PixelsPerPoint: ppp,
	}
	if f.Shapes == nil {
		f.Shapes = []frame.ClippedShape{}
	}

	repaint := c.repaint || c.passes == 0 || c.screen != c.prevScreen
	digest, err := contenthash.Digest(f)
	if err != nil {
		// Unhashable frames always repaint.
		repaint = true
	} else if digest != c.prev {
		repaint = true
	}

	c.prev = digest
	c.prevScreen = c.screen
	c.passes++
	c.input = nil

	return Output{Frame: f, Repaint: repaint, Err: c.err}
}

// RequestRepaint forces this pass to be sent even if the frame is unchanged.
func (c *Context) RequestRepaint() {
	c.repaint = true
}

// Input returns the input of the current pass.
func (c *Context) Input() *frame.Input {
	return c.input
}

// Screen returns the viewer's surface, or the zero Rect if unknown.
func (c *Context) Screen() frame.Rect {
	return c.screen
}

// PointerPos returns the last known pointer position.
func (c *Context) PointerPos() (frame.Pos2, bool) {
	return c.pointer, c.hasPointer
}

// PointerDown reports whether the primary button is held.
func (c *Context) PointerDown() bool {
	return c.down
}

// Clicked reports whether the primary button was pressed inside r during
// this pass.
func (c *Context) Clicked(r frame.Rect) bool {
	for _, ev := range c.input.Events {
		if ev.Kind == frame.EventPointerButton && ev.Button == frame.ButtonPrimary && ev.Pressed && r.Contains(ev.Pos) {
			return true
		}
	}
	return false
}

// Hovered reports whether the pointer is inside r.
func (c *Context) Hovered(r frame.Rect) bool {
	return c.hasPointer && r.Contains(c.pointer)
}

// WithClip runs fn with items clipped to r.
func (c *Context) WithClip(r frame.Rect, fn func()) {
	prev := c.clip
	c.clip = r
	fn()
	c.clip = prev
}
