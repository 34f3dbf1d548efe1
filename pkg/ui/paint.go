package ui

import (
	"github.com/vango-dev/remoteui/pkg/frame"
)

// Visuals used by widgets.
var (
	ButtonFill      = frame.RGB(60, 60, 60)
	ButtonFillHover = frame.RGB(80, 80, 80)
	ButtonText      = frame.RGB(230, 230, 230)
	ButtonPadding   = frame.Vec2{X: 8, Y: 4}
)

// Add appends a shape clipped to the current clip rect.
func (c *Context) Add(s frame.Shape) {
	c.shapes = append(c.shapes, frame.ClippedShape{ClipRect: c.clip, Shape: s})
}

// FillRect paints a filled rectangle.
func (c *Context) FillRect(r frame.Rect, rounding float32, fill frame.Color32) {
	c.Add(frame.NewRect(r, rounding, fill, frame.Stroke{}))
}

// Circle paints a filled circle.
func (c *Context) Circle(center frame.Pos2, radius float32, fill frame.Color32) {
	c.Add(frame.NewCircle(center, radius, fill, frame.Stroke{}))
}

// Line paints an open polyline.
func (c *Context) Line(points []frame.Pos2, stroke frame.Stroke) {
	if len(points) < 2 {
		return
	}
	pts := make([]frame.Pos2, len(points))
	copy(pts, points)
	c.Add(frame.NewPath(pts, false, frame.Transparent, stroke))
}

// Text lays job out and paints it with its top-left corner at pos. It
// returns the painted area.
func (c *Context) Text(pos frame.Pos2, job *frame.LayoutJob) frame.Rect {
	s := frame.NewText(pos, job)
	s.Text.Galley = c.layout(job)
	c.Add(s)
	r, _ := s.VisualBounds()
	return r
}

// Label paints a single-section text run.
func (c *Context) Label(pos frame.Pos2, text string, size float32, color frame.Color32) frame.Rect {
	return c.Text(pos, frame.SimpleJob(text, size, color, 0))
}

// Measure returns the size text would take without painting it.
func (c *Context) Measure(job *frame.LayoutJob) frame.Vec2 {
	if g := c.layout(job); g != nil {
		return g.Size
	}
	return frame.Vec2{}
}

// Button paints a button with its top-left corner at pos and reports
// whether it was clicked during this pass.
func (c *Context) Button(pos frame.Pos2, text string) bool {
	job := frame.SimpleJob(text, 14, ButtonText, 0)
	size := c.Measure(job)
	r := frame.RectFromMinSize(pos, frame.Vec2{
		X: size.X + 2*ButtonPadding.X,
		Y: size.Y + 2*ButtonPadding.Y,
	})

	fill := ButtonFill
	if c.Hovered(r) {
		fill = ButtonFillHover
		c.SetCursor(frame.CursorPointer)
	}
	c.FillRect(r, 3, fill)
	c.Text(pos.Add(ButtonPadding), job)
	return c.Clicked(r)
}

// CopyText asks the viewer to put text on its clipboard.
func (c *Context) CopyText(text string) {
	c.platform.CopiedText = text
}

// SetCursor sets the requested pointer cursor.
func (c *Context) SetCursor(icon frame.CursorIcon) {
	c.platform.Cursor = icon
}

// OpenURL asks the viewer to open url.
func (c *Context) OpenURL(url string, newTab bool) {
	c.platform.OpenURL = &frame.OpenURL{URL: url, NewTab: newTab}
}

// SetIME tells the viewer where text input happens.
func (c *Context) SetIME(area, cursor frame.Rect) {
	c.platform.IME = &frame.IMEOutput{Rect: area, CursorRect: cursor}
}

func (c *Context) layout(job *frame.LayoutJob) *frame.Galley {
	if c.layouter == nil {
		return nil
	}
	if c.galleys.Len() >= maxGalleys {
		c.galleys.Reset()
	}
	g, err := c.galleys.GetOrCompute(job, func() (*frame.Galley, error) {
		return c.layouter.Layout(job)
	})
	if err != nil {
		if c.err == nil {
			c.err = err
		}
		return nil
	}
	return g
}
