package vtest

import "github.com/vango-dev/remoteui/pkg/frame"

// InputBuilder allows fluent construction of input snapshots.
type InputBuilder struct {
	in frame.Input
}

// NewInput creates a builder for a focused input at scale 1.
func NewInput() *InputBuilder {
	return &InputBuilder{in: frame.Input{PixelsPerPoint: 1, HasFocus: true}}
}

// Screen sets the viewer surface to w x h points at the origin.
func (b *InputBuilder) Screen(w, h float32) *InputBuilder {
	r := frame.Rect{Max: frame.Pos2{X: w, Y: h}}
	b.in.ScreenRect = &r
	return b
}

// Time sets the viewer clock.
func (b *InputBuilder) Time(seconds float64) *InputBuilder {
	b.in.Time = seconds
	return b
}

// MoveTo adds a pointer move.
func (b *InputBuilder) MoveTo(x, y float32) *InputBuilder {
	return b.event(frame.Event{Kind: frame.EventPointerMoved, Pos: frame.Pos2{X: x, Y: y}})
}

// Press adds a primary button press.
func (b *InputBuilder) Press(x, y float32) *InputBuilder {
	return b.event(frame.Event{Kind: frame.EventPointerButton, Pos: frame.Pos2{X: x, Y: y}, Button: frame.ButtonPrimary, Pressed: true})
}

// Release adds a primary button release.
func (b *InputBuilder) Release(x, y float32) *InputBuilder {
	return b.event(frame.Event{Kind: frame.EventPointerButton, Pos: frame.Pos2{X: x, Y: y}, Button: frame.ButtonPrimary})
}

// Click adds a move, press and release at one point.
func (b *InputBuilder) Click(x, y float32) *InputBuilder {
	return b.MoveTo(x, y).Press(x, y).Release(x, y)
}

// Leave adds a pointer-gone event.
func (b *InputBuilder) Leave() *InputBuilder {
	return b.event(frame.Event{Kind: frame.EventPointerGone})
}

// Type adds a text event.
func (b *InputBuilder) Type(text string) *InputBuilder {
	return b.event(frame.Event{Kind: frame.EventText, Text: text})
}

// Key adds a key press.
func (b *InputBuilder) Key(name string) *InputBuilder {
	return b.event(frame.Event{Kind: frame.EventKey, Key: name, Pressed: true})
}

// Scroll adds a scroll event.
func (b *InputBuilder) Scroll(dx, dy float32) *InputBuilder {
	return b.event(frame.Event{Kind: frame.EventScroll, Delta: frame.Vec2{X: dx, Y: dy}})
}

// Unfocused marks the viewer surface as unfocused.
func (b *InputBuilder) Unfocused() *InputBuilder {
	b.in.HasFocus = false
	return b
}

func (b *InputBuilder) event(e frame.Event) *InputBuilder {
	b.in.Events = append(b.in.Events, e)
	return b
}

// Build returns the input snapshot. The builder may be reused.
func (b *InputBuilder) Build() *frame.Input {
	in := b.in
	in.Events = append([]frame.Event(nil), b.in.Events...)
	if b.in.ScreenRect != nil {
		r := *b.in.ScreenRect
		in.ScreenRect = &r
	}
	return &in
}
