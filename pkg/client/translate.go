package client

import "github.com/vango-dev/remoteui/pkg/frame"

// TranslateInput maps input captured on the embedding surface into the
// coordinates of a remote surface occupying rect. Pointer positions are made
// relative to rect.Min and the screen becomes rect's size at the origin.
func TranslateInput(in *frame.Input, rect frame.Rect) *frame.Input {
	out := in.Translate(rect.Min.ToVec2().Neg())
	screen := frame.Rect{Max: frame.Pos2{X: rect.Width(), Y: rect.Height()}}
	out.ScreenRect = &screen
	return out
}

// TranslateFrame maps a decoded frame into the embedding surface, placing the
// remote origin at origin.
func TranslateFrame(f *frame.Frame, origin frame.Pos2) *frame.Frame {
	return f.Translate(origin.ToVec2())
}
