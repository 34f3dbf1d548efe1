package vtest

import (
	"testing"

	"github.com/vango-dev/remoteui/pkg/delta"
	"github.com/vango-dev/remoteui/pkg/frame"
	"github.com/vango-dev/remoteui/pkg/layout"
	"github.com/vango-dev/remoteui/pkg/protocol"
	"github.com/vango-dev/remoteui/pkg/ui"
)

// ViewerOption configures a Viewer.
type ViewerOption func(*Viewer)

// WithScreen sets the surface sent with the first input.
func WithScreen(w, h float32) ViewerOption {
	return func(v *Viewer) {
		v.screen = &frame.Rect{Max: frame.Pos2{X: w, Y: h}}
	}
}

// WithLayouter sets the layouter of both sides. Default: layout.Default().
func WithLayouter(l layout.Layouter) ViewerOption {
	return func(v *Viewer) {
		v.layouter = l
	}
}

// WithFullUpdateInterval sets the encoder's full update interval.
func WithFullUpdateInterval(n int) ViewerOption {
	return func(v *Viewer) {
		v.encOpts = append(v.encOpts, delta.WithFullUpdateInterval(n))
	}
}

// WithDebugMode puts the decoder in debug mode.
func WithDebugMode() ViewerOption {
	return func(v *Viewer) {
		v.decOpts = append(v.decOpts, delta.WithDebugMode(true))
	}
}

// Viewer drives one app session in process. It is not safe for concurrent
// use.
type Viewer struct {
	t        testing.TB
	app      ui.App
	layouter layout.Layouter
	screen   *frame.Rect
	encOpts  []delta.EncoderOption
	decOpts  []delta.DecoderOption

	ctx     *ui.Context
	encoder *delta.Encoder
	decoder *delta.Decoder

	last      *frame.Frame
	lastKind  delta.UpdateKind
	repainted bool
	updates   int
	wireBytes int
}

// NewViewer creates a viewer for app. Failures are reported through t.
func NewViewer(t testing.TB, app ui.App, opts ...ViewerOption) *Viewer {
	t.Helper()
	v := &Viewer{t: t, app: app}
	for _, opt := range opts {
		opt(v)
	}
	if v.layouter == nil {
		l, err := layout.Default()
		if err != nil {
			t.Fatalf("vtest: default layouter: %v", err)
		}
		v.layouter = l
	}
	v.ctx = ui.NewContext(v.layouter)
	v.encoder = delta.NewEncoder(v.encOpts...)
	v.decoder = delta.NewDecoder(v.layouter, v.decOpts...)
	return v
}

// Context returns the app context, for access to per-viewer data.
func (v *Viewer) Context() *ui.Context {
	return v.ctx
}

// Step sends in through the wire codec, runs the app and returns the frame
// the viewer shows afterwards. A suppressed pass returns the previous frame.
func (v *Viewer) Step(in *frame.Input) *frame.Frame {
	v.t.Helper()
	if in == nil {
		in = NewInput().Build()
	}
	if in.ScreenRect == nil && v.screen != nil && v.updates == 0 {
		r := *v.screen
		in.ScreenRect = &r
	}

	data, err := protocol.EncodeInput(in)
	if err != nil {
		v.t.Fatalf("vtest: encode input: %v", err)
	}
	in, err = protocol.DecodeInput(data, 0)
	if err != nil {
		v.t.Fatalf("vtest: decode input: %v", err)
	}

	out := v.ctx.Run(in, v.app)
	if out.Err != nil {
		v.t.Errorf("vtest: app reported: %v", out.Err)
	}
	v.repainted = out.Repaint
	if !out.Repaint {
		return v.last
	}

	u, err := v.encoder.Encode(out.Frame)
	if err != nil {
		v.t.Fatalf("vtest: encode frame: %v", err)
	}
	msg, err := protocol.EncodeUpdate(u)
	if err != nil {
		v.t.Fatalf("vtest: encode update: %v", err)
	}
	u, err = protocol.DecodeUpdate(msg, 0)
	if err != nil {
		v.t.Fatalf("vtest: decode update: %v", err)
	}
	f, err := v.decoder.Decode(u)
	if err != nil {
		v.t.Fatalf("vtest: decode %s update: %v", u.Kind, err)
	}

	v.last = f
	v.lastKind = u.Kind
	v.updates++
	v.wireBytes += len(msg)
	return f
}

// Click steps with a primary click at x, y.
func (v *Viewer) Click(x, y float32) *frame.Frame {
	v.t.Helper()
	return v.Step(NewInput().Click(x, y).Build())
}

// Idle steps with an input carrying no events.
func (v *Viewer) Idle() *frame.Frame {
	v.t.Helper()
	return v.Step(NewInput().Build())
}

// Frame returns the frame currently shown, or nil before the first update.
func (v *Viewer) Frame() *frame.Frame {
	return v.last
}

// Repainted reports whether the last step produced an update.
func (v *Viewer) Repainted() bool {
	return v.repainted
}

// LastKind returns the kind of the last update received.
func (v *Viewer) LastKind() delta.UpdateKind {
	return v.lastKind
}

// Updates returns the number of updates received.
func (v *Viewer) Updates() int {
	return v.updates
}

// WireBytes returns the total encoded size of the updates received.
func (v *Viewer) WireBytes() int {
	return v.wireBytes
}
