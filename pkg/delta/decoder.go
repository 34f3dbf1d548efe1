package delta

import (
	"errors"
	"fmt"

	"github.com/vango-dev/remoteui/pkg/contenthash"
	"github.com/vango-dev/remoteui/pkg/frame"
	"github.com/vango-dev/remoteui/pkg/layout"
)

// Decode errors. Baseline desynchronization is always reported; a missing
// item is never replaced with a blank shape.
var (
	ErrNoBaseline   = errors.New("delta: partial update without baseline")
	ErrUnknownKind  = errors.New("delta: unknown update kind")
	ErrMissingFrame = errors.New("delta: update has no frame")
	ErrMalformedOp  = errors.New("delta: malformed op")
	ErrNoLayouter   = errors.New("delta: text shape needs a layouter")
)

// ReferenceError reports a reference outside the baseline.
type ReferenceError struct {
	Index int
	Len   int
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("delta: reference %d out of range (baseline has %d items)", e.Index, e.Len)
}

// RehydrateError reports a failure to rebuild the local form of an item.
type RehydrateError struct {
	Item int
	Err  error
}

func (e *RehydrateError) Error() string {
	return fmt.Sprintf("delta: rehydrate item %d: %v", e.Item, e.Err)
}

func (e *RehydrateError) Unwrap() error {
	return e.Err
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithDebugMode makes partial updates omit referenced items, leaving only
// the items that changed since the baseline.
// References are still checked against the baseline.
func WithDebugMode(on bool) DecoderOption {
	return func(d *Decoder) {
		d.debug = on
	}
}

// WithLayoutPolicy sets the digest-match policy of the layout cache.
func WithLayoutPolicy(p contenthash.Policy) DecoderOption {
	return func(d *Decoder) {
		d.policy = p
	}
}

// Decoder rebuilds frames from updates for one connection. It is not safe
// for concurrent use.
type Decoder struct {
	layouter layout.Layouter
	layouts  *contenthash.Cache[*frame.Galley]
	baseline *frame.Frame
	policy   contenthash.Policy
	debug    bool
}

// NewDecoder creates a decoder. Text shapes are laid out again with l.
func NewDecoder(l layout.Layouter, opts ...DecoderOption) *Decoder {
	d := &Decoder{layouter: l, policy: contenthash.ContentAddressed}
	for _, opt := range opts {
		opt(d)
	}
	d.layouts = contenthash.New[*frame.Galley](contenthash.WithPolicy(d.policy))
	return d
}

// SetDebugMode toggles reference omission for subsequent partial updates.
func (d *Decoder) SetDebugMode(on bool) {
	d.debug = on
}

// DebugMode reports whether referenced items are omitted.
func (d *Decoder) DebugMode() bool {
	return d.debug
}

// Baseline returns the frame of the last Full update, or nil.
func (d *Decoder) Baseline() *frame.Frame {
	return d.baseline
}

// LayoutStats returns the layout cache counters.
func (d *Decoder) LayoutStats() contenthash.Stats {
	return d.layouts.Stats()
}

// Decode reconstructs the frame described by u.
//
// A failed Full update leaves the previous baseline in place; the caller is
// expected to drop the connection rather than continue.
func (d *Decoder) Decode(u *Update) (*frame.Frame, error) {
	if u == nil || u.Frame == nil {
		return nil, ErrMissingFrame
	}
	switch u.Kind {
	case KindFull:
		return d.decodeFull(u.Frame)
	case KindPartial:
		return d.decodePartial(u)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, u.Kind)
	}
}

func (d *Decoder) decodeFull(in *frame.Frame) (*frame.Frame, error) {
	// The layout cache lives as long as the baseline.
	d.layouts.Reset()

	out := in.Clone()
	for i := range out.Shapes {
		item, err := d.rehydrate(out.Shapes[i])
		if err != nil {
			return nil, &RehydrateError{Item: i, Err: err}
		}
		out.Shapes[i] = item
	}
	d.baseline = out
	return out.Clone(), nil
}

func (d *Decoder) decodePartial(u *Update) (*frame.Frame, error) {
	out := u.Frame.WithoutShapes()
	out.Shapes = make([]frame.ClippedShape, 0, len(u.Ops))

	for i, op := range u.Ops {
		switch op.Kind {
		case OpInline:
			if op.Item == nil {
				return nil, fmt.Errorf("%w: inline op %d has no item", ErrMalformedOp, i)
			}
			item, err := d.rehydrate(*op.Item)
			if err != nil {
				return nil, &RehydrateError{Item: i, Err: err}
			}
			out.Shapes = append(out.Shapes, item)
		case OpReference:
			if d.baseline == nil {
				return nil, ErrNoBaseline
			}
			idx := int(op.Index)
			if idx >= len(d.baseline.Shapes) {
				return nil, &ReferenceError{Index: idx, Len: len(d.baseline.Shapes)}
			}
			if !d.debug {
				out.Shapes = append(out.Shapes, d.baseline.Shapes[idx])
			}
		default:
			return nil, fmt.Errorf("%w: op %d has kind %d", ErrMalformedOp, i, op.Kind)
		}
	}
	return out, nil
}

// rehydrate rebuilds the parts of item that do not cross the wire.
func (d *Decoder) rehydrate(item frame.ClippedShape) (frame.ClippedShape, error) {
	if item.Shape.Kind != frame.ShapeText {
		return item, nil
	}
	text := item.Shape.Text
	if text == nil || text.Job == nil {
		return item, fmt.Errorf("%w: text shape without layout job", ErrMalformedOp)
	}
	if d.layouter == nil {
		return item, ErrNoLayouter
	}

	galley, err := d.layouts.GetOrCompute(text.Job, func() (*frame.Galley, error) {
		return d.layouter.Layout(text.Job)
	})
	if err != nil {
		return item, err
	}

	t := *text
	t.Galley = galley
	item.Shape.Text = &t
	return item, nil
}
