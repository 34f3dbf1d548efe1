package delta

import (
	"fmt"

	"github.com/vango-dev/remoteui/pkg/contenthash"
	"github.com/vango-dev/remoteui/pkg/frame"
)

// DefaultFullUpdateInterval is the number of partial-eligible encodes after
// which a Full update is forced.
const DefaultFullUpdateInterval = 90

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithFullUpdateInterval sets the forced Full update period. n <= 0 keeps
// the default.
func WithFullUpdateInterval(n int) EncoderOption {
	return func(e *Encoder) {
		if n > 0 {
			e.interval = n
		}
	}
}

// WithPolicy sets the digest-match policy of the baseline index.
func WithPolicy(p contenthash.Policy) EncoderOption {
	return func(e *Encoder) {
		e.policy = p
	}
}

// Encoder turns frames into updates for one viewer. It is not safe for
// concurrent use; each session owns one on the render goroutine.
type Encoder struct {
	// index maps a shape's content to its first position in the baseline.
	index    *contenthash.Cache[int]
	baseline *frame.Frame
	policy   contenthash.Policy
	interval int
	counter  int
}

// NewEncoder creates an encoder with no baseline.
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{
		interval: DefaultFullUpdateInterval,
		policy:   contenthash.ContentAddressed,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.index = contenthash.New[int](contenthash.WithPolicy(e.policy))
	return e
}

// Interval returns the forced Full update period.
func (e *Encoder) Interval() int {
	return e.interval
}

// Encode encodes f as a Partial update against the baseline when one exists,
// and as a Full update otherwise or when the period has elapsed.
func (e *Encoder) Encode(f *frame.Frame) (*Update, error) {
	partial := e.baseline != nil
	if partial {
		e.counter++
		if e.counter > e.interval {
			partial = false
		}
	}
	return e.EncodeManual(f, partial)
}

// EncodeManual encodes f with an explicit mode, bypassing the periodic
// policy. A partial request without a baseline is encoded as Full.
func (e *Encoder) EncodeManual(f *frame.Frame, partial bool) (*Update, error) {
	if f == nil {
		f = &frame.Frame{}
	}
	if partial && e.baseline != nil {
		return e.encodePartial(f)
	}
	return e.encodeFull(f)
}

// Reset drops the baseline so the next encode is Full.
func (e *Encoder) Reset() {
	e.index.Reset()
	e.baseline = nil
	e.counter = 0
}

// Baseline returns the frame of the last Full update, or nil.
func (e *Encoder) Baseline() *frame.Frame {
	return e.baseline
}

func (e *Encoder) encodeFull(f *frame.Frame) (*Update, error) {
	e.index.Reset()
	for i, item := range f.Shapes {
		// Duplicates keep their first position.
		if _, err := e.index.Insert(item, i); err != nil {
			e.index.Reset()
			e.baseline = nil
			return nil, fmt.Errorf("delta: index item %d: %w", i, err)
		}
	}
	e.baseline = f.Clone()
	e.counter = 0
	return &Update{Kind: KindFull, Frame: f.Clone()}, nil
}

func (e *Encoder) encodePartial(f *frame.Frame) (*Update, error) {
	ops := make([]Op, 0, len(f.Shapes))
	for i, item := range f.Shapes {
		pos, ok, err := e.index.Lookup(item)
		if err != nil {
			return nil, fmt.Errorf("delta: key item %d: %w", i, err)
		}
		if ok {
			ops = append(ops, Reference(pos))
		} else {
			ops = append(ops, Inline(item))
		}
	}
	return &Update{Kind: KindPartial, Frame: f.WithoutShapes(), Ops: ops}, nil
}
