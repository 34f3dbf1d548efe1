package delta

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vango-dev/remoteui/pkg/contenthash"
	"github.com/vango-dev/remoteui/pkg/frame"
)

// countingLayouter builds a one-row galley and counts calls.
type countingLayouter struct {
	calls int
	err   error
}

func (l *countingLayouter) Layout(job *frame.LayoutJob) (*frame.Galley, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return &frame.Galley{Job: job, Size: frame.Vec2{X: float32(len(job.Text)) * 7, Y: 14}}, nil
}

var screen = frame.Rect{Max: frame.Pos2{X: 400, Y: 300}}

func circle(x float32) frame.ClippedShape {
	return frame.ClippedShape{ClipRect: screen, Shape: frame.NewCircle(frame.Pos2{X: x, Y: 10}, 4, frame.Red, frame.Stroke{})}
}

func box(x float32) frame.ClippedShape {
	r := frame.RectFromMinSize(frame.Pos2{X: x, Y: 0}, frame.Vec2{X: 10, Y: 10})
	return frame.ClippedShape{ClipRect: screen, Shape: frame.NewRect(r, 2, frame.Blue, frame.Stroke{Width: 1, Color: frame.Black})}
}

func label(text string) frame.ClippedShape {
	return frame.ClippedShape{ClipRect: screen, Shape: frame.NewText(frame.Pos2{X: 1, Y: 1}, frame.SimpleJob(text, 14, frame.Black, 0))}
}

func makeFrame(items ...frame.ClippedShape) *frame.Frame {
	return &frame.Frame{
		Shapes:         items,
		Platform:       frame.PlatformOutput{Cursor: frame.CursorPointer},
		PixelsPerPoint: 1,
	}
}

// stripGalleys drops realized layouts so frames can be compared by content.
func stripGalleys(f *frame.Frame) *frame.Frame {
	out := f.Clone()
	for i, item := range out.Shapes {
		if item.Shape.Kind == frame.ShapeText {
			t := *item.Shape.Text
			t.Galley = nil
			out.Shapes[i].Shape.Text = &t
		}
	}
	return out
}

func assertFrame(t *testing.T, got, want *frame.Frame) {
	t.Helper()
	if !reflect.DeepEqual(stripGalleys(got), stripGalleys(want)) {
		t.Errorf("decoded frame = %+v, want %+v", got, want)
	}
}

func roundTrip(t *testing.T, enc *Encoder, dec *Decoder, f *frame.Frame) (*Update, *frame.Frame) {
	t.Helper()
	u, err := enc.Encode(f)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := dec.Decode(u)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return u, got
}

func TestFullRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame *frame.Frame
	}{
		{name: "shapes", frame: makeFrame(circle(1), box(2), circle(3))},
		{name: "text", frame: makeFrame(label("hello"), box(1), label("world"))},
		{name: "empty", frame: makeFrame()},
		{name: "duplicates", frame: makeFrame(box(1), box(1), box(1))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			enc := NewEncoder()
			dec := NewDecoder(&countingLayouter{})

			u, err := enc.EncodeManual(tc.frame, false)
			if err != nil {
				t.Fatalf("EncodeManual failed: %v", err)
			}
			if u.Kind != KindFull {
				t.Fatalf("Kind = %v, want full", u.Kind)
			}
			got, err := dec.Decode(u)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			assertFrame(t, got, tc.frame)
		})
	}
}

func TestDecodeRehydratesText(t *testing.T) {
	l := &countingLayouter{}
	enc := NewEncoder()
	dec := NewDecoder(l)

	_, got := roundTrip(t, enc, dec, makeFrame(label("same"), label("same"), label("other")))

	for i, item := range got.Shapes {
		if item.Shape.Text.Galley == nil {
			t.Errorf("item %d has no galley", i)
		}
	}
	if l.calls != 2 {
		t.Errorf("layout calls = %d, want 2 (equal jobs share a galley)", l.calls)
	}
	if got.Shapes[0].Shape.Text.Galley != got.Shapes[1].Shape.Text.Galley {
		t.Error("equal jobs should share one galley instance")
	}

	// Inline text in a partial hits the cache filled by the Full update.
	moved := label("other")
	moved.Shape = frame.NewText(frame.Pos2{X: 50, Y: 50}, frame.SimpleJob("other", 14, frame.Black, 0))
	u, _ := roundTrip(t, enc, dec, makeFrame(moved, box(9)))
	if _, inline := u.Counts(); inline != 2 {
		t.Fatalf("inline ops = %d, want 2", inline)
	}
	if l.calls != 2 {
		t.Errorf("layout calls = %d after partial, want 2", l.calls)
	}
}

func TestDecodeFullResetsLayoutCache(t *testing.T) {
	l := &countingLayouter{}
	enc := NewEncoder()
	dec := NewDecoder(l)

	roundTrip(t, enc, dec, makeFrame(label("a")))
	if _, err := dec.Decode(mustEncodeManual(t, enc, makeFrame(label("a")), false)); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if l.calls != 2 {
		t.Errorf("layout calls = %d, want 2 (cache cleared on Full)", l.calls)
	}
	if dec.LayoutStats().Resets != 2 {
		t.Errorf("Resets = %d, want 2", dec.LayoutStats().Resets)
	}
}

func mustEncodeManual(t *testing.T, enc *Encoder, f *frame.Frame, partial bool) *Update {
	t.Helper()
	u, err := enc.EncodeManual(f, partial)
	if err != nil {
		t.Fatalf("EncodeManual failed: %v", err)
	}
	return u
}

func TestPartialDedup(t *testing.T) {
	enc := NewEncoder()
	dec := NewDecoder(&countingLayouter{})

	f1 := makeFrame(circle(1), box(2), label("x"), circle(4))
	roundTrip(t, enc, dec, f1)

	f2 := makeFrame(circle(1), box(2), label("y"), circle(4))
	f2.Platform.CopiedText = "copied"
	u, got := roundTrip(t, enc, dec, f2)

	if u.Kind != KindPartial {
		t.Fatalf("Kind = %v, want partial", u.Kind)
	}
	if u.Frame.Len() != 0 {
		t.Errorf("partial frame carries %d items, want 0", u.Frame.Len())
	}
	refs, inline := u.Counts()
	if refs != 3 || inline != 1 {
		t.Errorf("Counts() = (%d, %d), want (3, 1)", refs, inline)
	}
	if u.Ops[2].Kind != OpInline {
		t.Errorf("op 2 kind = %v, want inline", u.Ops[2].Kind)
	}
	for i, want := range []uint32{0, 1, 0, 3} {
		if i == 2 {
			continue
		}
		if u.Ops[i].Index != want {
			t.Errorf("op %d index = %d, want %d", i, u.Ops[i].Index, want)
		}
	}
	assertFrame(t, got, f2)
}

func TestPartialReferencesBaselineOnly(t *testing.T) {
	enc := NewEncoder()
	dec := NewDecoder(&countingLayouter{})

	f1 := makeFrame(circle(1), box(2), circle(3))
	roundTrip(t, enc, dec, f1)

	// F2 introduces box(7); F3 repeats it. F3 must inline box(7) again
	// because only F1 is the baseline.
	f2 := makeFrame(circle(1), box(7), circle(3))
	roundTrip(t, enc, dec, f2)

	f3 := makeFrame(circle(3), box(7), circle(1))
	u, got := roundTrip(t, enc, dec, f3)

	want := []Op{Reference(2), Inline(box(7)), Reference(0)}
	if len(u.Ops) != len(want) {
		t.Fatalf("ops = %d, want %d", len(u.Ops), len(want))
	}
	for i := range want {
		if u.Ops[i].Kind != want[i].Kind || u.Ops[i].Index != want[i].Index {
			t.Errorf("op %d = %v/%d, want %v/%d", i, u.Ops[i].Kind, u.Ops[i].Index, want[i].Kind, want[i].Index)
		}
	}
	assertFrame(t, got, f3)

	if enc.Baseline().Len() != 3 || !reflect.DeepEqual(enc.Baseline().Shapes, f1.Shapes) {
		t.Error("encoder baseline should still be F1")
	}
}

func TestPeriodicFullUpdate(t *testing.T) {
	const interval = 3
	enc := NewEncoder(WithFullUpdateInterval(interval))
	f := makeFrame(circle(1))

	var kinds []UpdateKind
	for i := 0; i < 2*(interval+1)+1; i++ {
		u, err := enc.Encode(f)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		kinds = append(kinds, u.Kind)
	}

	want := []UpdateKind{
		KindFull, KindPartial, KindPartial, KindPartial,
		KindFull, KindPartial, KindPartial, KindPartial,
		KindFull,
	}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("kinds = %v, want %v", kinds, want)
	}
}

func TestEncodeManual(t *testing.T) {
	t.Run("partial_without_baseline_is_full", func(t *testing.T) {
		enc := NewEncoder()
		u := mustEncodeManual(t, enc, makeFrame(box(1)), true)
		if u.Kind != KindFull {
			t.Errorf("Kind = %v, want full", u.Kind)
		}
	})

	t.Run("full_on_demand", func(t *testing.T) {
		enc := NewEncoder()
		mustEncodeManual(t, enc, makeFrame(box(1)), false)
		u := mustEncodeManual(t, enc, makeFrame(box(2)), false)
		if u.Kind != KindFull {
			t.Errorf("Kind = %v, want full", u.Kind)
		}
		if !reflect.DeepEqual(enc.Baseline().Shapes, []frame.ClippedShape{box(2)}) {
			t.Error("manual Full should replace the baseline")
		}
	})

	t.Run("partial_ignores_period", func(t *testing.T) {
		enc := NewEncoder(WithFullUpdateInterval(1))
		mustEncodeManual(t, enc, makeFrame(box(1)), false)
		for i := 0; i < 5; i++ {
			if u := mustEncodeManual(t, enc, makeFrame(box(1)), true); u.Kind != KindPartial {
				t.Fatalf("encode %d Kind = %v, want partial", i, u.Kind)
			}
		}
	})
}

func TestEncodeEmptyFrame(t *testing.T) {
	enc := NewEncoder()
	dec := NewDecoder(nil)

	roundTrip(t, enc, dec, makeFrame(box(1)))
	u, got := roundTrip(t, enc, dec, makeFrame())

	if u.Kind != KindPartial || len(u.Ops) != 0 {
		t.Errorf("update = %v with %d ops, want empty partial", u.Kind, len(u.Ops))
	}
	if got.Len() != 0 {
		t.Errorf("decoded %d items, want 0", got.Len())
	}
	if got.Platform.Cursor != frame.CursorPointer {
		t.Error("platform output must travel with every update")
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Run("no_baseline", func(t *testing.T) {
		dec := NewDecoder(nil)
		u := &Update{Kind: KindPartial, Frame: makeFrame().WithoutShapes(), Ops: []Op{Reference(0)}}
		if _, err := dec.Decode(u); !errors.Is(err, ErrNoBaseline) {
			t.Errorf("err = %v, want ErrNoBaseline", err)
		}
	})

	t.Run("out_of_range", func(t *testing.T) {
		enc := NewEncoder()
		dec := NewDecoder(nil)
		roundTrip(t, enc, dec, makeFrame(box(1), box(2)))

		u := &Update{Kind: KindPartial, Frame: makeFrame().WithoutShapes(), Ops: []Op{Reference(1), Reference(2)}}
		_, err := dec.Decode(u)
		var refErr *ReferenceError
		if !errors.As(err, &refErr) {
			t.Fatalf("err = %v, want *ReferenceError", err)
		}
		if refErr.Index != 2 || refErr.Len != 2 {
			t.Errorf("ReferenceError = %+v, want index 2 len 2", refErr)
		}
	})

	t.Run("out_of_range_in_debug_mode", func(t *testing.T) {
		enc := NewEncoder()
		dec := NewDecoder(nil, WithDebugMode(true))
		roundTrip(t, enc, dec, makeFrame(box(1)))

		u := &Update{Kind: KindPartial, Frame: makeFrame().WithoutShapes(), Ops: []Op{Reference(5)}}
		var refErr *ReferenceError
		if _, err := dec.Decode(u); !errors.As(err, &refErr) {
			t.Errorf("err = %v, want *ReferenceError", err)
		}
	})

	t.Run("layout_failure", func(t *testing.T) {
		boom := errors.New("no fonts")
		dec := NewDecoder(&countingLayouter{err: boom})
		u := mustEncodeManual(t, NewEncoder(), makeFrame(box(1), label("x")), false)

		_, err := dec.Decode(u)
		var rhErr *RehydrateError
		if !errors.As(err, &rhErr) || rhErr.Item != 1 {
			t.Fatalf("err = %v, want *RehydrateError for item 1", err)
		}
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, should wrap %v", err, boom)
		}
		if dec.Baseline() != nil {
			t.Error("failed Full update must not become the baseline")
		}
	})

	t.Run("text_without_layouter", func(t *testing.T) {
		dec := NewDecoder(nil)
		u := mustEncodeManual(t, NewEncoder(), makeFrame(label("x")), false)
		if _, err := dec.Decode(u); !errors.Is(err, ErrNoLayouter) {
			t.Errorf("err = %v, want ErrNoLayouter", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		dec := NewDecoder(nil)
		tests := []*Update{
			nil,
			{Kind: KindFull},
			{Kind: 9, Frame: makeFrame()},
			{Kind: KindPartial, Frame: makeFrame(), Ops: []Op{{Kind: OpInline}}},
			{Kind: KindPartial, Frame: makeFrame(), Ops: []Op{{Kind: 7}}},
		}
		for i, u := range tests {
			if _, err := dec.Decode(u); err == nil {
				t.Errorf("case %d: Decode succeeded, want error", i)
			}
		}
	})
}

func TestDebugModeOmitsReferences(t *testing.T) {
	enc := NewEncoder()
	dec := NewDecoder(&countingLayouter{})

	roundTrip(t, enc, dec, makeFrame(circle(1), box(2), circle(3)))
	dec.SetDebugMode(true)

	_, got := roundTrip(t, enc, dec, makeFrame(circle(1), box(5), circle(3)))

	if got.Len() != 1 {
		t.Fatalf("decoded %d items, want only the changed one", got.Len())
	}
	if !reflect.DeepEqual(got.Shapes[0], box(5)) {
		t.Errorf("item = %+v, want box(5)", got.Shapes[0])
	}
}

func TestDebugModeStillRequiresBaseline(t *testing.T) {
	dec := NewDecoder(nil, WithDebugMode(true))
	u := &Update{Kind: KindPartial, Frame: makeFrame().WithoutShapes(), Ops: []Op{Reference(0)}}

	if _, err := dec.Decode(u); !errors.Is(err, ErrNoBaseline) {
		t.Errorf("err = %v, want ErrNoBaseline", err)
	}
	if dec.Baseline() != nil {
		t.Error("failed decode must not set a baseline")
	}
}

func TestEncoderDecoderBaselineSymmetry(t *testing.T) {
	enc := NewEncoder(WithFullUpdateInterval(2))
	dec := NewDecoder(&countingLayouter{})

	frames := []*frame.Frame{
		makeFrame(circle(1), box(1)),
		makeFrame(circle(2), box(1)),
		makeFrame(circle(2), box(2)),
		makeFrame(circle(3), label("t")),
		makeFrame(label("t")),
		makeFrame(),
		makeFrame(box(9), box(9)),
	}

	for i, f := range frames {
		u, got := roundTrip(t, enc, dec, f)
		assertFrame(t, got, f)
		if !reflect.DeepEqual(stripGalleys(enc.Baseline()), stripGalleys(dec.Baseline())) {
			t.Fatalf("tick %d (%v): baselines diverged", i, u.Kind)
		}
	}
}

func TestVerifyOnMatchPolicy(t *testing.T) {
	enc := NewEncoder(WithPolicy(contenthash.VerifyOnMatch))
	dec := NewDecoder(&countingLayouter{}, WithLayoutPolicy(contenthash.VerifyOnMatch))

	roundTrip(t, enc, dec, makeFrame(box(1), label("a")))
	u, got := roundTrip(t, enc, dec, makeFrame(label("a"), box(1)))

	if refs, inline := u.Counts(); refs != 2 || inline != 0 {
		t.Errorf("Counts() = (%d, %d), want (2, 0)", refs, inline)
	}
	assertFrame(t, got, makeFrame(label("a"), box(1)))
}

func TestEncoderReset(t *testing.T) {
	enc := NewEncoder()
	mustEncodeManual(t, enc, makeFrame(box(1)), false)

	enc.Reset()

	if enc.Baseline() != nil {
		t.Error("Baseline() should be nil after Reset")
	}
	if u := mustEncodeManual(t, enc, makeFrame(box(1)), true); u.Kind != KindFull {
		t.Errorf("Kind = %v after Reset, want full", u.Kind)
	}
}

func TestKindStrings(t *testing.T) {
	if KindFull.String() != "full" || KindPartial.String() != "partial" {
		t.Errorf("UpdateKind strings = %q, %q", KindFull, KindPartial)
	}
	if OpReference.String() != "reference" || OpInline.String() != "inline" {
		t.Errorf("OpKind strings = %q, %q", OpReference, OpInline)
	}
}
