package frame

// EventKind discriminates input events.
type EventKind uint8

const (
	EventPointerMoved  EventKind = 0x01
	EventPointerButton EventKind = 0x02
	EventPointerGone   EventKind = 0x03
	EventKey           EventKind = 0x04
	EventText          EventKind = 0x05
	EventScroll        EventKind = 0x06
	EventCopy          EventKind = 0x07
	EventPaste         EventKind = 0x08
	EventFocus         EventKind = 0x09
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventPointerMoved:
		return "PointerMoved"
	case EventPointerButton:
		return "PointerButton"
	case EventPointerGone:
		return "PointerGone"
	case EventKey:
		return "Key"
	case EventText:
		return "Text"
	case EventScroll:
		return "Scroll"
	case EventCopy:
		return "Copy"
	case EventPaste:
		return "Paste"
	case EventFocus:
		return "Focus"
	default:
		return "Unknown"
	}
}

// PointerButton identifies a mouse button.
type PointerButton uint8

const (
	ButtonPrimary   PointerButton = 0
	ButtonSecondary PointerButton = 1
	ButtonMiddle    PointerButton = 2
)

// Modifiers is the keyboard modifier state.
type Modifiers struct {
	Alt     bool `msgpack:"alt"`
	Ctrl    bool `msgpack:"ctrl"`
	Shift   bool `msgpack:"shift"`
	Command bool `msgpack:"cmd"`
}

// Event is one discrete input event. Fields not relevant to Kind are zero.
type Event struct {
	Kind      EventKind     `msgpack:"k"`
	Pos       Pos2          `msgpack:"pos"`
	Button    PointerButton `msgpack:"button"`
	Pressed   bool          `msgpack:"pressed"`
	Key       string        `msgpack:"key"`
	Text      string        `msgpack:"text"`
	Delta     Vec2          `msgpack:"delta"`
	Modifiers Modifiers     `msgpack:"mods"`
}

// HasPos reports whether the event carries a pointer position.
func (e Event) HasPos() bool {
	return e.Kind == EventPointerMoved || e.Kind == EventPointerButton
}

// Input is a raw input snapshot sent by a viewer each frame.
type Input struct {
	// ScreenRect is the viewer's surface in remote coordinates.
	ScreenRect *Rect `msgpack:"screen_rect,omitempty"`
	// PixelsPerPoint is the viewer's display scale; 0 means unknown.
	PixelsPerPoint float32 `msgpack:"ppp"`
	// Time is seconds since the viewer started; 0 means unknown.
	Time float64 `msgpack:"time"`
	// Modifiers is the modifier state at the end of the frame.
	Modifiers Modifiers `msgpack:"mods"`
	Events    []Event   `msgpack:"events"`
	// HasFocus is false while the viewer surface is unfocused.
	HasFocus bool `msgpack:"focus"`
}

// Blank returns a copy of in with all discrete events removed, keeping only
// continuous state. The host replays it to re-render without user action.
func (in *Input) Blank() *Input {
	out := *in
	out.Events = nil
	if in.ScreenRect != nil {
		r := *in.ScreenRect
		out.ScreenRect = &r
	}
	return &out
}

// Translate returns a copy of in with every pointer position moved by v.
func (in *Input) Translate(v Vec2) *Input {
	out := *in
	if in.ScreenRect != nil {
		r := in.ScreenRect.Translate(v)
		out.ScreenRect = &r
	}
	out.Events = make([]Event, len(in.Events))
	for i, ev := range in.Events {
		if ev.HasPos() {
			ev.Pos = ev.Pos.Add(v)
		}
		out.Events[i] = ev
	}
	return &out
}
