// Package delta encodes a stream of frames into full and partial updates and
// reconstructs frames from them on the viewing side.
//
// A Full update carries a whole frame and becomes the new baseline on both
// sides. A Partial update carries the frame's platform output inline and an
// ordered op list: each op either references an item of the baseline by
// position or carries a new item inline. References always point into the
// baseline, never into an earlier partial update, so a lost or corrupt
// partial cannot compound. Baselines are refreshed periodically and whenever
// the encoder has none.
//
// Shapes are matched by content digest (see package contenthash). Under the
// default ContentAddressed policy two shapes with equal digests are treated
// as the same shape.
package delta

import (
	"fmt"

	"github.com/vango-dev/remoteui/pkg/frame"
)

// UpdateKind discriminates Full and Partial updates.
type UpdateKind uint8

const (
	KindFull    UpdateKind = 0x01 // Whole frame, resets the baseline
	KindPartial UpdateKind = 0x02 // Ops against the current baseline
)

// String returns the string representation of the update kind.
func (k UpdateKind) String() string {
	switch k {
	case KindFull:
		return "full"
	case KindPartial:
		return "partial"
	default:
		return fmt.Sprintf("UpdateKind(%d)", uint8(k))
	}
}

// OpKind discriminates partial update ops.
type OpKind uint8

const (
	OpReference OpKind = 0x01 // Copy an item of the baseline
	OpInline    OpKind = 0x02 // New or changed item
)

// String returns the string representation of the op kind.
func (k OpKind) String() string {
	switch k {
	case OpReference:
		return "reference"
	case OpInline:
		return "inline"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(k))
	}
}

// Op is one item of a partial update, in paint order.
type Op struct {
	Kind  OpKind              `msgpack:"k"`
	Index uint32              `msgpack:"i,omitempty"`
	Item  *frame.ClippedShape `msgpack:"s,omitempty"`
}

// Reference returns an op copying baseline item i.
func Reference(i int) Op {
	return Op{Kind: OpReference, Index: uint32(i)}
}

// Inline returns an op carrying item.
func Inline(item frame.ClippedShape) Op {
	return Op{Kind: OpInline, Item: &item}
}

// Update is the unit sent from host to viewer.
//
// For KindFull, Frame is the complete frame and Ops is empty. For
// KindPartial, Frame carries everything but the draw items and Ops lists the
// items in order.
type Update struct {
	Kind  UpdateKind   `msgpack:"kind"`
	Frame *frame.Frame `msgpack:"frame"`
	Ops   []Op         `msgpack:"ops,omitempty"`
}

// Counts returns the number of reference and inline ops. A full update
// counts every item as inline.
func (u *Update) Counts() (refs, inline int) {
	if u.Kind == KindFull {
		return 0, u.Frame.Len()
	}
	for _, op := range u.Ops {
		if op.Kind == OpReference {
			refs++
		} else {
			inline++
		}
	}
	return refs, inline
}
