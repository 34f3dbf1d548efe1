// Package frame defines the scene model exchanged between a remoteui host
// and its viewers.
//
// A Frame is one rendered scene snapshot: an ordered list of clipped shapes
// (paint order is list order) plus a PlatformOutput record carrying the
// non-visual side effects of the pass (clipboard, cursor, URL requests, IME,
// accessibility). Frames are produced once per tick per viewer and are
// treated as immutable once produced.
//
// An Input is the viewer-to-host snapshot: discrete events plus continuous
// state (screen rect, time). Blank strips the events so the host can re-run
// the UI without user action.
//
// All types carry msgpack tags. Struct fields are encoded in declaration
// order and no type here contains a map, so encoding is deterministic; the
// contenthash package relies on that to derive content keys.
//
// Text is the one shape whose realized form does not cross the wire: a
// TextShape carries its portable LayoutJob and a locally built Galley that
// is skipped by the encoder and rebuilt by the receiver.
package frame
