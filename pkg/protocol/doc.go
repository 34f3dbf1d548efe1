// Package protocol implements the wire format between a remote UI host and
// its viewers.
//
// Every websocket binary message carries exactly one frame:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//	│                                                             │
//	│  Payload (variable length)                                  │
//	│                                                             │
//	└─────────────────────────────────────────────────────────────┘
//
// Payloads are msgpack documents. Input and update payloads are always
// compressed (FlagCompressed); compression is not negotiated:
//
//	[raw length: uvarint][method: 1 byte][data]
//
// where method 0 stores data as is (used when lz4 cannot shrink it) and
// method 1 is an lz4 block.
//
// # Frame Types
//
//   - FrameHandshake (0x00): ClientHello / ServerHello
//   - FrameInput (0x01): viewer → host input snapshot
//   - FrameUpdate (0x02): host → viewer full or partial update
//   - FrameControl (0x03): ping, pong, close
//   - FrameErrorMessage (0x05): error report, fatal ones precede a close
//
// # Session Flow
//
//	viewer                              host
//	  │── Handshake(ClientHello) ──────────▶│
//	  │◀────────── Handshake(ServerHello) ──│
//	  │── Input ───────────────────────────▶│
//	  │◀──────────────────────────── Update │  (Full first, then Partial)
//	  │            ...                      │
//	  │◀──────────── Control(Close) ────────│
//
// Any malformed frame, decompression failure or undecodable payload is a
// protocol error and is fatal to the connection that produced it.
package protocol
